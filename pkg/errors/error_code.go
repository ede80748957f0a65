package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeMissingCredential    ErrorCode = 102
	ErrCodeInvalidProxy         ErrorCode = 103
	ErrCodeAccountProxyMismatch ErrorCode = 104
	ErrCodeNotEnoughAccounts    ErrorCode = 105

	// Filter errors (200-299)
	ErrCodeFiltersUnavailable ErrorCode = 200
	ErrCodeSymbolNotFound     ErrorCode = 201
	ErrCodeFilterLoadFailed   ErrorCode = 202

	// Price errors (300-399)
	ErrCodePriceFetchFailed ErrorCode = 300
	ErrCodePriceParseFailed ErrorCode = 301

	// Order errors (400-499)
	ErrCodeBelowMinQty          ErrorCode = 400
	ErrCodeBelowMinNotional     ErrorCode = 401
	ErrCodeOrderPlacementFailed ErrorCode = 402
	ErrCodeFillTimeout          ErrorCode = 403
	ErrCodeOrderStatusFailed    ErrorCode = 404
	ErrCodeInvalidOrder         ErrorCode = 405

	// Leverage errors (500-599)
	ErrCodeLeverageFailed ErrorCode = 500

	// Statistics errors (600-699)
	ErrCodeStatsSinkFailed ErrorCode = 600
)
