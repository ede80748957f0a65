package types

import (
	"github.com/shopspring/decimal"
)

// Leg is one side of a multi-account cycle with its assigned quantity share.
// The shares of all legs in a cycle sum to exactly 1.
type Leg struct {
	Side  Side
	Share decimal.Decimal
}

// OpenPosition records a leg that was actually opened on the exchange.
// The close instruction is derived from it: opposite side, reduce-only,
// same quantity.
type OpenPosition struct {
	Account  string
	Symbol   string
	Quantity decimal.Decimal
	Side     Side
}
