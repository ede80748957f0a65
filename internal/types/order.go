package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/chikanerick/asterdex-trading-bot/pkg/errors"
)

type Side string

type OrderStatus string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
	OrderStatusUnknown         OrderStatus = ""
)

// Opposite returns the side that unwinds a position opened with s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}

	return SideBuy
}

// MarketOrder describes one market order to be submitted to the exchange.
type MarketOrder struct {
	Symbol string `yaml:"symbol" json:"symbol" validate:"required"`
	Side   Side   `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	// Quantity is the exchange-legal adjusted quantity, already floored to
	// the symbol's lot grid.
	Quantity decimal.Decimal `yaml:"quantity" json:"quantity"`
	// ReduceOnly guarantees the order only decreases an existing position.
	// Set on every close order.
	ReduceOnly bool `yaml:"reduce_only" json:"reduce_only"`
	// ClientOrderID lets a fill be traced even if the exchange order ID is
	// lost between placement and polling.
	ClientOrderID string `yaml:"client_order_id" json:"client_order_id"`
}

// Validate validates the MarketOrder struct.
func (o *MarketOrder) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid market order", err)
	}

	if !o.Quantity.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidOrder, "order quantity must be positive, got %s", o.Quantity)
	}

	return nil
}

// Fill is the confirmed result of a filled market order.
type Fill struct {
	OrderID       int64
	ClientOrderID string
	Status        OrderStatus
	Quantity      decimal.Decimal
}
