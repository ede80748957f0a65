package market

import (
	"github.com/shopspring/decimal"

	"github.com/chikanerick/asterdex-trading-bot/pkg/errors"
)

// AdjustQuantity converts an arbitrary desired quantity into one that is
// legal under the symbol's filters: floored to the lot grid, clamped into
// [MinQty, MaxQty] and truncated to the declared quantity precision.
// Flooring and truncation never round up; exceeding available margin or an
// exchange limit as a rounding side effect is not acceptable. A raw
// quantity of zero or less adjusts to zero.
func (r *Registry) AdjustQuantity(raw decimal.Decimal, symbol string) (decimal.Decimal, error) {
	if !raw.IsPositive() {
		return decimal.Zero, nil
	}

	opt := r.Get(symbol)
	if opt.IsNone() {
		return decimal.Zero, errors.Newf(errors.ErrCodeFiltersUnavailable, "no filters loaded for symbol %s", symbol)
	}

	filters := opt.Unwrap()

	adjusted := raw.Div(filters.LotStep).Floor().Mul(filters.LotStep)

	if adjusted.LessThan(filters.MinQty) {
		adjusted = filters.MinQty
	}

	if adjusted.GreaterThan(filters.MaxQty) {
		adjusted = filters.MaxQty
	}

	return adjusted.Truncate(filters.QtyPrecision), nil
}

// FormatQuantity renders a quantity with exactly precision fractional
// digits, truncating any excess. Market orders must never be submitted in
// scientific notation or with more digits than the exchange accepts.
func FormatQuantity(quantity decimal.Decimal, precision int32) string {
	return quantity.Truncate(precision).StringFixed(precision)
}
