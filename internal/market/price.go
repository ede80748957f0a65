package market

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/chikanerick/asterdex-trading-bot/internal/exchange"
	"github.com/chikanerick/asterdex-trading-bot/pkg/errors"
)

// Oracle fetches the exchange's current mark price for a symbol. No
// caching: sizing decisions are made against a fresh price every cycle.
type Oracle struct {
	client exchange.Client
}

// NewOracle creates an Oracle backed by the given client.
func NewOracle(client exchange.Client) *Oracle {
	return &Oracle{client: client}
}

// MarkPrice returns the current mark price for symbol. Failures propagate;
// a cycle cannot be sized without a price.
func (o *Oracle) MarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	indexes, err := o.client.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.ErrCodePriceFetchFailed, err, "failed to fetch mark price for %s", symbol)
	}

	for _, index := range indexes {
		if index.Symbol != symbol {
			continue
		}

		price, err := decimal.NewFromString(index.MarkPrice)
		if err != nil {
			return decimal.Zero, errors.Wrapf(errors.ErrCodePriceParseFailed, err, "invalid mark price %q for %s", index.MarkPrice, symbol)
		}

		return price, nil
	}

	return decimal.Zero, errors.Newf(errors.ErrCodePriceFetchFailed, "no premium index entry for %s", symbol)
}
