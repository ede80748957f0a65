package exchange

import (
	"context"

	"github.com/chikanerick/asterdex-trading-bot/pkg/errors"
)

// SetLeverage sets the initial leverage for a symbol on one account.
func SetLeverage(ctx context.Context, client Client, symbol string, leverage int) error {
	_, err := client.NewChangeLeverageService().
		Symbol(symbol).
		Leverage(leverage).
		Do(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeLeverageFailed, err, "failed to set leverage %dx for %s", leverage, symbol)
	}

	return nil
}
