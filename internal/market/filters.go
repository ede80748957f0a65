// Package market holds the per-symbol exchange trading constraints and the
// arithmetic that keeps order quantities legal under them.
package market

import (
	"context"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chikanerick/asterdex-trading-bot/internal/exchange"
	"github.com/chikanerick/asterdex-trading-bot/internal/logger"
	"github.com/chikanerick/asterdex-trading-bot/pkg/errors"
)

// defaultTickSize is used when a symbol carries no price filter.
var defaultTickSize = decimal.RequireFromString("0.0001")

// SymbolFilters are the exchange-imposed granularity constraints for one
// symbol. Immutable once loaded.
type SymbolFilters struct {
	// LotStep is the minimum quantity increment.
	LotStep decimal.Decimal
	MinQty  decimal.Decimal
	MaxQty  decimal.Decimal
	// TickSize is the minimum price increment.
	TickSize decimal.Decimal
	// QtyPrecision is the maximum number of fractional digits the exchange
	// accepts for a quantity.
	QtyPrecision int32
}

// Registry holds SymbolFilters per symbol. It is populated once at startup
// and treated as read-only afterward; execution is single-threaded so no
// locking is needed.
type Registry struct {
	client  exchange.Client
	log     *logger.Logger
	filters map[string]SymbolFilters
}

// NewRegistry creates an empty Registry backed by the given client for
// metadata fetches.
func NewRegistry(client exchange.Client, log *logger.Logger) *Registry {
	return &Registry{
		client:  client,
		log:     log,
		filters: make(map[string]SymbolFilters),
	}
}

// Load fetches exchange metadata for symbol and stores its filters. The
// market-order lot filter is preferred over the general lot filter; the tick
// size falls back to a minimal default when the price filter is absent.
// On error the symbol stays unloaded and callers observe the absence
// through Get.
func (r *Registry) Load(ctx context.Context, symbol string) error {
	info, err := r.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeFilterLoadFailed, err, "failed to fetch exchange info for %s", symbol)
	}

	var found *futures.Symbol

	for i := range info.Symbols {
		if info.Symbols[i].Symbol == symbol {
			found = &info.Symbols[i]

			break
		}
	}

	if found == nil {
		return errors.Newf(errors.ErrCodeSymbolNotFound, "symbol %s not found in exchange info", symbol)
	}

	filters, err := parseSymbolFilters(found)
	if err != nil {
		return err
	}

	r.filters[symbol] = filters
	r.log.Info("symbol filters loaded",
		zap.String("symbol", symbol),
		zap.String("lotStep", filters.LotStep.String()),
		zap.String("minQty", filters.MinQty.String()),
		zap.String("maxQty", filters.MaxQty.String()),
		zap.String("tickSize", filters.TickSize.String()),
		zap.Int32("qtyPrecision", filters.QtyPrecision))

	return nil
}

// Reload discards the stored entry for symbol and fetches it again.
func (r *Registry) Reload(ctx context.Context, symbol string) error {
	delete(r.filters, symbol)

	return r.Load(ctx, symbol)
}

// Get returns the filters for symbol. Absence means the symbol was never
// loaded (or failed to load) and must not be traded.
func (r *Registry) Get(symbol string) optional.Option[SymbolFilters] {
	filters, ok := r.filters[symbol]
	if !ok {
		return optional.None[SymbolFilters]()
	}

	return optional.Some(filters)
}

// parseSymbolFilters extracts the quantity and price constraints from one
// exchange info symbol entry.
func parseSymbolFilters(symbol *futures.Symbol) (SymbolFilters, error) {
	var minQty, maxQty, stepSize string

	if market := symbol.MarketLotSizeFilter(); market != nil && market.StepSize != "" {
		minQty, maxQty, stepSize = market.MinQuantity, market.MaxQuantity, market.StepSize
	} else if lot := symbol.LotSizeFilter(); lot != nil && lot.StepSize != "" {
		minQty, maxQty, stepSize = lot.MinQuantity, lot.MaxQuantity, lot.StepSize
	} else {
		return SymbolFilters{}, errors.Newf(errors.ErrCodeFilterLoadFailed,
			"symbol %s has no MARKET_LOT_SIZE or LOT_SIZE filter", symbol.Symbol)
	}

	lotStep, err := decimal.NewFromString(stepSize)
	if err != nil {
		return SymbolFilters{}, errors.Wrapf(errors.ErrCodeFilterLoadFailed, err, "invalid stepSize %q", stepSize)
	}

	minQtyDec, err := decimal.NewFromString(minQty)
	if err != nil {
		return SymbolFilters{}, errors.Wrapf(errors.ErrCodeFilterLoadFailed, err, "invalid minQty %q", minQty)
	}

	maxQtyDec, err := decimal.NewFromString(maxQty)
	if err != nil {
		return SymbolFilters{}, errors.Wrapf(errors.ErrCodeFilterLoadFailed, err, "invalid maxQty %q", maxQty)
	}

	tickSize := defaultTickSize

	if price := symbol.PriceFilter(); price != nil && price.TickSize != "" {
		tickSize, err = decimal.NewFromString(price.TickSize)
		if err != nil {
			return SymbolFilters{}, errors.Wrapf(errors.ErrCodeFilterLoadFailed, err, "invalid tickSize %q", price.TickSize)
		}
	}

	return SymbolFilters{
		LotStep:      lotStep,
		MinQty:       minQtyDec,
		MaxQty:       maxQtyDec,
		TickSize:     tickSize,
		QtyPrecision: int32(symbol.QuantityPrecision),
	}, nil
}
