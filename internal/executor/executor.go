// Package executor places single market-order legs and tracks them to a
// terminal outcome. It owns the retry and fill-polling protocol; callers get
// back an explicit Outcome instead of having to classify errors themselves.
package executor

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chikanerick/asterdex-trading-bot/internal/exchange"
	"github.com/chikanerick/asterdex-trading-bot/internal/logger"
	"github.com/chikanerick/asterdex-trading-bot/internal/market"
	"github.com/chikanerick/asterdex-trading-bot/internal/types"
	"github.com/chikanerick/asterdex-trading-bot/pkg/errors"
)

const (
	fillPollInterval = time.Second
	fillTimeout      = 10 * time.Second
	backoffStep      = 1500 * time.Millisecond
)

// Outcome is the terminal state of one leg execution.
type Outcome string

const (
	// OutcomeFilled means the order was confirmed filled.
	OutcomeFilled Outcome = "FILLED"
	// OutcomeSkipped means the leg was never submitted, for example when
	// the normalized quantity fell below the exchange minimum.
	OutcomeSkipped Outcome = "SKIPPED"
	// OutcomeTimedOut means an order was submitted but did not fill within
	// the polling window.
	OutcomeTimedOut Outcome = "TIMED_OUT"
	// OutcomeRejected means the exchange reported a terminal non-fill state.
	OutcomeRejected Outcome = "REJECTED"
	// OutcomeAbandoned means every attempt failed and the leg was given up.
	OutcomeAbandoned Outcome = "ABANDONED"
)

// Request describes one leg to execute.
type Request struct {
	Account    string
	Symbol     string
	Side       types.Side
	Quantity   decimal.Decimal
	ReduceOnly bool
	// MarkPrice is used only to value the fill for statistics.
	MarkPrice decimal.Decimal
}

// Result reports how a leg ended up.
type Result struct {
	Outcome  Outcome
	Quantity decimal.Decimal
	Fill     types.Fill
	// LastErr holds the failure of the final attempt when the leg was
	// abandoned.
	LastErr error
}

// Sink receives confirmed fills for bookkeeping.
type Sink interface {
	RecordFill(ctx context.Context, account string, symbol string, side types.Side, quantity decimal.Decimal, price decimal.Decimal) error
}

// SleepFunc is injected so tests can observe and skip real delays.
type SleepFunc func(time.Duration)

// Executor runs the per-leg order protocol against one exchange client at a
// time.
type Executor struct {
	registry    *market.Registry
	sink        Sink
	log         *logger.Logger
	sleep       SleepFunc
	maxAttempts int
}

// NewExecutor creates an Executor. sink may be nil when no statistics are
// collected. If sleep is nil, time.Sleep is used.
func NewExecutor(registry *market.Registry, sink Sink, log *logger.Logger, maxAttempts int, sleep SleepFunc) *Executor {
	if sleep == nil {
		sleep = time.Sleep
	}

	return &Executor{
		registry:    registry,
		sink:        sink,
		log:         log,
		sleep:       sleep,
		maxAttempts: maxAttempts,
	}
}

// Execute normalizes the requested quantity, then places and tracks the order
// until it fills or every attempt is exhausted. A quantity that normalizes
// below the exchange minimum is skipped, never retried.
func (e *Executor) Execute(ctx context.Context, client exchange.Client, req Request) Result {
	adjusted, err := e.registry.AdjustQuantity(req.Quantity, req.Symbol)
	if err != nil {
		e.log.Warn("quantity normalization failed",
			zap.String("account", req.Account),
			zap.String("symbol", req.Symbol),
			zap.Error(err))

		return Result{Outcome: OutcomeSkipped, LastErr: err}
	}

	if adjusted.IsZero() || !e.meetsMinQty(adjusted, req.Symbol) {
		e.log.Info("leg skipped below minimum quantity",
			zap.String("account", req.Account),
			zap.String("symbol", req.Symbol),
			zap.String("requested", req.Quantity.String()),
			zap.String("adjusted", adjusted.String()))

		return Result{
			Outcome:  OutcomeSkipped,
			Quantity: adjusted,
			LastErr:  errors.Newf(errors.ErrCodeBelowMinQty, "quantity %s below minimum for %s", adjusted, req.Symbol),
		}
	}

	order := types.MarketOrder{
		Symbol:     req.Symbol,
		Side:       req.Side,
		Quantity:   adjusted,
		ReduceOnly: req.ReduceOnly,
	}
	if err := order.Validate(); err != nil {
		return Result{Outcome: OutcomeSkipped, Quantity: adjusted, LastErr: err}
	}

	var last Result
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		last = e.attempt(ctx, client, order, req)
		if last.Outcome == OutcomeFilled {
			e.record(ctx, req, last)

			return last
		}

		e.log.Warn("order attempt failed",
			zap.String("account", req.Account),
			zap.String("symbol", req.Symbol),
			zap.String("side", string(req.Side)),
			zap.Int("attempt", attempt),
			zap.String("outcome", string(last.Outcome)),
			zap.Error(last.LastErr))

		if attempt < e.maxAttempts {
			e.sleep(time.Duration(attempt) * backoffStep)
		}
	}

	return Result{Outcome: OutcomeAbandoned, Quantity: adjusted, LastErr: last.LastErr}
}

// attempt submits the order once and polls it to a terminal state. Each
// attempt is a fresh order with its own client order ID; resubmitting a
// previous ID would be rejected as a duplicate while the earlier order is
// still open on the exchange.
func (e *Executor) attempt(ctx context.Context, client exchange.Client, order types.MarketOrder, req Request) Result {
	order.ClientOrderID = uuid.NewString()

	resp, err := client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(futures.SideType(order.Side)).
		Type(futures.OrderTypeMarket).
		Quantity(e.formatQuantity(order)).
		ReduceOnly(order.ReduceOnly).
		NewClientOrderID(order.ClientOrderID).
		Do(ctx)
	if err != nil {
		return Result{
			Outcome:  OutcomeRejected,
			Quantity: order.Quantity,
			LastErr:  errors.Wrapf(errors.ErrCodeOrderPlacementFailed, err, "place %s %s %s", order.Side, order.Symbol, order.Quantity),
		}
	}

	return e.waitForFill(ctx, client, order, resp.OrderID)
}

// waitForFill polls order status once per interval until the order fills,
// reaches a terminal non-fill state, or the window elapses. A failed poll
// does not end the window: the order may still fill while the API is
// unreachable, and giving up early would resubmit on top of a live order.
func (e *Executor) waitForFill(ctx context.Context, client exchange.Client, order types.MarketOrder, orderID int64) Result {
	polls := int(fillTimeout / fillPollInterval)

	var pollErr error

	for i := 0; i < polls; i++ {
		got, err := client.NewGetOrderService().
			Symbol(order.Symbol).
			OrderID(orderID).
			Do(ctx)
		if err != nil {
			pollErr = errors.Wrapf(errors.ErrCodeOrderStatusFailed, err, "poll order %d on %s", orderID, order.Symbol)
			e.sleep(fillPollInterval)

			continue
		}

		switch got.Status {
		case futures.OrderStatusTypeFilled:
			return Result{
				Outcome:  OutcomeFilled,
				Quantity: order.Quantity,
				Fill: types.Fill{
					OrderID:       orderID,
					ClientOrderID: order.ClientOrderID,
					Status:        types.OrderStatusFilled,
					Quantity:      e.executedQuantity(got, order.Quantity),
				},
			}
		case futures.OrderStatusTypeCanceled, futures.OrderStatusTypeRejected, futures.OrderStatusTypeExpired:
			return Result{
				Outcome:  OutcomeRejected,
				Quantity: order.Quantity,
				LastErr:  errors.Newf(errors.ErrCodeOrderPlacementFailed, "order %d on %s ended %s", orderID, order.Symbol, got.Status),
			}
		}

		e.sleep(fillPollInterval)
	}

	return Result{
		Outcome:  OutcomeTimedOut,
		Quantity: order.Quantity,
		LastErr:  errors.Wrapf(errors.ErrCodeFillTimeout, pollErr, "order %d on %s not filled within %s", orderID, order.Symbol, fillTimeout),
	}
}

// record reports a confirmed fill to the statistics sink. Sink failures never
// affect the trading outcome.
func (e *Executor) record(ctx context.Context, req Request, res Result) {
	e.log.Info("order filled",
		zap.String("account", req.Account),
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.String("quantity", res.Fill.Quantity.String()),
		zap.Bool("reduceOnly", req.ReduceOnly))

	if e.sink == nil {
		return
	}

	if err := e.sink.RecordFill(ctx, req.Account, req.Symbol, req.Side, res.Fill.Quantity, req.MarkPrice); err != nil {
		e.log.Warn("statistics sink failed",
			zap.String("account", req.Account),
			zap.String("symbol", req.Symbol),
			zap.Error(err))
	}
}

func (e *Executor) meetsMinQty(adjusted decimal.Decimal, symbol string) bool {
	opt := e.registry.Get(symbol)
	if opt.IsNone() {
		return false
	}

	return adjusted.GreaterThanOrEqual(opt.Unwrap().MinQty)
}

func (e *Executor) formatQuantity(order types.MarketOrder) string {
	opt := e.registry.Get(order.Symbol)
	if opt.IsNone() {
		return order.Quantity.String()
	}

	return market.FormatQuantity(order.Quantity, opt.Unwrap().QtyPrecision)
}

func (e *Executor) executedQuantity(order *futures.Order, fallback decimal.Decimal) decimal.Decimal {
	executed, err := decimal.NewFromString(order.ExecutedQuantity)
	if err != nil || executed.IsZero() {
		return fallback
	}

	return executed
}
