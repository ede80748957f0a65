// Package cycle runs complete hedged trading cycles. A cycle picks three
// accounts, opens two long legs and one short leg whose shares net to zero,
// holds, then closes every opened position with reduce-only orders.
package cycle

import (
	"context"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chikanerick/asterdex-trading-bot/internal/allocator"
	"github.com/chikanerick/asterdex-trading-bot/internal/config"
	"github.com/chikanerick/asterdex-trading-bot/internal/exchange"
	"github.com/chikanerick/asterdex-trading-bot/internal/executor"
	"github.com/chikanerick/asterdex-trading-bot/internal/logger"
	"github.com/chikanerick/asterdex-trading-bot/internal/market"
	"github.com/chikanerick/asterdex-trading-bot/internal/types"
	"github.com/chikanerick/asterdex-trading-bot/pkg/errors"
)

// AccountClient pairs an account with its authenticated exchange client.
type AccountClient struct {
	Account types.Account
	Client  exchange.Client
}

// Orchestrator drives one cycle at a time. It is not safe for concurrent use.
type Orchestrator struct {
	accounts []AccountClient
	registry *market.Registry
	oracle   *market.Oracle
	alloc    *allocator.Allocator
	exec     *executor.Executor
	settings config.Settings
	log      *logger.Logger
	rng      *rand.Rand
	sleep    executor.SleepFunc
}

// NewOrchestrator creates an Orchestrator over at least three accounts. If
// sleep is nil, time.Sleep is used.
func NewOrchestrator(
	accounts []AccountClient,
	registry *market.Registry,
	oracle *market.Oracle,
	alloc *allocator.Allocator,
	exec *executor.Executor,
	settings config.Settings,
	log *logger.Logger,
	rng *rand.Rand,
	sleep executor.SleepFunc,
) (*Orchestrator, error) {
	if len(accounts) < 3 {
		return nil, errors.Newf(errors.ErrCodeNotEnoughAccounts, "need at least 3 accounts, got %d", len(accounts))
	}

	if sleep == nil {
		sleep = time.Sleep
	}

	return &Orchestrator{
		accounts: accounts,
		registry: registry,
		oracle:   oracle,
		alloc:    alloc,
		exec:     exec,
		settings: settings,
		log:      log,
		rng:      rng,
		sleep:    sleep,
	}, nil
}

// RunCycle executes one full open-hold-close cycle on the given symbol. The
// returned error is non-nil only when the cycle could not start at all, for
// example when the mark price is unavailable. Once orders start going out,
// failures on individual legs are logged and the cycle continues so that
// whatever did open gets closed.
func (o *Orchestrator) RunCycle(ctx context.Context, symbol string) error {
	mark, err := o.oracle.MarkPrice(ctx, symbol)
	if err != nil {
		return err
	}

	participants := o.pickAccounts()
	total := o.totalQuantity(mark)
	legs := o.alloc.SampleLegs()

	o.log.Info("cycle started",
		zap.String("symbol", symbol),
		zap.String("markPrice", mark.String()),
		zap.String("totalQuantity", total.String()))

	opens := o.openLegs(ctx, symbol, participants, legs, total, mark)

	o.sleep(o.randomDuration(o.settings.HoldTimeRange))

	o.closeLegs(ctx, participants, opens, mark)

	o.log.Info("cycle finished",
		zap.String("symbol", symbol),
		zap.Int("opened", len(opens)))

	o.sleep(o.randomDuration(o.settings.BetweenCyclesRange))

	return nil
}

// pickAccounts selects three distinct accounts in random order, so leg roles
// rotate across the pool.
func (o *Orchestrator) pickAccounts() []AccountClient {
	perm := o.rng.Perm(len(o.accounts))

	picked := make([]AccountClient, 3)
	for i := range picked {
		picked[i] = o.accounts[perm[i]]
	}

	return picked
}

// totalQuantity sizes the cycle: base notional times leverage at the current
// mark price, scaled by a jitter multiplier from [1-J, 1+J].
func (o *Orchestrator) totalQuantity(mark decimal.Decimal) decimal.Decimal {
	notional := o.settings.BaseNotionalUSDT.Decimal.
		Mul(decimal.NewFromInt(int64(o.settings.Leverage)))

	return notional.Div(mark).Mul(o.jitter())
}

func (o *Orchestrator) jitter() decimal.Decimal {
	j := o.settings.QtyJitter.Decimal
	if j.IsZero() {
		return decimal.NewFromInt(1)
	}

	span := decimal.NewFromFloat(o.rng.Float64() * 2).Mul(j)

	return decimal.NewFromInt(1).Sub(j).Add(span)
}

func (o *Orchestrator) openLegs(
	ctx context.Context,
	symbol string,
	participants []AccountClient,
	legs []types.Leg,
	total decimal.Decimal,
	mark decimal.Decimal,
) []types.OpenPosition {
	var opens []types.OpenPosition

	for i, leg := range legs {
		participant := participants[i]
		quantity := total.Mul(leg.Share)

		if o.belowMinNotional(symbol, quantity, mark) {
			o.log.Info("leg below minimum notional, skipped",
				zap.String("account", participant.Account.Name),
				zap.String("symbol", symbol),
				zap.String("quantity", quantity.String()))

			continue
		}

		res := o.exec.Execute(ctx, participant.Client, executor.Request{
			Account:   participant.Account.Name,
			Symbol:    symbol,
			Side:      leg.Side,
			Quantity:  quantity,
			MarkPrice: mark,
		})
		if res.Outcome != executor.OutcomeFilled {
			o.log.Warn("open leg not filled",
				zap.String("account", participant.Account.Name),
				zap.String("symbol", symbol),
				zap.String("side", string(leg.Side)),
				zap.String("outcome", string(res.Outcome)),
				zap.Error(res.LastErr))

			continue
		}

		opens = append(opens, types.OpenPosition{
			Account:  participant.Account.Name,
			Symbol:   symbol,
			Quantity: res.Fill.Quantity,
			Side:     leg.Side,
		})
	}

	return opens
}

// closeLegs unwinds every recorded open with an opposite-side reduce-only
// order. A close that cannot fill is the worst case of the protocol since it
// leaves real exposure behind, so it is logged at error level.
func (o *Orchestrator) closeLegs(ctx context.Context, participants []AccountClient, opens []types.OpenPosition, mark decimal.Decimal) {
	clients := make(map[string]exchange.Client, len(participants))
	for _, p := range participants {
		clients[p.Account.Name] = p.Client
	}

	for _, open := range opens {
		res := o.exec.Execute(ctx, clients[open.Account], executor.Request{
			Account:    open.Account,
			Symbol:     open.Symbol,
			Side:       open.Side.Opposite(),
			Quantity:   open.Quantity,
			ReduceOnly: true,
			MarkPrice:  mark,
		})
		if res.Outcome != executor.OutcomeFilled {
			o.log.Error("close leg not filled, position may remain open",
				zap.String("account", open.Account),
				zap.String("symbol", open.Symbol),
				zap.String("side", string(open.Side.Opposite())),
				zap.String("quantity", open.Quantity.String()),
				zap.String("outcome", string(res.Outcome)),
				zap.Error(res.LastErr))
		}
	}
}

// belowMinNotional checks the leg's post-normalization order value against
// the configured floor.
func (o *Orchestrator) belowMinNotional(symbol string, quantity, mark decimal.Decimal) bool {
	adjusted, err := o.registry.AdjustQuantity(quantity, symbol)
	if err != nil {
		return false
	}

	return adjusted.Mul(mark).LessThan(o.settings.MinNotionalUSDT.Decimal)
}

func (o *Orchestrator) randomDuration(r config.Range) time.Duration {
	seconds := r.Min
	if r.Max > r.Min {
		seconds += o.rng.Intn(r.Max - r.Min + 1)
	}

	return time.Duration(seconds) * time.Second
}
