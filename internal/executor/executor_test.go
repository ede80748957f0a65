package executor

import (
	"context"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/chikanerick/asterdex-trading-bot/internal/exchange/exchangetest"
	"github.com/chikanerick/asterdex-trading-bot/internal/logger"
	"github.com/chikanerick/asterdex-trading-bot/internal/market"
	"github.com/chikanerick/asterdex-trading-bot/internal/types"
	"github.com/chikanerick/asterdex-trading-bot/pkg/errors"
)

type recordedFill struct {
	account  string
	symbol   string
	side     types.Side
	quantity decimal.Decimal
	price    decimal.Decimal
}

type stubSink struct {
	fills []recordedFill
	err   error
}

func (s *stubSink) RecordFill(_ context.Context, account, symbol string, side types.Side, quantity, price decimal.Decimal) error {
	s.fills = append(s.fills, recordedFill{account: account, symbol: symbol, side: side, quantity: quantity, price: price})

	return s.err
}

type sleepRecorder struct {
	slept []time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) {
	s.slept = append(s.slept, d)
}

type ExecutorTestSuite struct {
	suite.Suite

	sink    *stubSink
	sleeper *sleepRecorder
}

func TestExecutorSuite(t *testing.T) {
	suite.Run(t, new(ExecutorTestSuite))
}

func (suite *ExecutorTestSuite) SetupTest() {
	suite.sink = &stubSink{}
	suite.sleeper = &sleepRecorder{}
}

// newExecutor builds an Executor whose registry has ETHUSDT loaded with a
// 0.001 lot step, 0.001 minimum and quantity precision 3.
func (suite *ExecutorTestSuite) newExecutor(fake *exchangetest.Fake, maxAttempts int) *Executor {
	fake.ExchangeInfo = &futures.ExchangeInfo{
		Symbols: []futures.Symbol{{
			Symbol:            "ETHUSDT",
			QuantityPrecision: 3,
			Filters: []map[string]interface{}{{
				"filterType": "MARKET_LOT_SIZE",
				"minQty":     "0.001",
				"maxQty":     "1000",
				"stepSize":   "0.001",
			}},
		}},
	}

	registry := market.NewRegistry(fake, logger.NewNopLogger())
	suite.Require().NoError(registry.Load(context.Background(), "ETHUSDT"))

	return NewExecutor(registry, suite.sink, logger.NewNopLogger(), maxAttempts, suite.sleeper.sleep)
}

func (suite *ExecutorTestSuite) request(qty string) Request {
	return Request{
		Account:   "acct-1",
		Symbol:    "ETHUSDT",
		Side:      types.SideBuy,
		Quantity:  decimal.RequireFromString(qty),
		MarkPrice: decimal.RequireFromString("2000"),
	}
}

func (suite *ExecutorTestSuite) TestFilledFirstAttempt() {
	fake := &exchangetest.Fake{
		CreateOrderResults: []exchangetest.CreateOrderResult{
			{Response: &futures.CreateOrderResponse{OrderID: 77}},
		},
		GetOrderResults: []exchangetest.GetOrderResult{
			{Order: &futures.Order{Status: futures.OrderStatusTypeFilled, ExecutedQuantity: "0.052"}},
		},
	}
	exec := suite.newExecutor(fake, 5)

	res := exec.Execute(context.Background(), fake, suite.request("0.0527"))

	suite.Equal(OutcomeFilled, res.Outcome)
	suite.Equal("0.052", res.Fill.Quantity.String())
	suite.Equal(int64(77), res.Fill.OrderID)
	suite.Empty(suite.sleeper.slept)

	suite.Require().Len(fake.CreateOrderCalls, 1)
	call := fake.CreateOrderCalls[0]
	suite.Equal("ETHUSDT", call.Symbol)
	suite.Equal(futures.SideTypeBuy, call.Side)
	suite.Equal(futures.OrderTypeMarket, call.OrderType)
	suite.Equal("0.052", call.Quantity)
	suite.False(call.ReduceOnly)
	suite.NotEmpty(call.ClientOrderID)

	suite.Require().Len(suite.sink.fills, 1)
	fill := suite.sink.fills[0]
	suite.Equal("acct-1", fill.account)
	suite.Equal(types.SideBuy, fill.side)
	suite.Equal("0.052", fill.quantity.String())
	suite.Equal("2000", fill.price.String())
}

func (suite *ExecutorTestSuite) TestReduceOnlyPassedThrough() {
	fake := &exchangetest.Fake{
		GetOrderResults: []exchangetest.GetOrderResult{
			{Order: &futures.Order{Status: futures.OrderStatusTypeFilled}},
		},
	}
	exec := suite.newExecutor(fake, 5)

	req := suite.request("0.1")
	req.Side = types.SideSell
	req.ReduceOnly = true

	res := exec.Execute(context.Background(), fake, req)

	suite.Equal(OutcomeFilled, res.Outcome)
	suite.Require().Len(fake.CreateOrderCalls, 1)
	suite.True(fake.CreateOrderCalls[0].ReduceOnly)
	suite.Equal(futures.SideTypeSell, fake.CreateOrderCalls[0].Side)
}

func (suite *ExecutorTestSuite) TestSkippedZeroQuantityNeverSubmits() {
	fake := &exchangetest.Fake{}
	exec := suite.newExecutor(fake, 5)

	res := exec.Execute(context.Background(), fake, suite.request("0"))

	suite.Equal(OutcomeSkipped, res.Outcome)
	suite.True(errors.HasCode(res.LastErr, errors.ErrCodeBelowMinQty))
	suite.Empty(fake.CreateOrderCalls)
	suite.Empty(suite.sink.fills)
}

func (suite *ExecutorTestSuite) TestSkippedUnknownSymbol() {
	fake := &exchangetest.Fake{}
	exec := suite.newExecutor(fake, 5)

	req := suite.request("0.1")
	req.Symbol = "DOGEUSDT"

	res := exec.Execute(context.Background(), fake, req)

	suite.Equal(OutcomeSkipped, res.Outcome)
	suite.True(errors.HasCode(res.LastErr, errors.ErrCodeFiltersUnavailable))
	suite.Empty(fake.CreateOrderCalls)
}

func (suite *ExecutorTestSuite) TestPlacementErrorRetriedWithBackoff() {
	fake := &exchangetest.Fake{
		CreateOrderResults: []exchangetest.CreateOrderResult{
			{Err: errors.New(errors.ErrCodeUnknown, "502 bad gateway")},
			{Response: &futures.CreateOrderResponse{OrderID: 9}},
		},
		GetOrderResults: []exchangetest.GetOrderResult{
			{Order: &futures.Order{Status: futures.OrderStatusTypeFilled}},
		},
	}
	exec := suite.newExecutor(fake, 5)

	res := exec.Execute(context.Background(), fake, suite.request("0.1"))

	suite.Equal(OutcomeFilled, res.Outcome)
	suite.Len(fake.CreateOrderCalls, 2)
	suite.Equal([]time.Duration{1500 * time.Millisecond}, suite.sleeper.slept)
	suite.Len(suite.sink.fills, 1)
}

func (suite *ExecutorTestSuite) TestAbandonedAfterMaxAttempts() {
	fake := &exchangetest.Fake{
		CreateOrderResults: []exchangetest.CreateOrderResult{
			{Err: errors.New(errors.ErrCodeUnknown, "boom")},
		},
	}
	exec := suite.newExecutor(fake, 3)

	res := exec.Execute(context.Background(), fake, suite.request("0.1"))

	suite.Equal(OutcomeAbandoned, res.Outcome)
	suite.True(errors.HasCode(res.LastErr, errors.ErrCodeOrderPlacementFailed))
	suite.Len(fake.CreateOrderCalls, 3)
	// Linear backoff between attempts: 1.5s then 3s, none after the last.
	suite.Equal([]time.Duration{1500 * time.Millisecond, 3000 * time.Millisecond}, suite.sleeper.slept)
	suite.Empty(suite.sink.fills)
}

func (suite *ExecutorTestSuite) TestFillTimeoutPollsThenRetries() {
	fake := &exchangetest.Fake{
		CreateOrderResults: []exchangetest.CreateOrderResult{
			{Response: &futures.CreateOrderResponse{OrderID: 4}},
		},
		GetOrderResults: []exchangetest.GetOrderResult{
			{Order: &futures.Order{Status: futures.OrderStatusTypeNew}},
		},
	}
	exec := suite.newExecutor(fake, 2)

	res := exec.Execute(context.Background(), fake, suite.request("0.1"))

	suite.Equal(OutcomeAbandoned, res.Outcome)
	suite.True(errors.HasCode(res.LastErr, errors.ErrCodeFillTimeout))
	suite.Len(fake.CreateOrderCalls, 2)
	suite.Len(fake.GetOrderCalls, 20)

	// Two polling windows of ten one-second waits plus one backoff in between.
	suite.Len(suite.sleeper.slept, 21)
	suite.Equal(1500*time.Millisecond, suite.sleeper.slept[10])
}

func (suite *ExecutorTestSuite) TestFreshClientOrderIDPerAttempt() {
	// A timed-out order usually stays open on the exchange, so resubmitting
	// the same client order ID would be rejected as a duplicate. Each
	// attempt must carry its own ID.
	fake := &exchangetest.Fake{
		CreateOrderResults: []exchangetest.CreateOrderResult{
			{Response: &futures.CreateOrderResponse{OrderID: 11}},
		},
		GetOrderResults: []exchangetest.GetOrderResult{
			{Order: &futures.Order{Status: futures.OrderStatusTypeNew}},
		},
	}
	exec := suite.newExecutor(fake, 3)

	res := exec.Execute(context.Background(), fake, suite.request("0.1"))

	suite.Equal(OutcomeAbandoned, res.Outcome)
	suite.Require().Len(fake.CreateOrderCalls, 3)

	seen := make(map[string]bool)
	for _, call := range fake.CreateOrderCalls {
		suite.NotEmpty(call.ClientOrderID)
		suite.False(seen[call.ClientOrderID], "client order ID %s reused", call.ClientOrderID)
		seen[call.ClientOrderID] = true
	}
}

func (suite *ExecutorTestSuite) TestPollErrorDoesNotEndWindow() {
	// Transient status-poll failures keep the window open; the order fills
	// on a later poll without a second submission.
	fake := &exchangetest.Fake{
		CreateOrderResults: []exchangetest.CreateOrderResult{
			{Response: &futures.CreateOrderResponse{OrderID: 12}},
		},
		GetOrderResults: []exchangetest.GetOrderResult{
			{Err: errors.New(errors.ErrCodeUnknown, "connection reset")},
			{Err: errors.New(errors.ErrCodeUnknown, "connection reset")},
			{Order: &futures.Order{Status: futures.OrderStatusTypeFilled}},
		},
	}
	exec := suite.newExecutor(fake, 1)

	res := exec.Execute(context.Background(), fake, suite.request("0.1"))

	suite.Equal(OutcomeFilled, res.Outcome)
	suite.Len(fake.CreateOrderCalls, 1)
	suite.Len(fake.GetOrderCalls, 3)
	suite.Equal([]time.Duration{time.Second, time.Second}, suite.sleeper.slept)
	suite.Len(suite.sink.fills, 1)
}

func (suite *ExecutorTestSuite) TestPersistentPollErrorsEndAsTimeout() {
	fake := &exchangetest.Fake{
		CreateOrderResults: []exchangetest.CreateOrderResult{
			{Response: &futures.CreateOrderResponse{OrderID: 13}},
		},
		GetOrderResults: []exchangetest.GetOrderResult{
			{Err: errors.New(errors.ErrCodeUnknown, "connection reset")},
		},
	}
	exec := suite.newExecutor(fake, 1)

	res := exec.Execute(context.Background(), fake, suite.request("0.1"))

	suite.Equal(OutcomeAbandoned, res.Outcome)
	suite.True(errors.HasCode(res.LastErr, errors.ErrCodeFillTimeout))
	suite.Len(fake.GetOrderCalls, 10)
	suite.Len(fake.CreateOrderCalls, 1)
}

func (suite *ExecutorTestSuite) TestTerminalRejectionRetried() {
	fake := &exchangetest.Fake{
		CreateOrderResults: []exchangetest.CreateOrderResult{
			{Response: &futures.CreateOrderResponse{OrderID: 5}},
		},
		GetOrderResults: []exchangetest.GetOrderResult{
			{Order: &futures.Order{Status: futures.OrderStatusTypeExpired}},
		},
	}
	exec := suite.newExecutor(fake, 2)

	res := exec.Execute(context.Background(), fake, suite.request("0.1"))

	suite.Equal(OutcomeAbandoned, res.Outcome)
	suite.True(errors.HasCode(res.LastErr, errors.ErrCodeOrderPlacementFailed))
	suite.Len(fake.CreateOrderCalls, 2)
}

func (suite *ExecutorTestSuite) TestSinkFailureDoesNotChangeOutcome() {
	suite.sink.err = errors.New(errors.ErrCodeStatsSinkFailed, "disk full")
	fake := &exchangetest.Fake{
		GetOrderResults: []exchangetest.GetOrderResult{
			{Order: &futures.Order{Status: futures.OrderStatusTypeFilled}},
		},
	}
	exec := suite.newExecutor(fake, 5)

	res := exec.Execute(context.Background(), fake, suite.request("0.1"))

	suite.Equal(OutcomeFilled, res.Outcome)
	suite.Len(suite.sink.fills, 1)
}
