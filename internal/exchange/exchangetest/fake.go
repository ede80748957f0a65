// Package exchangetest provides a scripted in-memory exchange.Client for
// tests. Responses are consumed in order; the last element of a sequence is
// repeated once the sequence is exhausted, which keeps polling loops simple
// to script.
package exchangetest

import (
	"context"

	"github.com/adshao/go-binance/v2/futures"

	"github.com/chikanerick/asterdex-trading-bot/internal/exchange"
)

// CreateOrderCall records the parameters of one submitted order.
type CreateOrderCall struct {
	Symbol        string
	Side          futures.SideType
	OrderType     futures.OrderType
	Quantity      string
	ReduceOnly    bool
	ClientOrderID string
}

// GetOrderCall records one status poll.
type GetOrderCall struct {
	Symbol  string
	OrderID int64
}

// LeverageCall records one leverage change.
type LeverageCall struct {
	Symbol   string
	Leverage int
}

// Fake implements exchange.Client with scripted responses.
type Fake struct {
	ExchangeInfo    *futures.ExchangeInfo
	ExchangeInfoErr error

	PremiumIndexes  []*futures.PremiumIndex
	PremiumIndexErr error

	// CreateOrderResults are consumed one per CreateOrderService.Do call.
	CreateOrderResults []CreateOrderResult
	// GetOrderResults are consumed one per GetOrderService.Do call.
	GetOrderResults []GetOrderResult

	LeverageErr error

	CreateOrderCalls    []CreateOrderCall
	GetOrderCalls       []GetOrderCall
	LeverageCalls       []LeverageCall
	PremiumIndexSymbols []string

	createOrderIdx int
	getOrderIdx    int
}

// CreateOrderResult is one scripted order placement outcome.
type CreateOrderResult struct {
	Response *futures.CreateOrderResponse
	Err      error
}

// GetOrderResult is one scripted status poll outcome.
type GetOrderResult struct {
	Order *futures.Order
	Err   error
}

var _ exchange.Client = (*Fake)(nil)

func (f *Fake) NewExchangeInfoService() exchange.ExchangeInfoService {
	return &fakeExchangeInfoService{fake: f}
}

func (f *Fake) NewPremiumIndexService() exchange.PremiumIndexService {
	return &fakePremiumIndexService{fake: f}
}

func (f *Fake) NewCreateOrderService() exchange.CreateOrderService {
	return &fakeCreateOrderService{fake: f}
}

func (f *Fake) NewGetOrderService() exchange.GetOrderService {
	return &fakeGetOrderService{fake: f}
}

func (f *Fake) NewChangeLeverageService() exchange.ChangeLeverageService {
	return &fakeChangeLeverageService{fake: f}
}

func (f *Fake) nextCreateOrderResult() CreateOrderResult {
	if len(f.CreateOrderResults) == 0 {
		return CreateOrderResult{Response: &futures.CreateOrderResponse{}, Err: nil}
	}

	idx := f.createOrderIdx
	if idx >= len(f.CreateOrderResults) {
		idx = len(f.CreateOrderResults) - 1
	}

	f.createOrderIdx++

	return f.CreateOrderResults[idx]
}

func (f *Fake) nextGetOrderResult() GetOrderResult {
	if len(f.GetOrderResults) == 0 {
		return GetOrderResult{Order: &futures.Order{}, Err: nil}
	}

	idx := f.getOrderIdx
	if idx >= len(f.GetOrderResults) {
		idx = len(f.GetOrderResults) - 1
	}

	f.getOrderIdx++

	return f.GetOrderResults[idx]
}

type fakeExchangeInfoService struct {
	fake *Fake
}

func (s *fakeExchangeInfoService) Do(_ context.Context) (*futures.ExchangeInfo, error) {
	return s.fake.ExchangeInfo, s.fake.ExchangeInfoErr
}

type fakePremiumIndexService struct {
	fake   *Fake
	symbol string
}

func (s *fakePremiumIndexService) Symbol(symbol string) exchange.PremiumIndexService {
	s.symbol = symbol

	return s
}

func (s *fakePremiumIndexService) Do(_ context.Context) ([]*futures.PremiumIndex, error) {
	s.fake.PremiumIndexSymbols = append(s.fake.PremiumIndexSymbols, s.symbol)

	return s.fake.PremiumIndexes, s.fake.PremiumIndexErr
}

type fakeCreateOrderService struct {
	fake *Fake
	call CreateOrderCall
}

func (s *fakeCreateOrderService) Symbol(symbol string) exchange.CreateOrderService {
	s.call.Symbol = symbol

	return s
}

func (s *fakeCreateOrderService) Side(side futures.SideType) exchange.CreateOrderService {
	s.call.Side = side

	return s
}

func (s *fakeCreateOrderService) Type(orderType futures.OrderType) exchange.CreateOrderService {
	s.call.OrderType = orderType

	return s
}

func (s *fakeCreateOrderService) Quantity(quantity string) exchange.CreateOrderService {
	s.call.Quantity = quantity

	return s
}

func (s *fakeCreateOrderService) ReduceOnly(reduceOnly bool) exchange.CreateOrderService {
	s.call.ReduceOnly = reduceOnly

	return s
}

func (s *fakeCreateOrderService) NewClientOrderID(id string) exchange.CreateOrderService {
	s.call.ClientOrderID = id

	return s
}

func (s *fakeCreateOrderService) Do(_ context.Context) (*futures.CreateOrderResponse, error) {
	s.fake.CreateOrderCalls = append(s.fake.CreateOrderCalls, s.call)
	result := s.fake.nextCreateOrderResult()

	return result.Response, result.Err
}

type fakeGetOrderService struct {
	fake *Fake
	call GetOrderCall
}

func (s *fakeGetOrderService) Symbol(symbol string) exchange.GetOrderService {
	s.call.Symbol = symbol

	return s
}

func (s *fakeGetOrderService) OrderID(orderID int64) exchange.GetOrderService {
	s.call.OrderID = orderID

	return s
}

func (s *fakeGetOrderService) Do(_ context.Context) (*futures.Order, error) {
	s.fake.GetOrderCalls = append(s.fake.GetOrderCalls, s.call)
	result := s.fake.nextGetOrderResult()

	return result.Order, result.Err
}

type fakeChangeLeverageService struct {
	fake *Fake
	call LeverageCall
}

func (s *fakeChangeLeverageService) Symbol(symbol string) exchange.ChangeLeverageService {
	s.call.Symbol = symbol

	return s
}

func (s *fakeChangeLeverageService) Leverage(leverage int) exchange.ChangeLeverageService {
	s.call.Leverage = leverage

	return s
}

func (s *fakeChangeLeverageService) Do(_ context.Context) (*futures.SymbolLeverage, error) {
	s.fake.LeverageCalls = append(s.fake.LeverageCalls, s.call)
	if s.fake.LeverageErr != nil {
		return nil, s.fake.LeverageErr
	}

	return &futures.SymbolLeverage{
		Leverage: s.call.Leverage,
		Symbol:   s.call.Symbol,
	}, nil
}
