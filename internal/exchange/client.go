// Package exchange wraps the Binance-futures-compatible REST API used by
// AsterDex behind narrow service interfaces so the rest of the system can be
// tested without network access. Request signing (HMAC-SHA256 over the
// canonical query string), timestamps and the API-key header are handled by
// the go-binance client.
package exchange

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"github.com/chikanerick/asterdex-trading-bot/internal/types"
	"github.com/chikanerick/asterdex-trading-bot/pkg/errors"
)

const requestTimeout = 10 * time.Second

// Service interfaces mirror the fluent go-binance futures services.

// ExchangeInfoService fetches symbol metadata including trading filters.
type ExchangeInfoService interface {
	Do(ctx context.Context) (*futures.ExchangeInfo, error)
}

// PremiumIndexService fetches the mark price for a symbol.
type PremiumIndexService interface {
	Symbol(symbol string) PremiumIndexService
	Do(ctx context.Context) ([]*futures.PremiumIndex, error)
}

// CreateOrderService submits an order.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side futures.SideType) CreateOrderService
	Type(orderType futures.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	ReduceOnly(reduceOnly bool) CreateOrderService
	NewClientOrderID(id string) CreateOrderService
	Do(ctx context.Context) (*futures.CreateOrderResponse, error)
}

// GetOrderService queries the status of a previously placed order.
type GetOrderService interface {
	Symbol(symbol string) GetOrderService
	OrderID(orderID int64) GetOrderService
	Do(ctx context.Context) (*futures.Order, error)
}

// ChangeLeverageService sets the initial leverage for a symbol.
type ChangeLeverageService interface {
	Symbol(symbol string) ChangeLeverageService
	Leverage(leverage int) ChangeLeverageService
	Do(ctx context.Context) (*futures.SymbolLeverage, error)
}

// Client abstracts one account's connection to the exchange.
type Client interface {
	NewExchangeInfoService() ExchangeInfoService
	NewPremiumIndexService() PremiumIndexService
	NewCreateOrderService() CreateOrderService
	NewGetOrderService() GetOrderService
	NewChangeLeverageService() ChangeLeverageService
}

// Options configure client construction.
type Options struct {
	// BaseURL overrides the default Binance futures endpoint.
	BaseURL string
	// RecvWindow, in milliseconds, is attached to every signed request.
	// Zero means the go-binance default.
	RecvWindow int64
}

// realClient wraps a *futures.Client for one account.
type realClient struct {
	client     *futures.Client
	recvWindow int64
}

// NewClient builds a signed client for one account, routed through the
// account's proxy when one is configured.
func NewClient(account types.Account, opts Options) (Client, error) {
	client := futures.NewClient(account.APIKey, account.APISecret)
	if opts.BaseURL != "" {
		client.BaseURL = opts.BaseURL
	}

	httpClient := &http.Client{Timeout: requestTimeout}

	if account.ProxyURL != "" {
		proxyURL, err := url.Parse(account.ProxyURL)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidProxy, err, "invalid proxy url for account %s", account.Name)
		}

		httpClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	client.HTTPClient = httpClient

	return &realClient{
		client:     client,
		recvWindow: opts.RecvWindow,
	}, nil
}

// NewPublicClient builds an unauthenticated client for public endpoints
// (exchange info, mark price).
func NewPublicClient(opts Options) Client {
	client := futures.NewClient("", "")
	if opts.BaseURL != "" {
		client.BaseURL = opts.BaseURL
	}

	client.HTTPClient = &http.Client{Timeout: requestTimeout}

	return &realClient{
		client:     client,
		recvWindow: opts.RecvWindow,
	}
}

func (c *realClient) requestOptions() []futures.RequestOption {
	if c.recvWindow > 0 {
		return []futures.RequestOption{futures.WithRecvWindow(c.recvWindow)}
	}

	return nil
}

func (c *realClient) NewExchangeInfoService() ExchangeInfoService {
	return &realExchangeInfoService{service: c.client.NewExchangeInfoService()}
}

func (c *realClient) NewPremiumIndexService() PremiumIndexService {
	return &realPremiumIndexService{service: c.client.NewPremiumIndexService()}
}

func (c *realClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: c.client.NewCreateOrderService(), opts: c.requestOptions()}
}

func (c *realClient) NewGetOrderService() GetOrderService {
	return &realGetOrderService{service: c.client.NewGetOrderService(), opts: c.requestOptions()}
}

func (c *realClient) NewChangeLeverageService() ChangeLeverageService {
	return &realChangeLeverageService{service: c.client.NewChangeLeverageService(), opts: c.requestOptions()}
}

// Real service wrappers

type realExchangeInfoService struct {
	service *futures.ExchangeInfoService
}

func (s *realExchangeInfoService) Do(ctx context.Context) (*futures.ExchangeInfo, error) {
	return s.service.Do(ctx)
}

type realPremiumIndexService struct {
	service *futures.PremiumIndexService
}

func (s *realPremiumIndexService) Symbol(symbol string) PremiumIndexService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realPremiumIndexService) Do(ctx context.Context) ([]*futures.PremiumIndex, error) {
	return s.service.Do(ctx)
}

type realCreateOrderService struct {
	service *futures.CreateOrderService
	opts    []futures.RequestOption
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side futures.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType futures.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) ReduceOnly(reduceOnly bool) CreateOrderService {
	s.service = s.service.ReduceOnly(reduceOnly)

	return s
}

func (s *realCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	s.service = s.service.NewClientOrderID(id)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*futures.CreateOrderResponse, error) {
	return s.service.Do(ctx, s.opts...)
}

type realGetOrderService struct {
	service *futures.GetOrderService
	opts    []futures.RequestOption
}

func (s *realGetOrderService) Symbol(symbol string) GetOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realGetOrderService) OrderID(orderID int64) GetOrderService {
	s.service = s.service.OrderID(orderID)

	return s
}

func (s *realGetOrderService) Do(ctx context.Context) (*futures.Order, error) {
	return s.service.Do(ctx, s.opts...)
}

type realChangeLeverageService struct {
	service *futures.ChangeLeverageService
	opts    []futures.RequestOption
}

func (s *realChangeLeverageService) Symbol(symbol string) ChangeLeverageService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realChangeLeverageService) Leverage(leverage int) ChangeLeverageService {
	s.service = s.service.Leverage(leverage)

	return s
}

func (s *realChangeLeverageService) Do(ctx context.Context) (*futures.SymbolLeverage, error) {
	return s.service.Do(ctx, s.opts...)
}
