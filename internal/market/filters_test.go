package market

import (
	"context"
	"testing"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/suite"

	"github.com/chikanerick/asterdex-trading-bot/internal/exchange/exchangetest"
	"github.com/chikanerick/asterdex-trading-bot/internal/logger"
	"github.com/chikanerick/asterdex-trading-bot/pkg/errors"
)

func lotSizeFilter(filterType, minQty, maxQty, stepSize string) map[string]interface{} {
	return map[string]interface{}{
		"filterType": filterType,
		"minQty":     minQty,
		"maxQty":     maxQty,
		"stepSize":   stepSize,
	}
}

func priceFilter(tickSize string) map[string]interface{} {
	return map[string]interface{}{
		"filterType": "PRICE_FILTER",
		"minPrice":   "0.01",
		"maxPrice":   "1000000",
		"tickSize":   tickSize,
	}
}

func exchangeInfo(symbols ...futures.Symbol) *futures.ExchangeInfo {
	return &futures.ExchangeInfo{Symbols: symbols}
}

type FiltersTestSuite struct {
	suite.Suite
}

func TestFiltersSuite(t *testing.T) {
	suite.Run(t, new(FiltersTestSuite))
}

func (suite *FiltersTestSuite) newRegistry(fake *exchangetest.Fake) *Registry {
	return NewRegistry(fake, logger.NewNopLogger())
}

func (suite *FiltersTestSuite) TestLoadPrefersMarketLotSize() {
	fake := &exchangetest.Fake{
		ExchangeInfo: exchangeInfo(futures.Symbol{
			Symbol:            "ETHUSDT",
			QuantityPrecision: 3,
			Filters: []map[string]interface{}{
				lotSizeFilter("LOT_SIZE", "0.001", "10000", "0.001"),
				lotSizeFilter("MARKET_LOT_SIZE", "0.002", "500", "0.002"),
				priceFilter("0.01"),
			},
		}),
	}
	registry := suite.newRegistry(fake)

	suite.NoError(registry.Load(context.Background(), "ETHUSDT"))

	opt := registry.Get("ETHUSDT")
	suite.Require().True(opt.IsSome())

	filters := opt.Unwrap()
	suite.Equal("0.002", filters.LotStep.String())
	suite.Equal("0.002", filters.MinQty.String())
	suite.Equal("500", filters.MaxQty.String())
	suite.Equal("0.01", filters.TickSize.String())
	suite.Equal(int32(3), filters.QtyPrecision)
}

func (suite *FiltersTestSuite) TestLoadFallsBackToLotSize() {
	fake := &exchangetest.Fake{
		ExchangeInfo: exchangeInfo(futures.Symbol{
			Symbol:            "BTCUSDT",
			QuantityPrecision: 3,
			Filters: []map[string]interface{}{
				lotSizeFilter("LOT_SIZE", "0.001", "1000", "0.001"),
			},
		}),
	}
	registry := suite.newRegistry(fake)

	suite.NoError(registry.Load(context.Background(), "BTCUSDT"))

	filters := registry.Get("BTCUSDT").Unwrap()
	suite.Equal("0.001", filters.LotStep.String())
	// No PRICE_FILTER: tick size falls back to the minimal default.
	suite.Equal("0.0001", filters.TickSize.String())
}

func (suite *FiltersTestSuite) TestLoadSymbolNotFound() {
	fake := &exchangetest.Fake{ExchangeInfo: exchangeInfo()}
	registry := suite.newRegistry(fake)

	err := registry.Load(context.Background(), "DOGEUSDT")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSymbolNotFound))
	suite.True(registry.Get("DOGEUSDT").IsNone())
}

func (suite *FiltersTestSuite) TestLoadMissingLotFilter() {
	fake := &exchangetest.Fake{
		ExchangeInfo: exchangeInfo(futures.Symbol{
			Symbol:  "ETHUSDT",
			Filters: []map[string]interface{}{priceFilter("0.01")},
		}),
	}
	registry := suite.newRegistry(fake)

	err := registry.Load(context.Background(), "ETHUSDT")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeFilterLoadFailed))
	suite.True(registry.Get("ETHUSDT").IsNone())
}

func (suite *FiltersTestSuite) TestLoadFetchError() {
	fake := &exchangetest.Fake{ExchangeInfoErr: errors.New(errors.ErrCodeUnknown, "network down")}
	registry := suite.newRegistry(fake)

	err := registry.Load(context.Background(), "ETHUSDT")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeFilterLoadFailed))
}

func (suite *FiltersTestSuite) TestGetUnloadedSymbol() {
	registry := suite.newRegistry(&exchangetest.Fake{})
	suite.True(registry.Get("ETHUSDT").IsNone())
}

func (suite *FiltersTestSuite) TestReload() {
	fake := &exchangetest.Fake{
		ExchangeInfo: exchangeInfo(futures.Symbol{
			Symbol:            "ETHUSDT",
			QuantityPrecision: 3,
			Filters: []map[string]interface{}{
				lotSizeFilter("LOT_SIZE", "0.001", "1000", "0.001"),
			},
		}),
	}
	registry := suite.newRegistry(fake)
	suite.Require().NoError(registry.Load(context.Background(), "ETHUSDT"))

	// Exchange metadata changes; Reload must pick it up.
	fake.ExchangeInfo = exchangeInfo(futures.Symbol{
		Symbol:            "ETHUSDT",
		QuantityPrecision: 2,
		Filters: []map[string]interface{}{
			lotSizeFilter("LOT_SIZE", "0.01", "1000", "0.01"),
		},
	})

	suite.NoError(registry.Reload(context.Background(), "ETHUSDT"))
	filters := registry.Get("ETHUSDT").Unwrap()
	suite.Equal("0.01", filters.LotStep.String())
	suite.Equal(int32(2), filters.QtyPrecision)
}
