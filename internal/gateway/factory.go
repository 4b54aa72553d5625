// Package gateway builds venue adapters from broker config entries.
package gateway

import (
	"fmt"

	"arbcore/internal/broker"
	"arbcore/internal/config"
	"arbcore/internal/gateway/binance"
	"arbcore/internal/gateway/coincheck"
	"arbcore/internal/logger"
	"arbcore/internal/order"
)

// NewAdapterFromConfig builds the live adapter for b trading sym.
func NewAdapterFromConfig(b config.BrokerConfig, sym string) (broker.Adapter, error) {
	mode, err := order.ParseCashMarginType(b.CashMarginType)
	if err != nil {
		return nil, err
	}
	switch b.Type {
	case "coincheck":
		return coincheck.NewAdapter(order.Broker(b.Name), mode, sym, NewCoincheckClient(b), logger.New(b.Name+"Adapter")), nil
	case "binance":
		if mode == order.CashMarginCash {
			return nil, fmt.Errorf("binance futures cannot trade %s", mode)
		}
		return NewBinanceAdapter(b, sym), nil
	default:
		return nil, fmt.Errorf("unsupported broker type %q", b.Type)
	}
}

func NewCoincheckClient(b config.BrokerConfig) *coincheck.Client {
	return coincheck.NewClient(coincheck.Config{
		Key:             b.Key,
		Secret:          b.Secret,
		BaseURL:         b.BaseURL,
		HTTPTimeout:     b.HTTPTimeout(),
		RateLimitPerSec: b.RateLimitPerSec,
	}, logger.New(b.Name+"Client"))
}

func NewBinanceAdapter(b config.BrokerConfig, sym string) *binance.Adapter {
	return binance.NewAdapter(order.Broker(b.Name), binance.Config{
		Key:         b.Key,
		Secret:      b.Secret,
		RESTBaseURL: b.BaseURL,
		HTTPTimeout: b.HTTPTimeout(),
		Symbol:      sym,
		VenueSymbol: b.VenueSymbol,
	}, logger.New(b.Name+"Adapter"))
}
