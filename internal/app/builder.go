package app

import (
	"context"
	"fmt"

	"arbcore/internal/broker"
	"arbcore/internal/config"
	"arbcore/internal/gateway"
	"arbcore/internal/logger"
	"arbcore/internal/store/gormstore"
	"arbcore/internal/trader"
)

// AdapterFactory builds the venue adapter for one broker entry.
type AdapterFactory func(b config.BrokerConfig, sym string) (broker.Adapter, error)

type AppBuilder struct {
	cfg       *config.Config
	adapterFn AdapterFactory
	storeFn   func(path string) (*gormstore.GormStore, error)
}

type AppBuilderOption func(*AppBuilder)

// WithAdapterFactory replaces the venue adapters, e.g. with paper venues.
func WithAdapterFactory(fn AdapterFactory) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.adapterFn = fn
		}
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:       cfg,
		adapterFn: gateway.NewAdapterFromConfig,
		storeFn:   gormstore.NewGormStore,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := b.cfg

	var adapters []broker.Adapter
	for _, bc := range cfg.EnabledBrokers() {
		a, err := b.adapterFn(bc, cfg.Trade.Symbol)
		if err != nil {
			return nil, fmt.Errorf("build %s adapter: %w", bc.Name, err)
		}
		adapters = append(adapters, a)
		logger.Infof("broker %s ready (type=%s, mode=%s)", bc.Name, bc.Type, bc.CashMarginType)
	}
	router, err := broker.NewRouter(logger.New("BrokerRouter"), adapters...)
	if err != nil {
		return nil, err
	}

	tradeOpts, err := TradeOptions(cfg)
	if err != nil {
		return nil, err
	}
	slOpts, err := SingleLegOptions(cfg.OnSingleLeg)
	if err != nil {
		return nil, err
	}
	singleLeg, err := trader.NewSingleLegHandler(router, cfg.Trade.Symbol, slOpts, logger.New("SingleLegHandler"))
	if err != nil {
		return nil, err
	}

	pairs, err := b.storeFn(cfg.Trade.ActivePairStorePath)
	if err != nil {
		return nil, fmt.Errorf("open active pair store: %w", err)
	}
	pt, err := trader.NewPairTrader(tradeOpts, router, pairs, singleLeg, logger.New("PairTrader"))
	if err != nil {
		_ = pairs.Close()
		return nil, err
	}
	return &App{cfg: cfg, router: router, trader: pt, pairs: pairs}, nil
}
