// Package app wires the configured venues, the active-pair store and the
// pair trader into one runnable unit.
package app

import (
	"context"
	"errors"
	"fmt"

	"arbcore/internal/broker"
	"arbcore/internal/config"
	"arbcore/internal/order"
	"arbcore/internal/store/gormstore"
	"arbcore/internal/trader"
)

// App holds the built trading stack. It is safe to call Trade from one
// goroutine at a time.
type App struct {
	cfg    *config.Config
	router *broker.Router
	trader *trader.PairTrader
	pairs  *gormstore.GormStore
}

// Trade executes one opportunity end to end.
func (a *App) Trade(ctx context.Context, opp trader.SpreadAnalysisResult, closable bool) (trader.Result, error) {
	if a == nil || a.trader == nil {
		return trader.Result{}, fmt.Errorf("app not initialized")
	}
	return a.trader.Trade(ctx, opp, closable)
}

func (a *App) SetStatusChannel(ch chan<- trader.Status) {
	a.trader.SetStatusChannel(ch)
}

func (a *App) Router() *broker.Router { return a.router }

func (a *App) Pairs() *gormstore.GormStore { return a.pairs }

func (a *App) Config() *config.Config { return a.cfg }

// Exposures reports the current signed exposure on every routed venue.
// A venue that fails to answer is left out and its error joined.
func (a *App) Exposures(ctx context.Context) (map[order.Broker]float64, error) {
	out := make(map[order.Broker]float64)
	var errs []error
	for _, b := range a.router.Brokers() {
		v, err := a.router.Exposure(ctx, b)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s exposure: %w", b, err))
			continue
		}
		out[b] = v
	}
	return out, errors.Join(errs...)
}

func (a *App) Close() error {
	if a == nil || a.pairs == nil {
		return nil
	}
	return a.pairs.Close()
}
