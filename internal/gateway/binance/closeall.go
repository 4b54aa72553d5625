package binance

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/adshao/go-binance/v2/futures"
)

// CloseAll flattens every open position with reduce-only market orders and
// returns how many were accepted.
func (a *Adapter) CloseAll(ctx context.Context) (int, error) {
	positions, err := a.positions(ctx)
	if err != nil {
		return 0, err
	}
	var errs []error
	closed := 0
	for _, p := range positions {
		side := futures.SideTypeSell
		if p.amount < 0 {
			side = futures.SideTypeBuy
		}
		_, err := a.client.NewCreateOrderService().
			Symbol(p.symbol).
			Side(side).
			Type(futures.OrderTypeMarket).
			Quantity(formatFloat(math.Abs(p.amount))).
			ReduceOnly(true).
			Do(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("close %s %v: %w", p.symbol, p.amount, err))
			continue
		}
		a.log.Infof("closed %s position %v", p.symbol, p.amount)
		closed++
	}
	return closed, errors.Join(errs...)
}
