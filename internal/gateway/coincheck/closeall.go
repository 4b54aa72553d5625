package coincheck

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"arbcore/internal/gateway/exchange"
	"arbcore/internal/pkg/symbol"
)

// CloseAll sends a closing market order for every open leverage position and
// returns the number of close orders the venue accepted.
func CloseAll(ctx context.Context, api API, sym string) (int, error) {
	pair := symbol.Parse(sym).Coincheck()
	if pair == "" {
		return 0, fmt.Errorf("%w: %q", exchange.ErrUnsupportedSymbol, sym)
	}
	positions, err := api.OpenLeveragePositions(ctx)
	if err != nil {
		return 0, err
	}
	var errs []error
	closed := 0
	for _, p := range positions {
		id, err := strconv.ParseInt(p.ID, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("position id %q: %w", p.ID, err))
			continue
		}
		orderType := "close_short"
		if p.Side == exchange.PositionSideBuy {
			orderType = "close_long"
		}
		reply, err := api.NewOrder(ctx, NewOrderRequest{
			Pair:       pair,
			OrderType:  orderType,
			Amount:     p.Amount,
			PositionID: id,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("close position %s: %w", p.ID, err))
			continue
		}
		if !reply.Success {
			errs = append(errs, fmt.Errorf("close position %s: %w: %s", p.ID, exchange.ErrSendRejected, reply.Error))
			continue
		}
		closed++
	}
	return closed, errors.Join(errs...)
}

// SellAll market-sells the whole spot balance of the base currency and
// returns the amount offered.
func SellAll(ctx context.Context, api API, sym string) (float64, error) {
	s := symbol.Parse(sym)
	if s.IsZero() {
		return 0, fmt.Errorf("%w: %q", exchange.ErrUnsupportedSymbol, sym)
	}
	amount, err := api.AccountsBalance(ctx, s.Base)
	if err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, nil
	}
	reply, err := api.NewOrder(ctx, NewOrderRequest{
		Pair:      s.Coincheck(),
		OrderType: "market_sell",
		Amount:    amount,
	})
	if err != nil {
		return 0, err
	}
	if !reply.Success {
		return 0, fmt.Errorf("%w: %s", exchange.ErrSendRejected, reply.Error)
	}
	return amount, nil
}
