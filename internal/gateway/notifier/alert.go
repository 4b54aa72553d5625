package notifier

import (
	"errors"
	"fmt"
	"time"

	"arbcore/internal/order"
	"arbcore/internal/trader"
)

const negativeRecoveryNote = "the larger raw fill holds less base after commission paid in quote currency; " +
	"this can happen with valid settings, compare the base column before reconfiguring"

// TradeAlert builds the message for a trade that needs an operator, or
// reports false when the outcome is clean.
func TradeAlert(symbol string, res trader.Result, tradeErr error, now time.Time) (Alert, bool) {
	var title string
	var notes []string
	switch {
	case errors.Is(tradeErr, trader.ErrOneSidedExposure):
		title = "one-sided exposure, manual check required"
	case errors.Is(tradeErr, trader.ErrNegativeRecoverySize):
		title = "single-leg recovery aborted, manual check required"
		notes = append(notes, negativeRecoveryNote)
	case res.Status == trader.StatusMaxRetryCountBreached:
		title = "legs not filled within retry limit"
	default:
		return Alert{}, false
	}
	a := Alert{
		Icon:      "⚠️",
		Title:     fmt.Sprintf("%s %s", symbol, title),
		Notes:     notes,
		Timestamp: now,
	}
	a.Rows = append(a.Rows, rows("leg", res.Orders)...)
	a.Rows = append(a.Rows, rows("recovery", res.SubOrders)...)
	if tradeErr != nil {
		a.Err = tradeErr.Error()
	}
	return a, true
}

func rows(role string, orders []*order.Order) []Row {
	out := make([]Row, 0, len(orders))
	for _, o := range orders {
		if o == nil {
			continue
		}
		out = append(out, Row{
			Role:     role,
			Broker:   string(o.Broker),
			Side:     string(o.Side),
			Status:   string(o.Status),
			Filled:   o.FilledSize,
			Size:     o.Size,
			AvgPrice: o.AverageFilledPrice(),
			Base:     o.AdjustedFilledSize(),
		})
	}
	return out
}
