package trader

import (
	"context"
	"fmt"
	"time"

	"arbcore/internal/logger"
	"arbcore/internal/order"
	"arbcore/internal/pkg/symbol"
	"arbcore/internal/pkg/trading"
)

// recoveryAttempts is how many TTL windows a recovery order gets before it is
// canceled.
const recoveryAttempts = 5

type Action string

const (
	ActionNone    Action = ""
	ActionCancel  Action = "Cancel"
	ActionReverse Action = "Reverse"
	ActionProceed Action = "Proceed"
)

func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case ActionNone, ActionCancel, ActionReverse, ActionProceed:
		return Action(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, raw)
	}
}

// SingleLegOptions selects what happens when a trade times out with one leg
// filled further than the other. Action applies to opening trades and
// ActionOnExit to closing trades.
type SingleLegOptions struct {
	Action           Action
	ActionOnExit     Action
	LimitMovePercent float64
	OrderType        order.Type
	TTL              time.Duration
}

// SingleLegHandler resolves an unbalanced pair by reversing the larger leg or
// completing the smaller one.
type SingleLegHandler struct {
	router OrderRouter
	symbol string
	opts   SingleLegOptions
	log    *logger.Logger
	wait   func(ctx context.Context, d time.Duration) error
}

func NewSingleLegHandler(router OrderRouter, sym string, opts SingleLegOptions, log *logger.Logger) (*SingleLegHandler, error) {
	for _, a := range []Action{opts.Action, opts.ActionOnExit} {
		if _, err := ParseAction(string(a)); err != nil {
			return nil, err
		}
	}
	if opts.OrderType == "" {
		opts.OrderType = order.TypeLimit
	}
	return &SingleLegHandler{
		router: router,
		symbol: sym,
		opts:   opts,
		log:    log.Or("SingleLegHandler"),
		wait:   sleep,
	}, nil
}

// Handle sends at most one recovery order and returns it. Failures inside
// the recovery loop are logged and not returned; the only error is a
// negative recovery size.
func (h *SingleLegHandler) Handle(ctx context.Context, pair order.Pair, closable bool) ([]*order.Order, error) {
	if len(pair) != 2 || pair[0] == nil || pair[1] == nil {
		return nil, fmt.Errorf("single-leg handler needs two legs, got %d", len(pair))
	}
	action := h.opts.Action
	if closable {
		action = h.opts.ActionOnExit
	}
	switch action {
	case ActionNone, ActionCancel:
		return nil, nil
	case ActionReverse:
		return h.reverse(ctx, pair)
	case ActionProceed:
		return h.proceed(ctx, pair)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
}

// legs returns (small, large) by raw filled size; the first leg wins a tie
// as the small one. Sizes are then taken from commission-adjusted fills, so
// a buy paying commission in quote currency can be the large leg yet hold
// less base than the small one, which surfaces as ErrNegativeRecoverySize.
func legs(pair order.Pair) (*order.Order, *order.Order) {
	if pair[0].FilledSize <= pair[1].FilledSize {
		return pair[0], pair[1]
	}
	return pair[1], pair[0]
}

func (h *SingleLegHandler) reverse(ctx context.Context, pair order.Pair) ([]*order.Order, error) {
	small, large := legs(pair)
	sign := 1.0
	if large.Side == order.SideBuy {
		sign = -1
	}
	price := trading.RoundTo(large.Price*(1+sign*h.opts.LimitMovePercent/100), trading.PricePrecision)
	size, err := recoverySize(large.AdjustedFilledSize(), small.AdjustedFilledSize())
	if err != nil {
		return nil, err
	}
	if size == 0 {
		h.log.Infof("nothing to reverse on %s", order.ShortString(large))
		return nil, nil
	}
	h.log.Infof("reversing filled leg %s at %v for %v %s", order.ShortString(large), price, size, symbol.Parse(h.symbol).Base)
	o := h.recoveryOrder(large, large.Side.Opposite(), size, price)
	h.sendWithTTL(ctx, o)
	return []*order.Order{o}, nil
}

func (h *SingleLegHandler) proceed(ctx context.Context, pair order.Pair) ([]*order.Order, error) {
	small, large := legs(pair)
	sign := -1.0
	if small.Side == order.SideBuy {
		sign = 1
	}
	price := trading.RoundTo(small.Price*(1+sign*h.opts.LimitMovePercent/100), trading.PricePrecision)
	size, err := recoverySize(small.AdjustedPendingSize(), large.AdjustedPendingSize())
	if err != nil {
		return nil, err
	}
	if size == 0 {
		h.log.Infof("nothing left to execute on %s", order.ShortString(small))
		return nil, nil
	}
	h.log.Infof("executing unfilled leg %s at %v for %v %s", order.ShortString(small), price, size, symbol.Parse(h.symbol).Base)
	o := h.recoveryOrder(small, small.Side, size, price)
	h.sendWithTTL(ctx, o)
	return []*order.Order{o}, nil
}

func recoverySize(from, minus float64) (float64, error) {
	// round off subtraction noise first so 0.3-0.1 floors to 0.2
	size := trading.FloorTo(trading.RoundTo(from-minus, trading.EpsilonPrecision), trading.RecoverySizePrecision)
	if size < 0 {
		return 0, fmt.Errorf("%w: %v (adjusted %v minus %v)", ErrNegativeRecoverySize, size, from, minus)
	}
	return size, nil
}

func (h *SingleLegHandler) recoveryOrder(leg *order.Order, side order.Side, size, price float64) *order.Order {
	return order.New(order.Init{
		Symbol:                 h.symbol,
		Broker:                 leg.Broker,
		Side:                   side,
		Size:                   size,
		Price:                  price,
		CashMarginType:         leg.CashMarginType,
		Type:                   h.opts.OrderType,
		LeverageLevel:          leg.LeverageLevel,
		CommissionPercent:      leg.CommissionPercent,
		CommissionPaidByQuoted: leg.CommissionPaidByQuoted,
	})
}

// sendWithTTL sends o and gives it recoveryAttempts TTL windows to fill,
// canceling it after the last one. Any failure ends the loop.
func (h *SingleLegHandler) sendWithTTL(ctx context.Context, o *order.Order) {
	h.log.Infof("sending recovery order with TTL %s", h.opts.TTL)
	if err := h.router.Send(ctx, o); err != nil {
		h.log.Warnf("recovery send failed: %v", err)
		return
	}
	for i := 1; i <= recoveryAttempts; i++ {
		if err := h.wait(ctx, h.opts.TTL); err != nil {
			h.log.Warnf("recovery wait aborted: %v", err)
			return
		}
		h.log.Infof("recovery order check attempt %d", i)
		if err := h.router.Refresh(ctx, o); err != nil {
			h.log.Warnf("recovery refresh failed: %v", err)
			return
		}
		if o.Filled() {
			h.log.Infof("%s", order.ExecSummary(o))
			return
		}
		if i == recoveryAttempts {
			h.log.Infof("recovery order not filled within TTL %s, canceling", h.opts.TTL)
			if err := h.router.Cancel(ctx, o); err != nil {
				h.log.Warnf("recovery cancel failed: %v", err)
			}
			return
		}
	}
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
