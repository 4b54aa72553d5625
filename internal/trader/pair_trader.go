// Package trader realizes one spread opportunity as a pair of orders on two
// venues, polls them to completion and hands imbalanced outcomes to the
// single-leg handler.
package trader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"arbcore/internal/logger"
	"arbcore/internal/order"
	"arbcore/internal/pkg/symbol"
	"arbcore/internal/pkg/trading"
	"arbcore/internal/store"

	"golang.org/x/sync/errgroup"
)

// BrokerOptions is the per-venue part of a leg.
type BrokerOptions struct {
	CashMarginType         order.CashMarginType
	LeverageLevel          float64
	CommissionPercent      float64
	CommissionPaidByQuoted bool
}

type Options struct {
	Symbol                   string
	MaxRetryCount            int
	OrderStatusCheckInterval time.Duration
	// AcceptablePriceRange widens both limit prices by this percent when set.
	AcceptablePriceRange *float64
	// MinSize is the net exposure still treated as flat after recovery.
	MinSize              float64
	NetExposurePrecision int
	Brokers              map[order.Broker]BrokerOptions
}

func (o Options) validate() error {
	if symbol.Parse(o.Symbol).IsZero() {
		return fmt.Errorf("invalid trade symbol %q", o.Symbol)
	}
	if o.MaxRetryCount < 1 {
		return fmt.Errorf("max retry count must be >= 1, got %d", o.MaxRetryCount)
	}
	if o.OrderStatusCheckInterval < 0 {
		return fmt.Errorf("order status check interval must be >= 0")
	}
	if o.MinSize < 0 {
		return fmt.Errorf("min size must be >= 0")
	}
	if o.NetExposurePrecision < 0 {
		return fmt.Errorf("net exposure precision must be >= 0")
	}
	return nil
}

// SingleLegResolver is implemented by SingleLegHandler.
type SingleLegResolver interface {
	Handle(ctx context.Context, pair order.Pair, closable bool) ([]*order.Order, error)
}

// PairTrader runs one trade at a time per call. It keeps no state between
// calls; the caller must not start an overlapping trade on the same pair.
type PairTrader struct {
	opts      Options
	router    OrderRouter
	pairs     store.ActivePairStore
	singleLeg SingleLegResolver
	statusCh  chan<- Status
	log       *logger.Logger
	wait      func(ctx context.Context, d time.Duration) error
}

func NewPairTrader(opts Options, router OrderRouter, pairs store.ActivePairStore, singleLeg SingleLegResolver, log *logger.Logger) (*PairTrader, error) {
	if router == nil {
		return nil, errors.New("pair trader: router is required")
	}
	if opts.NetExposurePrecision == 0 {
		opts.NetExposurePrecision = trading.DefaultNetExposurePrecision
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if pairs == nil {
		pairs = store.Nop{}
	}
	return &PairTrader{
		opts:      opts,
		router:    router,
		pairs:     pairs,
		singleLeg: singleLeg,
		log:       log.Or("PairTrader"),
		wait:      sleep,
	}, nil
}

// SetStatusChannel makes the trader push every status transition to ch.
// Sends never block; a full channel drops the update.
func (t *PairTrader) SetStatusChannel(ch chan<- Status) {
	t.statusCh = ch
}

func (t *PairTrader) setStatus(res *Result, s Status) {
	res.Status = s
	t.log.Infof("status: %s", s)
	if t.statusCh == nil {
		return
	}
	select {
	case t.statusCh <- s:
	default:
	}
}

// Trade sends both legs of opp, polls them until filled or the retry ceiling
// is hit, and on timeout cancels what is open and hands any residual
// exposure to the single-leg handler. Only send failures, invalid input and
// recovery defects are returned as errors.
func (t *PairTrader) Trade(ctx context.Context, opp SpreadAnalysisResult, closable bool) (Result, error) {
	var res Result
	buy, err := t.newLeg(opp.Ask, opp.TargetVolume)
	if err != nil {
		return res, err
	}
	sell, err := t.newLeg(opp.Bid, opp.TargetVolume)
	if err != nil {
		return res, err
	}
	if buy.Broker == sell.Broker {
		return res, fmt.Errorf("%w: both legs on %s", ErrInvalidOpportunity, buy.Broker)
	}
	res.Orders = order.Pair{buy, sell}
	if err := t.sendPair(ctx, res.Orders); err != nil {
		return res, err
	}
	t.setStatus(&res, StatusSent)
	if err := t.checkOrderState(ctx, &res, closable); err != nil {
		return res, err
	}
	return res, nil
}

func (t *PairTrader) newLeg(q Quote, volume float64) (*order.Order, error) {
	if volume <= 0 {
		return nil, fmt.Errorf("%w: target volume %v", ErrInvalidOpportunity, volume)
	}
	if q.Price <= 0 {
		return nil, fmt.Errorf("%w: %s quote price %v", ErrInvalidOpportunity, q.Broker, q.Price)
	}
	cfg, ok := t.opts.Brokers[q.Broker]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBrokerNotConfigured, q.Broker)
	}
	var side order.Side
	price := q.Price
	switch q.Side {
	case QuoteSideAsk:
		side = order.SideBuy
		if r := t.opts.AcceptablePriceRange; r != nil {
			price = trading.RoundTo(q.Price*(1+*r/100), trading.PricePrecision)
		}
	case QuoteSideBid:
		side = order.SideSell
		if r := t.opts.AcceptablePriceRange; r != nil {
			price = trading.RoundTo(q.Price*(1-*r/100), trading.PricePrecision)
		}
	default:
		return nil, fmt.Errorf("%w: quote side %q", ErrInvalidOpportunity, q.Side)
	}
	t.log.Infof("sending order targeting quote %s %s %v@%v", q.Broker, q.Side, q.Volume, q.Price)
	return order.New(order.Init{
		Symbol:                 t.opts.Symbol,
		Broker:                 q.Broker,
		Side:                   side,
		Size:                   volume,
		Price:                  price,
		CashMarginType:         cfg.CashMarginType,
		Type:                   order.TypeLimit,
		LeverageLevel:          cfg.LeverageLevel,
		CommissionPercent:      cfg.CommissionPercent,
		CommissionPaidByQuoted: cfg.CommissionPaidByQuoted,
	}), nil
}

// sendPair sends both legs concurrently and waits for both. When only one
// leg is accepted it is canceled on a best-effort basis and the call fails
// with ErrOneSidedExposure.
func (t *PairTrader) sendPair(ctx context.Context, pair order.Pair) error {
	errs := make([]error, len(pair))
	var g errgroup.Group
	for i, o := range pair {
		g.Go(func() error {
			errs[i] = t.router.Send(ctx, o)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	switch failed {
	case 0:
		return nil
	case len(pair):
		return errors.Join(errs...)
	}
	for i, o := range pair {
		if errs[i] != nil {
			continue
		}
		t.log.Errorf("%s was accepted while the other leg failed; canceling it", order.ShortString(o))
		if err := t.router.Cancel(ctx, o); err != nil {
			t.log.Errorf("compensating cancel of %s failed, manual intervention required: %v", order.ShortString(o), err)
		}
	}
	return errors.Join(append([]error{ErrOneSidedExposure}, errs...)...)
}

func (t *PairTrader) checkOrderState(ctx context.Context, res *Result, closable bool) error {
	orders := res.Orders
	for i := 1; i <= t.opts.MaxRetryCount; i++ {
		if err := t.wait(ctx, t.opts.OrderStatusCheckInterval); err != nil {
			return err
		}
		t.log.Infof("order check attempt %d, checking if both legs are done", i)
		t.refreshAll(ctx, orders)
		t.printOrderSummary(orders)

		if allFilled(orders) {
			t.log.Infof("both legs are successfully filled")
			if closable {
				t.setStatus(res, StatusClosed)
			} else {
				t.setStatus(res, StatusFilled)
				if orders[0].Size == orders[1].Size {
					t.persist(ctx, res, orders)
				}
			}
			t.recordProfit(res, orders, closable)
			return nil
		}

		if i == t.opts.MaxRetryCount {
			t.setStatus(res, StatusMaxRetryCountBreached)
			t.log.Warnf("max retry count reached, cancelling the pending orders")
			t.cancelUnfilled(ctx, orders)
			if NetExposure(orders, t.opts.NetExposurePrecision) != 0 {
				return t.recover(ctx, res, closable)
			}
		}
	}
	return nil
}

// refreshAll refreshes every leg concurrently. Failures are logged and the
// leg is retried on the next attempt.
func (t *PairTrader) refreshAll(ctx context.Context, orders []*order.Order) {
	var g errgroup.Group
	for _, o := range orders {
		g.Go(func() error {
			if err := t.router.Refresh(ctx, o); err != nil {
				t.log.Warnf("refresh %s failed: %v", order.ShortString(o), err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (t *PairTrader) cancelUnfilled(ctx context.Context, orders []*order.Order) {
	var g errgroup.Group
	for _, o := range orders {
		if o.Filled() {
			continue
		}
		g.Go(func() error {
			if err := t.router.Cancel(ctx, o); err != nil {
				t.log.Warnf("cancel %s failed: %v", order.ShortString(o), err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (t *PairTrader) recover(ctx context.Context, res *Result, closable bool) error {
	if t.singleLeg == nil {
		t.log.Warnf("single-leg exposure left open: %s / %s", order.ExecSummary(res.Orders[0]), order.ExecSummary(res.Orders[1]))
		return nil
	}
	subOrders, err := t.singleLeg.Handle(ctx, res.Orders, closable)
	if err != nil {
		return fmt.Errorf("single-leg recovery: %w", err)
	}
	res.SubOrders = subOrders
	if len(subOrders) == 0 || !allFilled(subOrders) {
		return nil
	}

	all := append(append([]*order.Order{}, res.Orders...), subOrders...)
	t.recordProfit(res, all, closable)
	prec := t.opts.NetExposurePrecision
	total := NetExposure(all, prec)
	first := NetExposure(ordersOn(all, res.Orders[0].Broker), prec)
	second := NetExposure(ordersOn(all, res.Orders[1].Broker), prec)
	t.log.Debugf("single leg amount: %v/%v/%v", total, first, second)

	merged := MergeRecovery(res.Orders, subOrders)
	if !closable && trading.WithinThreshold(total, t.opts.MinSize) && first != 0 && second != 0 {
		t.persist(ctx, res, merged)
	}
	return nil
}

// persist stores pair. A store failure is logged; the trade itself already
// happened and is not undone.
func (t *PairTrader) persist(ctx context.Context, res *Result, pair order.Pair) {
	t.log.Debugf("putting pair %s / %s", order.ShortString(pair[0]), order.ShortString(pair[1]))
	if err := t.pairs.Put(ctx, pair); err != nil {
		t.log.Errorf("persisting pair failed: %v", err)
		return
	}
	res.Persisted = true
}

func (t *PairTrader) recordProfit(res *Result, orders []*order.Order, closable bool) {
	res.Profit, res.Commission = Profit(orders)
	long, short := res.Orders[0].Broker, res.Orders[1].Broker
	phase := "Open"
	if closable {
		phase = "Close"
	}
	quote := symbol.Parse(t.opts.Symbol).Quote
	t.log.Infof("profit is %v %s, long %s, short %s (%s)", trading.RoundTo(res.Profit, 0), quote, long, short, phase)
	if res.Commission != 0 {
		t.log.Infof("commission is %v %s", trading.RoundTo(res.Commission, 0), quote)
	}
	t.journal(phase, orders, res)
}

func (t *PairTrader) journal(phase string, orders []*order.Order, res *Result) {
	var legs strings.Builder
	for _, o := range orders {
		legs.WriteString(order.ExecSummary(o))
		legs.WriteString("\n")
	}
	logger.Journal(phase, t.opts.Symbol,
		logger.JournalSection{Title: "ORDERS", Body: legs.String()},
		logger.JournalSection{Title: "RESULT", Body: fmt.Sprintf("status=%s profit=%v commission=%v", res.Status, res.Profit, res.Commission)},
	)
}

func (t *PairTrader) printOrderSummary(orders []*order.Order) {
	for _, o := range orders {
		if o.Filled() {
			t.log.Infof("%s", order.ExecSummary(o))
		} else {
			t.log.Warnf("%s", order.ExecSummary(o))
		}
	}
}

func allFilled(orders []*order.Order) bool {
	for _, o := range orders {
		if !o.Filled() {
			return false
		}
	}
	return true
}
