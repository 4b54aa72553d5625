// Package broker routes generic orders to the venue adapter that owns them.
package broker

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"arbcore/internal/logger"
	"arbcore/internal/order"
)

var ErrBrokerNotFound = errors.New("broker adapter not found")

// Adapter is the venue-specific side of the router. Implementations are the
// only code that writes fill-related fields on an order.
type Adapter interface {
	Broker() order.Broker
	Send(ctx context.Context, o *order.Order) error
	Refresh(ctx context.Context, o *order.Order) error
	Cancel(ctx context.Context, o *order.Order) error
	Exposure(ctx context.Context) (float64, error)
}

type Router struct {
	adapters map[order.Broker]Adapter
	log      *logger.Logger
}

func NewRouter(log *logger.Logger, adapters ...Adapter) (*Router, error) {
	r := &Router{
		adapters: make(map[order.Broker]Adapter, len(adapters)),
		log:      log.Or("BrokerRouter"),
	}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		name := a.Broker()
		if _, dup := r.adapters[name]; dup {
			return nil, fmt.Errorf("duplicate broker adapter %s", name)
		}
		r.adapters[name] = a
	}
	return r, nil
}

func (r *Router) Send(ctx context.Context, o *order.Order) error {
	a, err := r.adapter(o.Broker)
	if err != nil {
		return err
	}
	r.log.Debugf("sending %s", order.ShortString(o))
	if err := a.Send(ctx, o); err != nil {
		return fmt.Errorf("send %s: %w", order.ShortString(o), err)
	}
	r.log.Infof("sent %s id=%s", order.ShortString(o), o.BrokerOrderID)
	return nil
}

func (r *Router) Refresh(ctx context.Context, o *order.Order) error {
	a, err := r.adapter(o.Broker)
	if err != nil {
		return err
	}
	if err := a.Refresh(ctx, o); err != nil {
		return fmt.Errorf("refresh %s: %w", order.ShortString(o), err)
	}
	return nil
}

func (r *Router) Cancel(ctx context.Context, o *order.Order) error {
	a, err := r.adapter(o.Broker)
	if err != nil {
		return err
	}
	r.log.Infof("canceling %s id=%s", order.ShortString(o), o.BrokerOrderID)
	if err := a.Cancel(ctx, o); err != nil {
		return fmt.Errorf("cancel %s: %w", order.ShortString(o), err)
	}
	return nil
}

// Exposure reports the signed base-currency holding on one venue.
func (r *Router) Exposure(ctx context.Context, b order.Broker) (float64, error) {
	a, err := r.adapter(b)
	if err != nil {
		return 0, err
	}
	return a.Exposure(ctx)
}

func (r *Router) Brokers() []order.Broker {
	out := make([]order.Broker, 0, len(r.adapters))
	for b := range r.adapters {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Router) adapter(b order.Broker) (Adapter, error) {
	a, ok := r.adapters[b]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBrokerNotFound, b)
	}
	return a, nil
}
