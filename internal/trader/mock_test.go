package trader

import (
	"context"
	"sync"

	"arbcore/internal/order"

	"github.com/stretchr/testify/mock"
)

type MockRouter struct {
	mock.Mock
}

func (m *MockRouter) Send(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockRouter) Refresh(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockRouter) Cancel(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Put(ctx context.Context, pair order.Pair) error {
	return m.Called(ctx, pair).Error(0)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Handle(ctx context.Context, pair order.Pair, closable bool) ([]*order.Order, error) {
	args := m.Called(ctx, pair, closable)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func on(b order.Broker, side order.Side) any {
	return mock.MatchedBy(func(o *order.Order) bool {
		return o.Broker == b && o.Side == side
	})
}

func accept(args mock.Arguments) {
	o := args.Get(1).(*order.Order)
	o.BrokerOrderID = "id-" + string(o.Broker)
	o.Status = order.StatusNew
}

func fill(o *order.Order, size, price float64) {
	o.FilledSize = size
	o.Executions = []order.Execution{{Broker: o.Broker, Side: o.Side, Size: size, Price: price}}
	if size >= o.Size {
		o.Status = order.StatusFilled
	} else if size > 0 {
		o.Status = order.StatusPartiallyFilled
	}
}

// fillOnAttempt fills an order completely at price once Refresh has been
// called n times for that order.
func fillOnAttempt(n int, price float64) func(mock.Arguments) {
	var mu sync.Mutex
	calls := make(map[string]int)
	return func(args mock.Arguments) {
		o := args.Get(1).(*order.Order)
		mu.Lock()
		calls[o.ID]++
		done := calls[o.ID] >= n
		mu.Unlock()
		if done {
			fill(o, o.Size, price)
		}
	}
}

func markCanceled(args mock.Arguments) {
	args.Get(1).(*order.Order).Status = order.StatusCanceled
}
