package coincheck

import (
	"context"
	"time"

	"arbcore/internal/gateway/exchange"

	"github.com/stretchr/testify/mock"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) NewOrder(ctx context.Context, req NewOrderRequest) (NewOrderReply, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(NewOrderReply), args.Error(1)
}

func (m *MockAPI) AccountsBalance(ctx context.Context, currency string) (float64, error) {
	args := m.Called(ctx, currency)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockAPI) OpenLeveragePositions(ctx context.Context) ([]exchange.Position, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]exchange.Position), args.Error(1)
}

func (m *MockAPI) OpenOrders(ctx context.Context) ([]OpenOrder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]OpenOrder), args.Error(1)
}

func (m *MockAPI) TransactionsSince(ctx context.Context, since time.Time) ([]Transaction, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Transaction), args.Error(1)
}

func (m *MockAPI) CancelOrder(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
