package coincheck

import (
	"context"
	"errors"
	"testing"
	"time"

	"arbcore/internal/gateway/exchange"
	"arbcore/internal/logger"
	"arbcore/internal/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(api API, mode order.CashMarginType) *Adapter {
	a := NewAdapter("Coincheck", mode, "BTC/JPY", api, logger.New("test"))
	a.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return a
}

func sentOrder(size float64) *order.Order {
	o := newOrder(order.SideBuy, order.CashMarginCash, order.TypeLimit, size, 1000000)
	o.BrokerOrderID = "555"
	o.Status = order.StatusNew
	return o
}

func TestAdapterSendDispatchesByTradeMode(t *testing.T) {
	ctx := context.Background()
	api := new(MockAPI)
	api.On("NewOrder", ctx, NewOrderRequest{Pair: "btc_jpy", OrderType: "leverage_buy", Amount: 0.1, Rate: 1000000}).
		Return(NewOrderReply{Success: true, ID: "1"}, nil)

	a := newTestAdapter(api, order.CashMarginCash)
	o := newOrder(order.SideBuy, order.CashMarginMarginOpen, order.TypeLimit, 0.1, 1000000)
	require.NoError(t, a.Send(ctx, o))
	assert.Equal(t, "1", o.BrokerOrderID)

	bad := newOrder(order.SideBuy, "Futures", order.TypeLimit, 0.1, 1000000)
	assert.ErrorIs(t, a.Send(ctx, bad), exchange.ErrInvalidCashMarginType)

	other := newOrder(order.SideBuy, order.CashMarginCash, order.TypeLimit, 0.1, 1000000)
	other.Broker = "Binance"
	assert.Error(t, a.Send(ctx, other))
}

func TestAdapterRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("partially filled while open", func(t *testing.T) {
		api := new(MockAPI)
		api.On("OpenOrders", ctx).Return([]OpenOrder{
			{ID: "554", PendingAmount: 1},
			{ID: "555", PendingAmount: 0.04},
		}, nil)
		o := sentOrder(0.1)
		require.NoError(t, newTestAdapter(api, order.CashMarginCash).Refresh(ctx, o))
		assert.Equal(t, order.StatusPartiallyFilled, o.Status)
		assert.InDelta(t, 0.06, o.FilledSize, 1e-12)
		api.AssertNotCalled(t, "TransactionsSince", mock.Anything, mock.Anything)
	})

	t.Run("untouched while open", func(t *testing.T) {
		api := new(MockAPI)
		api.On("OpenOrders", ctx).Return([]OpenOrder{{ID: "555", PendingAmount: 0.1}}, nil)
		o := sentOrder(0.1)
		require.NoError(t, newTestAdapter(api, order.CashMarginCash).Refresh(ctx, o))
		assert.Equal(t, order.StatusNew, o.Status)
		assert.Zero(t, o.FilledSize)
	})

	t.Run("filled from transactions", func(t *testing.T) {
		api := new(MockAPI)
		o := sentOrder(0.1)
		api.On("OpenOrders", ctx).Return([]OpenOrder{}, nil)
		api.On("TransactionsSince", ctx, o.CreationTime.Add(-time.Minute)).Return([]Transaction{
			{ID: "3", OrderID: "555", Rate: 1001000, Funds: map[string]float64{"btc": 0.06, "jpy": -60060}, CreatedAt: time.Unix(300, 0)},
			{ID: "2", OrderID: "999", Rate: 1, Funds: map[string]float64{"btc": 5}},
			{ID: "1", OrderID: "555", Rate: 1000000, Funds: map[string]float64{"btc": 0.04, "jpy": -40000}, CreatedAt: time.Unix(200, 0)},
		}, nil)

		require.NoError(t, newTestAdapter(api, order.CashMarginCash).Refresh(ctx, o))
		assert.Equal(t, order.StatusFilled, o.Status)
		assert.InDelta(t, 0.1, o.FilledSize, 1e-12)
		require.Len(t, o.Executions, 2)
		assert.Equal(t, 1000000.0, o.Executions[0].Price)
		assert.Equal(t, 1001000.0, o.Executions[1].Price)
		assert.InDelta(t, 1000600, o.AverageFilledPrice(), 1e-6)
	})

	t.Run("closed short of size is canceled", func(t *testing.T) {
		api := new(MockAPI)
		o := sentOrder(0.1)
		o.Side = order.SideSell
		api.On("OpenOrders", ctx).Return([]OpenOrder{}, nil)
		api.On("TransactionsSince", ctx, mock.Anything).Return([]Transaction{
			{OrderID: "555", Rate: 1000000, Funds: map[string]float64{"btc": -0.05}},
		}, nil)
		require.NoError(t, newTestAdapter(api, order.CashMarginCash).Refresh(ctx, o))
		assert.Equal(t, order.StatusCanceled, o.Status)
		assert.Equal(t, 0.05, o.FilledSize)
	})

	t.Run("unknown order is left as is", func(t *testing.T) {
		api := new(MockAPI)
		o := sentOrder(0.1)
		api.On("OpenOrders", ctx).Return([]OpenOrder{}, nil)
		api.On("TransactionsSince", ctx, mock.Anything).Return([]Transaction{}, nil)
		require.NoError(t, newTestAdapter(api, order.CashMarginCash).Refresh(ctx, o))
		assert.Equal(t, order.StatusNew, o.Status)
	})

	t.Run("venue error surfaces", func(t *testing.T) {
		api := new(MockAPI)
		api.On("OpenOrders", ctx).Return(nil, errors.New("timeout"))
		assert.Error(t, newTestAdapter(api, order.CashMarginCash).Refresh(ctx, sentOrder(0.1)))
	})
}

func TestAdapterCancel(t *testing.T) {
	ctx := context.Background()
	api := new(MockAPI)
	api.On("CancelOrder", ctx, "555").Return(nil)
	a := newTestAdapter(api, order.CashMarginCash)
	o := sentOrder(0.1)
	require.NoError(t, a.Cancel(ctx, o))
	assert.Equal(t, order.StatusCanceled, o.Status)
	assert.Equal(t, a.now(), o.LastUpdated)

	failing := new(MockAPI)
	failing.On("CancelOrder", ctx, "555").Return(errors.New("already closed"))
	o = sentOrder(0.1)
	assert.Error(t, newTestAdapter(failing, order.CashMarginCash).Cancel(ctx, o))
	assert.Equal(t, order.StatusNew, o.Status)
}

func TestAdapterExposureFollowsConfiguredMode(t *testing.T) {
	ctx := context.Background()
	api := new(MockAPI)
	api.On("AccountsBalance", ctx, "BTC").Return(1.5, nil)
	api.On("OpenLeveragePositions", ctx).Return([]exchange.Position{{Side: "sell", Amount: 0.2}}, nil)

	cash, err := newTestAdapter(api, order.CashMarginCash).Exposure(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.5, cash)

	netOut, err := newTestAdapter(api, order.CashMarginNetOut).Exposure(ctx)
	require.NoError(t, err)
	assert.Equal(t, -0.2, netOut)
}
