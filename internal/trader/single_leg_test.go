package trader

import (
	"context"
	"errors"
	"testing"
	"time"

	"arbcore/internal/logger"
	"arbcore/internal/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, router OrderRouter, opts SingleLegOptions) (*SingleLegHandler, *[]time.Duration) {
	t.Helper()
	h, err := NewSingleLegHandler(router, "BTC/JPY", opts, logger.New("test"))
	require.NoError(t, err)
	waits := &[]time.Duration{}
	h.wait = func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return h, waits
}

func leg(b order.Broker, side order.Side, size, filled, price float64) *order.Order {
	o := order.New(order.Init{
		Symbol:         "BTC/JPY",
		Broker:         b,
		Side:           side,
		Size:           size,
		Price:          price,
		CashMarginType: order.CashMarginNetOut,
		Type:           order.TypeLimit,
		LeverageLevel:  2,
	})
	o.FilledSize = filled
	o.Status = order.StatusCanceled
	if filled == size {
		o.Status = order.StatusFilled
	}
	return o
}

func TestReverseSizesToFilledDifference(t *testing.T) {
	ctx := context.Background()
	router := new(MockRouter)
	router.On("Send", ctx, mock.Anything).Run(accept).Return(nil)
	router.On("Refresh", ctx, mock.Anything).Run(fillOnAttempt(2, 990000)).Return(nil)

	h, waits := newTestHandler(t, router, SingleLegOptions{
		Action:           ActionReverse,
		LimitMovePercent: 1,
		OrderType:        order.TypeLimit,
		TTL:              2 * time.Second,
	})
	pair := order.Pair{
		leg(buyBroker, order.SideBuy, 1.0, 1.0, 1000000),
		leg(sellBroker, order.SideSell, 1.0, 0.5, 1001000),
	}
	subs, err := h.Handle(ctx, pair, false)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	o := subs[0]
	assert.Equal(t, 0.5, o.Size)
	assert.Equal(t, buyBroker, o.Broker)
	assert.Equal(t, order.SideSell, o.Side)
	assert.Equal(t, 990000.0, o.Price)
	assert.Equal(t, order.CashMarginNetOut, o.CashMarginType)
	assert.Equal(t, 2.0, o.LeverageLevel)
	assert.True(t, o.Filled())
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, *waits)
	router.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)

	// originals are read, never replaced
	assert.Equal(t, 1.0, pair[0].FilledSize)
	assert.Equal(t, 0.5, pair[1].FilledSize)
}

func TestReverseSellLegRaisesPrice(t *testing.T) {
	ctx := context.Background()
	router := new(MockRouter)
	router.On("Send", ctx, mock.Anything).Run(accept).Return(nil)
	router.On("Refresh", ctx, mock.Anything).Run(fillOnAttempt(1, 0)).Return(nil)

	h, _ := newTestHandler(t, router, SingleLegOptions{Action: ActionReverse, LimitMovePercent: 2})
	pair := order.Pair{
		leg(buyBroker, order.SideBuy, 0.3, 0.1, 1000000),
		leg(sellBroker, order.SideSell, 0.3, 0.3, 1000000),
	}
	subs, err := h.Handle(ctx, pair, false)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, sellBroker, subs[0].Broker)
	assert.Equal(t, order.SideBuy, subs[0].Side)
	assert.Equal(t, 1020000.0, subs[0].Price)
	assert.Equal(t, 0.2, subs[0].Size)
	assert.Equal(t, order.TypeLimit, subs[0].Type)
}

func TestReverseCommissionAdjusted(t *testing.T) {
	ctx := context.Background()
	router := new(MockRouter)
	router.On("Send", ctx, mock.Anything).Run(accept).Return(nil)
	router.On("Refresh", ctx, mock.Anything).Run(fillOnAttempt(1, 0)).Return(nil)

	h, _ := newTestHandler(t, router, SingleLegOptions{Action: ActionReverse})
	large := leg(buyBroker, order.SideBuy, 1.0, 1.0, 1000000)
	large.CommissionPercent = 0.15
	large.CommissionPaidByQuoted = true
	subs, err := h.Handle(ctx, order.Pair{large, leg(sellBroker, order.SideSell, 1.0, 0.5, 1000000)}, false)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, 0.49700449, subs[0].Size)
}

func TestReverseNegativeSizeIsADefect(t *testing.T) {
	ctx := context.Background()
	router := new(MockRouter)
	h, _ := newTestHandler(t, router, SingleLegOptions{Action: ActionReverse})

	buy := leg(buyBroker, order.SideBuy, 1.0, 1.0, 1000000)
	buy.CommissionPercent = 0.15
	buy.CommissionPaidByQuoted = true
	// equal fills pick the first leg as the small one, leaving the
	// commission-reduced buy as the large one
	subs, err := h.Handle(ctx, order.Pair{leg(sellBroker, order.SideSell, 1.0, 1.0, 1000000), buy}, false)
	assert.ErrorIs(t, err, ErrNegativeRecoverySize)
	assert.Nil(t, subs)
	router.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestReverseLargerRawFillCanHoldLessBase(t *testing.T) {
	ctx := context.Background()
	router := new(MockRouter)
	h, _ := newTestHandler(t, router, SingleLegOptions{Action: ActionReverse})

	buy := leg(buyBroker, order.SideBuy, 1.0, 1.0, 1000000)
	buy.CommissionPercent = 0.1
	buy.CommissionPaidByQuoted = true
	sell := leg(sellBroker, order.SideSell, 1.0, 0.9985, 1001000)
	require.Less(t, buy.AdjustedFilledSize(), sell.AdjustedFilledSize())

	// the buy is the large leg by raw fill but the small one after commission
	for _, pair := range []order.Pair{{buy, sell}, {sell, buy}} {
		subs, err := h.Handle(ctx, pair, false)
		require.ErrorIs(t, err, ErrNegativeRecoverySize)
		assert.Contains(t, err.Error(), "minus 0.9985")
		assert.Nil(t, subs)
	}
	router.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestProceedSizesToPendingDifference(t *testing.T) {
	ctx := context.Background()
	router := new(MockRouter)
	router.On("Send", ctx, mock.Anything).Run(accept).Return(nil)
	router.On("Refresh", ctx, mock.Anything).Run(fillOnAttempt(1, 0)).Return(nil)

	h, _ := newTestHandler(t, router, SingleLegOptions{Action: ActionProceed, LimitMovePercent: 1})
	pair := order.Pair{
		leg(buyBroker, order.SideBuy, 1.0, 1.0, 1000000),
		leg(sellBroker, order.SideSell, 1.0, 0.2, 1001000),
	}
	subs, err := h.Handle(ctx, pair, false)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	o := subs[0]
	assert.Equal(t, sellBroker, o.Broker)
	assert.Equal(t, order.SideSell, o.Side)
	assert.Equal(t, 0.8, o.Size)
	assert.Equal(t, 990990.0, o.Price)
}

func TestProceedBuyLegRaisesPrice(t *testing.T) {
	ctx := context.Background()
	router := new(MockRouter)
	router.On("Send", ctx, mock.Anything).Run(accept).Return(nil)
	router.On("Refresh", ctx, mock.Anything).Run(fillOnAttempt(1, 0)).Return(nil)

	h, _ := newTestHandler(t, router, SingleLegOptions{Action: ActionProceed, LimitMovePercent: 1})
	subs, err := h.Handle(ctx, order.Pair{
		leg(buyBroker, order.SideBuy, 1.0, 0.4, 1000000),
		leg(sellBroker, order.SideSell, 1.0, 1.0, 1001000),
	}, false)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, buyBroker, subs[0].Broker)
	assert.Equal(t, order.SideBuy, subs[0].Side)
	assert.Equal(t, 1010000.0, subs[0].Price)
	assert.Equal(t, 0.6, subs[0].Size)
}

func TestRecoveryCanceledAfterTTL(t *testing.T) {
	ctx := context.Background()
	router := new(MockRouter)
	router.On("Send", ctx, mock.Anything).Run(accept).Return(nil)
	router.On("Refresh", ctx, mock.Anything).Return(nil)
	router.On("Cancel", ctx, mock.Anything).Run(markCanceled).Return(nil).Once()

	h, waits := newTestHandler(t, router, SingleLegOptions{Action: ActionReverse, TTL: time.Second})
	subs, err := h.Handle(ctx, order.Pair{
		leg(buyBroker, order.SideBuy, 1.0, 1.0, 1000000),
		leg(sellBroker, order.SideSell, 1.0, 0.5, 1001000),
	}, false)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, order.StatusCanceled, subs[0].Status)
	assert.Len(t, *waits, recoveryAttempts)
	router.AssertNumberOfCalls(t, "Refresh", recoveryAttempts)
	router.AssertNumberOfCalls(t, "Cancel", 1)
}

func TestRecoveryErrorsAreSwallowed(t *testing.T) {
	ctx := context.Background()
	pair := func() order.Pair {
		return order.Pair{
			leg(buyBroker, order.SideBuy, 1.0, 1.0, 1000000),
			leg(sellBroker, order.SideSell, 1.0, 0.5, 1001000),
		}
	}

	t.Run("send", func(t *testing.T) {
		router := new(MockRouter)
		router.On("Send", ctx, mock.Anything).Return(errors.New("rejected"))
		h, waits := newTestHandler(t, router, SingleLegOptions{Action: ActionReverse})
		subs, err := h.Handle(ctx, pair(), false)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.False(t, subs[0].Filled())
		assert.Empty(t, *waits)
		router.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
	})

	t.Run("refresh", func(t *testing.T) {
		router := new(MockRouter)
		router.On("Send", ctx, mock.Anything).Run(accept).Return(nil)
		router.On("Refresh", ctx, mock.Anything).Return(errors.New("timeout"))
		h, _ := newTestHandler(t, router, SingleLegOptions{Action: ActionReverse})
		subs, err := h.Handle(ctx, pair(), false)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		router.AssertNumberOfCalls(t, "Refresh", 1)
		router.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
	})

	t.Run("cancel", func(t *testing.T) {
		router := new(MockRouter)
		router.On("Send", ctx, mock.Anything).Run(accept).Return(nil)
		router.On("Refresh", ctx, mock.Anything).Return(nil)
		router.On("Cancel", ctx, mock.Anything).Return(errors.New("gone"))
		h, _ := newTestHandler(t, router, SingleLegOptions{Action: ActionReverse})
		_, err := h.Handle(ctx, pair(), false)
		require.NoError(t, err)
	})
}

func TestHandleActionSelection(t *testing.T) {
	ctx := context.Background()
	pair := order.Pair{
		leg(buyBroker, order.SideBuy, 1.0, 1.0, 1000000),
		leg(sellBroker, order.SideSell, 1.0, 0.5, 1001000),
	}

	router := new(MockRouter)
	h, _ := newTestHandler(t, router, SingleLegOptions{Action: ActionCancel, ActionOnExit: ActionNone})
	for _, closable := range []bool{false, true} {
		subs, err := h.Handle(ctx, pair, closable)
		require.NoError(t, err)
		assert.Empty(t, subs)
	}
	router.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)

	router = new(MockRouter)
	router.On("Send", ctx, mock.Anything).Run(accept).Return(nil)
	router.On("Refresh", ctx, mock.Anything).Run(fillOnAttempt(1, 0)).Return(nil)
	h, _ = newTestHandler(t, router, SingleLegOptions{Action: ActionNone, ActionOnExit: ActionProceed})
	subs, err := h.Handle(ctx, pair, true)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, sellBroker, subs[0].Broker)
}

func TestHandleZeroSizeSendsNothing(t *testing.T) {
	router := new(MockRouter)
	h, _ := newTestHandler(t, router, SingleLegOptions{Action: ActionReverse})
	subs, err := h.Handle(context.Background(), order.Pair{
		leg(buyBroker, order.SideBuy, 1.0, 0.5, 1000000),
		leg(sellBroker, order.SideSell, 1.0, 0.5, 1001000),
	}, false)
	require.NoError(t, err)
	assert.Empty(t, subs)
	router.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestParseAction(t *testing.T) {
	for _, raw := range []string{"", "Cancel", "Reverse", "Proceed"} {
		a, err := ParseAction(raw)
		require.NoError(t, err)
		assert.Equal(t, Action(raw), a)
	}
	_, err := ParseAction("Hedge")
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = NewSingleLegHandler(new(MockRouter), "BTC/JPY", SingleLegOptions{ActionOnExit: "reverse"}, nil)
	assert.ErrorIs(t, err, ErrInvalidAction)
}
