package trader

import (
	"testing"

	"arbcore/internal/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeRecoveryReverse(t *testing.T) {
	buy := filledLeg(buyBroker, order.SideBuy, 1.0, 1000000, 0, false)
	sell := filledLeg(sellBroker, order.SideSell, 1.0, 1001000, 0, false)
	fill(sell, 0.5, 1001000)
	rev := filledLeg(buyBroker, order.SideSell, 0.5, 990000, 0, false)

	merged := MergeRecovery(order.Pair{buy, sell}, []*order.Order{rev})
	require.Len(t, merged, 2)
	assert.Same(t, buy, merged[0])

	assert.Equal(t, order.StatusFilled, buy.Status)
	assert.Equal(t, 0.5, buy.Size)
	assert.Equal(t, 0.5, buy.FilledSize)
	require.Len(t, buy.Executions, 2)
	assert.Equal(t, 990000.0, buy.Executions[1].Price)

	assert.Equal(t, order.StatusPartiallyFilled, sell.Status)
	assert.Equal(t, 1.0, sell.Size)
	assert.Equal(t, 1.0, sell.FilledSize)
}

func TestMergeRecoveryProceed(t *testing.T) {
	buy := filledLeg(buyBroker, order.SideBuy, 1.0, 1000000, 0.1, true)
	fill(buy, 0.4, 1000000)
	sell := filledLeg(sellBroker, order.SideSell, 1.0, 1001000, 0, false)
	proceed := filledLeg(buyBroker, order.SideBuy, 0.6, 1010000, 0.1, true)

	MergeRecovery(order.Pair{buy, sell}, []*order.Order{proceed})
	want := (0.4 + 0.6) * (1 - 0.001) / (1 + 0.001)
	assert.Equal(t, order.StatusFilled, buy.Status)
	assert.InDelta(t, want, buy.FilledSize, 1e-9)
	assert.Equal(t, buy.FilledSize, buy.Size)
	assert.Len(t, buy.Executions, 2)
}

func TestMergeRecoverySkipsUnfilledSubOrders(t *testing.T) {
	buy := filledLeg(buyBroker, order.SideBuy, 1.0, 1000000, 0, false)
	sell := filledLeg(sellBroker, order.SideSell, 1.0, 1001000, 0, false)
	fill(sell, 0.5, 1001000)
	sub := filledLeg(sellBroker, order.SideSell, 0.5, 1000000, 0, false)
	fill(sub, 0.2, 1000000)

	MergeRecovery(order.Pair{buy, sell}, []*order.Order{sub})
	assert.Equal(t, order.StatusPartiallyFilled, sell.Status)
	assert.Len(t, sell.Executions, 1)
	assert.Equal(t, 1.0, sell.Size)
	assert.Equal(t, 1.0, sell.FilledSize)
	assert.Equal(t, 1.0, buy.Size)
	assert.Equal(t, 1.0, buy.FilledSize)
}
