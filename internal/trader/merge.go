package trader

import (
	"math"

	"arbcore/internal/order"
	"arbcore/internal/pkg/trading"
)

// MergeRecovery folds filled recovery orders into the leg on the same venue.
// A leg with recovery orders that all filled takes their executions, becomes
// Filled and takes the absolute net commission-adjusted fill of itself plus
// those orders as both size and filled size. Other legs keep their own
// commission-adjusted size and fill. A Sell leg's filled size always ends
// equal to its size.
//
// Legs are modified in place and returned as the pair to persist.
func MergeRecovery(pair order.Pair, subOrders []*order.Order) order.Pair {
	for _, leg := range pair {
		if leg == nil {
			continue
		}
		subs := ordersOn(subOrders, leg.Broker)
		merge := len(subs) > 0
		for _, s := range subs {
			if !s.Filled() {
				merge = false
				break
			}
		}

		size := signedAdjusted(leg, leg.Size)
		filled := leg.SignedFilledSize()
		if merge {
			for _, s := range subs {
				leg.Executions = append(leg.Executions, s.Executions...)
				filled += s.SignedFilledSize()
			}
			leg.Status = order.StatusFilled
			size = filled
		}
		leg.Size = trading.RoundTo(math.Abs(size), trading.EpsilonPrecision)
		leg.FilledSize = trading.RoundTo(math.Abs(filled), trading.EpsilonPrecision)
		if leg.Side == order.SideSell {
			leg.FilledSize = leg.Size
		}
	}
	return pair
}

func signedAdjusted(o *order.Order, size float64) float64 {
	return o.Side.Sign() * trading.AdjustedSize(size, o.Side == order.SideBuy, o.CommissionPaidByQuoted, o.CommissionPercent)
}
