package trader

import (
	"arbcore/internal/order"
	"arbcore/internal/pkg/trading"
)

// Profit is the realized P&L of orders in quote currency, net of commission.
// Sells add their filled notional, buys subtract it.
func Profit(orders []*order.Order) (profit, commission float64) {
	var gross float64
	for _, o := range orders {
		if o == nil {
			continue
		}
		gross += o.Side.Sign() * o.FilledNotional()
		commission += trading.Commission(o.AverageFilledPrice(), o.FilledSize, o.CommissionPercent)
	}
	return gross - commission, commission
}

// NetExposure is the signed sum of commission-adjusted fills, floored at
// precision. Zero means the orders are flat.
func NetExposure(orders []*order.Order, precision int) float64 {
	var sum float64
	for _, o := range orders {
		if o == nil {
			continue
		}
		sum += o.SignedFilledSize()
	}
	return trading.FloorTo(trading.RoundTo(sum, trading.EpsilonPrecision), precision)
}

func ordersOn(orders []*order.Order, b order.Broker) []*order.Order {
	var out []*order.Order
	for _, o := range orders {
		if o != nil && o.Broker == b {
			out = append(out, o)
		}
	}
	return out
}
