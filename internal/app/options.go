package app

import (
	"fmt"

	"arbcore/internal/config"
	"arbcore/internal/order"
	"arbcore/internal/trader"
)

// TradeOptions converts the trade and enabled broker sections into pair
// trader options.
func TradeOptions(cfg *config.Config) (trader.Options, error) {
	opts := trader.Options{
		Symbol:                   cfg.Trade.Symbol,
		MaxRetryCount:            cfg.Trade.MaxRetryCount,
		OrderStatusCheckInterval: cfg.Trade.OrderStatusCheckInterval(),
		AcceptablePriceRange:     cfg.Trade.AcceptablePriceRange,
		MinSize:                  cfg.Trade.MinSize,
		NetExposurePrecision:     cfg.Trade.NetExposurePrecision,
		Brokers:                  make(map[order.Broker]trader.BrokerOptions),
	}
	for _, b := range cfg.EnabledBrokers() {
		mode, err := order.ParseCashMarginType(b.CashMarginType)
		if err != nil {
			return trader.Options{}, fmt.Errorf("broker %s: %w", b.Name, err)
		}
		opts.Brokers[order.Broker(b.Name)] = trader.BrokerOptions{
			CashMarginType:         mode,
			LeverageLevel:          b.LeverageLevel,
			CommissionPercent:      b.CommissionPercent,
			CommissionPaidByQuoted: b.CommissionPaidByQuoted,
		}
	}
	return opts, nil
}

func SingleLegOptions(cfg config.OnSingleLegConfig) (trader.SingleLegOptions, error) {
	action, err := trader.ParseAction(cfg.Action)
	if err != nil {
		return trader.SingleLegOptions{}, err
	}
	onExit, err := trader.ParseAction(cfg.ActionOnExit)
	if err != nil {
		return trader.SingleLegOptions{}, err
	}
	orderType, err := order.ParseType(cfg.Options.OrderType)
	if err != nil {
		return trader.SingleLegOptions{}, err
	}
	return trader.SingleLegOptions{
		Action:           action,
		ActionOnExit:     onExit,
		LimitMovePercent: cfg.Options.LimitMovePercent,
		OrderType:        orderType,
		TTL:              cfg.Options.TTL(),
	}, nil
}
