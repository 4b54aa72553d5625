package config

import (
	"fmt"
	"strings"

	"arbcore/internal/order"
	"arbcore/internal/pkg/symbol"
	"arbcore/internal/pkg/trading"
)

func validate(c *Config) error {
	if err := c.Trade.validate(); err != nil {
		return err
	}
	if err := validateBrokers(c.Brokers); err != nil {
		return err
	}
	if err := c.OnSingleLeg.validate(); err != nil {
		return err
	}
	if (c.Notify.TelegramBotToken == "") != (c.Notify.TelegramChatID == "") {
		return fmt.Errorf("notify requires both telegram_bot_token and telegram_chat_id")
	}
	return nil
}

func (t *TradeConfig) validate() error {
	if !symbol.IsValid(t.Symbol) {
		return fmt.Errorf("trade.symbol is invalid: %q", t.Symbol)
	}
	if t.MaxRetryCount < 1 {
		return fmt.Errorf("trade.max_retry_count must be >= 1")
	}
	if t.OrderStatusCheckIntervalMs < 0 {
		return fmt.Errorf("trade.order_status_check_interval_ms must be >= 0")
	}
	if t.AcceptablePriceRange != nil && *t.AcceptablePriceRange < 0 {
		return fmt.Errorf("trade.acceptable_price_range must be >= 0")
	}
	if t.MinSize < 0 {
		return fmt.Errorf("trade.min_size must be >= 0")
	}
	if t.NetExposurePrecision < 1 || t.NetExposurePrecision > trading.EpsilonPrecision {
		return fmt.Errorf("trade.net_exposure_precision must be within [1,%d]", trading.EpsilonPrecision)
	}
	return nil
}

var knownBrokerTypes = map[string]bool{
	"coincheck": true,
	"binance":   true,
}

func validateBrokers(brokers []BrokerConfig) error {
	seen := make(map[string]bool, len(brokers))
	enabled := 0
	for i, b := range brokers {
		if b.Name == "" {
			return fmt.Errorf("brokers[%d].name cannot be empty", i)
		}
		key := strings.ToLower(b.Name)
		if seen[key] {
			return fmt.Errorf("brokers contains duplicate name: %s", b.Name)
		}
		seen[key] = true
		if !knownBrokerTypes[b.Type] {
			return fmt.Errorf("brokers.%s.type %q is not supported", b.Name, b.Type)
		}
		mode, err := order.ParseCashMarginType(b.CashMarginType)
		if err != nil {
			return fmt.Errorf("brokers.%s.cash_margin_type: %w", b.Name, err)
		}
		if b.Type == "binance" && mode == order.CashMarginCash {
			return fmt.Errorf("brokers.%s: binance futures cannot trade Cash", b.Name)
		}
		if b.LeverageLevel < 0 {
			return fmt.Errorf("brokers.%s.leverage_level must be >= 0", b.Name)
		}
		if b.CommissionPercent < 0 {
			return fmt.Errorf("brokers.%s.commission_percent must be >= 0", b.Name)
		}
		if b.IsEnabled() {
			enabled++
		}
	}
	if enabled < 2 {
		return fmt.Errorf("brokers requires at least two enabled entries, got %d", enabled)
	}
	return nil
}

func (o *OnSingleLegConfig) validate() error {
	for key, action := range map[string]string{
		"on_single_leg.action":         o.Action,
		"on_single_leg.action_on_exit": o.ActionOnExit,
	} {
		switch action {
		case "", "Cancel", "Reverse", "Proceed":
		default:
			return fmt.Errorf("%s must be one of Cancel, Reverse, Proceed, got %q", key, action)
		}
	}
	if _, err := order.ParseType(o.Options.OrderType); err != nil {
		return fmt.Errorf("on_single_leg.options.order_type: %w", err)
	}
	if o.Options.LimitMovePercent < 0 {
		return fmt.Errorf("on_single_leg.options.limit_move_percent must be >= 0")
	}
	if o.Options.TTLMs < 0 {
		return fmt.Errorf("on_single_leg.options.ttl_ms must be >= 0")
	}
	return nil
}
