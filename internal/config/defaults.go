package config

import (
	"strings"

	"arbcore/internal/pkg/trading"
)

const (
	defaultAppEnv                = "dev"
	defaultAppLogLevel           = "info"
	defaultTradeSymbol           = "BTC/JPY"
	defaultMaxRetryCount         = 10
	defaultOrderStatusIntervalMs = 3000
	defaultMinSize               = 0.005
	defaultActivePairStorePath   = "data/active_pairs.db"
	defaultCashMarginType        = "Cash"
	defaultRateLimitPerSec       = 5
	defaultHTTPTimeoutSeconds    = 10
	defaultSingleLegOrderType    = "Limit"
	defaultSingleLegMovePercent  = 5
	defaultSingleLegTTLMs        = 3000
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Trade.applyDefaults(keys)
	for i := range c.Brokers {
		c.Brokers[i].applyDefaults()
	}
	c.OnSingleLeg.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
	)
}

func (t *TradeConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("trade.symbol", &t.Symbol, defaultTradeSymbol),
		stringFieldDefault("trade.active_pair_store_path", &t.ActivePairStorePath, defaultActivePairStorePath),
		fieldDefault{
			key:   "trade.max_retry_count",
			need:  func() bool { return t.MaxRetryCount <= 0 },
			apply: func() { t.MaxRetryCount = defaultMaxRetryCount },
		},
		fieldDefault{
			key:   "trade.order_status_check_interval_ms",
			need:  func() bool { return t.OrderStatusCheckIntervalMs <= 0 },
			apply: func() { t.OrderStatusCheckIntervalMs = defaultOrderStatusIntervalMs },
		},
		fieldDefault{
			key:   "trade.min_size",
			need:  func() bool { return t.MinSize <= 0 },
			apply: func() { t.MinSize = defaultMinSize },
		},
		fieldDefault{
			key:   "trade.net_exposure_precision",
			need:  func() bool { return t.NetExposurePrecision <= 0 },
			apply: func() { t.NetExposurePrecision = trading.DefaultNetExposurePrecision },
		},
	)
}

// Broker entries live in a list, so their keys are not tracked individually;
// zero values are replaced.
func (b *BrokerConfig) applyDefaults() {
	b.Name = strings.TrimSpace(b.Name)
	if strings.TrimSpace(b.Type) == "" {
		b.Type = b.Name
	}
	b.Type = strings.ToLower(strings.TrimSpace(b.Type))
	if strings.TrimSpace(b.CashMarginType) == "" {
		b.CashMarginType = defaultCashMarginType
	}
	if b.RateLimitPerSec <= 0 {
		b.RateLimitPerSec = defaultRateLimitPerSec
	}
	if b.HTTPTimeoutSeconds <= 0 {
		b.HTTPTimeoutSeconds = defaultHTTPTimeoutSeconds
	}
}

func (o *OnSingleLegConfig) applyDefaults(keys keySet) {
	if o == nil {
		return
	}
	o.Action = strings.TrimSpace(o.Action)
	o.ActionOnExit = strings.TrimSpace(o.ActionOnExit)
	opts := &o.Options
	applyFieldDefaults(keys,
		stringFieldDefault("on_single_leg.options.order_type", &opts.OrderType, defaultSingleLegOrderType),
		fieldDefault{
			key:   "on_single_leg.options.limit_move_percent",
			need:  func() bool { return opts.LimitMovePercent <= 0 },
			apply: func() { opts.LimitMovePercent = defaultSingleLegMovePercent },
		},
		fieldDefault{
			key:   "on_single_leg.options.ttl_ms",
			need:  func() bool { return opts.TTLMs <= 0 },
			apply: func() { opts.TTLMs = defaultSingleLegTTLMs },
		},
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
