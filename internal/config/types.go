package config

import (
	"strings"
	"time"
)

// Config is the arbitrage trader's configuration.
type Config struct {
	App         AppConfig         `toml:"app"`
	Trade       TradeConfig       `toml:"trade"`
	Brokers     []BrokerConfig    `toml:"brokers"`
	OnSingleLeg OnSingleLegConfig `toml:"on_single_leg"`
	Notify      NotifyConfig      `toml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	// LogPath is empty for stdout only.
	LogPath string `toml:"log_path"`
	// JournalPath receives one record per finished trade when set.
	JournalPath string `toml:"journal_path"`
}

type TradeConfig struct {
	Symbol                     string `toml:"symbol"`
	MaxRetryCount              int    `toml:"max_retry_count"`
	OrderStatusCheckIntervalMs int    `toml:"order_status_check_interval_ms"`
	// AcceptablePriceRange is a percent; unset means quotes are used as is.
	AcceptablePriceRange *float64 `toml:"acceptable_price_range"`
	// MinSize is the residual net exposure still treated as flat after
	// single-leg recovery.
	MinSize              float64 `toml:"min_size"`
	NetExposurePrecision int     `toml:"net_exposure_precision"`
	ActivePairStorePath  string  `toml:"active_pair_store_path"`
}

func (t TradeConfig) OrderStatusCheckInterval() time.Duration {
	return time.Duration(t.OrderStatusCheckIntervalMs) * time.Millisecond
}

// BrokerConfig describes one venue account. Type selects the gateway and
// defaults to the lower-cased name.
type BrokerConfig struct {
	Name                   string  `toml:"name"`
	Type                   string  `toml:"type"`
	Enabled                *bool   `toml:"enabled"`
	Key                    string  `toml:"key"`
	Secret                 string  `toml:"secret"`
	BaseURL                string  `toml:"base_url"`
	VenueSymbol            string  `toml:"venue_symbol"`
	CashMarginType         string  `toml:"cash_margin_type"`
	LeverageLevel          float64 `toml:"leverage_level"`
	CommissionPercent      float64 `toml:"commission_percent"`
	CommissionPaidByQuoted bool    `toml:"commission_paid_by_quoted"`
	RateLimitPerSec        float64 `toml:"rate_limit_per_sec"`
	HTTPTimeoutSeconds     int     `toml:"http_timeout_seconds"`
}

// IsEnabled treats a missing enabled flag as true.
func (b BrokerConfig) IsEnabled() bool {
	return b.Enabled == nil || *b.Enabled
}

func (b BrokerConfig) HTTPTimeout() time.Duration {
	return time.Duration(b.HTTPTimeoutSeconds) * time.Second
}

type OnSingleLegConfig struct {
	// Action applies to opening trades, ActionOnExit to closing ones.
	// One of "", Cancel, Reverse, Proceed.
	Action       string                 `toml:"action"`
	ActionOnExit string                 `toml:"action_on_exit"`
	Options      SingleLegOptionsConfig `toml:"options"`
}

type SingleLegOptionsConfig struct {
	LimitMovePercent float64 `toml:"limit_move_percent"`
	OrderType        string  `toml:"order_type"`
	TTLMs            int     `toml:"ttl_ms"`
}

func (o SingleLegOptionsConfig) TTL() time.Duration {
	return time.Duration(o.TTLMs) * time.Millisecond
}

// NotifyConfig enables operator alerts for trades that end with exposure
// needing a manual check.
type NotifyConfig struct {
	TelegramBotToken string `toml:"telegram_bot_token"`
	TelegramChatID   string `toml:"telegram_chat_id"`
}

func (n NotifyConfig) Enabled() bool {
	return n.TelegramBotToken != "" && n.TelegramChatID != ""
}

// EnabledBrokers returns the enabled broker entries in file order.
func (c *Config) EnabledBrokers() []BrokerConfig {
	out := make([]BrokerConfig, 0, len(c.Brokers))
	for _, b := range c.Brokers {
		if b.IsEnabled() {
			out = append(out, b)
		}
	}
	return out
}

// FindBroker looks a broker up by name, case-insensitively.
func (c *Config) FindBroker(name string) (BrokerConfig, bool) {
	name = strings.TrimSpace(name)
	for _, b := range c.Brokers {
		if strings.EqualFold(b.Name, name) {
			return b, true
		}
	}
	return BrokerConfig{}, false
}

// keySet tracks the config paths set explicitly in the file.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault describes when and how one field gets its default.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
