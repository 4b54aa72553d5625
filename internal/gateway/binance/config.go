package binance

import (
	"strings"
	"time"
)

type Config struct {
	Key         string
	Secret      string
	RESTBaseURL string
	HTTPTimeout time.Duration
	// Symbol is the traded pair, e.g. BTC/USDT. Exposure and CloseAll only
	// look at its contract.
	Symbol string
	// VenueSymbol overrides the contract derived from the order symbol,
	// e.g. BTCUSDT when the pair trades as BTC/JPY elsewhere.
	VenueSymbol string
}

func (c *Config) withDefaults() Config {
	out := *c
	out.Key = strings.TrimSpace(out.Key)
	out.Secret = strings.TrimSpace(out.Secret)
	out.RESTBaseURL = strings.TrimSpace(out.RESTBaseURL)
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = "https://fapi.binance.com"
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	out.VenueSymbol = strings.ToUpper(strings.TrimSpace(out.VenueSymbol))
	return out
}
