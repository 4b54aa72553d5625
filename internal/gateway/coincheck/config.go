package coincheck

import (
	"strings"
	"time"
)

const defaultBaseURL = "https://coincheck.com"

type Config struct {
	Key             string
	Secret          string
	BaseURL         string
	HTTPTimeout     time.Duration
	RateLimitPerSec float64

	BreakerThreshold int
	BreakerTimeout   time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	out.Key = strings.TrimSpace(out.Key)
	out.Secret = strings.TrimSpace(out.Secret)
	out.BaseURL = strings.TrimRight(strings.TrimSpace(out.BaseURL), "/")
	if out.BaseURL == "" {
		out.BaseURL = defaultBaseURL
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 10 * time.Second
	}
	if out.RateLimitPerSec <= 0 {
		out.RateLimitPerSec = 5
	}
	if out.BreakerThreshold <= 0 {
		out.BreakerThreshold = 5
	}
	if out.BreakerTimeout <= 0 {
		out.BreakerTimeout = 30 * time.Second
	}
	return out
}
