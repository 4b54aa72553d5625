package symbol

import (
	"strings"
)

type Symbol struct {
	Base  string
	Quote string
}

// Internal renders "BASE/QUOTE", the form used in config and orders.
func (s Symbol) Internal() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + "/" + s.Quote
}

// Binance renders "BASEQUOTE".
func (s Symbol) Binance() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + s.Quote
}

// Coincheck renders "base_quote".
func (s Symbol) Coincheck() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return strings.ToLower(s.Base) + "_" + strings.ToLower(s.Quote)
}

func (s Symbol) IsZero() bool {
	return s.Base == "" || s.Quote == ""
}

func Parse(s string) Symbol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Symbol{}
	}

	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}

	for _, sep := range []string{"/", "_"} {
		if parts := strings.SplitN(s, sep, 2); len(parts) == 2 {
			return Symbol{
				Base:  strings.TrimSpace(parts[0]),
				Quote: strings.TrimSpace(parts[1]),
			}
		}
	}

	quoteCurrencies := []string{"USDT", "BUSD", "USDC", "JPY", "BTC", "ETH"}
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Symbol{
				Base:  s[:len(s)-len(quote)],
				Quote: quote,
			}
		}
	}

	return Symbol{}
}

func Normalize(s string) string {
	return Parse(s).Internal()
}

func IsValid(s string) bool {
	return !Parse(s).IsZero()
}
