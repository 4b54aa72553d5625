package order

import (
	"fmt"
	"strings"
)

// Pair is the two legs of one arbitrage attempt, plus any recovery orders
// when persisted after a single-leg resolution.
type Pair []*Order

// Broker legs of the pair in leg order.
func (p Pair) Brokers() []Broker {
	out := make([]Broker, 0, len(p))
	for _, o := range p {
		if o != nil {
			out = append(out, o.Broker)
		}
	}
	return out
}

// ShortString renders "Broker Side size symbol".
func ShortString(o *Order) string {
	if o == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %s %v %s", o.Broker, strings.ToUpper(string(o.Side)), o.Size, baseCurrency(o.Symbol))
}

// ExecSummary renders the current fill state of o for log lines.
func ExecSummary(o *Order) string {
	if o == nil {
		return "<nil>"
	}
	if o.Filled() {
		return fmt.Sprintf("%s FILLED %v at %v", ShortString(o), o.FilledSize, o.AverageFilledPrice())
	}
	return fmt.Sprintf("%s %s filled %v/%v pending %v", ShortString(o), o.Status, o.FilledSize, o.Size, o.PendingSize())
}

func baseCurrency(symbol string) string {
	if idx := strings.Index(symbol, "/"); idx > 0 {
		return symbol[:idx]
	}
	return symbol
}
