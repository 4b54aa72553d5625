// Package exchange defines the venue-neutral vocabulary used by the venue
// gateways: positions and the error sentinels callers match on.
package exchange

import "time"

// Position sides as venues report them.
const (
	PositionSideBuy  = "buy"
	PositionSideSell = "sell"
)

// Position is an open leveraged position on a venue.
type Position struct {
	ID       string
	Symbol   string
	Side     string
	Amount   float64
	OpenRate float64
	OpenedAt time.Time
}

// SignedExposure sums long positions as positive and short as negative.
func SignedExposure(positions []Position) float64 {
	var long, short float64
	for _, p := range positions {
		switch p.Side {
		case PositionSideBuy:
			long += p.Amount
		case PositionSideSell:
			short += p.Amount
		}
	}
	return long - short
}
