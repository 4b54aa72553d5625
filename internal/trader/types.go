package trader

import (
	"context"
	"errors"

	"arbcore/internal/order"
)

var (
	// ErrOneSidedExposure is returned when one leg was accepted by its venue
	// and the other was not.
	ErrOneSidedExposure = errors.New("one-sided exposure: only one leg was accepted")
	// ErrNegativeRecoverySize marks a recovery size below zero, which means
	// the legs were not in the order the handler assumed.
	ErrNegativeRecoverySize = errors.New("negative single-leg recovery size")
	ErrInvalidOpportunity   = errors.New("invalid spread opportunity")
	ErrBrokerNotConfigured  = errors.New("broker not configured")
	ErrInvalidAction        = errors.New("invalid single-leg action")
)

// OrderRouter is what the trader and the single-leg handler need from the
// broker router. Implementations own every fill-related field on the order.
type OrderRouter interface {
	Send(ctx context.Context, o *order.Order) error
	Refresh(ctx context.Context, o *order.Order) error
	Cancel(ctx context.Context, o *order.Order) error
}

type QuoteSide string

const (
	QuoteSideAsk QuoteSide = "Ask"
	QuoteSideBid QuoteSide = "Bid"
)

type Quote struct {
	Broker order.Broker `json:"broker" yaml:"broker"`
	Side   QuoteSide    `json:"side" yaml:"side"`
	Price  float64      `json:"price" yaml:"price"`
	Volume float64      `json:"volume" yaml:"volume"`
}

// SpreadAnalysisResult is an accepted opportunity handed over by the
// analyzer: buy at Ask, sell at Bid, TargetVolume on each leg.
type SpreadAnalysisResult struct {
	Bid                          Quote   `json:"bid" yaml:"bid"`
	Ask                          Quote   `json:"ask" yaml:"ask"`
	InvertedSpread               float64 `json:"inverted_spread" yaml:"inverted_spread"`
	AvailableVolume              float64 `json:"available_volume" yaml:"available_volume"`
	TargetVolume                 float64 `json:"target_volume" yaml:"target_volume"`
	TargetProfit                 float64 `json:"target_profit" yaml:"target_profit"`
	ProfitPercentAgainstNotional float64 `json:"profit_percent_against_notional" yaml:"profit_percent_against_notional"`
}

type Status string

const (
	StatusSent                  Status = "Sent"
	StatusFilled                Status = "Filled"
	StatusClosed                Status = "Closed"
	StatusMaxRetryCountBreached Status = "MaxRetryCount breached"
)

// Result is what one Trade call leaves behind.
type Result struct {
	Status     Status
	Orders     order.Pair
	SubOrders  []*order.Order
	Profit     float64
	Commission float64
	Persisted  bool
}
