package order

import (
	"time"

	"arbcore/internal/pkg/trading"

	"github.com/google/uuid"
)

// Init carries the caller-chosen fields of a new order.
type Init struct {
	Symbol                 string
	Broker                 Broker
	Side                   Side
	Size                   float64
	Price                  float64
	CashMarginType         CashMarginType
	Type                   Type
	LeverageLevel          float64
	CommissionPercent      float64
	CommissionPaidByQuoted bool
}

// Order is one side of a trade on one venue.
//
// Fill fields (Status, FilledSize, Executions, BrokerOrderID, SentTime,
// LastUpdated) are written by the broker adapters only; the trader and the
// single-leg handler read them between adapter calls.
type Order struct {
	ID                     string         `json:"id"`
	Symbol                 string         `json:"symbol"`
	Broker                 Broker         `json:"broker"`
	Side                   Side           `json:"side"`
	Size                   float64        `json:"size"`
	Price                  float64        `json:"price"`
	CashMarginType         CashMarginType `json:"cash_margin_type"`
	Type                   Type           `json:"type"`
	TimeInForce            TimeInForce    `json:"time_in_force"`
	LeverageLevel          float64        `json:"leverage_level"`
	CommissionPercent      float64        `json:"commission_percent"`
	CommissionPaidByQuoted bool           `json:"commission_paid_by_quoted"`
	BrokerOrderID          string         `json:"broker_order_id"`
	Status                 Status         `json:"status"`
	FilledSize             float64        `json:"filled_size"`
	Executions             []Execution    `json:"executions"`
	CreationTime           time.Time      `json:"creation_time"`
	SentTime               time.Time      `json:"sent_time"`
	LastUpdated            time.Time      `json:"last_updated"`
}

func New(init Init) *Order {
	return &Order{
		ID:                     uuid.NewString(),
		Symbol:                 init.Symbol,
		Broker:                 init.Broker,
		Side:                   init.Side,
		Size:                   init.Size,
		Price:                  init.Price,
		CashMarginType:         init.CashMarginType,
		Type:                   init.Type,
		TimeInForce:            TimeInForceNone,
		LeverageLevel:          init.LeverageLevel,
		CommissionPercent:      init.CommissionPercent,
		CommissionPaidByQuoted: init.CommissionPaidByQuoted,
		Status:                 StatusPendingNew,
		CreationTime:           time.Now(),
	}
}

func (o *Order) PendingSize() float64 {
	return trading.RoundTo(o.Size-o.FilledSize, trading.EpsilonPrecision)
}

// AverageFilledPrice is the size-weighted execution price, 0 without executions.
func (o *Order) AverageFilledPrice() float64 {
	var sumSize, sumNotional float64
	for _, x := range o.Executions {
		sumSize += x.Size
		sumNotional += x.Size * x.Price
	}
	if sumSize == 0 {
		return 0
	}
	return trading.RoundTo(sumNotional/sumSize, trading.EpsilonPrecision)
}

func (o *Order) Filled() bool {
	return o.Status == StatusFilled
}

// FilledNotionalSize is the base amount actually received or delivered. A buy
// paying commission in the quote currency receives less than its fill.
func (o *Order) FilledNotionalSize() float64 {
	if o.Side == SideBuy && o.CommissionPaidByQuoted {
		return trading.RoundTo(trading.AdjustedSize(o.FilledSize, true, true, o.CommissionPercent), trading.EpsilonPrecision)
	}
	return o.FilledSize
}

func (o *Order) FilledNotional() float64 {
	return o.AverageFilledPrice() * o.FilledNotionalSize()
}

// AdjustedFilledSize applies the commission adjustment to the filled size.
func (o *Order) AdjustedFilledSize() float64 {
	return trading.AdjustedSize(o.FilledSize, o.Side == SideBuy, o.CommissionPaidByQuoted, o.CommissionPercent)
}

// AdjustedPendingSize applies the commission adjustment to the pending size.
func (o *Order) AdjustedPendingSize() float64 {
	return trading.AdjustedSize(o.PendingSize(), o.Side == SideBuy, o.CommissionPaidByQuoted, o.CommissionPercent)
}

// SignedFilledSize is the adjusted fill signed by exposure direction.
func (o *Order) SignedFilledSize() float64 {
	return o.Side.Sign() * o.AdjustedFilledSize()
}
