// Package order holds the trade record shared by the strategies, the broker
// router, the pair trader and the single-leg handler.
package order

import (
	"fmt"
	"strings"
	"time"
)

type Broker string

type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// Opposite returns the other side. Unknown sides are returned unchanged.
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return s
	}
}

// Sign is the exposure direction of a fill on this side: Buy -1, Sell +1.
func (s Side) Sign() float64 {
	if s == SideBuy {
		return -1
	}
	return 1
}

type CashMarginType string

const (
	CashMarginCash       CashMarginType = "Cash"
	CashMarginMarginOpen CashMarginType = "MarginOpen"
	CashMarginNetOut     CashMarginType = "NetOut"
)

func ParseCashMarginType(raw string) (CashMarginType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cash":
		return CashMarginCash, nil
	case "marginopen", "margin_open":
		return CashMarginMarginOpen, nil
	case "netout", "net_out":
		return CashMarginNetOut, nil
	default:
		return "", fmt.Errorf("unknown cash margin type %q", raw)
	}
}

type Type string

const (
	TypeMarket Type = "Market"
	TypeLimit  Type = "Limit"
)

func ParseType(raw string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "market":
		return TypeMarket, nil
	case "limit":
		return TypeLimit, nil
	default:
		return "", fmt.Errorf("unknown order type %q", raw)
	}
}

type TimeInForce string

const (
	TimeInForceNone TimeInForce = "None"
	TimeInForceFok  TimeInForce = "Fok"
	TimeInForceIoc  TimeInForce = "Ioc"
)

type Status string

const (
	StatusPendingNew      Status = "PendingNew"
	StatusNew             Status = "New"
	StatusPartiallyFilled Status = "PartiallyFilled"
	StatusFilled          Status = "Filled"
	StatusCanceled        Status = "Canceled"
	StatusPendingCancel   Status = "PendingCancel"
	StatusRejected        Status = "Rejected"
	StatusExpired         Status = "Expired"
)

// Execution is a single fill reported by a venue.
type Execution struct {
	Broker         Broker         `json:"broker"`
	BrokerOrderID  string         `json:"broker_order_id"`
	CashMarginType CashMarginType `json:"cash_margin_type"`
	Side           Side           `json:"side"`
	Symbol         string         `json:"symbol"`
	Size           float64        `json:"size"`
	Price          float64        `json:"price"`
	ExecTime       time.Time      `json:"exec_time"`
}
