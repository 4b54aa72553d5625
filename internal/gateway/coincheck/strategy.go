package coincheck

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"arbcore/internal/gateway/exchange"
	"arbcore/internal/order"
	"arbcore/internal/pkg/symbol"
	"arbcore/internal/pkg/trading"

	"github.com/shopspring/decimal"
)

const (
	// netOutSymbol is the only pair the net-out strategy knows how to close.
	netOutSymbol = "BTC/JPY"
	// netOutMatchTolerance is the absolute size distance within which an
	// opposite position is considered the one to close.
	netOutMatchTolerance = 1.0
)

var (
	marketBuySlippage  = decimal.RequireFromString("1.05")
	marketSellSlippage = decimal.RequireFromString("0.95")
)

// Strategy turns an order into the venue request for one trade mode and
// reports the exposure that mode carries.
type Strategy interface {
	Send(ctx context.Context, o *order.Order) error
	Exposure(ctx context.Context) (float64, error)
}

// OrderPrice is the rate sent to the venue. Market orders get a fixed 5%
// guard, floored to a whole quote unit; limit orders pass through.
func OrderPrice(o *order.Order) (float64, error) {
	switch o.Side {
	case order.SideBuy, order.SideSell:
	default:
		return 0, fmt.Errorf("%w: %q", exchange.ErrUnsupportedSide, o.Side)
	}
	switch o.Type {
	case order.TypeLimit:
		return o.Price, nil
	case order.TypeMarket:
		factor := marketSellSlippage
		if o.Side == order.SideBuy {
			factor = marketBuySlippage
		}
		return decimal.NewFromFloat(o.Price).Mul(factor).Floor().InexactFloat64(), nil
	default:
		return 0, fmt.Errorf("%w: %q", exchange.ErrUnsupportedOrderType, o.Type)
	}
}

func sideOrderType(side order.Side, buy, sell string) (string, error) {
	switch side {
	case order.SideBuy:
		return buy, nil
	case order.SideSell:
		return sell, nil
	default:
		return "", fmt.Errorf("%w: %q", exchange.ErrUnsupportedSide, side)
	}
}

func venuePair(o *order.Order) (string, error) {
	pair := symbol.Parse(o.Symbol).Coincheck()
	if pair == "" {
		return "", fmt.Errorf("%w: %q", exchange.ErrUnsupportedSymbol, o.Symbol)
	}
	return pair, nil
}

func checkMode(o *order.Order, want order.CashMarginType) error {
	if o.CashMarginType != want {
		return fmt.Errorf("%w: %s order routed to %s strategy", exchange.ErrInvalidCashMarginType, o.CashMarginType, want)
	}
	return nil
}

// submit sends req and records acceptance on o.
func submit(ctx context.Context, api API, o *order.Order, req NewOrderRequest) error {
	reply, err := api.NewOrder(ctx, req)
	if err != nil {
		return err
	}
	if !reply.Success {
		return fmt.Errorf("%w: %s", exchange.ErrSendRejected, reply.Error)
	}
	o.SentTime = reply.CreatedAt
	o.Status = order.StatusNew
	o.BrokerOrderID = reply.ID
	o.LastUpdated = time.Now()
	return nil
}

// CashStrategy trades spot balance.
type CashStrategy struct {
	api          API
	baseCurrency string
}

func NewCashStrategy(api API, sym string) *CashStrategy {
	return &CashStrategy{api: api, baseCurrency: symbol.Parse(sym).Base}
}

func (s *CashStrategy) Send(ctx context.Context, o *order.Order) error {
	if err := checkMode(o, order.CashMarginCash); err != nil {
		return err
	}
	orderType, err := sideOrderType(o.Side, "buy", "sell")
	if err != nil {
		return err
	}
	pair, err := venuePair(o)
	if err != nil {
		return err
	}
	rate, err := OrderPrice(o)
	if err != nil {
		return err
	}
	return submit(ctx, s.api, o, NewOrderRequest{
		Pair:      pair,
		OrderType: orderType,
		Amount:    o.Size,
		Rate:      rate,
	})
}

func (s *CashStrategy) Exposure(ctx context.Context) (float64, error) {
	return s.api.AccountsBalance(ctx, s.baseCurrency)
}

// MarginOpenStrategy always opens new leveraged exposure.
type MarginOpenStrategy struct {
	api API
}

func NewMarginOpenStrategy(api API) *MarginOpenStrategy {
	return &MarginOpenStrategy{api: api}
}

func (s *MarginOpenStrategy) Send(ctx context.Context, o *order.Order) error {
	if err := checkMode(o, order.CashMarginMarginOpen); err != nil {
		return err
	}
	orderType, err := sideOrderType(o.Side, "leverage_buy", "leverage_sell")
	if err != nil {
		return err
	}
	pair, err := venuePair(o)
	if err != nil {
		return err
	}
	rate, err := OrderPrice(o)
	if err != nil {
		return err
	}
	return submit(ctx, s.api, o, NewOrderRequest{
		Pair:      pair,
		OrderType: orderType,
		Amount:    o.Size,
		Rate:      rate,
	})
}

func (s *MarginOpenStrategy) Exposure(ctx context.Context) (float64, error) {
	return leverageExposure(ctx, s.api)
}

// NetOutStrategy closes a matching opposite position when there is one and
// opens a new leveraged position otherwise.
type NetOutStrategy struct {
	api API
}

func NewNetOutStrategy(api API) *NetOutStrategy {
	return &NetOutStrategy{api: api}
}

func (s *NetOutStrategy) Send(ctx context.Context, o *order.Order) error {
	if err := checkMode(o, order.CashMarginNetOut); err != nil {
		return err
	}
	req, err := s.netOutRequest(ctx, o)
	if err != nil {
		return err
	}
	return submit(ctx, s.api, o, req)
}

func (s *NetOutStrategy) Exposure(ctx context.Context) (float64, error) {
	return leverageExposure(ctx, s.api)
}

func (s *NetOutStrategy) netOutRequest(ctx context.Context, o *order.Order) (NewOrderRequest, error) {
	if symbol.Normalize(o.Symbol) != netOutSymbol {
		return NewOrderRequest{}, fmt.Errorf("%w: net-out supports %s only, got %q", exchange.ErrUnsupportedSymbol, netOutSymbol, o.Symbol)
	}
	openType, err := sideOrderType(o.Side, "leverage_buy", "leverage_sell")
	if err != nil {
		return NewOrderRequest{}, err
	}
	closeType, _ := sideOrderType(o.Side, "close_short", "close_long")
	targetSide := exchange.PositionSideBuy
	if o.Side == order.SideBuy {
		targetSide = exchange.PositionSideSell
	}
	rate, err := OrderPrice(o)
	if err != nil {
		return NewOrderRequest{}, err
	}
	positions, err := s.api.OpenLeveragePositions(ctx)
	if err != nil {
		return NewOrderRequest{}, err
	}
	var target *exchange.Position
	for i := range positions {
		p := positions[i]
		if p.Side == targetSide && almostEqual(p.Amount, o.Size, netOutMatchTolerance) {
			target = &positions[i]
		}
	}
	req := NewOrderRequest{Pair: symbol.Parse(netOutSymbol).Coincheck(), Rate: rate}
	if target == nil {
		req.OrderType = openType
		req.Amount = o.Size
		return req, nil
	}
	id, err := strconv.ParseInt(target.ID, 10, 64)
	if err != nil {
		return NewOrderRequest{}, fmt.Errorf("position id %q: %w", target.ID, err)
	}
	req.OrderType = closeType
	req.Amount = target.Amount
	req.PositionID = id
	return req, nil
}

func leverageExposure(ctx context.Context, api API) (float64, error) {
	positions, err := api.OpenLeveragePositions(ctx)
	if err != nil {
		return 0, err
	}
	return trading.RoundTo(exchange.SignedExposure(positions), trading.EpsilonPrecision), nil
}

func almostEqual(a, b, tolerance float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}
