// Package binance routes orders to Binance USDT-M futures through the
// go-binance SDK. Futures run in one-way mode, so MarginOpen and NetOut
// orders share a request shape and the venue nets them.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"arbcore/internal/gateway/exchange"
	"arbcore/internal/logger"
	"arbcore/internal/order"
	"arbcore/internal/pkg/symbol"
	"arbcore/internal/pkg/trading"

	"github.com/adshao/go-binance/v2/futures"
)

type Adapter struct {
	cfg    Config
	broker order.Broker
	client *futures.Client
	log    *logger.Logger
	now    func() time.Time

	leverageMu  sync.Mutex
	leverageSet map[string]int
}

func NewAdapter(broker order.Broker, cfg Config, log *logger.Logger) *Adapter {
	final := cfg.withDefaults()
	client := futures.NewClient(final.Key, final.Secret)
	client.BaseURL = final.RESTBaseURL
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Adapter{
		cfg:         final,
		broker:      broker,
		client:      client,
		log:         log.Or("BinanceAdapter"),
		now:         time.Now,
		leverageSet: make(map[string]int),
	}
}

// SetHTTPClient sets the HTTP client for testing.
func (a *Adapter) SetHTTPClient(client *http.Client) {
	a.client.HTTPClient = client
}

func (a *Adapter) Broker() order.Broker { return a.broker }

func (a *Adapter) venueSymbol(sym string) (string, error) {
	if a.cfg.VenueSymbol != "" {
		return a.cfg.VenueSymbol, nil
	}
	out := symbol.Parse(sym).Binance()
	if out == "" {
		return "", fmt.Errorf("%w: %q", exchange.ErrUnsupportedSymbol, sym)
	}
	return out, nil
}

func sideType(side order.Side) (futures.SideType, error) {
	switch side {
	case order.SideBuy:
		return futures.SideTypeBuy, nil
	case order.SideSell:
		return futures.SideTypeSell, nil
	default:
		return "", fmt.Errorf("%w: %q", exchange.ErrUnsupportedSide, side)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}

// ensureLeverage applies the order's leverage once per contract.
func (a *Adapter) ensureLeverage(ctx context.Context, sym string, level float64) error {
	lev := int(level)
	if lev <= 0 {
		return nil
	}
	a.leverageMu.Lock()
	defer a.leverageMu.Unlock()
	if a.leverageSet[sym] == lev {
		return nil
	}
	if _, err := a.client.NewChangeLeverageService().Symbol(sym).Leverage(lev).Do(ctx); err != nil {
		return fmt.Errorf("set leverage %dx on %s: %w", lev, sym, err)
	}
	a.leverageSet[sym] = lev
	return nil
}

func (a *Adapter) Send(ctx context.Context, o *order.Order) error {
	if o.Broker != a.broker {
		return fmt.Errorf("order for %s routed to %s adapter", o.Broker, a.broker)
	}
	switch o.CashMarginType {
	case order.CashMarginMarginOpen, order.CashMarginNetOut:
	default:
		return fmt.Errorf("%w: futures cannot trade %s", exchange.ErrInvalidCashMarginType, o.CashMarginType)
	}
	side, err := sideType(o.Side)
	if err != nil {
		return err
	}
	sym, err := a.venueSymbol(o.Symbol)
	if err != nil {
		return err
	}
	if err := a.ensureLeverage(ctx, sym, o.LeverageLevel); err != nil {
		return err
	}
	svc := a.client.NewCreateOrderService().
		Symbol(sym).
		Side(side).
		Quantity(formatFloat(o.Size)).
		NewClientOrderID(o.ID)
	switch o.Type {
	case order.TypeLimit:
		svc = svc.Type(futures.OrderTypeLimit).
			TimeInForce(futures.TimeInForceTypeGTC).
			Price(formatFloat(trading.RoundTo(o.Price, trading.PricePrecision)))
	case order.TypeMarket:
		svc = svc.Type(futures.OrderTypeMarket)
	default:
		return fmt.Errorf("%w: %q", exchange.ErrUnsupportedOrderType, o.Type)
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", exchange.ErrSendRejected, err)
	}
	o.BrokerOrderID = strconv.FormatInt(res.OrderID, 10)
	o.Status = order.StatusNew
	o.SentTime = time.UnixMilli(res.UpdateTime)
	o.LastUpdated = a.now()
	a.log.Infof("sent %s as %s order %s", order.ShortString(o), sym, o.BrokerOrderID)
	return nil
}

func (a *Adapter) orderID(o *order.Order) (int64, error) {
	id, err := strconv.ParseInt(o.BrokerOrderID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: broker order id %q", exchange.ErrOrderNotFound, o.BrokerOrderID)
	}
	return id, nil
}

// Refresh maps the venue order onto o. The venue reports an aggregate fill,
// so it is kept as one execution at the average price.
func (a *Adapter) Refresh(ctx context.Context, o *order.Order) error {
	id, err := a.orderID(o)
	if err != nil {
		return err
	}
	sym, err := a.venueSymbol(o.Symbol)
	if err != nil {
		return err
	}
	res, err := a.client.NewGetOrderService().Symbol(sym).OrderID(id).Do(ctx)
	if err != nil {
		return err
	}
	filled := parseFloat(res.ExecutedQuantity)
	o.FilledSize = trading.RoundTo(filled, trading.EpsilonPrecision)
	o.Executions = nil
	if filled > 0 {
		o.Executions = []order.Execution{{
			Broker:         o.Broker,
			BrokerOrderID:  o.BrokerOrderID,
			CashMarginType: o.CashMarginType,
			Side:           o.Side,
			Symbol:         o.Symbol,
			Size:           filled,
			Price:          parseFloat(res.AvgPrice),
			ExecTime:       time.UnixMilli(res.UpdateTime),
		}}
	}
	o.Status = mapStatus(res.Status, o.Status)
	o.LastUpdated = a.now()
	return nil
}

func mapStatus(s futures.OrderStatusType, current order.Status) order.Status {
	switch s {
	case futures.OrderStatusTypeNew:
		return order.StatusNew
	case futures.OrderStatusTypePartiallyFilled:
		return order.StatusPartiallyFilled
	case futures.OrderStatusTypeFilled:
		return order.StatusFilled
	case futures.OrderStatusTypeCanceled:
		return order.StatusCanceled
	case futures.OrderStatusTypeRejected:
		return order.StatusRejected
	case futures.OrderStatusTypeExpired:
		return order.StatusExpired
	default:
		return current
	}
}

func (a *Adapter) Cancel(ctx context.Context, o *order.Order) error {
	id, err := a.orderID(o)
	if err != nil {
		return err
	}
	sym, err := a.venueSymbol(o.Symbol)
	if err != nil {
		return err
	}
	if _, err := a.client.NewCancelOrderService().Symbol(sym).OrderID(id).Do(ctx); err != nil {
		return err
	}
	o.Status = order.StatusCanceled
	o.LastUpdated = a.now()
	return nil
}

// Exposure is the signed net position of the configured contract.
func (a *Adapter) Exposure(ctx context.Context) (float64, error) {
	positions, err := a.positions(ctx)
	if err != nil {
		return 0, err
	}
	var net float64
	for _, p := range positions {
		net += p.amount
	}
	return trading.RoundTo(net, trading.EpsilonPrecision), nil
}

type position struct {
	symbol string
	amount float64
}

func (a *Adapter) positions(ctx context.Context) ([]position, error) {
	contract, err := a.venueSymbol(a.cfg.Symbol)
	if err != nil {
		return nil, err
	}
	res, err := a.client.NewGetPositionRiskService().Symbol(contract).Do(ctx)
	if err != nil {
		return nil, err
	}
	var out []position
	for _, p := range res {
		if p == nil || p.Symbol != contract {
			continue
		}
		amt := parseFloat(p.PositionAmt)
		if amt == 0 {
			continue
		}
		out = append(out, position{symbol: p.Symbol, amount: amt})
	}
	return out, nil
}
