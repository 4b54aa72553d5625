package coincheck

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"arbcore/internal/gateway/exchange"
	"arbcore/internal/logger"
	"arbcore/internal/order"
	"arbcore/internal/pkg/symbol"
	"arbcore/internal/pkg/trading"
)

// filledTolerancePercent is how far below the order size the summed fills
// may be for a closed order to still count as filled.
const filledTolerancePercent = 1.0

// Adapter routes orders for one Coincheck account. The trade mode of each
// order selects the strategy; the configured mode selects the exposure view.
type Adapter struct {
	broker     order.Broker
	mode       order.CashMarginType
	api        API
	cash       *CashStrategy
	marginOpen *MarginOpenStrategy
	netOut     *NetOutStrategy
	log        *logger.Logger
	now        func() time.Time
}

func NewAdapter(broker order.Broker, mode order.CashMarginType, sym string, api API, log *logger.Logger) *Adapter {
	return &Adapter{
		broker:     broker,
		mode:       mode,
		api:        api,
		cash:       NewCashStrategy(api, sym),
		marginOpen: NewMarginOpenStrategy(api),
		netOut:     NewNetOutStrategy(api),
		log:        log.Or("CoincheckAdapter"),
		now:        time.Now,
	}
}

func (a *Adapter) Broker() order.Broker { return a.broker }

func (a *Adapter) strategy(mode order.CashMarginType) (Strategy, error) {
	switch mode {
	case order.CashMarginCash:
		return a.cash, nil
	case order.CashMarginMarginOpen:
		return a.marginOpen, nil
	case order.CashMarginNetOut:
		return a.netOut, nil
	default:
		return nil, fmt.Errorf("%w: %q", exchange.ErrInvalidCashMarginType, mode)
	}
}

func (a *Adapter) checkBroker(o *order.Order) error {
	if o.Broker != a.broker {
		return fmt.Errorf("order for %s routed to %s adapter", o.Broker, a.broker)
	}
	return nil
}

func (a *Adapter) Send(ctx context.Context, o *order.Order) error {
	if err := a.checkBroker(o); err != nil {
		return err
	}
	s, err := a.strategy(o.CashMarginType)
	if err != nil {
		return err
	}
	return s.Send(ctx, o)
}

// Refresh reads the order back from the open-order book first; once it has
// left the book its fills are rebuilt from the transaction history.
func (a *Adapter) Refresh(ctx context.Context, o *order.Order) error {
	if err := a.checkBroker(o); err != nil {
		return err
	}
	open, err := a.api.OpenOrders(ctx)
	if err != nil {
		return err
	}
	for _, bo := range open {
		if bo.ID != o.BrokerOrderID {
			continue
		}
		if bo.PendingAmount <= 0 {
			return fmt.Errorf("open order %s reported without pending amount", bo.ID)
		}
		o.FilledSize = trading.RoundTo(o.Size-bo.PendingAmount, trading.EpsilonPrecision)
		if o.FilledSize > 0 {
			o.Status = order.StatusPartiallyFilled
		}
		o.LastUpdated = a.now()
		return nil
	}

	txs, err := a.api.TransactionsSince(ctx, o.CreationTime.Add(-time.Minute))
	if err != nil {
		return err
	}
	base := symbol.Parse(o.Symbol).Base
	var execs []order.Execution
	for _, tx := range txs {
		if tx.OrderID != o.BrokerOrderID {
			continue
		}
		execs = append(execs, order.Execution{
			Broker:         o.Broker,
			BrokerOrderID:  o.BrokerOrderID,
			CashMarginType: o.CashMarginType,
			Side:           o.Side,
			Symbol:         o.Symbol,
			Size:           math.Abs(tx.Funds[strings.ToLower(base)]),
			Price:          tx.Rate,
			ExecTime:       tx.CreatedAt,
		})
	}
	if len(execs) == 0 {
		a.log.Warnf("order %s is neither open nor in the transaction history", o.BrokerOrderID)
		return nil
	}
	// history is newest first
	for i, j := 0, len(execs)-1; i < j; i, j = i+1, j-1 {
		execs[i], execs[j] = execs[j], execs[i]
	}
	var filled float64
	for _, x := range execs {
		filled += x.Size
	}
	o.Executions = execs
	o.FilledSize = trading.RoundTo(filled, trading.EpsilonPrecision)
	if withinPercent(o.FilledSize, o.Size, filledTolerancePercent) {
		o.Status = order.StatusFilled
	} else {
		o.Status = order.StatusCanceled
	}
	o.LastUpdated = a.now()
	return nil
}

func (a *Adapter) Cancel(ctx context.Context, o *order.Order) error {
	if err := a.checkBroker(o); err != nil {
		return err
	}
	if err := a.api.CancelOrder(ctx, o.BrokerOrderID); err != nil {
		return err
	}
	o.Status = order.StatusCanceled
	o.LastUpdated = a.now()
	return nil
}

func (a *Adapter) Exposure(ctx context.Context) (float64, error) {
	s, err := a.strategy(a.mode)
	if err != nil {
		return 0, err
	}
	return s.Exposure(ctx)
}

func withinPercent(a, b, tolerancePercent float64) bool {
	if b == 0 {
		return a == 0
	}
	return math.Abs((a-b)/b)*100 <= tolerancePercent
}
