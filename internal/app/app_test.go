package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"arbcore/internal/broker"
	"arbcore/internal/config"
	"arbcore/internal/order"
	"arbcore/internal/trader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paperAdapter accepts every order and fills it completely on refresh.
type paperAdapter struct {
	name order.Broker

	mu   sync.Mutex
	sent []*order.Order
	pos  float64
}

func (p *paperAdapter) Broker() order.Broker { return p.name }

func (p *paperAdapter) Send(_ context.Context, o *order.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, o)
	o.BrokerOrderID = string(p.name) + "-1"
	o.Status = order.StatusNew
	return nil
}

func (p *paperAdapter) Refresh(_ context.Context, o *order.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o.Status == order.StatusFilled {
		return nil
	}
	o.FilledSize = o.Size
	o.Status = order.StatusFilled
	o.Executions = []order.Execution{{Broker: o.Broker, Side: o.Side, Size: o.Size, Price: o.Price}}
	p.pos -= o.Side.Sign() * o.Size
	return nil
}

func (p *paperAdapter) Cancel(_ context.Context, o *order.Order) error {
	o.Status = order.StatusCanceled
	return nil
}

func (p *paperAdapter) Exposure(context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos, nil
}

const appYAML = `
trade:
  symbol: BTC/JPY
  max_retry_count: 3
  order_status_check_interval_ms: 0
  acceptable_price_range: 0
brokers:
  - name: Coincheck
    cash_margin_type: NetOut
    leverage_level: 5
  - name: Binance
    cash_margin_type: MarginOpen
    leverage_level: 3
    commission_percent: 0.1
    commission_paid_by_quoted: true
on_single_leg:
  action: Reverse
  action_on_exit: Proceed
  options:
    order_type: Market
    ttl_ms: 250
`

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(appYAML), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	cfg.Trade.ActivePairStorePath = filepath.Join(dir, "pairs.db")
	return cfg
}

func TestTradeOptions(t *testing.T) {
	cfg := loadConfig(t)
	opts, err := TradeOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, "BTC/JPY", opts.Symbol)
	assert.Equal(t, 3, opts.MaxRetryCount)
	assert.Zero(t, opts.OrderStatusCheckInterval)
	require.NotNil(t, opts.AcceptablePriceRange)
	assert.Zero(t, *opts.AcceptablePriceRange)
	assert.Equal(t, 0.005, opts.MinSize)
	assert.Equal(t, 6, opts.NetExposurePrecision)
	require.Len(t, opts.Brokers, 2)
	assert.Equal(t, trader.BrokerOptions{
		CashMarginType: order.CashMarginNetOut,
		LeverageLevel:  5,
	}, opts.Brokers["Coincheck"])
	assert.Equal(t, trader.BrokerOptions{
		CashMarginType:         order.CashMarginMarginOpen,
		LeverageLevel:          3,
		CommissionPercent:      0.1,
		CommissionPaidByQuoted: true,
	}, opts.Brokers["Binance"])
}

func TestSingleLegOptions(t *testing.T) {
	cfg := loadConfig(t)
	opts, err := SingleLegOptions(cfg.OnSingleLeg)
	require.NoError(t, err)
	assert.Equal(t, trader.ActionReverse, opts.Action)
	assert.Equal(t, trader.ActionProceed, opts.ActionOnExit)
	assert.Equal(t, order.TypeMarket, opts.OrderType)
	assert.Equal(t, 5.0, opts.LimitMovePercent)
	assert.Equal(t, int64(250), opts.TTL.Milliseconds())

	_, err = SingleLegOptions(config.OnSingleLegConfig{Action: "Hedge"})
	assert.ErrorIs(t, err, trader.ErrInvalidAction)
}

func TestBuildAndTrade(t *testing.T) {
	cfg := loadConfig(t)
	venues := map[string]*paperAdapter{}
	factory := func(b config.BrokerConfig, _ string) (broker.Adapter, error) {
		p := &paperAdapter{name: order.Broker(b.Name)}
		venues[b.Name] = p
		return p, nil
	}
	a, err := NewAppBuilder(cfg, WithAdapterFactory(factory)).Build(context.Background())
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, []order.Broker{"Binance", "Coincheck"}, a.Router().Brokers())

	statuses := make(chan trader.Status, 4)
	a.SetStatusChannel(statuses)
	res, err := a.Trade(context.Background(), trader.SpreadAnalysisResult{
		Ask:          trader.Quote{Broker: "Coincheck", Side: trader.QuoteSideAsk, Price: 1000000, Volume: 1},
		Bid:          trader.Quote{Broker: "Binance", Side: trader.QuoteSideBid, Price: 1001000, Volume: 1},
		TargetVolume: 0.1,
	}, false)
	require.NoError(t, err)
	assert.Equal(t, trader.StatusFilled, res.Status)
	assert.True(t, res.Persisted)
	assert.Equal(t, trader.StatusSent, <-statuses)
	assert.Equal(t, trader.StatusFilled, <-statuses)

	require.Len(t, venues["Coincheck"].sent, 1)
	assert.Equal(t, order.CashMarginNetOut, venues["Coincheck"].sent[0].CashMarginType)
	assert.Equal(t, order.SideSell, venues["Binance"].sent[0].Side)

	stored, err := a.Pairs().List(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "BTC/JPY", stored[0].Symbol)

	exp, err := a.Exposures(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.1, exp["Coincheck"], 1e-9)
	assert.InDelta(t, -0.1, exp["Binance"], 1e-9)
}

func TestBuildAdapterFailure(t *testing.T) {
	cfg := loadConfig(t)
	boom := errors.New("boom")
	_, err := NewAppBuilder(cfg, WithAdapterFactory(func(config.BrokerConfig, string) (broker.Adapter, error) {
		return nil, boom
	})).Build(context.Background())
	assert.ErrorIs(t, err, boom)
}
