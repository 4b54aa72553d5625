package coincheck

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"arbcore/internal/gateway/exchange"

	"github.com/tidwall/gjson"
)

const (
	leveragePositionsPageLimit = 25
	transactionsPageLimit      = 100
	transactionsMaxPages       = 20
)

// API is the part of the venue the strategies and the adapter need.
type API interface {
	NewOrder(ctx context.Context, req NewOrderRequest) (NewOrderReply, error)
	AccountsBalance(ctx context.Context, currency string) (float64, error)
	OpenLeveragePositions(ctx context.Context) ([]exchange.Position, error)
	OpenOrders(ctx context.Context) ([]OpenOrder, error)
	TransactionsSince(ctx context.Context, since time.Time) ([]Transaction, error)
	CancelOrder(ctx context.Context, id string) error
}

// NewOrderRequest mirrors POST /api/exchange/orders.
type NewOrderRequest struct {
	Pair            string  `json:"pair"`
	OrderType       string  `json:"order_type"`
	Rate            float64 `json:"rate,omitempty"`
	Amount          float64 `json:"amount,omitempty"`
	MarketBuyAmount float64 `json:"market_buy_amount,omitempty"`
	PositionID      int64   `json:"position_id,omitempty"`
}

type NewOrderReply struct {
	Success   bool
	ID        string
	Error     string
	CreatedAt time.Time
}

type OpenOrder struct {
	ID            string
	OrderType     string
	Rate          float64
	Pair          string
	PendingAmount float64
	CreatedAt     time.Time
}

type Transaction struct {
	ID        string
	OrderID   string
	CreatedAt time.Time
	Pair      string
	Rate      float64
	Side      string
	// Funds maps currency code (lower case) to the signed amount moved.
	Funds map[string]float64
}

func (c *Client) NewOrder(ctx context.Context, req NewOrderRequest) (NewOrderReply, error) {
	const path = "/api/exchange/orders"
	raw, err := c.doRequest(ctx, http.MethodPost, path, nil, req)
	if err != nil {
		return NewOrderReply{}, err
	}
	res := gjson.ParseBytes(raw)
	return NewOrderReply{
		Success:   res.Get("success").Bool(),
		ID:        res.Get("id").String(),
		Error:     res.Get("error").String(),
		CreatedAt: parseTime(res.Get("created_at").String()),
	}, nil
}

// AccountsBalance returns the available balance of currency, e.g. "btc".
func (c *Client) AccountsBalance(ctx context.Context, currency string) (float64, error) {
	const path = "/api/accounts/balance"
	raw, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return 0, err
	}
	if err := expectSuccess(path, raw); err != nil {
		return 0, err
	}
	return gjson.GetBytes(raw, strings.ToLower(currency)).Float(), nil
}

// OpenLeveragePositions pages through every open leverage position in the
// order the venue lists them.
func (c *Client) OpenLeveragePositions(ctx context.Context) ([]exchange.Position, error) {
	const path = "/api/exchange/leverage/positions"
	var out []exchange.Position
	startingAfter := ""
	for {
		q := url.Values{}
		q.Set("status", "open")
		q.Set("limit", strconv.Itoa(leveragePositionsPageLimit))
		if startingAfter != "" {
			q.Set("starting_after", startingAfter)
		}
		raw, err := c.doRequest(ctx, http.MethodGet, path, q, nil)
		if err != nil {
			return nil, err
		}
		if err := expectSuccess(path, raw); err != nil {
			return nil, err
		}
		data := gjson.GetBytes(raw, "data").Array()
		for _, p := range data {
			out = append(out, exchange.Position{
				ID:       p.Get("id").String(),
				Symbol:   p.Get("pair").String(),
				Side:     p.Get("side").String(),
				Amount:   p.Get("amount").Float(),
				OpenRate: p.Get("open_rate").Float(),
				OpenedAt: parseTime(p.Get("created_at").String()),
			})
		}
		if len(data) < leveragePositionsPageLimit {
			return out, nil
		}
		startingAfter = data[len(data)-1].Get("id").String()
	}
}

func (c *Client) OpenOrders(ctx context.Context) ([]OpenOrder, error) {
	const path = "/api/exchange/orders/opens"
	raw, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := expectSuccess(path, raw); err != nil {
		return nil, err
	}
	var out []OpenOrder
	for _, o := range gjson.GetBytes(raw, "orders").Array() {
		out = append(out, OpenOrder{
			ID:            o.Get("id").String(),
			OrderType:     o.Get("order_type").String(),
			Rate:          o.Get("rate").Float(),
			Pair:          o.Get("pair").String(),
			PendingAmount: o.Get("pending_amount").Float(),
			CreatedAt:     parseTime(o.Get("created_at").String()),
		})
	}
	return out, nil
}

// TransactionsSince pages backwards through fills until it passes since.
func (c *Client) TransactionsSince(ctx context.Context, since time.Time) ([]Transaction, error) {
	const path = "/api/exchange/orders/transactions_pagination"
	var out []Transaction
	startingAfter := ""
	for page := 0; page < transactionsMaxPages; page++ {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(transactionsPageLimit))
		q.Set("order", "desc")
		if startingAfter != "" {
			q.Set("starting_after", startingAfter)
		}
		raw, err := c.doRequest(ctx, http.MethodGet, path, q, nil)
		if err != nil {
			return nil, err
		}
		if err := expectSuccess(path, raw); err != nil {
			return nil, err
		}
		data := gjson.GetBytes(raw, "data").Array()
		for _, tx := range data {
			t := parseTransaction(tx)
			if t.CreatedAt.Before(since) {
				return out, nil
			}
			out = append(out, t)
		}
		if len(data) < transactionsPageLimit {
			return out, nil
		}
		startingAfter = data[len(data)-1].Get("id").String()
	}
	c.log.Warnf("transactions since %s truncated after %d pages", since.Format(time.RFC3339), transactionsMaxPages)
	return out, nil
}

func parseTransaction(tx gjson.Result) Transaction {
	funds := make(map[string]float64)
	tx.Get("funds").ForEach(func(k, v gjson.Result) bool {
		funds[strings.ToLower(k.String())] = v.Float()
		return true
	})
	return Transaction{
		ID:        tx.Get("id").String(),
		OrderID:   tx.Get("order_id").String(),
		CreatedAt: parseTime(tx.Get("created_at").String()),
		Pair:      tx.Get("pair").String(),
		Rate:      tx.Get("rate").Float(),
		Side:      tx.Get("side").String(),
		Funds:     funds,
	}
}

func (c *Client) CancelOrder(ctx context.Context, id string) error {
	path := "/api/exchange/orders/" + url.PathEscape(id)
	raw, err := c.doRequest(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	return expectSuccess(path, raw)
}
