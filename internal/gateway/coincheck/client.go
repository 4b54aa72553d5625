package coincheck

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"arbcore/internal/logger"
	"arbcore/internal/pkg/circuit"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// Client talks to the Coincheck private REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuit.CircuitBreaker
	log        *logger.Logger

	nonceMu   sync.Mutex
	lastNonce int64
}

var _ API = (*Client)(nil)

func NewClient(cfg Config, log *logger.Logger) *Client {
	final := cfg.withDefaults()
	return &Client{
		cfg:        final,
		httpClient: &http.Client{Timeout: final.HTTPTimeout},
		limiter:    rate.NewLimiter(rate.Limit(final.RateLimitPerSec), 1),
		breaker:    circuit.NewCircuitBreaker("coincheck", final.BreakerThreshold, final.BreakerTimeout),
		log:        log.Or("CoincheckClient"),
	}
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) nonce() string {
	c.nonceMu.Lock()
	defer c.nonceMu.Unlock()
	n := time.Now().UnixMicro()
	if n <= c.lastNonce {
		n = c.lastNonce + 1
	}
	c.lastNonce = n
	return strconv.FormatInt(n, 10)
}

func (c *Client) sign(nonce, fullURL string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.Secret))
	mac.Write([]byte(nonce))
	mac.Write([]byte(fullURL))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// doRequest sends a signed request and returns the raw reply. Transport
// failures and non-2xx statuses count against the circuit breaker; a
// `success: false` body does not, and is left for the caller to interpret.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	fullURL := c.cfg.BaseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	var body []byte
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", path, err)
		}
		body = buf
	}

	var raw []byte
	err := c.breaker.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		nonce := c.nonce()
		req.Header.Set("ACCESS-KEY", c.cfg.Key)
		req.Header.Set("ACCESS-NONCE", nonce)
		req.Header.Set("ACCESS-SIGNATURE", c.sign(nonce, fullURL, body))
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		c.log.Debugf("%s %s %s", method, fullURL, string(body))
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		raw, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("coincheck %s %s failed: status %d: %s", method, path, resp.StatusCode, string(raw))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 && !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("coincheck %s: invalid json reply", path)
	}
	return raw, nil
}

// expectSuccess turns a `success: false` reply into an error.
func expectSuccess(path string, raw []byte) error {
	res := gjson.ParseBytes(raw)
	if res.Get("success").Bool() {
		return nil
	}
	return fmt.Errorf("coincheck %s returned failure: %s", path, res.Get("error").String())
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
