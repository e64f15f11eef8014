package okx

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"tradeflow/internal/candle"
)

const (
	defaultBaseURL = "https://www.okx.com"
	timestampFmt   = "2006-01-02T15:04:05.000Z"
)

// Config holds OKX REST credentials. Demo routes requests to the paper
// trading environment via the x-simulated-trading header.
type Config struct {
	APIKey     string
	SecretKey  string
	Passphrase string
	Demo       bool
	BaseURL    string
	Timeout    time.Duration
}

// Client is a minimal OKX v5 REST client covering the endpoints the
// engine needs. Requests are throttled client-side to stay under the
// venue's per-endpoint limits.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a REST client.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
	}
}

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// do signs and executes one request, returning the data payload.
func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("okx: marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		ts := time.Now().UTC().Format(timestampFmt)
		req.Header.Set("OK-ACCESS-KEY", c.cfg.APIKey)
		req.Header.Set("OK-ACCESS-SIGN", c.sign(ts, method, path, payload))
		req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
		req.Header.Set("OK-ACCESS-PASSPHRASE", c.cfg.Passphrase)
	}
	if c.cfg.Demo {
		req.Header.Set("x-simulated-trading", "1")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("okx: %s %s returned %d: %s", method, path, resp.StatusCode, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("okx: decode response: %w", err)
	}
	if env.Code != "0" {
		return nil, &APIError{Code: env.Code, Msg: env.Msg}
	}
	return env.Data, nil
}

// sign builds the OK-ACCESS-SIGN header: base64 HMAC-SHA256 over
// timestamp + method + path + body.
func (c *Client) sign(ts, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.SecretKey))
	mac.Write([]byte(ts))
	mac.Write([]byte(method))
	mac.Write([]byte(path))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SetLeverage sets the account leverage for an instrument.
func (c *Client) SetLeverage(ctx context.Context, instrument string, leverage int, marginMode string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/v5/account/set-leverage", map[string]string{
		"instId":  instrument,
		"lever":   strconv.Itoa(leverage),
		"mgnMode": marginMode,
	})
	return err
}

// PlaceOrder submits a market order and returns the exchange ack. A
// non-zero per-order sCode is surfaced as an APIError.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	data, err := c.do(ctx, http.MethodPost, "/api/v5/trade/order", map[string]string{
		"instId":  req.Instrument,
		"tdMode":  req.MarginMode,
		"side":    string(req.Side),
		"ordType": "market",
		"sz":      strconv.Itoa(req.Size),
		"clOrdId": req.ClientID,
	})
	if err != nil {
		return nil, err
	}
	var orders []Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("okx: decode order ack: %w", err)
	}
	if len(orders) == 0 {
		return nil, errors.New("okx: empty order ack")
	}
	o := orders[0]
	if o.SCode != "" && o.SCode != "0" {
		return nil, &APIError{Code: o.SCode, Msg: o.SMsg}
	}
	return &o, nil
}

// ClosePosition market-closes the whole position on an instrument.
func (c *Client) ClosePosition(ctx context.Context, instrument, marginMode string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/v5/trade/close-position", map[string]string{
		"instId":  instrument,
		"mgnMode": marginMode,
	})
	return err
}

// Candles fetches up to limit recent bars, oldest first. Only confirmed
// bars are returned.
func (c *Client) Candles(ctx context.Context, instrument, bar string, limit int) ([]candle.Candle, error) {
	q := url.Values{}
	q.Set("instId", instrument)
	q.Set("bar", bar)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	data, err := c.do(ctx, http.MethodGet, "/api/v5/market/candles?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("okx: decode candles: %w", err)
	}

	// The venue returns newest first.
	out := make([]candle.Candle, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		cd, err := parseCandleRow(rows[i])
		if err != nil {
			return nil, err
		}
		if cd.Confirmed {
			out = append(out, cd)
		}
	}
	return out, nil
}

// Balance returns the account equity for one currency.
func (c *Client) Balance(ctx context.Context, currency string) (Balance, error) {
	q := url.Values{}
	q.Set("ccy", currency)
	data, err := c.do(ctx, http.MethodGet, "/api/v5/account/balance?"+q.Encode(), nil)
	if err != nil {
		return Balance{}, err
	}
	var accounts []struct {
		Details []struct {
			Ccy     string `json:"ccy"`
			Eq      string `json:"eq"`
			AvailEq string `json:"availEq"`
		} `json:"details"`
	}
	if err := json.Unmarshal(data, &accounts); err != nil {
		return Balance{}, fmt.Errorf("okx: decode balance: %w", err)
	}
	for _, acct := range accounts {
		for _, d := range acct.Details {
			if d.Ccy != currency {
				continue
			}
			eq, _ := strconv.ParseFloat(d.Eq, 64)
			avail, _ := strconv.ParseFloat(d.AvailEq, 64)
			return Balance{Currency: d.Ccy, Equity: eq, Avail: avail}, nil
		}
	}
	return Balance{}, fmt.Errorf("okx: no balance for %s", currency)
}

// parseCandleRow decodes one [ts,o,h,l,c,vol,...,confirm] row.
func parseCandleRow(row []string) (candle.Candle, error) {
	if len(row) < 6 {
		return candle.Candle{}, fmt.Errorf("okx: candle row has %d columns", len(row))
	}
	ms, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return candle.Candle{}, fmt.Errorf("okx: candle timestamp %q: %w", row[0], err)
	}
	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return candle.Candle{}, fmt.Errorf("okx: candle column %d %q: %w", i+1, row[i+1], err)
		}
		vals[i] = v
	}
	confirmed := true
	if last := row[len(row)-1]; last == "0" {
		confirmed = false
	}
	return candle.Candle{
		Timestamp:   time.UnixMilli(ms).UTC(),
		TimestampNS: ms * int64(time.Millisecond),
		Open:        vals[0],
		High:        vals[1],
		Low:         vals[2],
		Close:       vals[3],
		Volume:      vals[4],
		Confirmed:   confirmed,
	}, nil
}
