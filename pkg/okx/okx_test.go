package okx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSign(t *testing.T) {
	c := NewClient(Config{SecretKey: "22582BD0CFF14C41EDBF1AB98506286D"})
	// Known vector from the venue's API docs.
	got := c.sign("2020-12-08T09:08:57.715Z", "GET", "/api/v5/account/balance?ccy=BTC", nil)
	want := "HiZhvSfMtWJA3uUIVXV3a/bSXNPCWvYFXoGCVS8V4zY="
	if got != want {
		t.Errorf("sign = %q, want %q", got, want)
	}
}

func TestParseCandleRow(t *testing.T) {
	cases := []struct {
		name      string
		row       []string
		wantClose float64
		confirmed bool
		wantErr   bool
	}{
		{
			"confirmed ws row",
			[]string{"1700000000000", "100", "105", "99", "102", "12.5", "1250", "1250", "1"},
			102, true, false,
		},
		{
			"unconfirmed ws row",
			[]string{"1700000000000", "100", "105", "99", "102", "12.5", "1250", "1250", "0"},
			102, false, false,
		},
		{
			"short row",
			[]string{"1700000000000", "100"},
			0, false, true,
		},
		{
			"bad number",
			[]string{"1700000000000", "100", "x", "99", "102", "1", "1", "1", "1"},
			0, false, true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := parseCandleRow(tc.row)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCandleRow: %v", err)
			}
			if c.Close != tc.wantClose || c.Confirmed != tc.confirmed {
				t.Errorf("candle = %+v", c)
			}
			if c.UnixNanos() != 1700000000000*int64(time.Millisecond) {
				t.Errorf("nanos = %d", c.UnixNanos())
			}
		})
	}
}

func TestParseStreamMessage(t *testing.T) {
	t.Run("candle push", func(t *testing.T) {
		msg := []byte(`{"arg":{"channel":"candle1m","instId":"BTC-USDT-SWAP"},` +
			`"data":[["1700000000000","100","105","99","102","12.5","1250","1250","1"]]}`)
		candles, err := parseStreamMessage(msg)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if len(candles) != 1 || candles[0].Close != 102 || !candles[0].Confirmed {
			t.Errorf("candles = %+v", candles)
		}
	})

	t.Run("subscribe ack", func(t *testing.T) {
		candles, err := parseStreamMessage([]byte(`{"event":"subscribe","arg":{"channel":"candle1m"}}`))
		if err != nil || len(candles) != 0 {
			t.Errorf("ack: candles=%v err=%v", candles, err)
		}
	})

	t.Run("error event", func(t *testing.T) {
		if _, err := parseStreamMessage([]byte(`{"event":"error","msg":"channel not found"}`)); err == nil {
			t.Error("expected error")
		}
	})
}

func TestCandlesOldestFirstConfirmedOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v5/market/candles" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("instId"); got != "BTC-USDT-SWAP" {
			t.Errorf("instId = %q", got)
		}
		// Newest first, newest bar still open.
		json.NewEncoder(w).Encode(map[string]any{
			"code": "0",
			"data": [][]string{
				{"1700000120000", "102", "103", "101", "103", "1", "1", "1", "0"},
				{"1700000060000", "101", "102", "100", "102", "1", "1", "1", "1"},
				{"1700000000000", "100", "101", "99", "101", "1", "1", "1", "1"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	candles, err := c.Candles(context.Background(), "BTC-USDT-SWAP", "1m", 3)
	if err != nil {
		t.Fatalf("Candles: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("got %d candles, want 2 confirmed", len(candles))
	}
	if candles[0].Close != 101 || candles[1].Close != 102 {
		t.Errorf("order wrong: %v, %v", candles[0].Close, candles[1].Close)
	}
}

func TestPlaceOrderSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"code": "1",
			"msg":  "Operation failed",
			"data": []map[string]string{
				{"ordId": "", "clOrdId": "abc", "sCode": "51008", "sMsg": "insufficient balance"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k", SecretKey: "s", Passphrase: "p"})
	_, err := c.PlaceOrder(context.Background(), OrderRequest{
		Instrument: "BTC-USDT-SWAP", Side: SideBuy, Size: 1, MarginMode: "cross",
	})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want APIError, got %v", err)
	}
	if apiErr.Code != "1" {
		t.Errorf("code = %q", apiErr.Code)
	}
}

func TestPlaceOrderPerOrderSCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["ordType"] != "market" || body["tdMode"] != "cross" {
			t.Errorf("body = %v", body)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"code": "0",
			"data": []map[string]string{
				{"ordId": "", "clOrdId": body["clOrdId"], "sCode": "51010", "sMsg": "account mode mismatch"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.PlaceOrder(context.Background(), OrderRequest{
		Instrument: "BTC-USDT-SWAP", Side: SideSell, Size: 2, MarginMode: "cross", ClientID: "tfabc",
	})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want APIError, got %v", err)
	}
	if apiErr.Code != "51010" {
		t.Errorf("code = %q", apiErr.Code)
	}
}

func TestSetLeverageDemoHeader(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("x-simulated-trading")
		json.NewEncoder(w).Encode(map[string]any{"code": "0", "data": []any{}})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Demo: true})
	if err := c.SetLeverage(context.Background(), "BTC-USDT-SWAP", 3, "cross"); err != nil {
		t.Fatalf("SetLeverage: %v", err)
	}
	if gotHeader != "1" {
		t.Errorf("x-simulated-trading = %q, want 1", gotHeader)
	}
}
