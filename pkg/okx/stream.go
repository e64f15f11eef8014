package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tradeflow/internal/candle"
)

const (
	publicWSURL = "wss://ws.okx.com:8443/ws/v5/business"
	demoWSURL   = "wss://wspap.okx.com:8443/ws/v5/business"

	reconnectDelay = 5 * time.Second
)

// StreamConfig selects the candle channel to subscribe to.
type StreamConfig struct {
	Instrument string
	Bar        string // e.g. 1m, 5m, 1H
	Demo       bool
	URL        string // overrides the default endpoint, used in tests
}

// SubscribeCandles connects to the OKX public websocket and pushes
// confirmed candles into the returned channel. The connection is redialed
// after errors until the context is cancelled or stop is called. Duplicate
// bars delivered across reconnects are filtered by timestamp.
func SubscribeCandles(ctx context.Context, cfg StreamConfig) (<-chan candle.Candle, func(), error) {
	wsURL := cfg.URL
	if wsURL == "" {
		wsURL = publicWSURL
		if cfg.Demo {
			wsURL = demoWSURL
		}
	}
	channel := "candle" + cfg.Bar

	out := make(chan candle.Candle, 100)
	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() { close(done) })
	}

	go func() {
		defer close(out)
		var lastTS int64
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			default:
			}

			if err := streamOnce(ctx, wsURL, channel, cfg.Instrument, done, out, &lastTS); err != nil {
				log.Printf("okx ws: %v, reconnecting in %s", err, reconnectDelay)
			}

			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-time.After(reconnectDelay):
			}
		}
	}()

	return out, stop, nil
}

// streamOnce runs a single connection lifetime: dial, subscribe, read
// until error or shutdown.
func streamOnce(ctx context.Context, wsURL, channel, instrument string, done <-chan struct{}, out chan<- candle.Candle, lastTS *int64) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	sub := map[string]any{
		"op": "subscribe",
		"args": []map[string]string{
			{"channel": channel, "instId": instrument},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	// Unblock the read loop when the caller shuts down.
	readerDone := make(chan struct{})
	defer close(readerDone)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		case <-readerDone:
		}
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-done:
				return nil
			default:
			}
			if strings.Contains(err.Error(), "use of closed network connection") {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		candles, err := parseStreamMessage(msg)
		if err != nil {
			log.Printf("okx ws: parse: %v", err)
			continue
		}
		for _, cd := range candles {
			if !cd.Confirmed || cd.UnixNanos() <= *lastTS {
				continue
			}
			*lastTS = cd.UnixNanos()
			select {
			case out <- cd:
			case <-done:
				return nil
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// parseStreamMessage decodes one push message; events and non-candle
// payloads yield no candles.
func parseStreamMessage(msg []byte) ([]candle.Candle, error) {
	var push struct {
		Event string     `json:"event"`
		Msg   string     `json:"msg"`
		Data  [][]string `json:"data"`
	}
	if err := json.Unmarshal(msg, &push); err != nil {
		return nil, err
	}
	if push.Event == "error" {
		return nil, fmt.Errorf("subscription error: %s", push.Msg)
	}
	if len(push.Data) == 0 {
		return nil, nil
	}

	out := make([]candle.Candle, 0, len(push.Data))
	for _, row := range push.Data {
		cd, err := parseCandleRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, cd)
	}
	return out, nil
}
