package executor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"tradeflow/internal/candle"
	"tradeflow/internal/strategy"
	"tradeflow/internal/telemetry"
	"tradeflow/pkg/okx"
)

// Gateway is the slice of the exchange client the live executor needs.
type Gateway interface {
	SetLeverage(ctx context.Context, instrument string, leverage int, marginMode string) error
	PlaceOrder(ctx context.Context, req okx.OrderRequest) (*okx.Order, error)
	ClosePosition(ctx context.Context, instrument, marginMode string) error
}

// LiveConfig configures real order execution.
type LiveConfig struct {
	Capital      float64
	Instrument   string
	Leverage     int
	MarginMode   string  // cross or isolated
	ContractSize float64 // base units per contract

	MaxRetries     int
	RetryDelay     time.Duration
	MaxBackoff     time.Duration
	AttemptTimeout time.Duration

	SessionID string
	Telemetry *telemetry.Writer
}

// Live executes strategy transitions against a real exchange gateway.
// Failed side effects never advance position state: the bar is confirmed
// as no action and the engine keeps running on the last real exposure.
type Live struct {
	strat *strategy.Strategy
	gw    Gateway
	cfg   LiveConfig

	tracker     *Tracker
	equity      float64
	prevClose   float64
	hasPrev     bool
	leverageSet bool
	contracts   int // signed, positive long
	closed      bool
}

// NewLive builds a live executor.
func NewLive(strat *strategy.Strategy, gw Gateway, cfg LiveConfig) (*Live, error) {
	if cfg.Capital <= 0 {
		return nil, fmt.Errorf("live: capital %v must be > 0", cfg.Capital)
	}
	if cfg.Instrument == "" {
		return nil, fmt.Errorf("live: instrument is required")
	}
	if cfg.Leverage <= 0 {
		cfg.Leverage = 1
	}
	if cfg.MarginMode == "" {
		cfg.MarginMode = "cross"
	}
	if cfg.ContractSize <= 0 {
		cfg.ContractSize = 0.01
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	return &Live{
		strat:   strat,
		gw:      gw,
		cfg:     cfg,
		tracker: NewTracker(),
		equity:  cfg.Capital,
	}, nil
}

// Preload replays historical closes through the signal chain without side
// effects or stats, so live decisions start with warm indicators.
// Position state stays flat: the first live transition opens for real.
func (l *Live) Preload(closes []float64) {
	for _, close := range closes {
		l.strat.Ack(close)
		l.strat.Confirm(strategy.Action{})
		l.prevClose = close
		l.hasPrev = true
	}
	log.Printf("live: preloaded %d bars", len(closes))
}

// Ack processes one confirmed bar. A returned ExecutionError means the
// transition was abandoned and position state still reflects the last
// successful execution; processing continues on later bars.
func (l *Live) Ack(ctx context.Context, c candle.Candle) error {
	if !c.Confirmed {
		return nil
	}

	action := l.strat.Ack(c.Close)

	held := l.strat.Current().Value()
	if l.hasPrev && l.prevClose != 0 {
		l.equity *= 1 + held*(c.Close/l.prevClose-1)
	}
	l.prevClose = c.Close
	l.hasPrev = true

	confirm, execErr := l.execute(ctx, action, c.Close)
	l.strat.Confirm(confirm)

	dd, sharpe := l.tracker.Observe(c.UnixNanos(), l.equity)

	if w := l.cfg.Telemetry; w != nil {
		w.Write(telemetry.BacktestPoint(l.cfg.SessionID, c.UnixNanos(),
			c.Close, l.strat.Current().Value(), l.equity, dd, sharpe))
		if confirm.Type != strategy.ActionNone {
			w.Write(telemetry.TradePoint(l.cfg.SessionID, l.cfg.Instrument,
				confirm.Type.String(), c.UnixNanos(), confirm.Position.Price,
				confirm.Position.Size, l.equity))
		}
	}
	return execErr
}

// execute performs the venue side effect for an action and returns the
// action that really happened, which is what gets confirmed. A failed
// side effect confirms no action so engine state keeps matching the
// venue.
func (l *Live) execute(ctx context.Context, action strategy.Action, close float64) (strategy.Action, error) {
	if action.Type == strategy.ActionNone {
		return action, nil
	}

	if !l.leverageSet {
		err := l.withRetry(ctx, "set leverage", func(ctx context.Context) error {
			return l.gw.SetLeverage(ctx, l.cfg.Instrument, l.cfg.Leverage, l.cfg.MarginMode)
		})
		if err != nil {
			return strategy.Action{}, &ExecutionError{Op: "set leverage", Err: err}
		}
		l.leverageSet = true
	}

	switch action.Type {
	case strategy.ActionOpen:
		prev := l.strat.Current()
		if !prev.IsFlat() {
			// Direction flip: the old exposure is closed first, with its
			// own retry budget. If that fails the open is abandoned and
			// the prior exposure stays in force.
			err := l.withRetry(ctx, "close before flip", func(ctx context.Context) error {
				return l.gw.ClosePosition(ctx, l.cfg.Instrument, l.cfg.MarginMode)
			})
			if err != nil {
				return strategy.Action{}, &ExecutionError{Op: "close before flip",
					Err: fmt.Errorf("prior %s exposure still open, reconcile manually: %w", prev.Side, err)}
			}
			l.contracts = 0
		}

		target := l.sizeContracts(action.Position, close)
		if err := l.placeDelta(ctx, "open", target-l.contracts); err != nil {
			if !prev.IsFlat() {
				// The close half of the flip already went through, so the
				// venue is flat and the confirmed state must say so.
				closed := strategy.Action{Type: strategy.ActionClose, Position: prev}
				closed.Position.Price = close
				return closed, err
			}
			return strategy.Action{}, err
		}
		l.contracts = target
		action.Position.Price = close

	case strategy.ActionClose:
		err := l.withRetry(ctx, "close", func(ctx context.Context) error {
			return l.gw.ClosePosition(ctx, l.cfg.Instrument, l.cfg.MarginMode)
		})
		if err != nil {
			return strategy.Action{}, &ExecutionError{Op: "close", Err: err}
		}
		l.contracts = 0
		action.Position.Price = close

	case strategy.ActionAdjust:
		target := l.sizeContracts(action.Position, close)
		if err := l.placeDelta(ctx, "adjust", target-l.contracts); err != nil {
			return strategy.Action{}, err
		}
		l.contracts = target
		action.Position.Price = close
	}
	return action, nil
}

// placeDelta submits a market order for a signed contract delta.
func (l *Live) placeDelta(ctx context.Context, op string, delta int) error {
	if delta == 0 {
		return nil
	}
	side := okx.SideBuy
	if delta < 0 {
		side = okx.SideSell
		delta = -delta
	}
	req := okx.OrderRequest{
		Instrument: l.cfg.Instrument,
		Side:       side,
		Size:       delta,
		MarginMode: l.cfg.MarginMode,
		ClientID:   clientOrderID(),
	}
	err := l.withRetry(ctx, op, func(ctx context.Context) error {
		_, err := l.gw.PlaceOrder(ctx, req)
		return err
	})
	if err != nil {
		return &ExecutionError{Op: op, Err: err}
	}
	return nil
}

// sizeContracts converts a position's capital fraction into signed
// contracts at the given mark price, at least one contract in magnitude.
func (l *Live) sizeContracts(p strategy.Position, price float64) int {
	if p.IsFlat() || price <= 0 {
		return 0
	}
	n := int(l.equity * p.Size / price / l.cfg.ContractSize)
	if n < 1 {
		n = 1
	}
	if p.Side == strategy.Short {
		return -n
	}
	return n
}

// withRetry runs fn up to the configured attempt budget with capped
// exponential backoff and a per-attempt timeout.
func (l *Live) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	delay := l.cfg.RetryDelay
	for attempt := 1; attempt <= l.cfg.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, l.cfg.AttemptTimeout)
		err = fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		log.Printf("live: %s attempt %d/%d failed: %v", op, attempt, l.cfg.MaxRetries, err)
		if attempt == l.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > l.cfg.MaxBackoff {
			delay = l.cfg.MaxBackoff
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, l.cfg.MaxRetries, err)
}

// Summary reads the accumulated run state.
func (l *Live) Summary() Summary {
	return Summary{
		Bars:        l.tracker.Bars(),
		Capital:     l.cfg.Capital,
		Equity:      l.equity,
		ProfitPct:   (l.equity/l.cfg.Capital - 1) * 100,
		MaxDrawdown: l.tracker.MaxDrawdown() * 100,
		Sharpe:      l.tracker.SharpeRatio(),
	}
}

// Close flushes telemetry; safe to call more than once.
func (l *Live) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	if w := l.cfg.Telemetry; w != nil {
		w.Flush()
		return w.Close()
	}
	return nil
}

func clientOrderID() string {
	// OKX client order IDs are alphanumeric, max 32 chars.
	id := uuid.New().String()
	return "tf" + id[:8] + id[9:13] + id[14:18] + id[19:23] + id[24:30]
}
