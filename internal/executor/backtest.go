package executor

import (
	"context"
	"fmt"
	"log"

	"tradeflow/internal/candle"
	"tradeflow/internal/strategy"
	"tradeflow/internal/telemetry"
)

// FillMode selects which candle price fills a simulated order.
type FillMode string

const (
	FillClose FillMode = "close"
	FillOpen  FillMode = "open"
)

// BacktestConfig configures a simulated run.
type BacktestConfig struct {
	Capital    float64
	Instrument string
	FillMode   FillMode
	SessionID  string
	Telemetry  *telemetry.Writer
}

// Backtest replays confirmed candles against the strategy with simulated
// fills. Equity for a bar is computed from the position that was confirmed
// on the previous bar, so the bar that triggers a transition is never
// credited with that transition's return.
type Backtest struct {
	strat *strategy.Strategy
	cfg   BacktestConfig

	tracker   *Tracker
	equity    float64
	prevClose float64
	hasPrev   bool
	closed    bool
}

// NewBacktest builds a simulated executor.
func NewBacktest(strat *strategy.Strategy, cfg BacktestConfig) (*Backtest, error) {
	if cfg.Capital <= 0 {
		return nil, fmt.Errorf("backtest: capital %v must be > 0", cfg.Capital)
	}
	switch cfg.FillMode {
	case "":
		cfg.FillMode = FillClose
	case FillClose, FillOpen:
	default:
		return nil, fmt.Errorf("backtest: unknown fill mode %q", cfg.FillMode)
	}
	return &Backtest{
		strat:   strat,
		cfg:     cfg,
		tracker: NewTracker(),
		equity:  cfg.Capital,
	}, nil
}

// Ack processes one bar: decision, simulated fill, confirmation, stats.
func (b *Backtest) Ack(_ context.Context, c candle.Candle) error {
	if !c.Confirmed {
		return nil
	}

	action := b.strat.Ack(c.Close)

	fill := c.Close
	if b.cfg.FillMode == FillOpen {
		fill = c.Open
	}
	if action.Type != strategy.ActionNone && action.Position.Price == 0 {
		action.Position.Price = fill
	}

	// Equity moves with the position held through the bar, which is the
	// one confirmed on the previous bar.
	held := b.strat.Current().Value()
	if b.hasPrev && b.prevClose != 0 {
		b.equity *= 1 + held*(c.Close/b.prevClose-1)
	}
	b.prevClose = c.Close
	b.hasPrev = true

	b.strat.Confirm(action)

	dd, sharpe := b.tracker.Observe(c.UnixNanos(), b.equity)

	if w := b.cfg.Telemetry; w != nil {
		w.Write(telemetry.BacktestPoint(b.cfg.SessionID, c.UnixNanos(),
			c.Close, b.strat.Current().Value(), b.equity, dd, sharpe))
		if action.Type != strategy.ActionNone {
			w.Write(telemetry.TradePoint(b.cfg.SessionID, b.cfg.Instrument,
				action.Type.String(), c.UnixNanos(), action.Position.Price,
				action.Position.Size, b.equity))
		}
	}
	return nil
}

// Summary reads the accumulated run state.
func (b *Backtest) Summary() Summary {
	return Summary{
		Bars:        b.tracker.Bars(),
		Capital:     b.cfg.Capital,
		Equity:      b.equity,
		ProfitPct:   (b.equity/b.cfg.Capital - 1) * 100,
		MaxDrawdown: b.tracker.MaxDrawdown() * 100,
		Sharpe:      b.tracker.SharpeRatio(),
	}
}

// Close flushes telemetry; safe to call more than once.
func (b *Backtest) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if w := b.cfg.Telemetry; w != nil {
		w.Flush()
		if err := w.Close(); err != nil {
			log.Printf("backtest: telemetry close: %v", err)
			return err
		}
	}
	return nil
}
