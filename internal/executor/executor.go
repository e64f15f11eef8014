package executor

import (
	"context"
	"fmt"

	"tradeflow/internal/candle"
)

// Executor drives a strategy over a candle stream. Ack feeds one confirmed
// bar end to end: strategy decision, side effect, confirmation, stats.
type Executor interface {
	Ack(ctx context.Context, c candle.Candle) error
	Summary() Summary
	Close() error
}

// Summary is a pure read of accumulated run state.
type Summary struct {
	Bars        int
	Capital     float64
	Equity      float64
	ProfitPct   float64
	MaxDrawdown float64 // percent, <= 0
	Sharpe      float64
}

func (s Summary) String() string {
	return fmt.Sprintf("bars=%d equity=%.2f profit=%.2f%% maxDD=%.2f%% sharpe=%.2f",
		s.Bars, s.Equity, s.ProfitPct, s.MaxDrawdown, s.Sharpe)
}

// ExecutionError marks a failed exchange side effect. The engine surfaces
// it and keeps processing subsequent bars on the last confirmed position.
type ExecutionError struct {
	Op  string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution %s: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
