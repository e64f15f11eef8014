package market

import (
	"context"
	"io"

	"tradeflow/internal/candle"
)

// Source yields candles one at a time. Next returns io.EOF when the
// stream is exhausted.
type Source interface {
	Next(ctx context.Context) (candle.Candle, error)
}

// Replay serves an in-memory candle slice, oldest first.
type Replay struct {
	candles []candle.Candle
	i       int
}

// NewReplay wraps a pre-loaded history.
func NewReplay(candles []candle.Candle) *Replay {
	return &Replay{candles: candles}
}

func (r *Replay) Next(ctx context.Context) (candle.Candle, error) {
	if err := ctx.Err(); err != nil {
		return candle.Candle{}, err
	}
	if r.i >= len(r.candles) {
		return candle.Candle{}, io.EOF
	}
	c := r.candles[r.i]
	r.i++
	return c, nil
}
