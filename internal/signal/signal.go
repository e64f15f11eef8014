package signal

import (
	"errors"
	"log"
	"math"
)

// Frame carries one pipeline stage's per-bar output. Positions holds the
// signed target for every bar: sign is direction, magnitude is the fraction
// of capital (may exceed 1 to express leverage intent).
type Frame struct {
	Closes    []float64
	Positions []float64
}

// Signal is a policy that maps bar history to a raw target position.
// Base generators ignore the upstream positions and produce their own;
// overlays may only scale, zero, or delay what the previous stage emitted.
type Signal interface {
	// Generate computes targets for a whole history in one pass. It must be
	// deterministic given the same input prefix and must not disturb the
	// incremental state used by Step.
	Generate(f Frame) (Frame, error)

	// Step feeds one close incrementally and returns this bar's target.
	// upstream is the previous stage's output for the bar; base generators
	// receive 0 and ignore it.
	Step(close, upstream float64) float64
}

// Committer is implemented by overlays that track realized exposure. The
// strategy calls Commit once per bar with the confirmed position value, after
// the executor has reported the real outcome.
type Committer interface {
	Commit(value float64)
}

// Chain is an ordered overlay chain. Signals are listed as
// [overlay_k, ..., overlay_1, base]: the last entry generates the base
// targets and every earlier entry is applied on top, in listed order.
type Chain struct {
	signals []Signal
}

// NewChain builds a chain; the last signal is the base generator.
func NewChain(signals ...Signal) (*Chain, error) {
	if len(signals) == 0 {
		return nil, errors.New("signal: chain needs at least a base generator")
	}
	return &Chain{signals: signals}, nil
}

// Step evaluates the chain for one new close and returns the final target.
func (c *Chain) Step(close float64) float64 {
	n := len(c.signals)
	v := c.signals[n-1].Step(close, 0)
	for i := 0; i < n-1; i++ {
		v = c.signals[i].Step(close, v)
	}
	return sanitize(v)
}

// Generate evaluates the chain over a full close history.
func (c *Chain) Generate(closes []float64) ([]float64, error) {
	n := len(c.signals)
	f := Frame{Closes: closes, Positions: make([]float64, len(closes))}

	f, err := c.signals[n-1].Generate(f)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n-1; i++ {
		f, err = c.signals[i].Generate(f)
		if err != nil {
			return nil, err
		}
	}

	for i, v := range f.Positions {
		f.Positions[i] = sanitize(v)
	}
	return f.Positions, nil
}

// Commit propagates the confirmed position value to every stateful overlay.
func (c *Chain) Commit(value float64) {
	for _, s := range c.signals {
		if cm, ok := s.(Committer); ok {
			cm.Commit(value)
		}
	}
}

// sanitize coerces non-finite targets to flat so bad math in one stage
// cannot corrupt position state downstream.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		log.Printf("signal: non-finite target %v coerced to flat", v)
		return 0
	}
	return v
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
