package strategy

import (
	"tradeflow/internal/signal"
)

// Strategy wraps a signal chain and the last confirmed position. Ack is a
// pure read of chain output against that position; nothing commits until
// the executor reports the real outcome through Confirm.
type Strategy struct {
	chain *signal.Chain
	last  Position
}

// New builds a strategy around an assembled signal chain.
func New(chain *signal.Chain) *Strategy {
	return &Strategy{chain: chain}
}

// Ack feeds one confirmed close through the chain and resolves the target
// against the last confirmed position.
func (s *Strategy) Ack(close float64) Action {
	target := FromValue(s.chain.Step(close))
	return Resolve(s.last, target)
}

// Confirm commits an executed action. Pass the zero Action when execution
// failed so position state stays on the last real exposure while the
// chain still learns what was actually held through the bar.
func (s *Strategy) Confirm(a Action) {
	s.last = Apply(s.last, a)
	s.chain.Commit(s.last.Value())
}

// Current returns the last confirmed position.
func (s *Strategy) Current() Position {
	return s.last
}
