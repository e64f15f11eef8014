package signal

import "fmt"

// StopLoss zeroes the upstream position once the open trade has lost more
// than threshold percent from its entry price. While tripped it keeps
// emitting 0 until the upstream signal flips direction, at which point it
// re-arms and passes the new position through.
type StopLoss struct {
	threshold float64 // loss percent that trips the stop

	entry      float64
	hasEntry   bool
	current    float64 // upstream value currently being tracked
	stopped    bool
	stoppedDir float64
}

// NewStopLoss builds the overlay. threshold is a positive percentage,
// e.g. 5 trips after a 5% adverse move.
func NewStopLoss(threshold float64) (*StopLoss, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("stoploss: threshold %v must be > 0", threshold)
	}
	return &StopLoss{threshold: threshold}, nil
}

func (s *StopLoss) String() string {
	return fmt.Sprintf("StopLoss(threshold=%v%%)", s.threshold)
}

func (s *StopLoss) Step(close, upstream float64) float64 {
	if s.stopped {
		if sign(upstream) == s.stoppedDir {
			return 0
		}
		// Direction changed (including to flat): re-arm on the new trade.
		s.stopped = false
		s.current = upstream
		s.entry = close
		s.hasEntry = upstream != 0
		return upstream
	}

	if upstream != s.current {
		s.current = upstream
		s.entry = close
		s.hasEntry = upstream != 0
		return upstream
	}

	if !s.hasEntry || upstream == 0 {
		return upstream
	}

	var lossPct float64
	if upstream > 0 {
		lossPct = (s.entry - close) / s.entry * 100
	} else {
		lossPct = (close - s.entry) / s.entry * 100
	}
	if lossPct >= s.threshold {
		s.stopped = true
		s.stoppedDir = sign(upstream)
		return 0
	}
	return upstream
}

func (s *StopLoss) Generate(f Frame) (Frame, error) {
	fresh, err := NewStopLoss(s.threshold)
	if err != nil {
		return Frame{}, err
	}
	out := make([]float64, len(f.Closes))
	for i, close := range f.Closes {
		out[i] = fresh.Step(close, f.Positions[i])
	}
	f.Positions = out
	return f, nil
}
