package signal

import "fmt"

// EquityGuard tracks a simulated equity curve of the upstream signal and
// flattens the position while that curve is in a drawdown deeper than
// maxDD percent. Trading resumes once the simulated curve recovers to
// within resumeDD percent of its peak. The simulation keeps following the
// raw upstream even while paused, so recovery is judged on what the signal
// would have earned.
type EquityGuard struct {
	maxDD    float64
	resumeDD float64

	equity       float64
	peak         float64
	prevClose    float64
	prevUpstream float64
	hasPrev      bool
	paused       bool
}

// NewEquityGuard builds the overlay. Both arguments are positive percents
// and resumeDD must be shallower than maxDD.
func NewEquityGuard(maxDD, resumeDD float64) (*EquityGuard, error) {
	if maxDD <= 0 {
		return nil, fmt.Errorf("equityguard: max drawdown %v must be > 0", maxDD)
	}
	if resumeDD < 0 || resumeDD >= maxDD {
		return nil, fmt.Errorf("equityguard: resume drawdown %v must be in [0, %v)", resumeDD, maxDD)
	}
	return &EquityGuard{maxDD: maxDD, resumeDD: resumeDD, equity: 1, peak: 1}, nil
}

func (g *EquityGuard) String() string {
	return fmt.Sprintf("EquityGuard(max=%v%%, resume=%v%%)", g.maxDD, g.resumeDD)
}

func (g *EquityGuard) Step(close, upstream float64) float64 {
	if g.hasPrev && g.prevClose != 0 {
		barRet := close/g.prevClose - 1
		g.equity *= 1 + g.prevUpstream*barRet
		if g.equity > g.peak {
			g.peak = g.equity
		}
	}
	g.prevClose = close
	g.prevUpstream = upstream
	g.hasPrev = true

	var dd float64
	if g.peak > 0 {
		dd = (g.peak - g.equity) / g.peak * 100
	}
	if g.paused {
		if dd <= g.resumeDD {
			g.paused = false
		}
	} else if dd >= g.maxDD {
		g.paused = true
	}

	if g.paused {
		return 0
	}
	return upstream
}

func (g *EquityGuard) Generate(f Frame) (Frame, error) {
	fresh, err := NewEquityGuard(g.maxDD, g.resumeDD)
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
