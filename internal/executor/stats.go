package executor

import (
	"math"
	"time"
)

const nanosPerDay = float64(24 * time.Hour)

// Sample is one point of a reporting series.
type Sample struct {
	TimestampNS int64
	Value       float64
}

// Tracker accumulates run statistics incrementally: Welford mean/variance
// over bar-to-bar equity returns, running peak and max drawdown, and
// append-only reporting series. Summary reads never recompute from raw
// history.
type Tracker struct {
	count int
	mean  float64
	m2    float64

	prevEquity float64
	peak       float64
	maxDD      float64 // fraction, <= 0

	firstNS int64
	lastNS  int64

	Equity   []Sample
	Drawdown []Sample
	Sharpe   []Sample
}

// NewTracker starts tracking from the initial equity.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Observe records one bar's realized equity and returns the current
// drawdown fraction and Sharpe ratio.
func (t *Tracker) Observe(tsNS int64, equity float64) (dd, sharpe float64) {
	if t.count == 0 {
		t.firstNS = tsNS
		t.peak = equity
	} else if t.prevEquity != 0 {
		// Welford update on the bar return.
		r := equity/t.prevEquity - 1
		n := float64(t.count) // returns observed so far + 1 after this bar
		delta := r - t.mean
		t.mean += delta / n
		t.m2 += delta * (r - t.mean)
	}
	t.count++
	t.prevEquity = equity
	t.lastNS = tsNS

	if equity > t.peak {
		t.peak = equity
	}
	if t.peak > 0 {
		dd = (equity - t.peak) / t.peak
	}
	if dd < t.maxDD {
		t.maxDD = dd
	}
	sharpe = t.sharpe()

	t.Equity = append(t.Equity, Sample{tsNS, equity})
	t.Drawdown = append(t.Drawdown, Sample{tsNS, dd})
	t.Sharpe = append(t.Sharpe, Sample{tsNS, sharpe})
	return dd, sharpe
}

// sharpe annualizes the per-bar return distribution using the bar rate
// observed so far rather than a configured bar size.
func (t *Tracker) sharpe() float64 {
	returns := t.count - 1
	if returns < 2 {
		return 0
	}
	variance := t.m2 / float64(returns-1)
	if variance <= 0 {
		return 0
	}
	elapsedDays := float64(t.lastNS-t.firstNS) / nanosPerDay
	if elapsedDays <= 0 {
		return 0
	}
	periodsPerDay := float64(returns) / elapsedDays
	return t.mean / math.Sqrt(variance) * math.Sqrt(365*periodsPerDay)
}

// Bars is the number of observed equity points.
func (t *Tracker) Bars() int {
	return t.count
}

// MaxDrawdown is the deepest drawdown fraction seen, <= 0.
func (t *Tracker) MaxDrawdown() float64 {
	return t.maxDD
}

// LastEquity is the most recent observed equity, 0 before any bar.
func (t *Tracker) LastEquity() float64 {
	return t.prevEquity
}

// SharpeRatio is the current annualized Sharpe.
func (t *Tracker) SharpeRatio() float64 {
	return t.sharpe()
}
