package executor

import (
	"math"
	"testing"
	"time"
)

func TestTrackerWelfordMatchesTwoPass(t *testing.T) {
	equities := []float64{1000, 1010, 995, 1020, 1018, 1040}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tr := NewTracker()
	for i, eq := range equities {
		tr.Observe(base.Add(time.Duration(i)*time.Hour).UnixNano(), eq)
	}

	// Two-pass reference over the same bar returns.
	var returns []float64
	for i := 1; i < len(equities); i++ {
		returns = append(returns, equities[i]/equities[i-1]-1)
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))
	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	variance := ss / float64(len(returns)-1)

	elapsedDays := float64(len(returns)) * time.Hour.Seconds() / (24 * 3600)
	periodsPerDay := float64(len(returns)) / elapsedDays
	wantSharpe := mean / math.Sqrt(variance) * math.Sqrt(365*periodsPerDay)

	if got := tr.SharpeRatio(); math.Abs(got-wantSharpe) > 1e-9 {
		t.Errorf("sharpe = %v, want %v", got, wantSharpe)
	}
	if tr.Bars() != len(equities) {
		t.Errorf("bars = %d, want %d", tr.Bars(), len(equities))
	}
}

func TestTrackerSharpeGuards(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("too few samples", func(t *testing.T) {
		tr := NewTracker()
		tr.Observe(base.UnixNano(), 1000)
		if _, sharpe := tr.Observe(base.Add(time.Hour).UnixNano(), 1010); sharpe != 0 {
			t.Errorf("sharpe with one return = %v, want 0", sharpe)
		}
	})

	t.Run("zero variance", func(t *testing.T) {
		tr := NewTracker()
		for i := 0; i < 5; i++ {
			tr.Observe(base.Add(time.Duration(i)*time.Hour).UnixNano(), 1000)
		}
		if got := tr.SharpeRatio(); got != 0 {
			t.Errorf("sharpe with flat equity = %v, want 0", got)
		}
	})

	t.Run("zero elapsed time", func(t *testing.T) {
		tr := NewTracker()
		ts := base.UnixNano()
		tr.Observe(ts, 1000)
		tr.Observe(ts, 1010)
		tr.Observe(ts, 990)
		if got := tr.SharpeRatio(); got != 0 {
			t.Errorf("sharpe with zero elapsed = %v, want 0", got)
		}
	})
}

func TestTrackerDrawdown(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker()

	steps := []struct {
		equity float64
		wantDD float64
	}{
		{1000, 0},
		{1050, 0},
		{950, -100.0 / 1050},
		{1100, 0},
		{990, -110.0 / 1100},
	}
	for i, st := range steps {
		dd, _ := tr.Observe(base.Add(time.Duration(i)*time.Hour).UnixNano(), st.equity)
		if math.Abs(dd-st.wantDD) > 1e-12 {
			t.Errorf("bar %d: dd = %v, want %v", i, dd, st.wantDD)
		}
	}

	wantMax := -110.0 / 1100
	if got := tr.MaxDrawdown(); math.Abs(got-wantMax) > 1e-12 {
		t.Errorf("max drawdown = %v, want %v", got, wantMax)
	}
	if len(tr.Equity) != 5 || len(tr.Drawdown) != 5 || len(tr.Sharpe) != 5 {
		t.Errorf("history lengths %d/%d/%d, want 5 each",
			len(tr.Equity), len(tr.Drawdown), len(tr.Sharpe))
	}
}
