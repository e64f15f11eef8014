package executor

import (
	"context"
	"math"
	"testing"
	"time"

	"tradeflow/internal/candle"
	"tradeflow/internal/signal"
	"tradeflow/internal/strategy"
)

// scripted emits a fixed target sequence, holding the last value.
type scripted struct {
	targets []float64
	i       int
}

func (s *scripted) Step(_, _ float64) float64 {
	v := s.targets[s.i]
	if s.i < len(s.targets)-1 {
		s.i++
	}
	return v
}

func (s *scripted) Generate(f signal.Frame) (signal.Frame, error) {
	out := make([]float64, len(f.Closes))
	for i, c := range f.Closes {
		out[i] = s.Step(c, 0)
	}
	f.Positions = out
	return f, nil
}

func newScriptedStrategy(t *testing.T, targets ...float64) *strategy.Strategy {
	t.Helper()
	chain, err := signal.NewChain(&scripted{targets: targets})
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	return strategy.New(chain)
}

func mkCandle(i int, open, close float64) candle.Candle {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour)
	return candle.Candle{
		Timestamp:   ts,
		TimestampNS: ts.UnixNano(),
		Open:        open,
		High:        math.Max(open, close),
		Low:         math.Min(open, close),
		Close:       close,
		Volume:      1,
		Confirmed:   true,
	}
}

func TestBacktestNoLookahead(t *testing.T) {
	// The bar that opens the position earns nothing; equity moves with
	// the position held through each subsequent bar.
	bt, err := NewBacktest(newScriptedStrategy(t, 1, 1, 1), BacktestConfig{Capital: 1000})
	if err != nil {
		t.Fatalf("NewBacktest: %v", err)
	}

	closes := []float64{100, 105, 95}
	for i, c := range closes {
		if err := bt.Ack(context.Background(), mkCandle(i, c, c)); err != nil {
			t.Fatalf("bar %d: %v", i, err)
		}
	}

	s := bt.Summary()
	if math.Abs(s.Equity-950) > 1e-9 {
		t.Errorf("equity = %v, want 950", s.Equity)
	}
	if math.Abs(s.ProfitPct-(-5)) > 1e-9 {
		t.Errorf("profit = %v%%, want -5%%", s.ProfitPct)
	}
	wantDD := -100.0 / 1050 * 100
	if math.Abs(s.MaxDrawdown-wantDD) > 1e-9 {
		t.Errorf("max drawdown = %v%%, want %v%%", s.MaxDrawdown, wantDD)
	}
	if s.Bars != 3 {
		t.Errorf("bars = %d, want 3", s.Bars)
	}
}

func TestBacktestShortSide(t *testing.T) {
	bt, err := NewBacktest(newScriptedStrategy(t, -1, -1, -1), BacktestConfig{Capital: 1000})
	if err != nil {
		t.Fatalf("NewBacktest: %v", err)
	}

	closes := []float64{100, 90}
	for i, c := range closes {
		if err := bt.Ack(context.Background(), mkCandle(i, c, c)); err != nil {
			t.Fatalf("bar %d: %v", i, err)
		}
	}

	// Short through a 10% drop gains 10%.
	if s := bt.Summary(); math.Abs(s.Equity-1100) > 1e-9 {
		t.Errorf("equity = %v, want 1100", s.Equity)
	}
}

func TestBacktestFillModes(t *testing.T) {
	cases := []struct {
		mode FillMode
		want float64
	}{
		{FillClose, 102},
		{FillOpen, 100},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			st := newScriptedStrategy(t, 1)
			bt, err := NewBacktest(st, BacktestConfig{Capital: 1000, FillMode: tc.mode})
			if err != nil {
				t.Fatalf("NewBacktest: %v", err)
			}
			if err := bt.Ack(context.Background(), mkCandle(0, 100, 102)); err != nil {
				t.Fatalf("Ack: %v", err)
			}
			if got := st.Current().Price; got != tc.want {
				t.Errorf("fill price = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBacktestSkipsUnconfirmed(t *testing.T) {
	bt, err := NewBacktest(newScriptedStrategy(t, 1), BacktestConfig{Capital: 1000})
	if err != nil {
		t.Fatalf("NewBacktest: %v", err)
	}

	c := mkCandle(0, 100, 100)
	c.Confirmed = false
	if err := bt.Ack(context.Background(), c); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	if s := bt.Summary(); s.Bars != 0 {
		t.Errorf("unconfirmed bar was counted: bars = %d", s.Bars)
	}
}

func TestBacktestCloseIdempotent(t *testing.T) {
	bt, err := NewBacktest(newScriptedStrategy(t, 0), BacktestConfig{Capital: 1000})
	if err != nil {
		t.Fatalf("NewBacktest: %v", err)
	}
	if err := bt.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := bt.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
