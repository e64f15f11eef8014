package strategy

import (
	"testing"

	"tradeflow/internal/signal"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		name   string
		prev   Position
		target Position
		want   ActionType
	}{
		{"flat to flat", Position{}, Position{}, ActionNone},
		{"flat to long", Position{}, NewPosition(Long, 1, 0), ActionOpen},
		{"flat to short", Position{}, NewPosition(Short, 0.5, 0), ActionOpen},
		{"long to flat", NewPosition(Long, 1, 100), Position{}, ActionClose},
		{"short to flat", NewPosition(Short, 1, 100), Position{}, ActionClose},
		{"long to short flips", NewPosition(Long, 1, 100), NewPosition(Short, 1, 0), ActionOpen},
		{"short to long flips", NewPosition(Short, 1, 100), NewPosition(Long, 2, 0), ActionOpen},
		{"same side same size", NewPosition(Long, 1, 100), NewPosition(Long, 1, 0), ActionNone},
		{"same side resized", NewPosition(Long, 1, 100), NewPosition(Long, 0.5, 0), ActionAdjust},
		{"size noise below tolerance", NewPosition(Long, 1, 100), NewPosition(Long, 1+1e-12, 0), ActionNone},
		{"size change above tolerance", NewPosition(Long, 1, 100), NewPosition(Long, 1+1e-6, 0), ActionAdjust},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Resolve(tc.prev, tc.target)
			if a.Type != tc.want {
				t.Fatalf("Resolve(%s, %s) = %s, want %s", tc.prev, tc.target, a.Type, tc.want)
			}
		})
	}
}

func TestResolveApplyRoundTrip(t *testing.T) {
	positions := []Position{
		{},
		NewPosition(Long, 1, 0),
		NewPosition(Long, 0.5, 0),
		NewPosition(Short, 1, 0),
		NewPosition(Short, 2, 0),
	}

	for _, prev := range positions {
		for _, target := range positions {
			got := Apply(prev, Resolve(prev, target))
			if got.Side != target.Side {
				t.Errorf("Apply(%s, Resolve(%s, %s)): side %s, want %s",
					prev, prev, target, got.Side, target.Side)
			}
			if diff := got.Size - target.Size; diff > sizeEpsilon || diff < -sizeEpsilon {
				t.Errorf("Apply(%s, Resolve(%s, %s)): size %v, want %v",
					prev, prev, target, got.Size, target.Size)
			}
		}
	}
}

func TestFromValue(t *testing.T) {
	cases := []struct {
		value float64
		side  Side
		size  float64
	}{
		{1, Long, 1},
		{-0.5, Short, 0.5},
		{0, Flat, 0},
		{2.5, Long, 2.5},
	}
	for _, tc := range cases {
		p := FromValue(tc.value)
		if p.Side != tc.side || p.Size != tc.size {
			t.Errorf("FromValue(%v) = %s, want side %s size %v", tc.value, p, tc.side, tc.size)
		}
		if p.Value() != tc.value {
			t.Errorf("FromValue(%v).Value() = %v", tc.value, p.Value())
		}
	}
}

func TestStrategyConfirmCommitsPosition(t *testing.T) {
	base, err := signal.NewBuyDip(3, 2, 2)
	if err != nil {
		t.Fatalf("NewBuyDip: %v", err)
	}
	chain, err := signal.NewChain(base)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	s := New(chain)

	if a := s.Ack(100); a.Type != ActionNone {
		t.Fatalf("first bar: got %s, want NONE", a)
	}
	s.Confirm(Action{})

	// 3% dip below the rolling high goes long.
	a := s.Ack(97)
	if a.Type != ActionOpen || a.Position.Side != Long {
		t.Fatalf("dip bar: got %s, want OPEN LONG", a)
	}

	// Failed execution confirms nothing: position must stay flat.
	s.Confirm(Action{})
	if !s.Current().IsFlat() {
		t.Fatalf("after failed open: position %s, want FLAT", s.Current())
	}

	// The signal still says long on the next bar, so the open is re-resolved.
	a = s.Ack(97)
	if a.Type != ActionOpen || a.Position.Side != Long {
		t.Fatalf("retry bar: got %s, want OPEN LONG", a)
	}
	a.Position.Price = 97
	s.Confirm(a)
	if cur := s.Current(); cur.Side != Long || cur.Price != 97 {
		t.Fatalf("after confirm: %s, want LONG @ 97", cur)
	}

	// Holding the same target resolves to no action.
	if a := s.Ack(97); a.Type != ActionNone {
		t.Fatalf("hold bar: got %s, want NONE", a)
	}
}
