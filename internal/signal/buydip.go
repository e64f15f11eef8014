package signal

import "fmt"

// BuyDip is a mean-reversion generator over a rolling high/low channel:
// long when price draws down dipPct below the rolling high, short when it
// rallies rallyPct above the rolling low, holding between signals.
type BuyDip struct {
	lookback int
	dipPct   float64
	rallyPct float64

	window   []float64
	position float64
}

// NewBuyDip builds the dip/rally generator. Percentages are expressed the
// way a human writes them: 1.5 means 1.5%.
func NewBuyDip(lookback int, dipPct, rallyPct float64) (*BuyDip, error) {
	if lookback < 1 {
		return nil, fmt.Errorf("buydip: lookback %d must be >= 1", lookback)
	}
	if dipPct <= 0 || rallyPct <= 0 {
		return nil, fmt.Errorf("buydip: dip/rally percentages must be > 0 (dip=%v, rally=%v)", dipPct, rallyPct)
	}
	return &BuyDip{lookback: lookback, dipPct: dipPct, rallyPct: rallyPct}, nil
}

func (b *BuyDip) String() string {
	return fmt.Sprintf("BuyDip(lookback=%d, dip=%v%%, rally=%v%%)", b.lookback, b.dipPct, b.rallyPct)
}

func (b *BuyDip) Step(close, _ float64) float64 {
	b.window = append(b.window, close)
	if len(b.window) > b.lookback {
		b.window = b.window[1:]
	}

	high, low := rollingExtremes(b.window)
	drawdownPct := (close - high) / high * 100
	drawupPct := (close - low) / low * 100

	switch {
	case drawdownPct <= -b.dipPct:
		b.position = 1
	case drawupPct >= b.rallyPct:
		b.position = -1
	}
	return b.position
}

func (b *BuyDip) Generate(f Frame) (Frame, error) {
	fresh, err := NewBuyDip(b.lookback, b.dipPct, b.rallyPct)
	if err != nil {
		return Frame{}, err
	}
	out := make([]float64, len(f.Closes))
	for i, close := range f.Closes {
		out[i] = fresh.Step(close, 0)
	}
	f.Positions = out
	return f, nil
}

func rollingExtremes(window []float64) (high, low float64) {
	high, low = window[0], window[0]
	for _, v := range window[1:] {
		if v > high {
			high = v
		}
		if v < low {
			low = v
		}
	}
	return high, low
}
