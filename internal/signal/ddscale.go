package signal

import "fmt"

// DDScale sizes the position in proportion to how deep the current dip (or
// rally, for shorts) is within a rolling high/low channel. The size ramps
// linearly from 0 at entryPct to maxScale at fullScalePct, so deeper
// discounts buy bigger.
type DDScale struct {
	lookback     int
	dipEntryPct  float64
	rallyEntry   float64
	fullScalePct float64
	maxScale     float64

	window   []float64
	position float64
}

// NewDDScale builds the drawdown-proportional generator.
func NewDDScale(lookback int, dipEntryPct, rallyEntryPct, fullScalePct, maxScale float64) (*DDScale, error) {
	if lookback < 1 {
		return nil, fmt.Errorf("ddscale: lookback %d must be >= 1", lookback)
	}
	if fullScalePct <= dipEntryPct {
		return nil, fmt.Errorf("ddscale: full-scale pct %v must exceed entry pct %v", fullScalePct, dipEntryPct)
	}
	if maxScale <= 0 {
		return nil, fmt.Errorf("ddscale: max scale %v must be > 0", maxScale)
	}
	return &DDScale{
		lookback:     lookback,
		dipEntryPct:  dipEntryPct,
		rallyEntry:   rallyEntryPct,
		fullScalePct: fullScalePct,
		maxScale:     maxScale,
	}, nil
}

func (d *DDScale) String() string {
	return fmt.Sprintf("DDScale(lookback=%d, dip=%v%%, rally=%v%%, full=%v%%, max=%vx)",
		d.lookback, d.dipEntryPct, d.rallyEntry, d.fullScalePct, d.maxScale)
}

func (d *DDScale) Step(close, _ float64) float64 {
	d.window = append(d.window, close)
	if len(d.window) > d.lookback {
		d.window = d.window[1:]
	}

	high, low := rollingExtremes(d.window)
	depth := (high - close) / high * 100  // positive when below the rolling high
	height := (close - low) / low * 100   // positive when above the rolling low
	scaleRange := d.fullScalePct - d.dipEntryPct

	var longScale, shortScale float64
	if depth >= d.dipEntryPct {
		t := (depth - d.dipEntryPct) / scaleRange
		if t > 1 {
			t = 1
		}
		longScale = t * d.maxScale
	}
	if height >= d.rallyEntry {
		t := (height - d.rallyEntry) / scaleRange
		if t > 1 {
			t = 1
		}
		shortScale = t * d.maxScale
	}

	switch {
	case longScale > 0 && shortScale > 0:
		// Conflicting signals: take the stronger one.
		if longScale >= shortScale {
			d.position = longScale
		} else {
			d.position = -shortScale
		}
	case longScale > 0:
		d.position = longScale
	case shortScale > 0:
		d.position = -shortScale
	}
	return d.position
}

func (d *DDScale) Generate(f Frame) (Frame, error) {
	fresh, err := NewDDScale(d.lookback, d.dipEntryPct, d.rallyEntry, d.fullScalePct, d.maxScale)
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
