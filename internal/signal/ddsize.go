package signal

import (
	"fmt"
	"sort"
)

// Band maps a drawdown level to a position scale. A trade running at or
// below -Level percent from the windowed equity peak is sized at Scale
// times the upstream position.
type Band struct {
	Level float64
	Scale float64
}

// DrawdownSize scales the upstream position by the depth of the account's
// realized drawdown. Unlike EquityGuard it does not simulate an equity
// curve of its own: the realized exposure is fed back through Commit after
// each bar is confirmed, so the tracked curve matches what the account
// actually held, stops and pauses included.
type DrawdownSize struct {
	bands  []Band // sorted by Level descending, deepest first
	window int

	equity    float64
	committed float64
	prevClose float64
	hasPrev   bool
	peaks     []float64 // last window equity values, peak = max
}

// NewDrawdownSize builds the overlay. bands maps drawdown percent to
// scale; window bounds how far back the equity peak is remembered, which
// lets sizing recover after a long flat stretch.
func NewDrawdownSize(bands []Band, window int) (*DrawdownSize, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("ddsize: at least one band required")
	}
	if window < 1 {
		return nil, fmt.Errorf("ddsize: window %d must be >= 1", window)
	}
	sorted := make([]Band, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Level > sorted[j].Level })
	for _, b := range sorted {
		if b.Level < 0 {
			return nil, fmt.Errorf("ddsize: band level %v must be >= 0", b.Level)
		}
		if b.Scale < 0 {
			return nil, fmt.Errorf("ddsize: band scale %v must be >= 0", b.Scale)
		}
	}
	return &DrawdownSize{
		bands:  sorted,
		window: window,
		equity: 1,
		peaks:  []float64{1},
	}, nil
}

func (d *DrawdownSize) String() string {
	return fmt.Sprintf("DrawdownSize(bands=%d, window=%d)", len(d.bands), d.window)
}

// Commit records the exposure the account actually carried out of the
// confirmed bar. The next Step uses it to advance the tracked equity.
func (d *DrawdownSize) Commit(value float64) {
	d.committed = value
}

func (d *DrawdownSize) Step(close, upstream float64) float64 {
	if d.hasPrev && d.prevClose != 0 {
		barRet := close/d.prevClose - 1
		d.equity *= 1 + d.committed*barRet
		d.peaks = append(d.peaks, d.equity)
		if len(d.peaks) > d.window {
			d.peaks = d.peaks[1:]
		}
	}
	d.prevClose = close
	d.hasPrev = true

	peak := d.peaks[0]
	for _, v := range d.peaks[1:] {
		if v > peak {
			peak = v
		}
	}
	var dd float64
	if peak > 0 {
		dd = (peak - d.equity) / peak * 100
	}

	scale := 1.0
	for _, b := range d.bands {
		if dd >= b.Level {
			scale = b.Scale
			break
		}
	}
	return upstream * scale
}

func (d *DrawdownSize) Generate(f Frame) (Frame, error) {
	fresh, err := NewDrawdownSize(d.bands, d.window)
	if err != nil {
		return Frame{}, err
	}
	out := make([]float64, len(f.Closes))
	for i, close := range f.Closes {
		out[i] = fresh.Step(close, f.Positions[i])
		// Batch mode assumes the emitted position was fully realized.
		fresh.Commit(out[i])
	}
	f.Positions = out
	return f, nil
}
