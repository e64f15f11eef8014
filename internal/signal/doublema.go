package signal

import "fmt"

// DoubleMA is a simple moving-average crossover generator: long while the
// fast SMA is above the slow SMA, short while below, holding the previous
// direction while the averages are equal.
type DoubleMA struct {
	fast int
	slow int

	window   []float64
	position float64
}

// NewDoubleMA builds an SMA crossover generator; fast must be < slow.
func NewDoubleMA(fast, slow int) (*DoubleMA, error) {
	if fast < 1 {
		return nil, fmt.Errorf("doublema: fast period %d must be >= 1", fast)
	}
	if fast >= slow {
		return nil, fmt.Errorf("doublema: fast period %d must be less than slow period %d", fast, slow)
	}
	return &DoubleMA{fast: fast, slow: slow, window: make([]float64, 0, slow)}, nil
}

func (d *DoubleMA) String() string {
	return fmt.Sprintf("DoubleMA(fast=%d, slow=%d)", d.fast, d.slow)
}

func (d *DoubleMA) Step(close, _ float64) float64 {
	d.window = append(d.window, close)
	if len(d.window) > d.slow {
		d.window = d.window[1:]
	}
	if len(d.window) < d.slow {
		return 0
	}

	fastMA := mean(d.window[len(d.window)-d.fast:])
	slowMA := mean(d.window)

	switch {
	case fastMA > slowMA:
		d.position = 1
	case fastMA < slowMA:
		d.position = -1
	}
	return d.position
}

func (d *DoubleMA) Generate(f Frame) (Frame, error) {
	fresh, err := NewDoubleMA(d.fast, d.slow)
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
