package signal

import "fmt"

// MACD is a moving-average convergence/divergence crossover generator:
// long while the MACD line is above its signal line, short while below.
// All three EMAs use the recursive form seeded from the first observation.
type MACD struct {
	fast   int
	slow   int
	signal int

	alphaF   float64
	alphaS   float64
	alphaSig float64

	emaFast   float64
	emaSlow   float64
	signalEMA float64
	barCount  int
	position  float64
}

// NewMACD builds a MACD crossover generator; fast must be < slow.
func NewMACD(fast, slow, signalPeriod int) (*MACD, error) {
	if fast < 1 || signalPeriod < 1 {
		return nil, fmt.Errorf("macd: periods must be >= 1 (fast=%d, signal=%d)", fast, signalPeriod)
	}
	if fast >= slow {
		return nil, fmt.Errorf("macd: fast period %d must be less than slow period %d", fast, slow)
	}
	return &MACD{
		fast:     fast,
		slow:     slow,
		signal:   signalPeriod,
		alphaF:   2.0 / float64(fast+1),
		alphaS:   2.0 / float64(slow+1),
		alphaSig: 2.0 / float64(signalPeriod+1),
	}, nil
}

func (m *MACD) String() string {
	return fmt.Sprintf("MACD(fast=%d, slow=%d, signal=%d)", m.fast, m.slow, m.signal)
}

func (m *MACD) Step(close, _ float64) float64 {
	m.barCount++
	if m.barCount == 1 {
		m.emaFast = close
		m.emaSlow = close
		m.signalEMA = 0
		return 0
	}

	m.emaFast = m.alphaF*close + (1-m.alphaF)*m.emaFast
	m.emaSlow = m.alphaS*close + (1-m.alphaS)*m.emaSlow
	macd := m.emaFast - m.emaSlow
	m.signalEMA = m.alphaSig*macd + (1-m.alphaSig)*m.signalEMA

	switch {
	case macd > m.signalEMA:
		m.position = 1
	case macd < m.signalEMA:
		m.position = -1
	}
	return m.position
}

func (m *MACD) Generate(f Frame) (Frame, error) {
	fresh, err := NewMACD(m.fast, m.slow, m.signal)
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
