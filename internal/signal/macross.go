package signal

import "fmt"

// MACross is an EMA crossover generator. The EMAs match the TradingView /
// OKX charting convention: seeded with the simple average of the first N
// bars, then the recursive update with alpha = 2/(N+1).
//
// The position flips on a strict sign change of (short EMA - long EMA) and
// is held between flips, including through long stretches without a
// crossover.
type MACross struct {
	short int
	long  int

	alphaS float64
	alphaL float64

	emaS     float64
	emaL     float64
	prevDiff float64
	position float64
	barCount int
	seedBuf  []float64
}

// NewMACross builds an EMA crossover generator; short must be < long.
func NewMACross(short, long int) (*MACross, error) {
	if short < 1 {
		return nil, fmt.Errorf("macross: short period %d must be >= 1", short)
	}
	if short >= long {
		return nil, fmt.Errorf("macross: short period %d must be less than long period %d", short, long)
	}
	return &MACross{
		short:   short,
		long:    long,
		alphaS:  2.0 / float64(short+1),
		alphaL:  2.0 / float64(long+1),
		seedBuf: make([]float64, 0, long),
	}, nil
}

func (m *MACross) String() string {
	return fmt.Sprintf("MACross(short=%d, long=%d)", m.short, m.long)
}

// Step updates both EMAs with one close and returns the held position.
func (m *MACross) Step(close, _ float64) float64 {
	m.barCount++

	// Accumulate closes until the long EMA can be seeded.
	if m.barCount <= m.long {
		m.seedBuf = append(m.seedBuf, close)
	}

	switch {
	case m.barCount < m.short:
		return 0
	case m.barCount == m.short:
		m.emaS = mean(m.seedBuf)
	default:
		m.emaS = m.alphaS*close + (1-m.alphaS)*m.emaS
	}

	switch {
	case m.barCount < m.long:
		return 0
	case m.barCount == m.long:
		m.emaL = mean(m.seedBuf)
		m.seedBuf = nil
		// The seed bar itself produces no flip: there is no prior diff.
		m.prevDiff = m.emaS - m.emaL
		return m.position
	default:
		m.emaL = m.alphaL*close + (1-m.alphaL)*m.emaL
	}

	diff := m.emaS - m.emaL
	if diff > 0 && m.prevDiff <= 0 {
		m.position = 1
	} else if diff < 0 && m.prevDiff >= 0 {
		m.position = -1
	}
	m.prevDiff = diff

	return m.position
}

// Generate replays the close history through a fresh instance so batch and
// incremental evaluation agree exactly.
func (m *MACross) Generate(f Frame) (Frame, error) {
	fresh, err := NewMACross(m.short, m.long)
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

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
