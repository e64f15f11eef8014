package candle

import (
	"fmt"
	"time"
)

// Candle is one OHLCV bar. Values are immutable once constructed.
type Candle struct {
	Timestamp   time.Time
	TimestampNS int64 // optional epoch nanos; 0 means unset
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64

	// Confirmed is false for an in-progress bar update from a live feed.
	// Historical bars are always confirmed.
	Confirmed bool
}

// UnixNanos returns the bar timestamp as epoch nanoseconds, preferring the
// pre-computed TimestampNS when the producer set it.
func (c Candle) UnixNanos() int64 {
	if c.TimestampNS != 0 {
		return c.TimestampNS
	}
	return c.Timestamp.UnixNano()
}

func (c Candle) String() string {
	status := "closed"
	if !c.Confirmed {
		status = "open"
	}
	return fmt.Sprintf("%s  O=%.4f  H=%.4f  L=%.4f  C=%.4f  V=%.2f  [%s]",
		c.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		c.Open, c.High, c.Low, c.Close, c.Volume, status)
}
