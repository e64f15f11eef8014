package candle

import (
	"strings"
	"testing"
	"time"
)

func TestUnixNanosPrefersExplicit(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	c := Candle{Timestamp: ts}
	if got := c.UnixNanos(); got != ts.UnixNano() {
		t.Errorf("UnixNanos = %d, want %d", got, ts.UnixNano())
	}

	c.TimestampNS = 42
	if got := c.UnixNanos(); got != 42 {
		t.Errorf("UnixNanos with explicit nanos = %d, want 42", got)
	}
}

func TestStringMarksOpenBars(t *testing.T) {
	c := Candle{Timestamp: time.Now(), Close: 100, Confirmed: true}
	if !strings.Contains(c.String(), "closed") {
		t.Errorf("confirmed bar string = %q", c.String())
	}
	c.Confirmed = false
	if !strings.Contains(c.String(), "open") {
		t.Errorf("open bar string = %q", c.String())
	}
}
