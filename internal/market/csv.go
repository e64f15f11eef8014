package market

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"tradeflow/internal/candle"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// CSVSource streams candles from an OHLCV file. The header row names the
// columns; order does not matter and extra columns are ignored.
type CSVSource struct {
	f    *os.File
	r    *csv.Reader
	cols map[string]int
	row  int
}

// OpenCSV opens the file and validates the header.
func OpenCSV(path string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("market: read csv header %s: %w", path, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"timestamp", "open", "high", "low", "close", "volume"} {
		if _, ok := cols[required]; !ok {
			f.Close()
			return nil, fmt.Errorf("market: csv %s missing column %q", path, required)
		}
	}
	return &CSVSource{f: f, r: r, cols: cols, row: 1}, nil
}

func (s *CSVSource) Next(ctx context.Context) (candle.Candle, error) {
	if err := ctx.Err(); err != nil {
		return candle.Candle{}, err
	}
	record, err := s.r.Read()
	if err == io.EOF {
		return candle.Candle{}, io.EOF
	}
	if err != nil {
		return candle.Candle{}, fmt.Errorf("market: csv row %d: %w", s.row+1, err)
	}
	s.row++

	ts, err := parseTime(record[s.cols["timestamp"]])
	if err != nil {
		return candle.Candle{}, fmt.Errorf("market: csv row %d: %w", s.row, err)
	}

	vals := make(map[string]float64, 5)
	for _, name := range []string{"open", "high", "low", "close", "volume"} {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[s.cols[name]]), 64)
		if err != nil {
			return candle.Candle{}, fmt.Errorf("market: csv row %d column %s: %w", s.row, name, err)
		}
		vals[name] = v
	}

	return candle.Candle{
		Timestamp:   ts,
		TimestampNS: ts.UnixNano(),
		Open:        vals["open"],
		High:        vals["high"],
		Low:         vals["low"],
		Close:       vals["close"],
		Volume:      vals["volume"],
		Confirmed:   true,
	}, nil
}

// Close releases the underlying file.
func (s *CSVSource) Close() error {
	return s.f.Close()
}

// parseTime accepts the common OHLCV export formats plus unix seconds or
// milliseconds.
func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		// Millisecond epochs are 13 digits until the year 33658.
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
