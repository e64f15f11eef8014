package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPSinkConfig points the sink at an influx v2 write endpoint.
type HTTPSinkConfig struct {
	URL    string // base URL, e.g. http://localhost:8086
	Token  string
	Org    string
	Bucket string
}

// HTTPSink posts line-protocol batches to an influx v2 compatible write
// endpoint.
type HTTPSink struct {
	writeURL string
	token    string
	client   *http.Client
}

// NewHTTPSink validates the config and builds the sink.
func NewHTTPSink(cfg HTTPSinkConfig) (*HTTPSink, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("telemetry: http sink URL is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("telemetry: http sink bucket is required")
	}
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("telemetry: parse sink URL: %w", err)
	}
	q := url.Values{}
	q.Set("org", cfg.Org)
	q.Set("bucket", cfg.Bucket)
	q.Set("precision", "ns")
	base.Path = strings.TrimRight(base.Path, "/") + "/api/v2/write"
	base.RawQuery = q.Encode()

	return &HTTPSink{
		writeURL: base.String(),
		token:    cfg.Token,
		client:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (s *HTTPSink) WriteBatch(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	lines := make([]string, len(points))
	for i, p := range points {
		lines[i] = p.Line()
	}
	body := strings.Join(lines, "\n")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.writeURL, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if s.token != "" {
		req.Header.Set("Authorization", "Token "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telemetry: write returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func (s *HTTPSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
