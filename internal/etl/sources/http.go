package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"marketnav/internal/etl"
)

// ── HTTP Source ─────────────────────────────────────────────
// Fetches one page of a World Bank style indicator endpoint.
// A single GET, no retry.

// ErrUpstreamStatus is returned when the endpoint answers with a non-2xx status.
var ErrUpstreamStatus = errors.New("upstream returned non-success status")

// DefaultHTTPTimeout bounds the request when no timeout is configured.
const DefaultHTTPTimeout = 30 * time.Second

type httpSource struct{}

func init() { etl.RegisterSource(&httpSource{}) }

func (s *httpSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "http",
		Label: "Indicator API",
		ConfigFields: []etl.ConfigField{
			{Key: "url", Label: "URL", Type: "string", Required: true, Help: "Full URL including format=json and per_page"},
			{Key: "timeout", Label: "Timeout", Type: "duration", Default: DefaultHTTPTimeout.String(), Help: "Request timeout; 0 waits forever"},
		},
	}
}

func (s *httpSource) Read(ctx context.Context, cfg etl.SourceConfig) (*etl.Table, error) {
	url := cfg.String("url", "")
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}
	timeout := DefaultHTTPTimeout
	if raw := cfg.String("timeout", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", raw, err)
		}
		timeout = d
	}

	// One request per run: a private transport is closed once the body is read.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	defer transport.CloseIdleConnections()
	client := &http.Client{Timeout: timeout, Transport: transport}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	logger.Debug("[http] fetching", zap.String("url", url), zap.Duration("timeout", timeout))
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: http %d: %s", ErrUpstreamStatus, resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !looksLikeJSONArray(data) {
		return nil, fmt.Errorf("unexpected response body: not a JSON array")
	}
	return parseIndicatorPayload(url, data)
}
