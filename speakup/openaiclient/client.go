// Package openaiclient builds go-openai clients for OpenAI-compatible
// providers such as DashScope's compatible mode.
package openaiclient

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

type Config struct {
	APIKey  string
	BaseURL string
	// Timeout bounds a single HTTP round trip. Zero means no client-side limit.
	Timeout time.Duration
	// Transport overrides http.DefaultTransport, mostly for tests.
	Transport http.RoundTripper
}

func New(cfg Config) *openai.Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	config.HTTPClient = &http.Client{
		Transport: &loggingTransport{base: base},
		Timeout:   cfg.Timeout,
	}

	return openai.NewClientWithConfig(config)
}

type loggingTransport struct {
	base http.RoundTripper
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		slog.Debug("provider request failed",
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.Duration("duration", time.Since(start)),
			slog.Any("err", err),
		)
		return nil, err
	}

	slog.Debug("provider request",
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)
	return resp, nil
}
