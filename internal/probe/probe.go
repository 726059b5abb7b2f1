// Package probe answers whether the dashboard page is reachable before the
// cost of a browser launch is paid.
package probe

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Probe issues a single bounded HTTP GET against the target page.
type Probe struct {
	client *http.Client
	logger *zap.Logger
}

// New creates a probe with the given per-request timeout.
func New(timeout time.Duration, logger *zap.Logger) *Probe {
	return &Probe{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Available reports whether url answered with status 200 before the probe
// timeout. It never returns an error; any failure is logged and reported
// as false.
func (p *Probe) Available(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		p.logger.Warn("Invalid probe URL", zap.String("url", url), zap.Error(err))
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("Target page unreachable", zap.String("url", url), zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn("Target page returned non-OK status",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode))
		return false
	}

	p.logger.Debug("Target page available", zap.String("url", url))
	return true
}
