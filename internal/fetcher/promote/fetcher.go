// Package promote loads pages over plain HTTP and re-renders them in a headless browser when
// the markup looks like a script-rendered shell.
package promote

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/webscraper/internal/metrics"
	"github.com/JakeFAU/webscraper/internal/workflow"
)

// Detector decides whether a fetched body needs a headless render.
type Detector interface {
	ShouldPromote(body []byte) bool
}

// Fetcher implements workflow.PageFetcher with a fast probe and an optional headless render.
type Fetcher struct {
	probe    workflow.PageFetcher
	headless workflow.PageFetcher
	detector Detector
	logger   *zap.Logger
}

// New builds a promoting Fetcher. With a nil headless fetcher or detector it only probes.
func New(probe, headless workflow.PageFetcher, detector Detector, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		probe:    probe,
		headless: headless,
		detector: detector,
		logger:   logger,
	}
}

// FetchPage probes url and, when the detector asks for it, returns the rendered page instead.
// A failed render falls back to the probe body. Probe errors are returned unchanged.
func (f *Fetcher) FetchPage(ctx context.Context, url string) ([]byte, error) {
	body, err := f.probe.FetchPage(ctx, url)
	if err != nil {
		return nil, err
	}
	if f.headless == nil || f.detector == nil || !f.detector.ShouldPromote(body) {
		return body, nil
	}

	rendered, err := f.headless.FetchPage(ctx, url)
	if err != nil {
		f.logger.Warn("headless promotion failed", zap.String("url", url), zap.Error(err))
		metrics.ObservePromotion("fallback")
		return body, nil
	}
	f.logger.Debug("page promoted to headless render",
		zap.String("url", url),
		zap.Int("probe_bytes", len(body)),
		zap.Int("rendered_bytes", len(rendered)),
	)
	metrics.ObservePromotion("rendered")
	return rendered, nil
}
