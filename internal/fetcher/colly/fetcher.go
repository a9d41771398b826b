// Package collyfetcher downloads pages and files over HTTP using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/webscraper/internal/workflow"
)

const defaultTimeout = 30 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxBodyBytes caps the buffered body; a larger body fails the fetch instead of being
	// truncated. Zero means unlimited.
	MaxBodyBytes int
}

// Fetcher implements workflow.PageFetcher and workflow.FileFetcher with a single GET per call.
// Redirects are followed; nothing is retried.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// response is what a single visit captured.
type response struct {
	url        string
	statusCode int
	headers    http.Header
	body       []byte
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	// Each invocation may legitimately fetch the same URL again.
	c.AllowURLRevisit = true
	// Status handling happens here so the error taxonomy stays in one place.
	c.ParseHTTPErrorResponse = true
	if cfg.MaxBodyBytes > 0 {
		// One byte past the cap tells an oversized body apart from one that fits exactly.
		c.MaxBodySize = cfg.MaxBodyBytes + 1
	} else {
		c.MaxBodySize = 0
	}
	c.WithTransport(newHTTPTransport())
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// FetchPage returns the raw markup at url.
func (f *Fetcher) FetchPage(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

// FetchFile downloads url and reports the filename advertised by Content-Disposition, with
// double quotes and ".csv" removed.
func (f *Fetcher) FetchFile(ctx context.Context, url string) (workflow.DownloadedFile, error) {
	resp, err := f.fetch(ctx, url)
	if err != nil {
		return workflow.DownloadedFile{}, err
	}
	name, ok := DispositionFilename(resp.headers.Get("Content-Disposition"))
	if !ok {
		return workflow.DownloadedFile{}, fmt.Errorf("%w: %s", workflow.ErrMissingDisposition, url)
	}
	return workflow.DownloadedFile{
		Bytes:          resp.body,
		AdvertisedName: SanitizeFilename(name),
	}, nil
}

// DispositionFilename extracts the filename parameter of a Content-Disposition header value.
// Values the MIME parser rejects fall back to a plain "filename=" scan.
func DispositionFilename(header string) (string, bool) {
	if strings.TrimSpace(header) == "" {
		return "", false
	}
	if _, params, err := mime.ParseMediaType(header); err == nil {
		if name, ok := params["filename"]; ok {
			return name, true
		}
		return "", false
	}
	for _, part := range strings.Split(header, ";") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if found && strings.EqualFold(strings.TrimSpace(key), "filename") {
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

// SanitizeFilename strips double quotes and every ".csv" occurrence.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `"`, "")
	return strings.ReplaceAll(name, ".csv", "")
}

func (f *Fetcher) fetch(ctx context.Context, url string) (response, error) {
	var (
		result   response
		fetchErr error
	)
	collector := f.buildCollector(ctx, &result, &fetchErr)
	if err := runCollector(ctx, collector, url, &fetchErr); err != nil {
		return response{}, err
	}
	if result.statusCode < http.StatusOK || result.statusCode >= http.StatusMultipleChoices {
		return response{}, fmt.Errorf("%w: GET %s: status %d %s",
			workflow.ErrInvalidOperation, url, result.statusCode, http.StatusText(result.statusCode))
	}
	if f.cfg.MaxBodyBytes > 0 && len(result.body) > f.cfg.MaxBodyBytes {
		return response{}, fmt.Errorf("%w: GET %s: body exceeds %d bytes",
			workflow.ErrInvalidOperation, url, f.cfg.MaxBodyBytes)
	}
	return result, nil
}

func (f *Fetcher) buildCollector(ctx context.Context, result *response, fetchErr *error) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)
	configureCollectorHooks(collector, result, fetchErr)
	return collector
}

func configureCollectorHooks(hooks collectorHooks, result *response, fetchErr *error) {
	hooks.OnResponse(func(r *colly.Response) {
		headers := http.Header{}
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		*result = response{
			url:        r.Request.URL.String(),
			statusCode: r.StatusCode,
			headers:    headers,
			body:       append([]byte(nil), r.Body...),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: GET %s canceled: %w", workflow.ErrConnectionFailed, url, ctx.Err())
	case err := <-done:
		switch {
		case *fetchErr != nil:
			// OnError only fires once the request left the collector.
			return fmt.Errorf("%w: GET %s: %w", workflow.ErrConnectionFailed, url, *fetchErr)
		case err != nil:
			return fmt.Errorf("%w: GET %s: %w", workflow.ErrInvalidOperation, url, err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
