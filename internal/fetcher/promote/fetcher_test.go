package promote

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webscraper/internal/headless/detector"
	"github.com/JakeFAU/webscraper/internal/workflow"
)

type stubFetcher struct {
	body  []byte
	err   error
	calls int
}

func (s *stubFetcher) FetchPage(context.Context, string) ([]byte, error) {
	s.calls++
	return s.body, s.err
}

func TestFetcher_FetchPage(t *testing.T) {
	t.Parallel()

	static := []byte(`<html><body><a href="/f.csv">csv</a></body></html>`)
	shell := []byte(`<html><body><div id="__next"></div></body></html>`)
	rendered := []byte(`<html><body><div id="__next"><a href="/f.csv">csv</a></div></body></html>`)
	renderErr := errors.New("chrome not found")

	tests := []struct {
		name          string
		probe         []byte
		headless      *stubFetcher
		want          []byte
		headlessCalls int
	}{
		{name: "static page skips render", probe: static, headless: &stubFetcher{body: rendered}, want: static},
		{name: "shell is rendered", probe: shell, headless: &stubFetcher{body: rendered}, want: rendered, headlessCalls: 1},
		{name: "failed render falls back", probe: shell, headless: &stubFetcher{err: renderErr}, want: shell, headlessCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := New(&stubFetcher{body: tt.probe}, tt.headless, detector.NewHeuristic(10), nil)

			got, err := f.FetchPage(context.Background(), "https://example.com/a/")

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.headlessCalls, tt.headless.calls)
		})
	}
}

func TestFetcher_ProbeErrorReturned(t *testing.T) {
	t.Parallel()

	headless := &stubFetcher{body: []byte("<html></html>")}
	f := New(&stubFetcher{err: workflow.ErrConnectionFailed}, headless, detector.NewHeuristic(0), nil)

	_, err := f.FetchPage(context.Background(), "https://example.com/")

	require.ErrorIs(t, err, workflow.ErrConnectionFailed)
	require.Zero(t, headless.calls)
}

func TestFetcher_WithoutHeadlessOnlyProbes(t *testing.T) {
	t.Parallel()

	probe := &stubFetcher{body: []byte("")}
	f := New(probe, nil, detector.NewHeuristic(0), nil)

	got, err := f.FetchPage(context.Background(), "https://example.com/")

	require.NoError(t, err)
	require.Empty(t, got)
	require.Equal(t, 1, probe.calls)
}
