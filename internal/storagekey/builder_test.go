package storagekey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webscraper/internal/workflow"
)

var fixedNow = time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)

func TestBuild(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix  string
		pattern string
		want    string
	}{
		{prefix: "example_", pattern: "%Y%m%d%H%M%S", want: "example_20240305140709.csv"},
		{prefix: "report", pattern: "-%F", want: "report-2024-03-05.csv"},
		{prefix: "report", pattern: "_%-m_%-d", want: "report_3_5.csv"},
		{prefix: "prices", pattern: "/%Y/%m/%d", want: "prices/2024/03/05.csv"},
		{prefix: "rate", pattern: "_100%%", want: "rate_100%.csv"},
		{prefix: "plain", pattern: "", want: "plain.csv"},
		{prefix: "", pattern: "%Ey", want: "24.csv"},
	}
	for _, tt := range tests {
		got, err := New().Build(tt.prefix, tt.pattern, fixedNow)
		require.NoError(t, err, tt.pattern)
		assert.Equal(t, tt.want, got, tt.pattern)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	t.Parallel()

	b := New()
	first, err := b.Build("example_", "%Y-%m-%dT%H:%M:%S.%L", fixedNow)
	require.NoError(t, err)
	second, err := b.Build("example_", "%Y-%m-%dT%H:%M:%S.%L", fixedNow)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, "example_2024-03-05T14:07:09.000.csv", first)
}

func TestBuild_InvalidPattern(t *testing.T) {
	t.Parallel()

	for _, pattern := range []string{"%", "%Y%", "%-", "%E", "%K", "%Ed", "%Oy%Oq", "%t", "%n"} {
		_, err := New().Build("example_", pattern, fixedNow)
		require.ErrorIs(t, err, workflow.ErrInvalidPattern, pattern)
		require.ErrorIs(t, err, workflow.ErrStorage, pattern)
	}
}
