package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/newsfeed-curator/internal/news"
)

func TestParseSummary(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("m", 350)
	tests := []struct {
		name string
		in   string
		want news.SummarySet
	}{
		{
			name: "all tiers",
			in:   "SHORT: s\nMEDIUM: m\nLONG: l",
			want: news.SummarySet{Short: "s", Medium: "m", Long: "l"},
		},
		{
			name: "indented labels",
			in:   "  SHORT: s\n\n  MEDIUM: m \n LONG: l",
			want: news.SummarySet{Short: "s", Medium: "m", Long: "l"},
		},
		{
			name: "medium from first line",
			in:   "\nA plain answer\nsecond line",
			want: news.SummarySet{Short: "A plain answer", Medium: "A plain answer", Long: "A plain answer"},
		},
		{
			name: "short and long derived from medium",
			in:   "MEDIUM: " + long,
			want: news.SummarySet{Short: long[:100], Medium: long, Long: long[:300]},
		},
		{
			name: "empty",
			in:   "",
			want: news.SummarySet{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseSummary(tt.in))
		})
	}
}

func TestDegradedSummary(t *testing.T) {
	t.Parallel()

	title := strings.Repeat("t", 300)
	got := DegradedSummary(title)
	require.Len(t, got.Short, 80)
	require.Len(t, got.Medium, 150)
	require.Len(t, got.Long, 250)

	empty := DegradedSummary("  ")
	require.Equal(t, news.SummarySet{Short: unavailable, Medium: unavailable, Long: unavailable}, empty)
}

func TestCleanMarkdown(t *testing.T) {
	t.Parallel()

	in := "# Heading\n\n![chart](https://img.example/c.png)\nRead the **full** [report](https://example.com/r) now.\n\n\n\n## Next\n*done*"
	got := CleanMarkdown(in)
	require.Equal(t, "Heading\n\nRead the full report now.\n\nNext\ndone", got)
}

func TestClip(t *testing.T) {
	t.Parallel()

	require.Equal(t, "abc", clip("abc", 5))
	require.Equal(t, "ab...", clip("abcdef", 2))
	require.Equal(t, "abcdef", clip("abcdef", 0))
}
