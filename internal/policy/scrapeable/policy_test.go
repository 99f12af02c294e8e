package scrapeable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicy(t *testing.T) {
	t.Parallel()

	p := Default("paywalled.example")
	cases := []struct {
		url   string
		allow bool
	}{
		{"https://www.coindesk.com/markets/2025/03/10/bitcoin-rallies", true},
		{"https://www.youtube.com/watch?v=abc", false},
		{"https://youtu.be/abc", false},
		{"https://x.com/someone/status/1", false},
		{"https://dex.com/article", true},
		{"https://mobile.twitter.com/a", false},
		{"https://example.com/whitepaper.PDF", false},
		{"https://example.com/tool.exe", false},
		{"https://example.com/archive.zip?dl=1", false},
		{"https://paywalled.example/story", false},
		{"https://sub.paywalled.example/story", true},
		{"ftp://example.com/story", false},
		{"not a url", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allow, p.Allow(tc.url), tc.url)
	}
}

func TestNewNormalizesPatterns(t *testing.T) {
	t.Parallel()

	p := New([]string{" .Example.ORG ", "", "*.example.org"}, []string{"DOCX", ""})
	assert.Len(t, p.suffixes, 1)
	assert.False(t, p.Allow("https://news.example.org/a"))
	assert.False(t, p.Allow("https://example.net/file.docx"))
	assert.True(t, p.Allow("https://example.net/file.html"))
}
