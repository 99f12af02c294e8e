package summarizer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/newsfeed-curator/internal/news"
)

type fakeLLM struct {
	mu       sync.Mutex
	requests []news.CompletionRequest
	reply    func(req news.CompletionRequest) (string, error)
}

func (f *fakeLLM) Complete(_ context.Context, req news.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.reply(req)
}

func okReply(news.CompletionRequest) (string, error) {
	return "SHORT: short one\nMEDIUM: medium one\nLONG: long one", nil
}

func TestSummarizeArticleUsesScrapedContent(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{reply: okReply}
	s := New(Config{}, llm, nil)
	article := news.Article{
		RawArticle: news.RawArticle{Title: "ETF approved", Snippet: "feed snippet"},
		Scraped:    &news.ScrapedContent{Success: true, Markdown: "# ETF\n\n" + strings.Repeat("x", 9000)},
	}

	got := s.SummarizeArticle(context.Background(), article)
	require.True(t, got.UsedFullContent)
	require.Equal(t, "feed snippet", got.OriginalSnippet)
	require.Equal(t, "medium one", got.Summary.Medium)
	require.Equal(t, "medium one", got.StoredSnippet())

	require.Len(t, llm.requests, 1)
	req := llm.requests[0]
	require.InDelta(t, contentTemperature, req.Temperature, 1e-9)
	require.Equal(t, contentMaxTokens, req.MaxTokens)
	require.Contains(t, req.Prompt, "Article Title: ETF approved")
	require.Contains(t, req.Prompt, strings.Repeat("x", 10)+"...")
	require.NotContains(t, req.Prompt, strings.Repeat("x", DefaultMaxContent))
	require.NotContains(t, req.Prompt, "# ETF")
}

func TestSummarizeArticleFallsBackToSnippet(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{reply: okReply}
	s := New(Config{}, llm, nil)
	article := news.Article{
		RawArticle: news.RawArticle{Title: "t", Snippet: "the snippet"},
		Scraped:    &news.ScrapedContent{Success: false, Error: "unscrapeable url"},
	}

	got := s.SummarizeArticle(context.Background(), article)
	require.False(t, got.UsedFullContent)
	require.False(t, got.Summary.IsZero())
	require.Len(t, llm.requests, 1)
	require.Contains(t, llm.requests[0].Prompt, "Original snippet: the snippet")
	require.InDelta(t, snippetTemperature, llm.requests[0].Temperature, 1e-9)
}

func TestSummarizeArticleIgnoresContentlessMarkdown(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{reply: okReply}
	s := New(Config{}, llm, nil)
	article := news.Article{
		RawArticle: news.RawArticle{Title: "Gallery", Snippet: "photo roundup"},
		Scraped: &news.ScrapedContent{
			Success:  true,
			Markdown: "![chart](https://img.example/a.png)\n\n## \n\n![](https://img.example/b.png)",
		},
	}

	got := s.SummarizeArticle(context.Background(), article)
	require.False(t, got.UsedFullContent)
	require.Len(t, llm.requests, 1)
	require.Contains(t, llm.requests[0].Prompt, "Original snippet: photo roundup")
	require.InDelta(t, snippetTemperature, llm.requests[0].Temperature, 1e-9)
	require.Equal(t, snippetMaxTokens, llm.requests[0].MaxTokens)
}

func TestSummarizeArticleDegradesOnError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply func(news.CompletionRequest) (string, error)
	}{
		{name: "error", reply: func(news.CompletionRequest) (string, error) { return "", errors.New("boom") }},
		{name: "empty", reply: func(news.CompletionRequest) (string, error) { return "   ", nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := New(Config{}, &fakeLLM{reply: tt.reply}, nil)
			got := s.SummarizeArticle(context.Background(), news.Article{
				RawArticle: news.RawArticle{Title: "Bitcoin tops record", Snippet: "snip"},
			})
			require.Equal(t, DegradedSummary("Bitcoin tops record"), got.Summary)
			require.Equal(t, "snip", got.OriginalSnippet)
		})
	}
}

func TestSummarizeArticleWithoutSourceSkipsModel(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{reply: okReply}
	s := New(Config{}, llm, nil)
	got := s.SummarizeArticle(context.Background(), news.Article{RawArticle: news.RawArticle{Title: "Only title"}})
	require.Empty(t, llm.requests)
	require.Equal(t, "Only title", got.Summary.Medium)
}

func TestSummarizeBatchKeepsOrder(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{reply: func(req news.CompletionRequest) (string, error) {
		if strings.Contains(req.Prompt, "second") {
			return "", errors.New("rate limited")
		}
		return okReply(req)
	}}
	s := New(Config{}, llm, nil)
	in := []news.Article{
		{RawArticle: news.RawArticle{Title: "first", Snippet: "first snippet"}},
		{RawArticle: news.RawArticle{Title: "second", Snippet: "second snippet"}},
	}
	out, err := s.SummarizeBatch(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "medium one", out[0].Summary.Medium)
	require.Equal(t, "second", out[1].Summary.Medium)
}

func TestRewriteSnippets(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{reply: func(req news.CompletionRequest) (string, error) {
		if strings.Contains(req.Prompt, "broken") {
			return "", errors.New("boom")
		}
		return okReply(req)
	}}
	s := New(Config{}, llm, nil)
	out, err := s.RewriteSnippets(context.Background(), []news.RawArticle{
		{Title: "a", Snippet: "good snippet"},
		{Title: "b", Snippet: "broken snippet"},
		{Title: "c"},
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, "medium one", out[0].Summary.Medium)
	require.Equal(t, "broken snippet", out[1].Summary.Medium)
	require.Equal(t, "broken snippet", out[1].OriginalSnippet)
	require.True(t, out[2].Summary.IsZero())
	require.False(t, out[0].UsedFullContent)
	require.Len(t, llm.requests, 2)
}

func TestSummarizeBatchCancelled(t *testing.T) {
	t.Parallel()

	s := New(Config{}, &fakeLLM{reply: okReply}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.SummarizeBatch(ctx, []news.Article{{RawArticle: news.RawArticle{Title: "x"}}})
	require.ErrorIs(t, err, context.Canceled)
}
