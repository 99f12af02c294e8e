// Package summarizer turns article text into short, medium and long
// summaries.
package summarizer

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/newsfeed-curator/internal/metrics"
	"github.com/JakeFAU/newsfeed-curator/internal/news"
	"github.com/JakeFAU/newsfeed-curator/internal/policy/ratelimit"
)

const (
	// DefaultMaxContent bounds the characters of source text per prompt.
	DefaultMaxContent = 8000

	contentTemperature = 0.3
	contentMaxTokens   = 300
	snippetTemperature = 0.7
	snippetMaxTokens   = 250
)

var errEmptyResponse = errors.New("empty summary response")

// Config tunes the summarizer.
type Config struct {
	Topic        string
	MaxContent   int
	Delay        time.Duration
	RewriteDelay time.Duration
}

// Summarizer produces summary sets through a language model.
type Summarizer struct {
	llm        news.Completer
	topic      string
	maxContent int
	pacer      *ratelimit.Pacer
	rewrite    *ratelimit.Pacer
	logger     *zap.Logger
}

// New builds a Summarizer.
func New(cfg Config, llm news.Completer, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	topic := strings.TrimSpace(cfg.Topic)
	if topic == "" {
		topic = "crypto"
	}
	maxContent := cfg.MaxContent
	if maxContent <= 0 {
		maxContent = DefaultMaxContent
	}
	return &Summarizer{
		llm:        llm,
		topic:      topic,
		maxContent: maxContent,
		pacer:      ratelimit.NewPacer("summarizer", cfg.Delay),
		rewrite:    ratelimit.NewPacer("rewrite", cfg.RewriteDelay),
		logger:     logger,
	}
}

// SummarizeArticle summarizes the scraped text when scraping succeeded and
// the feed snippet otherwise. A failed call degrades to a title-derived
// summary; the article is never dropped.
func (s *Summarizer) SummarizeArticle(ctx context.Context, article news.Article) news.Article {
	article.OriginalSnippet = article.Snippet
	article.UsedFullContent = false

	// Markdown that cleans down to nothing, such as an image-only page, is
	// treated like a failed scrape.
	var cleaned string
	if article.Scraped != nil && article.Scraped.Success {
		cleaned = CleanMarkdown(article.Scraped.Markdown)
	}

	var req news.CompletionRequest
	switch {
	case cleaned != "":
		req = news.CompletionRequest{
			Prompt:      contentPrompt(s.topic, article.Title, clip(cleaned, s.maxContent)),
			Temperature: contentTemperature,
			MaxTokens:   contentMaxTokens,
		}
		article.UsedFullContent = true
	case strings.TrimSpace(article.Snippet) != "":
		req = news.CompletionRequest{
			Prompt:      snippetPrompt(s.topic, clip(article.Snippet, s.maxContent)),
			Temperature: snippetTemperature,
			MaxTokens:   snippetMaxTokens,
		}
	default:
		article.Summary = DegradedSummary(article.Title)
		metrics.ObserveArticles("summarize", "degraded", 1)
		return article
	}

	response, err := s.complete(ctx, req)
	if err != nil {
		s.logger.Warn("summary failed, using title",
			zap.String("title", article.Title),
			zap.Bool("full_content", article.UsedFullContent),
			zap.Error(err),
		)
		article.Summary = DegradedSummary(article.Title)
		metrics.ObserveArticles("summarize", "degraded", 1)
		return article
	}
	article.Summary = ParseSummary(response)
	if article.UsedFullContent {
		metrics.ObserveArticles("summarize", "full_content", 1)
	} else {
		metrics.ObserveArticles("summarize", "snippet", 1)
	}
	return article
}

// SummarizeBatch summarizes articles in order, spaced by the configured
// delay. The only error is cancellation of ctx.
func (s *Summarizer) SummarizeBatch(ctx context.Context, articles []news.Article) ([]news.Article, error) {
	out, err := ratelimit.Sequential(ctx, s.pacer, articles, s.SummarizeArticle)
	full := 0
	for _, a := range out {
		if a.UsedFullContent {
			full++
		}
	}
	s.logger.Info("summaries generated",
		zap.Int("total", len(out)),
		zap.Int("full_content", full),
		zap.Int("snippet", len(out)-full),
	)
	return out, err
}

// RewriteSnippets is the snippet-only variant used when enrichment failed.
// Articles whose rewrite fails keep their snippet in every tier.
func (s *Summarizer) RewriteSnippets(ctx context.Context, raw []news.RawArticle) ([]news.Article, error) {
	return ratelimit.Sequential(ctx, s.rewrite, raw, func(ctx context.Context, r news.RawArticle) news.Article {
		article := news.Article{RawArticle: r, OriginalSnippet: r.Snippet}
		if strings.TrimSpace(r.Snippet) == "" {
			return article
		}
		response, err := s.complete(ctx, news.CompletionRequest{
			Prompt:      snippetPrompt(s.topic, clip(r.Snippet, s.maxContent)),
			Temperature: snippetTemperature,
			MaxTokens:   snippetMaxTokens,
		})
		if err != nil {
			s.logger.Warn("snippet rewrite failed, keeping original",
				zap.String("title", r.Title),
				zap.Error(err),
			)
			article.Summary = snippetSummary(r.Snippet)
			return article
		}
		article.Summary = ParseSummary(response)
		return article
	})
}

func (s *Summarizer) complete(ctx context.Context, req news.CompletionRequest) (string, error) {
	response, err := s.llm.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return "", errEmptyResponse
	}
	return response, nil
}
