// Package scraper enriches curated articles with best-effort full-text
// extraction. Failures are reported in the result, never raised.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/newsfeed-curator/internal/metrics"
	"github.com/JakeFAU/newsfeed-curator/internal/news"
	"github.com/JakeFAU/newsfeed-curator/internal/policy/ratelimit"
	"github.com/JakeFAU/newsfeed-curator/internal/policy/retry"
	"github.com/JakeFAU/newsfeed-curator/internal/policy/scrapeable"
)

// ErrUnscrapeable marks URLs rejected by the scrapeability policy.
var ErrUnscrapeable = errors.New("unscrapeable url")

// DefaultOptions mirrors the extraction hints sent to the backend.
var DefaultOptions = news.ScrapeOptions{
	OnlyMainContent: true,
	IncludeTags:     []string{"h1", "h2", "h3", "p", "article"},
	ExcludeTags:     []string{"nav", "footer", "header", "aside", "script"},
	Timeout:         10 * time.Second,
}

// Config tunes retries and pacing.
type Config struct {
	MaxAttempts int
	Backoff     time.Duration
	Delay       time.Duration
	Options     news.ScrapeOptions
}

// Scraper wraps a backend with pre-filtering, retry and pacing.
type Scraper struct {
	backend news.ScrapeBackend
	policy  *scrapeable.Policy
	retry   retry.Policy
	pacer   *ratelimit.Pacer
	opts    news.ScrapeOptions
	logger  *zap.Logger
}

// New builds a Scraper. A nil policy uses scrapeable.Default().
func New(cfg Config, backend news.ScrapeBackend, policy *scrapeable.Policy, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil {
		policy = scrapeable.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	opts := cfg.Options
	if opts.Timeout == 0 && len(opts.IncludeTags) == 0 && len(opts.ExcludeTags) == 0 && !opts.OnlyMainContent {
		opts = DefaultOptions
	}
	return &Scraper{
		backend: backend,
		policy:  policy,
		retry: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			Backoff:     retry.Linear(cfg.Backoff),
		},
		pacer:  ratelimit.NewPacer("scraper", cfg.Delay),
		opts:   opts,
		logger: logger,
	}
}

// IsScrapeable reports whether url passes the pre-filter.
func (s *Scraper) IsScrapeable(url string) bool {
	return s.policy.Allow(url)
}

// Failure is the result recorded for a URL that could not be scraped.
func Failure(url string, err error) news.ScrapedContent {
	msg := "scrape failed"
	if err != nil {
		msg = err.Error()
	}
	return news.ScrapedContent{Success: false, Error: msg, URL: url}
}

// WordCount counts whitespace separated words.
func WordCount(markdown string) int {
	return len(strings.Fields(markdown))
}

// ScrapeArticle extracts url with linear-backoff retries.
func (s *Scraper) ScrapeArticle(ctx context.Context, url string) news.ScrapedContent {
	if !s.IsScrapeable(url) {
		return Failure(url, ErrUnscrapeable)
	}
	res, attempts, err := retry.Do(ctx, s.retry, func(ctx context.Context, attempt int) (news.ScrapeResult, error) {
		res, err := s.backend.ScrapeURL(ctx, url, s.opts)
		if err == nil && (!res.Success || strings.TrimSpace(res.Markdown) == "") {
			err = fmt.Errorf("backend returned no content: %s", res.Error)
		}
		if err != nil {
			s.logger.Debug("scrape attempt failed",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return res, err
	})
	if err != nil {
		s.logger.Warn("scrape failed, falling back to snippet",
			zap.String("url", url),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return Failure(url, err)
	}
	return news.ScrapedContent{
		Success:   true,
		Markdown:  res.Markdown,
		Title:     res.Title,
		WordCount: WordCount(res.Markdown),
		URL:       url,
	}
}

// ScrapeBatch enriches articles in order. Unscrapeable links pass through
// without a network call or delay; every other call takes a pacer slot. Each
// article is returned, successful or not. The only error is cancellation.
func (s *Scraper) ScrapeBatch(ctx context.Context, articles []news.RawArticle) ([]news.Article, error) {
	out := make([]news.Article, 0, len(articles))
	succeeded := 0
	for _, raw := range articles {
		var content news.ScrapedContent
		if !s.IsScrapeable(raw.Link) {
			content = Failure(raw.Link, ErrUnscrapeable)
		} else {
			if err := s.pacer.Wait(ctx); err != nil {
				return out, err
			}
			content = s.ScrapeArticle(ctx, raw.Link)
		}
		if content.Success {
			succeeded++
		}
		out = append(out, news.Article{
			RawArticle:      raw,
			Scraped:         &content,
			OriginalSnippet: raw.Snippet,
		})
	}
	metrics.ObserveArticles("scrape", "success", succeeded)
	metrics.ObserveArticles("scrape", "failed", len(out)-succeeded)
	s.logger.Info("scraping complete",
		zap.Int("total", len(out)),
		zap.Int("succeeded", succeeded),
	)
	return out, nil
}
