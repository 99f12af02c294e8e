// Package feed retrieves syndicated feeds in bounded concurrent batches and
// normalizes their items into raw articles.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	collyfetcher "github.com/JakeFAU/newsfeed-curator/internal/fetcher/colly"
	"github.com/JakeFAU/newsfeed-curator/internal/metrics"
	"github.com/JakeFAU/newsfeed-curator/internal/news"
	"github.com/JakeFAU/newsfeed-curator/internal/policy/retry"
)

const acceptFeeds = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8"

// Getter performs a single HTTP GET.
type Getter interface {
	Fetch(ctx context.Context, url string, headers http.Header) (collyfetcher.Response, error)
}

// Config controls batching and retries.
type Config struct {
	BatchSize     int
	BatchPause    time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	SnippetLength int
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 5
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.SnippetLength <= 0 {
		c.SnippetLength = 300
	}
	return c
}

// Result is the outcome of fetching one feed.
type Result struct {
	Source   news.FeedSource
	Feed     *gofeed.Feed
	Attempts int
	Err      error
}

// Batch is the normalized output of a fetch cycle.
type Batch struct {
	Articles  []news.RawArticle
	Attempted []news.FeedSource
	Failed    []news.FeedSource
}

// Fetcher downloads and parses feeds.
type Fetcher struct {
	cfg    Config
	getter Getter
	logger *zap.Logger
	sleep  retry.Sleeper
}

// New creates a Fetcher.
func New(cfg Config, getter Getter, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		cfg:    cfg.withDefaults(),
		getter: getter,
		logger: logger,
		sleep:  retry.Sleep,
	}
}

// Collect fetches every source and returns the items inside window.
func (f *Fetcher) Collect(ctx context.Context, sources []news.FeedSource, window Window) Batch {
	results := f.FetchAll(ctx, sources)
	batch := Batch{
		Articles:  Normalize(results, window, f.cfg.SnippetLength),
		Attempted: make([]news.FeedSource, 0, len(results)),
	}
	for _, res := range results {
		batch.Attempted = append(batch.Attempted, res.Source)
		if res.Err != nil {
			batch.Failed = append(batch.Failed, res.Source)
		}
	}
	return batch
}

// FetchAll fetches sources in fixed-width concurrent batches separated by the
// configured pause. Results keep the order of sources.
func (f *Fetcher) FetchAll(ctx context.Context, sources []news.FeedSource) []Result {
	results := make([]Result, len(sources))
	for start := 0; start < len(sources); start += f.cfg.BatchSize {
		if start > 0 {
			if err := f.sleep(ctx, f.cfg.BatchPause); err != nil {
				for i := start; i < len(sources); i++ {
					results[i] = Result{Source: sources[i], Err: fmt.Errorf("fetch skipped: %w", err)}
				}
				return results
			}
		}
		end := min(start+f.cfg.BatchSize, len(sources))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = f.FetchOne(ctx, sources[i])
				return nil
			})
		}
		_ = g.Wait()
	}
	return results
}

// FetchOne downloads and parses a single feed, retrying with a fixed delay.
// A feed that exhausts its retries is reported in Result.Err and logged.
func (f *Fetcher) FetchOne(ctx context.Context, src news.FeedSource) Result {
	policy := retry.Policy{
		MaxAttempts: f.cfg.MaxRetries + 1,
		Backoff:     retry.Fixed(f.cfg.RetryDelay),
		Sleep:       f.sleep,
	}
	parsed, attempts, err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) (*gofeed.Feed, error) {
		parsed, err := f.fetchAndParse(ctx, src.FeedURL)
		if err != nil {
			f.logger.Debug("feed fetch attempt failed",
				zap.String("feed_url", src.FeedURL),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return parsed, err
	})
	if err != nil {
		metrics.ObserveFeedFetch(src.FeedURL, "failed")
		f.logger.Warn("feed dropped for this cycle",
			zap.String("feed_url", src.FeedURL),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return Result{Source: src, Attempts: attempts, Err: err}
	}
	metrics.ObserveFeedFetch(src.FeedURL, "ok")
	f.logger.Debug("feed fetched",
		zap.String("feed_url", src.FeedURL),
		zap.Int("items", len(parsed.Items)),
	)
	return Result{Source: src, Feed: parsed, Attempts: attempts}
}

func (f *Fetcher) fetchAndParse(ctx context.Context, url string) (*gofeed.Feed, error) {
	resp, err := f.getter.Fetch(ctx, url, http.Header{"Accept": {acceptFeeds}})
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return parsed, nil
}
