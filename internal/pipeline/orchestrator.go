// Package pipeline runs the fetch, curate, scrape, summarize, persist and
// publish cycle as an explicit state machine. Only one cycle runs at a time.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/newsfeed-curator/internal/curator"
	"github.com/JakeFAU/newsfeed-curator/internal/feed"
	"github.com/JakeFAU/newsfeed-curator/internal/metrics"
	"github.com/JakeFAU/newsfeed-curator/internal/news"
	"github.com/JakeFAU/newsfeed-curator/internal/publisher"
)

// Collector fetches and normalizes feeds.
type Collector interface {
	Collect(ctx context.Context, sources []news.FeedSource, window feed.Window) feed.Batch
}

// Curator admits or rejects articles.
type Curator interface {
	CurateBatch(ctx context.Context, articles []news.RawArticle) (curator.BatchResult, error)
}

// Scraper enriches articles with full text.
type Scraper interface {
	ScrapeBatch(ctx context.Context, articles []news.RawArticle) ([]news.Article, error)
}

// Summarizer writes summary sets.
type Summarizer interface {
	SummarizeBatch(ctx context.Context, articles []news.Article) ([]news.Article, error)
	RewriteSnippets(ctx context.Context, articles []news.RawArticle) ([]news.Article, error)
}

// Publisher writes stored articles to the blog.
type Publisher interface {
	Publish(ctx context.Context, opts publisher.Options) (publisher.Result, error)
}

// Config toggles optional stages.
type Config struct {
	CurationEnabled bool
	AutoPublish     bool
	PublishLimit    int
}

// Deps are the collaborators of a cycle. Curator is required only when
// curation is enabled; Publisher only when auto-publish is.
type Deps struct {
	Feeds      []news.FeedSource
	Collector  Collector
	Curator    Curator
	Scraper    Scraper
	Summarizer Summarizer
	Store      news.ArticleStore
	Publisher  Publisher
	Clock      news.Clock
}

// CycleReport summarizes one cycle.
type CycleReport struct {
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     time.Time         `json:"finished_at"`
	FeedsAttempted int               `json:"feeds_attempted"`
	FeedsFailed    int               `json:"feeds_failed"`
	Fetched        int               `json:"fetched"`
	Curation       *curator.Stats    `json:"curation,omitempty"`
	Approved       int               `json:"approved"`
	Scraped        int               `json:"scraped"`
	Summarized     int               `json:"summarized"`
	Fallback       FallbackLevel     `json:"fallback"`
	Insert         news.InsertResult `json:"insert"`
	Publish        *publisher.Result `json:"publish,omitempty"`
	Errors         []string          `json:"errors,omitempty"`
}

// Orchestrator drives cycles.
type Orchestrator struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
	tracer trace.Tracer

	mu    sync.Mutex
	state State
	last  *CycleReport
}

// New builds an Orchestrator in the IDLE state.
func New(cfg Config, deps Deps, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PublishLimit <= 0 {
		cfg.PublishLimit = 10
	}
	metrics.SetPipelineState("", string(StateIdle))
	return &Orchestrator{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		tracer: otel.Tracer("github.com/JakeFAU/newsfeed-curator/internal/pipeline"),
		state:  StateIdle,
	}
}

// State reports the current stage.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastReport returns the report of the most recent finished cycle, or nil.
func (o *Orchestrator) LastReport() *CycleReport {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return nil
	}
	cp := *o.last
	return &cp
}

// tryStart claims the pipeline for a cycle. It returns ErrBusy when a cycle
// is already running.
func (o *Orchestrator) tryStart() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return ErrBusy
	}
	o.state = StateFetching
	metrics.SetPipelineState(string(StateIdle), string(StateFetching))
	return nil
}

func (o *Orchestrator) transition(next State) {
	o.mu.Lock()
	prev := o.state
	o.state = next
	o.mu.Unlock()
	metrics.SetPipelineState(string(prev), string(next))
	o.logger.Debug("pipeline state", zap.String("from", string(prev)), zap.String("to", string(next)))
}

func (o *Orchestrator) finish(report *CycleReport) {
	o.mu.Lock()
	prev := o.state
	o.state = StateIdle
	o.last = report
	o.mu.Unlock()
	metrics.SetPipelineState(string(prev), string(StateIdle))
}

// RunCycle runs one full cycle. It returns ErrBusy immediately if a cycle is
// in progress. Enrichment failures never abort the cycle: they degrade
// through the fallback chain and PERSISTING is always reached.
func (o *Orchestrator) RunCycle(ctx context.Context) (CycleReport, error) {
	if err := o.tryStart(); err != nil {
		o.logger.Warn("cycle requested while busy, dropping", zap.String("state", string(o.State())))
		return CycleReport{}, err
	}
	return o.runClaimed(ctx)
}

// Start claims the pipeline and runs the cycle in the background. The claim
// is synchronous, so a busy pipeline is reported as ErrBusy here rather than
// from the goroutine.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.tryStart(); err != nil {
		o.logger.Warn("cycle requested while busy, dropping", zap.String("state", string(o.State())))
		return err
	}
	go func() {
		if _, err := o.runClaimed(ctx); err != nil {
			o.logger.Error("background cycle failed", zap.Error(err))
		}
	}()
	return nil
}

func (o *Orchestrator) runClaimed(ctx context.Context) (CycleReport, error) {
	report := &CycleReport{StartedAt: o.deps.Clock.Now()}
	defer o.finish(report)

	ctx, span := o.tracer.Start(ctx, "pipeline.cycle")
	defer span.End()

	err := o.run(ctx, report)
	report.FinishedAt = o.deps.Clock.Now()
	duration := report.FinishedAt.Sub(report.StartedAt)

	result := "success"
	switch {
	case err != nil:
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case report.Fallback != FallbackNone:
		result = "degraded"
	}
	metrics.ObserveCycle(result, duration)
	span.SetAttributes(
		attribute.Int("articles.fetched", report.Fetched),
		attribute.Int("articles.inserted", report.Insert.Inserted),
		attribute.String("fallback", report.Fallback.String()),
	)
	o.logger.Info("cycle complete",
		zap.String("result", result),
		zap.Int("fetched", report.Fetched),
		zap.Int("approved", report.Approved),
		zap.Int("inserted", report.Insert.Inserted),
		zap.Int("skipped", report.Insert.Skipped),
		zap.Stringer("fallback", report.Fallback),
		zap.Duration("duration", duration),
	)
	return *report, err
}

func (o *Orchestrator) run(ctx context.Context, report *CycleReport) error {
	// FETCHING
	window := feed.TodayWindow(o.deps.Clock.Now())
	batch := o.fetch(ctx, window)
	report.FeedsAttempted = len(batch.Attempted)
	report.FeedsFailed = len(batch.Failed)
	report.Fetched = len(batch.Articles)

	// CURATING
	approved := batch.Articles
	if o.cfg.CurationEnabled {
		o.transition(StateCurating)
		curated, err := o.curate(ctx, batch.Articles)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("curate: %v", err))
		} else {
			approved = curated.Publishable
			stats := curated.Stats
			report.Curation = &stats
		}
	}
	report.Approved = len(approved)

	// SCRAPING, SUMMARIZING
	var toStore []news.Article
	if len(approved) > 0 {
		enriched, err := o.enrich(ctx, approved, report)
		if err != nil {
			o.logger.Error("enrichment failed, falling back to snippets", zap.Error(err))
			report.Errors = append(report.Errors, fmt.Sprintf("enrich: %v", err))
			enriched = o.fallback(ctx, batch.Articles, report)
		}
		toStore = enriched
	} else {
		o.logger.Info("no articles approved, skipping enrichment")
	}

	// PERSISTING
	o.transition(StatePersisting)
	persistErr := o.persist(ctx, toStore, batch.Attempted, report)

	// PUBLISHING
	if o.cfg.AutoPublish && o.deps.Publisher != nil {
		o.autoPublish(ctx, report)
	}
	return persistErr
}

func (o *Orchestrator) fetch(ctx context.Context, window feed.Window) feed.Batch {
	ctx, span := o.tracer.Start(ctx, "pipeline.fetch")
	defer span.End()
	batch := o.deps.Collector.Collect(ctx, o.deps.Feeds, window)
	metrics.ObserveArticles("fetch", "collected", len(batch.Articles))
	span.SetAttributes(
		attribute.Int("feeds.attempted", len(batch.Attempted)),
		attribute.Int("feeds.failed", len(batch.Failed)),
		attribute.Int("articles", len(batch.Articles)),
	)
	return batch
}

func (o *Orchestrator) curate(ctx context.Context, articles []news.RawArticle) (curator.BatchResult, error) {
	ctx, span := o.tracer.Start(ctx, "pipeline.curate")
	defer span.End()
	res, err := guard(func() (curator.BatchResult, error) {
		return o.deps.Curator.CurateBatch(ctx, articles)
	})
	if err != nil {
		span.RecordError(err)
		return res, err
	}
	span.SetAttributes(attribute.Int("approved", len(res.Publishable)))
	return res, nil
}

func (o *Orchestrator) enrich(ctx context.Context, approved []news.RawArticle, report *CycleReport) ([]news.Article, error) {
	o.transition(StateScraping)
	scrapeCtx, scrapeSpan := o.tracer.Start(ctx, "pipeline.scrape")
	scraped, err := guard(func() ([]news.Article, error) {
		return o.deps.Scraper.ScrapeBatch(scrapeCtx, approved)
	})
	scrapeSpan.End()
	if err != nil {
		return nil, fmt.Errorf("scrape: %w", err)
	}
	for _, a := range scraped {
		if a.Scraped != nil && a.Scraped.Success {
			report.Scraped++
		}
	}

	o.transition(StateSummarizing)
	sumCtx, sumSpan := o.tracer.Start(ctx, "pipeline.summarize")
	summarized, err := guard(func() ([]news.Article, error) {
		return o.deps.Summarizer.SummarizeBatch(sumCtx, scraped)
	})
	sumSpan.End()
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	report.Summarized = len(summarized)
	return summarized, nil
}

// fallback re-curates the fetched articles and rewrites their snippets. If
// that fails too, the articles are stored as fetched.
func (o *Orchestrator) fallback(ctx context.Context, fetched []news.RawArticle, report *CycleReport) []news.Article {
	ctx, span := o.tracer.Start(ctx, "pipeline.fallback")
	defer span.End()

	candidates := fetched
	if o.cfg.CurationEnabled {
		curated, err := o.curate(ctx, fetched)
		if err != nil {
			o.logger.Error("fallback curation failed, using all articles", zap.Error(err))
			report.Errors = append(report.Errors, fmt.Sprintf("fallback curate: %v", err))
		} else {
			candidates = curated.Publishable
		}
	}

	rewritten, err := guard(func() ([]news.Article, error) {
		return o.deps.Summarizer.RewriteSnippets(ctx, candidates)
	})
	if err == nil {
		report.Fallback = FallbackSnippets
		report.Summarized = len(rewritten)
		span.SetAttributes(attribute.String("level", FallbackSnippets.String()))
		return rewritten
	}

	o.logger.Error("snippet rewrite failed, storing raw articles", zap.Error(err))
	report.Errors = append(report.Errors, fmt.Sprintf("rewrite: %v", err))
	report.Fallback = FallbackRaw
	report.Summarized = 0
	span.SetAttributes(attribute.String("level", FallbackRaw.String()))
	return rawArticles(candidates)
}

// rawArticles is the last-resort policy: articles exactly as fetched.
func rawArticles(raw []news.RawArticle) []news.Article {
	return news.FromRaw(raw)
}

func (o *Orchestrator) persist(ctx context.Context, articles []news.Article, attempted []news.FeedSource, report *CycleReport) error {
	ctx, span := o.tracer.Start(ctx, "pipeline.persist")
	defer span.End()

	var insertErr error
	if len(articles) > 0 {
		res, err := o.deps.Store.InsertArticles(ctx, articles)
		report.Insert = res
		if err != nil {
			insertErr = fmt.Errorf("insert articles: %w", err)
			span.RecordError(insertErr)
			report.Errors = append(report.Errors, insertErr.Error())
		}
		metrics.ObserveArticles("persist", "inserted", res.Inserted)
		metrics.ObserveArticles("persist", "skipped", res.Skipped)
		metrics.ObserveArticles("persist", "failed", res.Failed)
	}

	now := o.deps.Clock.Now()
	for _, src := range attempted {
		if err := o.deps.Store.UpdateFeedLastFetched(ctx, src.FeedURL, now); err != nil {
			o.logger.Warn("update feed last fetched failed", zap.String("feed_url", src.FeedURL), zap.Error(err))
			report.Errors = append(report.Errors, fmt.Sprintf("touch feed %s: %v", src.FeedURL, err))
		}
	}
	span.SetAttributes(
		attribute.Int("inserted", report.Insert.Inserted),
		attribute.Int("skipped", report.Insert.Skipped),
	)
	return insertErr
}

func (o *Orchestrator) autoPublish(ctx context.Context, report *CycleReport) {
	today, err := o.deps.Store.TodaysArticles(ctx, o.cfg.PublishLimit)
	if err != nil {
		o.logger.Warn("auto-publish skipped, cannot read today's articles", zap.Error(err))
		return
	}
	if len(today) == 0 {
		return
	}
	o.transition(StatePublishing)
	ctx, span := o.tracer.Start(ctx, "pipeline.publish")
	defer span.End()

	opts := publisher.DefaultOptions()
	opts.Limit = o.cfg.PublishLimit
	res, err := guard(func() (publisher.Result, error) {
		return o.deps.Publisher.Publish(ctx, opts)
	})
	if err != nil {
		o.logger.Error("auto-publish failed", zap.Error(err))
		span.RecordError(err)
		report.Errors = append(report.Errors, fmt.Sprintf("publish: %v", err))
		return
	}
	report.Publish = &res
}

// guard turns a panic in fn into an error.
func guard[T any](fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
