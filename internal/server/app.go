// Package server wires configuration into the running service: store,
// publisher, pipeline, HTTP API and scheduler.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/newsfeed-curator/internal/api"
	"github.com/JakeFAU/newsfeed-curator/internal/clock/system"
	"github.com/JakeFAU/newsfeed-curator/internal/config"
	"github.com/JakeFAU/newsfeed-curator/internal/curator"
	"github.com/JakeFAU/newsfeed-curator/internal/feed"
	collyfetcher "github.com/JakeFAU/newsfeed-curator/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/newsfeed-curator/internal/fetcher/headless"
	"github.com/JakeFAU/newsfeed-curator/internal/headless/detector"
	"github.com/JakeFAU/newsfeed-curator/internal/id/uuid"
	"github.com/JakeFAU/newsfeed-curator/internal/llm"
	"github.com/JakeFAU/newsfeed-curator/internal/metrics"
	"github.com/JakeFAU/newsfeed-curator/internal/news"
	notifymemory "github.com/JakeFAU/newsfeed-curator/internal/notify/memory"
	notifypubsub "github.com/JakeFAU/newsfeed-curator/internal/notify/pubsub"
	"github.com/JakeFAU/newsfeed-curator/internal/pipeline"
	"github.com/JakeFAU/newsfeed-curator/internal/policy/scrapeable"
	"github.com/JakeFAU/newsfeed-curator/internal/publisher"
	gcstarget "github.com/JakeFAU/newsfeed-curator/internal/publisher/target/gcs"
	localtarget "github.com/JakeFAU/newsfeed-curator/internal/publisher/target/local"
	"github.com/JakeFAU/newsfeed-curator/internal/scraper"
	"github.com/JakeFAU/newsfeed-curator/internal/scraper/firecrawl"
	"github.com/JakeFAU/newsfeed-curator/internal/scraper/readability"
	"github.com/JakeFAU/newsfeed-curator/internal/store/memory"
	"github.com/JakeFAU/newsfeed-curator/internal/store/postgres"
	"github.com/JakeFAU/newsfeed-curator/internal/store/sqlite"
	"github.com/JakeFAU/newsfeed-curator/internal/summarizer"
	"github.com/JakeFAU/newsfeed-curator/internal/telemetry"
)

// Options select which parts of the service Build constructs.
type Options struct {
	// Pipeline builds the feed, LLM and scrape collaborators. Read-only
	// commands leave it off so they run without API keys.
	Pipeline bool
	// Telemetry installs the global tracer and meter providers.
	Telemetry bool
}

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	clock     *system.Clock
	store     news.ArticleStore
	publisher *publisher.Publisher
	pipeline  *pipeline.Orchestrator

	renderer   headlessfetcher.Renderer
	gcs        *storage.Client
	pubsub     *notifypubsub.Notifier
	telemetry  *telemetry.Providers
	httpServer *http.Server
}

// Build constructs the App. Partially built resources are released when a
// later step fails.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := cfg.App.Location()
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, logger: logger, clock: system.New(loc)}
	defer func() {
		if err != nil {
			a.Close(context.Background())
		}
	}()

	metrics.Init()
	if opts.Telemetry {
		if a.telemetry, err = telemetry.Init(ctx, cfg.Telemetry); err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
	}

	if a.store, err = a.buildStore(ctx); err != nil {
		return nil, err
	}
	if len(cfg.Feeds) > 0 {
		n, err := a.store.InsertFeeds(ctx, cfg.Feeds)
		if err != nil {
			return nil, fmt.Errorf("seed feeds: %w", err)
		}
		logger.Info("feeds seeded", zap.Int("count", n))
	}

	target, err := a.buildTarget(ctx)
	if err != nil {
		return nil, err
	}
	notifier, err := a.buildNotifier(ctx)
	if err != nil {
		return nil, err
	}
	a.publisher = publisher.New(publisher.Config{
		Ext:   cfg.Publisher.Ext,
		Topic: cfg.Notify.Topic,
	}, a.store, target, notifier, a.clock, logger.Named("publisher"))

	if opts.Pipeline {
		if a.pipeline, err = a.buildPipeline(); err != nil {
			return nil, err
		}
	}

	logger.Info("application built",
		zap.String("store", cfg.Store.Driver),
		zap.String("publish_target", cfg.Publisher.Target),
		zap.String("notify", cfg.Notify.Backend),
		zap.Bool("pipeline", opts.Pipeline),
	)
	return a, nil
}

func (a *App) buildStore(ctx context.Context) (news.ArticleStore, error) {
	ids := uuid.New()
	logger := a.logger.Named("store")
	switch a.cfg.Store.Driver {
	case config.DriverPostgres:
		pg, err := postgres.New(ctx, postgres.Config{
			DSN:             a.cfg.Store.DSN,
			MaxConns:        a.cfg.Store.MaxConns,
			MinConns:        a.cfg.Store.MinConns,
			MaxConnLifetime: a.cfg.Store.MaxConnLifetime,
		}, a.clock, ids, logger)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		return pg, nil
	case config.DriverSQLite:
		lite, err := sqlite.Open(ctx, a.cfg.Store.Path, a.clock, ids, logger)
		if err != nil {
			return nil, err
		}
		return lite, nil
	case config.DriverMemory:
		return memory.New(a.clock, ids, logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", a.cfg.Store.Driver)
	}
}

func (a *App) buildTarget(ctx context.Context) (publisher.Target, error) {
	switch a.cfg.Publisher.Target {
	case config.TargetLocal:
		t, err := localtarget.New(localtarget.Config{Dir: a.cfg.Publisher.Dir})
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.TargetGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		a.gcs = client
		t, err := gcstarget.New(client, gcstarget.Config{
			Bucket:      a.cfg.Publisher.Bucket,
			Prefix:      a.cfg.Publisher.Prefix,
			ContentType: a.cfg.Publisher.ContentType,
		})
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported publish target %q", a.cfg.Publisher.Target)
	}
}

func (a *App) buildNotifier(ctx context.Context) (news.Notifier, error) {
	switch a.cfg.Notify.Backend {
	case config.NotifyPubSub:
		n, err := notifypubsub.New(ctx, a.cfg.Notify.ProjectID, a.cfg.Notify.Topic)
		if err != nil {
			return nil, err
		}
		a.pubsub = n
		return n, nil
	case config.NotifyMemory:
		return notifymemory.New(), nil
	default:
		return nil, nil
	}
}

func (a *App) buildPipeline() (*pipeline.Orchestrator, error) {
	cfg := a.cfg
	if err := cfg.PipelineReady(); err != nil {
		return nil, err
	}

	completer, err := llm.New(llm.Config{
		Endpoint:     cfg.LLM.Endpoint,
		Model:        cfg.LLM.Model,
		APIKey:       cfg.LLM.APIKey,
		SystemPrompt: cfg.LLM.SystemPrompt,
		Timeout:      cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init llm client: %w", err)
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Feed.UserAgent,
		RespectRobots: cfg.Feed.RespectRobots,
		Timeout:       cfg.Feed.Timeout,
		MaxBodyBytes:  cfg.Feed.MaxBodyBytes,
	})
	feeds := feed.New(feed.Config{
		BatchSize:     cfg.Feed.BatchSize,
		BatchPause:    cfg.Feed.BatchPause,
		MaxRetries:    cfg.Feed.MaxRetries,
		RetryDelay:    cfg.Feed.RetryDelay,
		SnippetLength: cfg.Feed.SnippetLength,
	}, fetcher, a.logger.Named("feed"))

	backend, err := a.buildScrapeBackend(fetcher)
	if err != nil {
		return nil, err
	}
	opts := scraper.DefaultOptions
	opts.Timeout = cfg.Scraper.Timeout
	scrapes := scraper.New(scraper.Config{
		MaxAttempts: cfg.Scraper.MaxAttempts,
		Backoff:     cfg.Scraper.Backoff,
		Delay:       cfg.Scraper.Delay,
		Options:     opts,
	}, backend, scrapeable.Default(cfg.Scraper.BlockedHosts...), a.logger.Named("scraper"))

	deps := pipeline.Deps{
		Feeds:     cfg.Feeds,
		Collector: feeds,
		Scraper:   scrapes,
		Summarizer: summarizer.New(summarizer.Config{
			Topic:        cfg.Summarizer.Topic,
			MaxContent:   cfg.Summarizer.MaxContent,
			Delay:        cfg.Summarizer.Delay,
			RewriteDelay: cfg.Summarizer.RewriteDelay,
		}, completer, a.logger.Named("summarizer")),
		Store:     a.store,
		Publisher: a.publisher,
		Clock:     a.clock,
	}
	if cfg.Curator.Enabled {
		deps.Curator = curator.New(curator.Config{
			Topic:    cfg.Curator.Topic,
			Delay:    cfg.Curator.Delay,
			CacheTTL: cfg.Curator.CacheTTL,
		}, completer, a.clock, a.logger.Named("curator"))
	}

	return pipeline.New(pipeline.Config{
		CurationEnabled: cfg.Curator.Enabled,
		AutoPublish:     cfg.Pipeline.AutoPublish,
		PublishLimit:    cfg.Pipeline.PublishLimit,
	}, deps, a.logger.Named("pipeline")), nil
}

func (a *App) buildScrapeBackend(fetcher *collyfetcher.Fetcher) (news.ScrapeBackend, error) {
	cfg := a.cfg.Scraper
	if cfg.Backend == config.BackendFirecrawl {
		client, err := firecrawl.New(firecrawl.Config{
			BaseURL: cfg.Firecrawl.BaseURL,
			APIKey:  cfg.Firecrawl.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init firecrawl client: %w", err)
		}
		return client, nil
	}

	var renderer headlessfetcher.Renderer = headlessfetcher.Noop{}
	if cfg.Headless.Enabled {
		r, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         a.cfg.Feed.UserAgent,
			NavigationTimeout: cfg.Headless.NavTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init headless renderer: %w", err)
		}
		renderer = r
	}
	a.renderer = renderer
	return readability.New(fetcher, renderer, detector.NewHeuristic(cfg.Headless.PromotionThresh), a.logger.Named("readability")), nil
}

// Store returns the article store.
func (a *App) Store() news.ArticleStore { return a.store }

// Publisher returns the blog publisher.
func (a *App) Publisher() *publisher.Publisher { return a.publisher }

// Pipeline returns the orchestrator, or nil when Build ran without it.
func (a *App) Pipeline() *pipeline.Orchestrator { return a.pipeline }

// RunOnce runs a single cycle in the foreground.
func (a *App) RunOnce(ctx context.Context) (pipeline.CycleReport, error) {
	if a.pipeline == nil {
		return pipeline.CycleReport{}, errors.New("pipeline was not built")
	}
	return a.pipeline.RunCycle(ctx)
}

// Run serves the HTTP API and runs scheduled cycles until SIGINT/SIGTERM or
// ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return errors.New("pipeline was not built")
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiServer := api.NewServer(ctx, api.Config{APIKey: a.cfg.HTTP.APIKey},
		a.pipeline, a.store, a.publisher, a.store, a.logger)
	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.HTTP.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: a.cfg.HTTP.ReadHeaderTimeout,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.HTTP.Port))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()
	go Schedule(ctx, a.cfg.Pipeline.Interval, a.pipeline, a.logger.Named("scheduler"))

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	return nil
}

// Close releases every resource Build acquired. It is safe on a partially
// built App.
func (a *App) Close(ctx context.Context) {
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("store close failed", zap.Error(err))
		}
	}
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}
	a.logger.Info("shutdown complete")
}
