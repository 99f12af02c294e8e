// Package publisher renders stored articles into static blog posts and
// writes them to a publish target. The target's existence check is the
// idempotency oracle: a post whose filename is already present is skipped
// unless the caller forces an overwrite.
package publisher

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/newsfeed-curator/internal/hash/sha256"
	"github.com/JakeFAU/newsfeed-curator/internal/metrics"
	"github.com/JakeFAU/newsfeed-curator/internal/news"
)

// DefaultDaysToKeep is the retention window used by Cleanup.
const DefaultDaysToKeep = 30

// Target stores published units by name.
type Target interface {
	Exists(ctx context.Context, name string) (bool, error)
	Write(ctx context.Context, name string, data []byte) (string, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// Options selects and controls a publish run.
type Options struct {
	OnlyToday    bool   `json:"only_today"`
	Days         int    `json:"days"`
	Limit        int    `json:"limit"`
	Category     string `json:"category,omitempty"`
	SkipExisting bool   `json:"skip_existing"`
}

// DefaultOptions publishes today's ten newest articles without overwriting.
func DefaultOptions() Options {
	return Options{OnlyToday: true, Days: 1, Limit: 10, SkipExisting: true}
}

// UnitResult reports what happened to one article.
type UnitResult struct {
	Filename string `json:"filename,omitempty"`
	Title    string `json:"title"`
	URI      string `json:"uri,omitempty"`
	Skipped  bool   `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Result summarizes a publish run.
type Result struct {
	Published int          `json:"published"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Total     int          `json:"total"`
	Units     []UnitResult `json:"units"`
}

// PreviewItem describes what Publish would do for one article.
type PreviewItem struct {
	Filename  string `json:"filename"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	Exists    bool   `json:"exists"`
	WouldSkip bool   `json:"would_skip"`
}

// Preview is a dry run of Publish.
type Preview struct {
	Items    []PreviewItem `json:"items"`
	Total    int           `json:"total"`
	Existing int           `json:"existing"`
	New      int           `json:"new"`
}

// CleanupResult reports a retention pass.
type CleanupResult struct {
	Deleted []string `json:"deleted"`
	Kept    int      `json:"kept"`
}

// Event is the notification payload for each written unit.
type Event struct {
	Filename    string    `json:"filename"`
	URI         string    `json:"uri"`
	Hash        string    `json:"hash"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
}

// Config tunes the publisher.
type Config struct {
	Ext   string
	Topic string
}

// Publisher selects stored articles and writes them to a Target.
type Publisher struct {
	reader   news.ArticleReader
	target   Target
	notifier news.Notifier
	clock    news.Clock
	ext      string
	topic    string
	logger   *zap.Logger
}

// New builds a Publisher. notifier may be nil.
func New(cfg Config, reader news.ArticleReader, target Target, notifier news.Notifier, clock news.Clock, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	ext := cfg.Ext
	if ext == "" {
		ext = DefaultExt
	}
	return &Publisher{
		reader:   reader,
		target:   target,
		notifier: notifier,
		clock:    clock,
		ext:      ext,
		topic:    cfg.Topic,
		logger:   logger,
	}
}

func (p *Publisher) candidates(ctx context.Context, opts Options) ([]news.PersistedArticle, error) {
	var (
		articles []news.PersistedArticle
		err      error
	)
	switch {
	case opts.OnlyToday:
		articles, err = p.reader.TodaysArticles(ctx, opts.Limit)
	case opts.Category != "":
		articles, err = p.reader.ArticlesByCategory(ctx, opts.Category, opts.Limit)
	default:
		articles, err = p.reader.RecentArticles(ctx, opts.Days, opts.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("select articles: %w", err)
	}
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PubDate.After(articles[j].PubDate)
	})
	return articles, nil
}

// Publish renders and writes the selected articles.
func (p *Publisher) Publish(ctx context.Context, opts Options) (Result, error) {
	articles, err := p.candidates(ctx, opts)
	if err != nil {
		return Result{}, err
	}
	res := Result{Total: len(articles)}
	for _, a := range articles {
		unit := p.publishOne(ctx, a, opts.SkipExisting)
		switch {
		case unit.Error != "":
			res.Failed++
		case unit.Skipped:
			res.Skipped++
		default:
			res.Published++
		}
		res.Units = append(res.Units, unit)
	}

	metrics.ObserveArticles("publish", "published", res.Published)
	metrics.ObserveArticles("publish", "skipped", res.Skipped)
	metrics.ObserveArticles("publish", "failed", res.Failed)
	p.logger.Info("publishing complete",
		zap.Int("published", res.Published),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Int("total", res.Total),
	)
	return res, nil
}

func (p *Publisher) publishOne(ctx context.Context, a news.PersistedArticle, skipExisting bool) UnitResult {
	unit, err := Render(a, p.ext)
	if err != nil {
		p.logger.Error("render failed", zap.String("title", a.Title), zap.Error(err))
		return UnitResult{Title: a.Title, Error: err.Error()}
	}
	out := UnitResult{Filename: unit.Filename, Title: a.Title}

	if skipExisting {
		exists, err := p.target.Exists(ctx, unit.Filename)
		if err != nil {
			p.logger.Error("existence check failed", zap.String("filename", unit.Filename), zap.Error(err))
			out.Error = err.Error()
			return out
		}
		if exists {
			p.logger.Debug("skipping existing post", zap.String("filename", unit.Filename))
			out.Skipped = true
			return out
		}
	}

	uri, err := p.target.Write(ctx, unit.Filename, unit.Content)
	if err != nil {
		p.logger.Error("write failed", zap.String("filename", unit.Filename), zap.Error(err))
		out.Error = err.Error()
		return out
	}
	out.URI = uri
	p.logger.Info("published", zap.String("filename", unit.Filename), zap.String("uri", uri))
	p.notify(ctx, Event{
		Filename:    unit.Filename,
		URI:         uri,
		Hash:        sha256.Sum(unit.Content),
		Title:       a.Title,
		Link:        a.Link,
		PublishedAt: p.clock.Now(),
	})
	return out
}

func (p *Publisher) notify(ctx context.Context, ev Event) {
	if p.notifier == nil {
		return
	}
	if _, err := p.notifier.Publish(ctx, p.topic, ev); err != nil {
		p.logger.Warn("publish notification failed", zap.String("filename", ev.Filename), zap.Error(err))
	}
}

// Preview reports what Publish would do without writing anything.
func (p *Publisher) Preview(ctx context.Context, opts Options) (Preview, error) {
	articles, err := p.candidates(ctx, opts)
	if err != nil {
		return Preview{}, err
	}
	out := Preview{Total: len(articles), Items: make([]PreviewItem, 0, len(articles))}
	for _, a := range articles {
		name := Filename(a.PubDate, ArticleSlug(a), p.ext)
		exists, err := p.target.Exists(ctx, name)
		if err != nil {
			return Preview{}, fmt.Errorf("check %s: %w", name, err)
		}
		if exists {
			out.Existing++
		} else {
			out.New++
		}
		out.Items = append(out.Items, PreviewItem{
			Filename:  name,
			Title:     a.Title,
			Date:      a.PubDate.UTC().Format(time.DateOnly),
			Exists:    exists,
			WouldSkip: exists && opts.SkipExisting,
		})
	}
	return out, nil
}

// Cleanup deletes units whose filename date is older than daysToKeep days.
// Names without a date prefix are left alone.
func (p *Publisher) Cleanup(ctx context.Context, daysToKeep int) (CleanupResult, error) {
	if daysToKeep <= 0 {
		daysToKeep = DefaultDaysToKeep
	}
	names, err := p.target.List(ctx)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("list published: %w", err)
	}
	y, m, d := p.clock.Now().UTC().Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -daysToKeep)

	var res CleanupResult
	for _, name := range names {
		date, ok := DateFromFilename(name)
		if !ok || !date.Before(cutoff) {
			res.Kept++
			continue
		}
		if err := p.target.Delete(ctx, name); err != nil {
			return res, fmt.Errorf("delete %s: %w", name, err)
		}
		p.logger.Info("deleted old post", zap.String("filename", name))
		res.Deleted = append(res.Deleted, name)
	}
	return res, nil
}
