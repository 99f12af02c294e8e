// Package postgres is the Postgres article store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/JakeFAU/newsfeed-curator/internal/news"
	"github.com/JakeFAU/newsfeed-curator/internal/store"
)

const uniqueViolation = "23505"

// Config controls the connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// Store implements news.ArticleStore on Postgres.
type Store struct {
	pool    pool
	dialect store.Dialect
	clock   news.Clock
	ids     news.IDGenerator
	logger  *zap.Logger
}

var _ news.ArticleStore = (*Store)(nil)

// New connects a pool described by cfg.
func New(ctx context.Context, cfg Config, clock news.Clock, ids news.IDGenerator, logger *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewWithPool(p, clock, ids, logger)
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, clock news.Clock, ids news.IDGenerator, logger *zap.Logger) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if clock == nil || ids == nil {
		return nil, fmt.Errorf("clock and id generator are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: p, dialect: store.Postgres, clock: clock, ids: ids, logger: logger}, nil
}

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range store.PostgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// InsertArticles stores each article, counting dedup-key collisions as
// skipped.
func (s *Store) InsertArticles(ctx context.Context, articles []news.Article) (news.InsertResult, error) {
	return store.InsertEach(ctx, s.logger, articles, s.insertOne, isUniqueViolation), nil
}

func (s *Store) insertOne(ctx context.Context, a news.Article) error {
	id, err := s.ids.NewID()
	if err != nil {
		return err
	}
	query, args, err := s.dialect.InsertArticle(id, a, s.clock.Now()).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// InsertFeeds upserts feed rows and returns how many were written.
func (s *Store) InsertFeeds(ctx context.Context, feeds []news.FeedSource) (int, error) {
	written := 0
	for _, f := range feeds {
		query, args, err := s.dialect.UpsertFeed(f).ToSql()
		if err != nil {
			return written, fmt.Errorf("build feed upsert: %w", err)
		}
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return written, fmt.Errorf("upsert feed %s: %w", f.FeedURL, err)
		}
		written++
	}
	return written, nil
}

// UpdateFeedLastFetched records when a feed was last attempted.
func (s *Store) UpdateFeedLastFetched(ctx context.Context, feedURL string, at time.Time) error {
	query, args, err := s.dialect.TouchFeed(feedURL, at).ToSql()
	if err != nil {
		return fmt.Errorf("build feed update: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update feed %s: %w", feedURL, err)
	}
	return nil
}

// TodaysArticles returns articles published since local midnight.
func (s *Store) TodaysArticles(ctx context.Context, limit int) ([]news.PersistedArticle, error) {
	start, end := store.DayBounds(s.clock.Now())
	return s.selectArticles(ctx, store.Filter{Since: start, Until: end, Limit: store.OrDefault(limit, store.DefaultTodayLimit)})
}

// ArticlesByCategory returns the newest articles in category.
func (s *Store) ArticlesByCategory(ctx context.Context, category string, limit int) ([]news.PersistedArticle, error) {
	return s.selectArticles(ctx, store.Filter{Category: category, Limit: store.OrDefault(limit, store.DefaultCategoryLimit)})
}

// RecentArticles returns articles published in the last days.
func (s *Store) RecentArticles(ctx context.Context, days, limit int) ([]news.PersistedArticle, error) {
	since := s.clock.Now().AddDate(0, 0, -store.OrDefault(days, store.DefaultRecentDays))
	return s.selectArticles(ctx, store.Filter{Since: since, Limit: store.OrDefault(limit, store.DefaultRecentLimit)})
}

// ArticleStats counts articles per category.
func (s *Store) ArticleStats(ctx context.Context) ([]news.CategoryCount, error) {
	query, args, err := s.dialect.CategoryStats().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stats query: %w", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var out []news.CategoryCount
	for rows.Next() {
		var c news.CategoryCount
		if err := rows.Scan(&c.Category, &c.ArticleCount); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return out, nil
}

func (s *Store) selectArticles(ctx context.Context, f store.Filter) ([]news.PersistedArticle, error) {
	query, args, err := s.dialect.SelectArticles(f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build article query: %w", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var out []news.PersistedArticle
	for rows.Next() {
		var a news.PersistedArticle
		if err := rows.Scan(
			&a.ID, &a.DedupKey, &a.GUID, &a.Title, &a.Link, &a.Snippet, &a.OriginalSnippet,
			&a.Summary.Short, &a.Summary.Medium, &a.Summary.Long, &a.ImageURL, &a.PubDate,
			&a.FeedTitle, &a.FeedURL, &a.Category, &a.UsedFullContent, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return out, nil
}
