// Package sqlite is the embedded article store, backed by the pure-Go
// modernc SQLite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/JakeFAU/newsfeed-curator/internal/news"
	"github.com/JakeFAU/newsfeed-curator/internal/store"
)

// Store implements news.ArticleStore on a single SQLite file.
type Store struct {
	db      *sql.DB
	dialect store.Dialect
	clock   news.Clock
	ids     news.IDGenerator
	logger  *zap.Logger
}

var _ news.ArticleStore = (*Store)(nil)

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string, clock news.Clock, ids news.IDGenerator, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("storage.sqlite.path is required")
	}
	if clock == nil || ids == nil {
		return nil, fmt.Errorf("clock and id generator are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?mode=rwc&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; the pipeline is single-flight anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	s := &Store{db: db, dialect: store.SQLite, clock: clock, ids: ids, logger: logger}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range store.SQLiteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertArticles stores each article, counting dedup-key collisions as
// skipped.
func (s *Store) InsertArticles(ctx context.Context, articles []news.Article) (news.InsertResult, error) {
	return store.InsertEach(ctx, s.logger, articles, s.insertOne, isConstraintViolation), nil
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
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// InsertFeeds upserts feed rows and returns how many were written.
func (s *Store) InsertFeeds(ctx context.Context, feeds []news.FeedSource) (int, error) {
	written := 0
	for _, f := range feeds {
		query, args, err := s.dialect.UpsertFeed(f).ToSql()
		if err != nil {
			return written, fmt.Errorf("build feed upsert: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
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
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update feed %s: %w", feedURL, err)
	}
	return nil
}

// FeedLastFetched returns the recorded fetch time of a feed, nil when the
// feed was never attempted.
func (s *Store) FeedLastFetched(ctx context.Context, feedURL string) (*time.Time, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT last_fetched_at FROM feeds WHERE feed_url = ?", feedURL).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("query feed %s: %w", feedURL, err)
	}
	if !raw.Valid {
		return nil, nil
	}
	at, err := time.Parse(store.SQLiteTimeLayout, raw.String)
	if err != nil {
		return nil, fmt.Errorf("parse last_fetched_at: %w", err)
	}
	return &at, nil
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
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

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
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []news.PersistedArticle
	for rows.Next() {
		var (
			a                  news.PersistedArticle
			pubDate, createdAt string
		)
		if err := rows.Scan(
			&a.ID, &a.DedupKey, &a.GUID, &a.Title, &a.Link, &a.Snippet, &a.OriginalSnippet,
			&a.Summary.Short, &a.Summary.Medium, &a.Summary.Long, &a.ImageURL, &pubDate,
			&a.FeedTitle, &a.FeedURL, &a.Category, &a.UsedFullContent, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if a.PubDate, err = time.Parse(store.SQLiteTimeLayout, pubDate); err != nil {
			return nil, fmt.Errorf("parse pub_date: %w", err)
		}
		if a.CreatedAt, err = time.Parse(store.SQLiteTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return out, nil
}
