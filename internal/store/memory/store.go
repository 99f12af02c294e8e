// Package memory is a process-local article store for tests and one-off
// runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/newsfeed-curator/internal/news"
	"github.com/JakeFAU/newsfeed-curator/internal/store"
)

// Store keeps articles and feeds in maps guarded by a mutex.
type Store struct {
	mu       sync.RWMutex
	articles map[string]news.PersistedArticle
	feeds    map[string]news.FeedSource
	clock    news.Clock
	ids      news.IDGenerator
	logger   *zap.Logger
}

var _ news.ArticleStore = (*Store)(nil)

// New creates an empty store.
func New(clock news.Clock, ids news.IDGenerator, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		articles: make(map[string]news.PersistedArticle),
		feeds:    make(map[string]news.FeedSource),
		clock:    clock,
		ids:      ids,
		logger:   logger,
	}
}

// InsertArticles stores each article, counting dedup-key collisions as
// skipped.
func (s *Store) InsertArticles(ctx context.Context, articles []news.Article) (news.InsertResult, error) {
	return store.InsertEach(ctx, s.logger, articles, s.insertOne, nil), nil
}

func (s *Store) insertOne(_ context.Context, a news.Article) error {
	id, err := s.ids.NewID()
	if err != nil {
		return err
	}
	key := a.DedupKey()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.articles[key]; ok {
		return store.ErrDuplicate
	}
	s.articles[key] = news.PersistedArticle{
		ID:              id,
		DedupKey:        key,
		GUID:            a.GUID,
		Title:           a.Title,
		Link:            a.Link,
		PubDate:         a.PubDate,
		Snippet:         a.StoredSnippet(),
		OriginalSnippet: a.OriginalSnippet,
		Summary:         a.Summary,
		ImageURL:        a.ImageURL,
		FeedTitle:       a.FeedTitle,
		FeedURL:         a.FeedURL,
		Category:        a.Category,
		UsedFullContent: a.UsedFullContent,
		CreatedAt:       s.clock.Now(),
	}
	return nil
}

// InsertFeeds upserts feeds, preserving any recorded fetch time.
func (s *Store) InsertFeeds(_ context.Context, feeds []news.FeedSource) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range feeds {
		if prev, ok := s.feeds[f.FeedURL]; ok {
			f.LastFetchedAt = prev.LastFetchedAt
		}
		s.feeds[f.FeedURL] = f
	}
	return len(feeds), nil
}

// UpdateFeedLastFetched records when a feed was last attempted. Unknown
// feeds are ignored, as an UPDATE would be.
func (s *Store) UpdateFeedLastFetched(_ context.Context, feedURL string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.feeds[feedURL]
	if !ok {
		return nil
	}
	f.LastFetchedAt = &at
	s.feeds[feedURL] = f
	return nil
}

// Feed returns a copy of the stored feed.
func (s *Store) Feed(feedURL string) (news.FeedSource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.feeds[feedURL]
	return f, ok
}

// TodaysArticles returns articles published since local midnight.
func (s *Store) TodaysArticles(_ context.Context, limit int) ([]news.PersistedArticle, error) {
	start, end := store.DayBounds(s.clock.Now())
	return s.filter(func(a news.PersistedArticle) bool {
		return !a.PubDate.Before(start) && a.PubDate.Before(end)
	}, store.OrDefault(limit, store.DefaultTodayLimit)), nil
}

// ArticlesByCategory returns the newest articles in category.
func (s *Store) ArticlesByCategory(_ context.Context, category string, limit int) ([]news.PersistedArticle, error) {
	return s.filter(func(a news.PersistedArticle) bool {
		return a.Category == category
	}, store.OrDefault(limit, store.DefaultCategoryLimit)), nil
}

// RecentArticles returns articles published in the last days.
func (s *Store) RecentArticles(_ context.Context, days, limit int) ([]news.PersistedArticle, error) {
	since := s.clock.Now().AddDate(0, 0, -store.OrDefault(days, store.DefaultRecentDays))
	return s.filter(func(a news.PersistedArticle) bool {
		return !a.PubDate.Before(since)
	}, store.OrDefault(limit, store.DefaultRecentLimit)), nil
}

// ArticleStats counts articles per category, largest first.
func (s *Store) ArticleStats(context.Context) ([]news.CategoryCount, error) {
	s.mu.RLock()
	counts := make(map[string]int)
	for _, a := range s.articles {
		counts[a.Category]++
	}
	s.mu.RUnlock()

	out := make([]news.CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, news.CategoryCount{Category: c, ArticleCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ArticleCount != out[j].ArticleCount {
			return out[i].ArticleCount > out[j].ArticleCount
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) filter(keep func(news.PersistedArticle) bool, limit int) []news.PersistedArticle {
	s.mu.RLock()
	var out []news.PersistedArticle
	for _, a := range s.articles {
		if keep(a) {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].PubDate.Equal(out[j].PubDate) {
			return out[i].PubDate.After(out[j].PubDate)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
