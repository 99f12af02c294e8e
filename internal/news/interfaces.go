package news

import (
	"context"
	"time"
)

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces article IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Hasher computes content digests.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Completer issues a single prompt to a language model and returns free text.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ScrapeBackend extracts the main content of a page as markdown.
type ScrapeBackend interface {
	ScrapeURL(ctx context.Context, url string, opts ScrapeOptions) (ScrapeResult, error)
}

// Notifier pushes publish events to Pub/Sub (or similar).
type Notifier interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// ArticleReader exposes the read-only query surface of the store.
type ArticleReader interface {
	TodaysArticles(ctx context.Context, limit int) ([]PersistedArticle, error)
	ArticlesByCategory(ctx context.Context, category string, limit int) ([]PersistedArticle, error)
	RecentArticles(ctx context.Context, days, limit int) ([]PersistedArticle, error)
	ArticleStats(ctx context.Context) ([]CategoryCount, error)
}

// ArticleStore persists articles and feed bookkeeping.
type ArticleStore interface {
	ArticleReader
	InsertArticles(ctx context.Context, articles []Article) (InsertResult, error)
	InsertFeeds(ctx context.Context, feeds []FeedSource) (int, error)
	UpdateFeedLastFetched(ctx context.Context, feedURL string, at time.Time) error
	Ping(ctx context.Context) error
	Close() error
}
