package store

import (
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/JakeFAU/newsfeed-curator/internal/news"
)

// Dialect adapts the shared builders to a SQL backend.
type Dialect struct {
	Placeholder sq.PlaceholderFormat
	// Time converts a timestamp into the backend's bind value.
	Time func(time.Time) any
}

// SQLiteTimeLayout sorts lexicographically in chronological order for UTC
// values.
const SQLiteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Postgres binds timestamps natively.
var Postgres = Dialect{
	Placeholder: sq.Dollar,
	Time:        func(t time.Time) any { return t },
}

// SQLite stores timestamps as fixed-width UTC text.
var SQLite = Dialect{
	Placeholder: sq.Question,
	Time:        func(t time.Time) any { return t.UTC().Format(SQLiteTimeLayout) },
}

// ArticleColumns is the select list every backend scans in this order.
var ArticleColumns = []string{
	"id", "dedup_key", "guid", "title", "link", "snippet", "original_snippet",
	"summary_short", "summary", "summary_long", "image_url", "pub_date",
	"feed_title", "feed_url", "category", "used_full_content", "created_at",
}

func (d Dialect) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.Placeholder)
}

// InsertArticle builds the insert for one enriched article.
func (d Dialect) InsertArticle(id string, a news.Article, createdAt time.Time) sq.InsertBuilder {
	return d.builder().Insert("articles").
		Columns(ArticleColumns...).
		Values(
			id, a.DedupKey(), a.GUID, a.Title, a.Link, a.StoredSnippet(), a.OriginalSnippet,
			a.Summary.Short, a.Summary.Medium, a.Summary.Long, a.ImageURL, d.Time(a.PubDate),
			a.FeedTitle, a.FeedURL, a.Category, a.UsedFullContent, d.Time(createdAt),
		)
}

// UpsertFeed inserts a feed or refreshes its descriptive columns.
func (d Dialect) UpsertFeed(f news.FeedSource) sq.InsertBuilder {
	return d.builder().Insert("feeds").
		Columns("feed_url", "title", "site_url", "category").
		Values(f.FeedURL, f.Title, f.SiteURL, f.Category).
		Suffix("ON CONFLICT (feed_url) DO UPDATE SET title = excluded.title, site_url = excluded.site_url, category = excluded.category")
}

// TouchFeed sets last_fetched_at for a feed.
func (d Dialect) TouchFeed(feedURL string, at time.Time) sq.UpdateBuilder {
	return d.builder().Update("feeds").
		Set("last_fetched_at", d.Time(at)).
		Where(sq.Eq{"feed_url": feedURL})
}

// Filter narrows an article query.
type Filter struct {
	Since    time.Time
	Until    time.Time
	Category string
	Limit    int
}

// SelectArticles returns articles matching f, newest publication first.
func (d Dialect) SelectArticles(f Filter) sq.SelectBuilder {
	q := d.builder().Select(ArticleColumns...).From("articles")
	if !f.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"pub_date": d.Time(f.Since)})
	}
	if !f.Until.IsZero() {
		q = q.Where(sq.Lt{"pub_date": d.Time(f.Until)})
	}
	if f.Category != "" {
		q = q.Where(sq.Eq{"category": f.Category})
	}
	q = q.OrderBy("pub_date DESC", "id DESC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	return q
}

// CategoryStats counts articles per category, largest first.
func (d Dialect) CategoryStats() sq.SelectBuilder {
	return d.builder().
		Select("category", "COUNT(*) AS article_count").
		From("articles").
		GroupBy("category").
		OrderBy("article_count DESC", "category ASC")
}
