package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/newsfeed-curator/internal/news"
	"github.com/JakeFAU/newsfeed-curator/internal/store"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type seqIDs struct{ n int }

func (g *seqIDs) NewID() (string, error) {
	g.n++
	return "id-" + string(rune('0'+g.n)), nil
}

var now = time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	s, err := NewWithPool(mock, fixedClock{now: now}, &seqIDs{}, nil)
	require.NoError(t, err)
	return s, mock
}

func TestInsertArticlesCountsDuplicates(t *testing.T) {
	t.Parallel()

	s, mock := newStore(t)
	article := news.Article{RawArticle: news.RawArticle{GUID: "g-1", Title: "BTC", Link: "https://x/1", PubDate: now}}

	mock.ExpectExec("INSERT INTO articles").
		WithArgs(
			"id-1", "g-1", "g-1", "BTC", "https://x/1", "", "",
			"", "", "", "", now,
			"", "", "", false, now,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO articles").
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})
	mock.ExpectExec("INSERT INTO articles").
		WillReturnError(errors.New("connection reset"))

	res, err := s.InsertArticles(context.Background(), []news.Article{article, article, article})
	require.NoError(t, err)
	require.Equal(t, news.InsertResult{Inserted: 1, Skipped: 1, Failed: 1}, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertFeedsUpserts(t *testing.T) {
	t.Parallel()

	s, mock := newStore(t)
	mock.ExpectExec(`INSERT INTO feeds .* ON CONFLICT \(feed_url\) DO UPDATE`).
		WithArgs("https://feed/rss", "Feed", "https://feed", "Bitcoin").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n, err := s.InsertFeeds(context.Background(), []news.FeedSource{{
		Title: "Feed", FeedURL: "https://feed/rss", SiteURL: "https://feed", Category: "Bitcoin",
	}})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFeedLastFetched(t *testing.T) {
	t.Parallel()

	s, mock := newStore(t)
	mock.ExpectExec(`UPDATE feeds SET last_fetched_at = \$1 WHERE feed_url = \$2`).
		WithArgs(now, "https://feed/rss").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpdateFeedLastFetched(context.Background(), "https://feed/rss", now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTodaysArticles(t *testing.T) {
	t.Parallel()

	s, mock := newStore(t)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows(store.ArticleColumns).
		AddRow("id-1", "g-1", "g-1", "BTC", "https://x/1", "m", "raw",
			"s", "m", "l", "", now,
			"Feed", "https://feed/rss", "Bitcoin", true, now)
	mock.ExpectQuery(`SELECT .* FROM articles WHERE pub_date >= \$1 AND pub_date < \$2 ORDER BY pub_date DESC, id DESC LIMIT 100`).
		WithArgs(start, start.AddDate(0, 0, 1)).
		WillReturnRows(rows)

	got, err := s.TodaysArticles(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "m", got[0].Summary.Medium)
	require.True(t, got[0].UsedFullContent)
	require.Equal(t, now, got[0].PubDate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleStats(t *testing.T) {
	t.Parallel()

	s, mock := newStore(t)
	mock.ExpectQuery(`SELECT category, COUNT\(\*\) AS article_count FROM articles GROUP BY category`).
		WillReturnRows(pgxmock.NewRows([]string{"category", "article_count"}).
			AddRow("Bitcoin", 4).
			AddRow("DeFi", 1))

	got, err := s.ArticleStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, []news.CategoryCount{{Category: "Bitcoin", ArticleCount: 4}, {Category: "DeFi", ArticleCount: 1}}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	s, mock := newStore(t)
	for range store.PostgresSchema {
		mock.ExpectExec("CREATE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}
	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{}, fixedClock{}, &seqIDs{}, nil)
	require.Error(t, err)
}
