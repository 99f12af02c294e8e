package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/newsfeed-curator/internal/news"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type seqIDs struct{ n int }

func (g *seqIDs) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("id-%03d", g.n), nil
}

var now = time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "articles.db"), fixedClock{now: now}, &seqIDs{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func article(guid, category string, pub time.Time) news.Article {
	return news.Article{
		RawArticle: news.RawArticle{
			GUID:     guid,
			Title:    "Title " + guid,
			Link:     "https://news.example/" + guid,
			Snippet:  "raw snippet",
			PubDate:  pub,
			Category: category,
			FeedURL:  "https://news.example/rss",
		},
		Summary:         news.SummarySet{Short: "short", Medium: "medium " + guid, Long: "long"},
		OriginalSnippet: "raw snippet",
		UsedFullContent: true,
	}
}

func TestInsertArticlesDeduplicates(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()
	a := article("g-1", "Bitcoin", now.Add(-time.Hour))
	sameGUID := article("g-1", "Bitcoin", now.Add(-2*time.Hour))
	sameGUID.Link = "https://news.example/other"

	res, err := s.InsertArticles(ctx, []news.Article{a, sameGUID})
	require.NoError(t, err)
	require.Equal(t, news.InsertResult{Inserted: 1, Skipped: 1}, res)

	res, err = s.InsertArticles(ctx, []news.Article{sameGUID})
	require.NoError(t, err)
	require.Equal(t, news.InsertResult{Skipped: 1}, res)
}

func TestLinkIsKeyWithoutGUID(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	a := article("", "Bitcoin", now)
	a.Link = "https://news.example/no-guid"

	res, err := s.InsertArticles(context.Background(), []news.Article{a, a})
	require.NoError(t, err)
	require.Equal(t, 1, res.Inserted)
	require.Equal(t, 1, res.Skipped)
}

func TestQueries(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()
	_, err := s.InsertArticles(ctx, []news.Article{
		article("today-1", "Bitcoin", now.Add(-time.Hour)),
		article("today-2", "DeFi", now.Add(-3*time.Hour)),
		article("yesterday", "Bitcoin", now.Add(-20*time.Hour)),
		article("old", "Bitcoin", now.AddDate(0, 0, -10)),
	})
	require.NoError(t, err)

	today, err := s.TodaysArticles(ctx, 0)
	require.NoError(t, err)
	require.Len(t, today, 2)
	require.Equal(t, "today-1", today[0].GUID)
	require.Equal(t, "medium today-1", today[0].Snippet)
	require.Equal(t, "raw snippet", today[0].OriginalSnippet)
	require.True(t, today[0].UsedFullContent)
	require.True(t, today[0].PubDate.Equal(now.Add(-time.Hour)))

	btc, err := s.ArticlesByCategory(ctx, "Bitcoin", 2)
	require.NoError(t, err)
	require.Len(t, btc, 2)
	require.Equal(t, "today-1", btc[0].GUID)
	require.Equal(t, "yesterday", btc[1].GUID)

	recent, err := s.RecentArticles(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, recent, 3)

	stats, err := s.ArticleStats(ctx)
	require.NoError(t, err)
	require.Equal(t, []news.CategoryCount{
		{Category: "Bitcoin", ArticleCount: 3},
		{Category: "DeFi", ArticleCount: 1},
	}, stats)
}

func TestFeeds(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()
	feed := news.FeedSource{Title: "Feed", FeedURL: "https://news.example/rss", Category: "Bitcoin"}

	n, err := s.InsertFeeds(ctx, []news.FeedSource{feed, feed})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	last, err := s.FeedLastFetched(ctx, feed.FeedURL)
	require.NoError(t, err)
	require.Nil(t, last)

	require.NoError(t, s.UpdateFeedLastFetched(ctx, feed.FeedURL, now))
	last, err = s.FeedLastFetched(ctx, feed.FeedURL)
	require.NoError(t, err)
	require.NotNil(t, last)
	require.True(t, last.Equal(now))

	require.NoError(t, s.Ping(ctx))
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "", fixedClock{}, &seqIDs{}, nil)
	require.Error(t, err)
}
