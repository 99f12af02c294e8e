package firecrawl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/newsfeed-curator/internal/news"
)

func TestScrapeURL(t *testing.T) {
	t.Parallel()

	requests := make(chan scrapeRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/scrape" || r.Header.Get("Authorization") != "Bearer fc-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req scrapeRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		requests <- req
		_, _ = w.Write([]byte(`{"success":true,"data":{"markdown":"# Hello","metadata":{"title":"Hello page"}}}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/", APIKey: "fc-key"})
	require.NoError(t, err)

	res, err := c.ScrapeURL(context.Background(), "https://news.example/a", news.ScrapeOptions{
		OnlyMainContent: true,
		ExcludeTags:     []string{"nav"},
		Timeout:         10 * time.Second,
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "# Hello", res.Markdown)
	require.Equal(t, "Hello page", res.Title)

	sent := <-requests
	require.Equal(t, "https://news.example/a", sent.URL)
	require.Equal(t, []string{"markdown"}, sent.Formats)
	require.True(t, sent.OnlyMainContent)
	require.Equal(t, int64(10000), sent.Timeout)
	require.Equal(t, []string{"nav"}, sent.ExcludeTags)
}

func TestScrapeURLErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":"credits exhausted"}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)
	_, err = c.ScrapeURL(context.Background(), "https://news.example/a", news.ScrapeOptions{})
	require.ErrorContains(t, err, "credits exhausted")

	_, err = New(Config{})
	require.Error(t, err)
}

func TestScrapeURLReportsUnsuccessfulBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"page blocked"}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)
	res, err := c.ScrapeURL(context.Background(), "https://news.example/a", news.ScrapeOptions{})
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, "page blocked", res.Error)
}
