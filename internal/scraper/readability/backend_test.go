package readability

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	collyfetcher "github.com/JakeFAU/newsfeed-curator/internal/fetcher/colly"
	"github.com/JakeFAU/newsfeed-curator/internal/news"
)

const articleHTML = `<html><head><title>Bitcoin rallies</title></head><body>
<nav>Home | Markets</nav>
<article>
<h1>Bitcoin rallies</h1>
<p>Bitcoin climbed above its previous high on Tuesday as spot fund inflows accelerated across several large issuers in the United States.</p>
<p>Analysts said the move reflected steady institutional demand and a shrinking supply of coins held on exchanges over the past quarter.</p>
<p>Traders will watch the next macro data release for signs that the rally can continue into the end of the month.</p>
</article>
</body></html>`

type fakeFetcher struct {
	resp collyfetcher.Response
	err  error
}

func (f fakeFetcher) Fetch(context.Context, string, http.Header) (collyfetcher.Response, error) {
	return f.resp, f.err
}

type fakeRenderer struct {
	calls int
	resp  collyfetcher.Response
	err   error
}

func (r *fakeRenderer) Render(context.Context, string) (collyfetcher.Response, error) {
	r.calls++
	return r.resp, r.err
}

type fixedDetector bool

func (d fixedDetector) ShouldPromote(collyfetcher.Response) bool { return bool(d) }

func TestScrapeURLExtractsMainContent(t *testing.T) {
	t.Parallel()

	b := New(fakeFetcher{resp: collyfetcher.Response{StatusCode: 200, Body: []byte(articleHTML)}}, nil, nil, nil)
	res, err := b.ScrapeURL(context.Background(), "https://news.example/btc", news.ScrapeOptions{})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Contains(t, res.Markdown, "Bitcoin climbed above its previous high")
	require.NotContains(t, res.Markdown, "<p>")
}

func TestScrapeURLPromotesToRenderer(t *testing.T) {
	t.Parallel()

	shell := collyfetcher.Response{StatusCode: 200, Body: []byte(`<div id="root"></div>`)}
	renderer := &fakeRenderer{resp: collyfetcher.Response{StatusCode: 200, Body: []byte(articleHTML), Rendered: true}}
	b := New(fakeFetcher{resp: shell}, renderer, fixedDetector(true), nil)

	res, err := b.ScrapeURL(context.Background(), "https://news.example/btc", news.ScrapeOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, renderer.calls)
	require.True(t, res.Success)
	require.Contains(t, res.Markdown, "institutional demand")
}

func TestScrapeURLKeepsStaticBodyWhenRenderFails(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{err: errors.New("browser crashed")}
	b := New(fakeFetcher{resp: collyfetcher.Response{StatusCode: 200, Body: []byte(articleHTML)}}, renderer, fixedDetector(true), nil)

	res, err := b.ScrapeURL(context.Background(), "https://news.example/btc", news.ScrapeOptions{})
	require.NoError(t, err)
	require.True(t, res.Success)
}

func TestScrapeURLEmptyPage(t *testing.T) {
	t.Parallel()

	b := New(fakeFetcher{resp: collyfetcher.Response{StatusCode: 200, Body: []byte("<html><body></body></html>")}}, nil, nil, nil)
	res, err := b.ScrapeURL(context.Background(), "https://news.example/empty", news.ScrapeOptions{})
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, errEmptyContent.Error(), res.Error)
}

func TestScrapeURLFetchError(t *testing.T) {
	t.Parallel()

	b := New(fakeFetcher{err: errors.New("status 404")}, nil, nil, nil)
	_, err := b.ScrapeURL(context.Background(), "https://news.example/missing", news.ScrapeOptions{})
	require.ErrorContains(t, err, "status 404")
}

func TestToMarkdown(t *testing.T) {
	t.Parallel()

	out := toMarkdown("Title", "  first line \n\n second line ")
	require.True(t, strings.HasPrefix(out, "# Title"))
	require.Contains(t, out, "first line")
	require.Contains(t, out, "second line")
}
