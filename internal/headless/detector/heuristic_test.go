package detector

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	collyfetcher "github.com/JakeFAU/newsfeed-curator/internal/fetcher/colly"
)

func TestHeuristicShouldPromote(t *testing.T) {
	t.Parallel()

	article := "<html><body><article>" + strings.Repeat("<p>Bitcoin rallied on Monday.</p>", 20) + "</article></body></html>"

	cases := []struct {
		name string
		resp collyfetcher.Response
		want bool
	}{
		{"empty body", collyfetcher.Response{StatusCode: http.StatusOK}, true},
		{"spa shell", collyfetcher.Response{StatusCode: http.StatusOK, Body: []byte(`<div id="__next"></div>` + strings.Repeat(" ", 4096))}, true},
		{"script heavy and short", collyfetcher.Response{StatusCode: http.StatusOK, Body: []byte(`<html><script>var a=1;</script><p>t</p></html>`)}, true},
		{"server rendered article", collyfetcher.Response{StatusCode: http.StatusOK, Body: []byte(article)}, false},
		{"spa marker with paragraphs", collyfetcher.Response{StatusCode: http.StatusOK, Body: []byte(`<div id="root">` + article + `</div>`)}, false},
		{"non-200", collyfetcher.Response{StatusCode: http.StatusForbidden}, false},
		{"already rendered", collyfetcher.Response{StatusCode: http.StatusOK, Rendered: true}, false},
	}

	h := NewHeuristic(1000)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, h.ShouldPromote(tc.resp))
		})
	}
}
