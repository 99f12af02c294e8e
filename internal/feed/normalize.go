package feed

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/JakeFAU/newsfeed-curator/internal/news"
)

// Window is a 24 hour publish-time range starting at Start.
type Window struct {
	Start time.Time
}

// TodayWindow returns the window starting at midnight of now's day, in now's
// location.
func TodayWindow(now time.Time) Window {
	y, m, d := now.Date()
	return Window{Start: time.Date(y, m, d, 0, 0, 0, 0, now.Location())}
}

// End is the exclusive upper bound.
func (w Window) End() time.Time {
	return w.Start.Add(24 * time.Hour)
}

// Contains reports whether t falls in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End())
}

// Normalize converts the items of successful results into raw articles,
// keeping only items published inside window.
func Normalize(results []Result, window Window, snippetLength int) []news.RawArticle {
	var out []news.RawArticle
	for _, res := range results {
		if res.Err != nil || res.Feed == nil {
			continue
		}
		feedTitle := strings.TrimSpace(res.Feed.Title)
		if feedTitle == "" {
			feedTitle = res.Source.Title
		}
		for _, item := range res.Feed.Items {
			article, ok := normalizeItem(item, res.Source, feedTitle, snippetLength)
			if !ok || !window.Contains(article.PubDate) {
				continue
			}
			out = append(out, article)
		}
	}
	return out
}

func normalizeItem(item *gofeed.Item, src news.FeedSource, feedTitle string, snippetLength int) (news.RawArticle, bool) {
	if item == nil {
		return news.RawArticle{}, false
	}
	pub, ok := publishedAt(item)
	if !ok {
		return news.RawArticle{}, false
	}

	html := item.Content
	if strings.TrimSpace(html) == "" {
		html = item.Description
	}
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(html))
	text := ""
	if doc != nil {
		text = collapseSpace(doc.Text())
	}

	snippet := truncate(text, snippetLength)
	link := strings.TrimSpace(item.Link)
	guid := strings.TrimSpace(item.GUID)
	if guid == "" {
		guid = link
	}

	return news.RawArticle{
		Title:     strings.TrimSpace(item.Title),
		Link:      link,
		PubDate:   pub,
		Snippet:   snippet,
		ImageURL:  extractImage(item, doc, snippet),
		FeedTitle: feedTitle,
		FeedURL:   src.FeedURL,
		Category:  src.Category,
		GUID:      guid,
	}, true
}

func publishedAt(item *gofeed.Item) (time.Time, bool) {
	switch {
	case item.PublishedParsed != nil:
		return *item.PublishedParsed, true
	case item.UpdatedParsed != nil:
		return *item.UpdatedParsed, true
	}
	for _, raw := range []string{item.Published, item.Updated} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var bareImageURL = regexp.MustCompile(`(?i)https?://[^\s"'<>]+\.(?:jpe?g|png|gif|webp)\b`)

// extractImage applies the image precedence: media:content with an image
// medium, media:thumbnail, image enclosure, first inline <img>, then the first
// bare image URL in the plain-text snippet.
func extractImage(item *gofeed.Item, doc *goquery.Document, snippet string) string {
	media := mediaExtensions(item)
	for _, content := range media["content"] {
		if u := content.Attrs["url"]; u != "" && isImageMedia(content.Attrs) {
			return u
		}
	}
	for _, thumb := range media["thumbnail"] {
		if u := thumb.Attrs["url"]; u != "" {
			return u
		}
	}
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" && strings.HasPrefix(strings.ToLower(enc.Type), "image/") {
			return enc.URL
		}
	}
	if doc != nil {
		if src, ok := doc.Find("img[src]").First().Attr("src"); ok && strings.TrimSpace(src) != "" {
			return strings.TrimSpace(src)
		}
	}
	return bareImageURL.FindString(snippet)
}

// mediaExtensions flattens media:* elements, including those nested in
// media:group.
func mediaExtensions(item *gofeed.Item) map[string][]ext.Extension {
	out := map[string][]ext.Extension{}
	media, ok := item.Extensions["media"]
	if !ok {
		return out
	}
	for name, list := range media {
		if name != "group" {
			out[name] = append(out[name], list...)
		}
	}
	for _, group := range media["group"] {
		for child, nested := range group.Children {
			out[child] = append(out[child], nested...)
		}
	}
	return out
}

func isImageMedia(attrs map[string]string) bool {
	if strings.EqualFold(attrs["medium"], "image") {
		return true
	}
	return attrs["medium"] == "" && strings.HasPrefix(strings.ToLower(attrs["type"]), "image/")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit]))
}
