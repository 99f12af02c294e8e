// Package readability is a self-hosted scrape backend. Pages are fetched
// with colly, promoted to a headless render when they look like an
// application shell, sanitized, and reduced to their main content.
package readability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nao1215/markdown"
	"go.uber.org/zap"

	collyfetcher "github.com/JakeFAU/newsfeed-curator/internal/fetcher/colly"
	"github.com/JakeFAU/newsfeed-curator/internal/news"
)

// Fetcher retrieves the static HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers http.Header) (collyfetcher.Response, error)
}

// Renderer produces the DOM of a page after client-side scripts ran.
type Renderer interface {
	Render(ctx context.Context, url string) (collyfetcher.Response, error)
}

// Detector decides whether a static response needs rendering.
type Detector interface {
	ShouldPromote(resp collyfetcher.Response) bool
}

var errEmptyContent = errors.New("no readable content")

// Backend implements news.ScrapeBackend without a third-party scraping service.
type Backend struct {
	fetcher   Fetcher
	renderer  Renderer
	detector  Detector
	sanitize  *bluemonday.Policy
	stripTags *bluemonday.Policy
	logger    *zap.Logger
}

var _ news.ScrapeBackend = (*Backend)(nil)

// New wires a backend. renderer and detector may be nil, which disables
// headless promotion.
func New(fetcher Fetcher, renderer Renderer, detector Detector, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		fetcher:   fetcher,
		renderer:  renderer,
		detector:  detector,
		sanitize:  bluemonday.UGCPolicy(),
		stripTags: bluemonday.StripTagsPolicy(),
		logger:    logger,
	}
}

// ScrapeURL fetches the page and converts its main content to markdown.
func (b *Backend) ScrapeURL(ctx context.Context, rawURL string, opts news.ScrapeOptions) (news.ScrapeResult, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	base, err := url.Parse(rawURL)
	if err != nil {
		return news.ScrapeResult{}, fmt.Errorf("parse url: %w", err)
	}

	resp, err := b.fetcher.Fetch(ctx, rawURL, nil)
	if err != nil {
		return news.ScrapeResult{}, fmt.Errorf("fetch page: %w", err)
	}
	if b.renderer != nil && b.detector != nil && b.detector.ShouldPromote(resp) {
		b.logger.Debug("promoting page to headless render", zap.String("url", rawURL))
		rendered, renderErr := b.renderer.Render(ctx, rawURL)
		if renderErr != nil {
			b.logger.Warn("headless render failed, using static body", zap.String("url", rawURL), zap.Error(renderErr))
		} else {
			resp = rendered
		}
	}

	title, text := b.extract(string(resp.Body), base)
	if strings.TrimSpace(text) == "" {
		return news.ScrapeResult{Success: false, Error: errEmptyContent.Error()}, nil
	}
	return news.ScrapeResult{
		Success:  true,
		Markdown: toMarkdown(title, text),
		Title:    title,
	}, nil
}

func (b *Backend) extract(rawHTML string, base *url.URL) (string, string) {
	cleaned := b.sanitize.Sanitize(rawHTML)
	article, err := readability.FromReader(strings.NewReader(cleaned), base)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return strings.TrimSpace(article.Title), article.TextContent
	}
	if err != nil {
		b.logger.Debug("readability extraction failed, stripping tags", zap.String("url", base.String()), zap.Error(err))
	}
	return "", b.stripTags.Sanitize(cleaned)
}

func toMarkdown(title, text string) string {
	var sb strings.Builder
	md := markdown.NewMarkdown(&sb)
	if title != "" {
		md.H1(title)
		md.PlainText("")
	}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			md.PlainText(line)
			md.PlainText("")
		}
	}
	return strings.TrimSpace(md.String())
}
