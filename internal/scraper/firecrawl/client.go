// Package firecrawl is a scrape backend for Firecrawl-compatible HTTP APIs.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JakeFAU/newsfeed-curator/internal/news"
)

// DefaultBaseURL is the hosted Firecrawl API.
const DefaultBaseURL = "https://api.firecrawl.dev"

// Config configures the client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implements news.ScrapeBackend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ news.ScrapeBackend = (*Client)(nil)

// New builds a client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("firecrawl api key is required")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
	IncludeTags     []string `json:"includeTags,omitempty"`
	ExcludeTags     []string `json:"excludeTags,omitempty"`
	Timeout         int64    `json:"timeout,omitempty"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string `json:"markdown"`
		Title    string `json:"title"`
		Metadata struct {
			Title string `json:"title"`
		} `json:"metadata"`
	} `json:"data"`
}

// ScrapeURL asks the API for the page's main content as markdown.
func (c *Client) ScrapeURL(ctx context.Context, url string, opts news.ScrapeOptions) (news.ScrapeResult, error) {
	body, err := json.Marshal(scrapeRequest{
		URL:             url,
		Formats:         []string{"markdown"},
		OnlyMainContent: opts.OnlyMainContent,
		IncludeTags:     opts.IncludeTags,
		ExcludeTags:     opts.ExcludeTags,
		Timeout:         opts.Timeout.Milliseconds(),
	})
	if err != nil {
		return news.ScrapeResult{}, fmt.Errorf("marshal scrape request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return news.ScrapeResult{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return news.ScrapeResult{}, fmt.Errorf("send scrape request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return news.ScrapeResult{}, fmt.Errorf("firecrawl error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return news.ScrapeResult{}, fmt.Errorf("decode scrape response: %w", err)
	}
	title := decoded.Data.Title
	if title == "" {
		title = decoded.Data.Metadata.Title
	}
	return news.ScrapeResult{
		Success:  decoded.Success,
		Markdown: decoded.Data.Markdown,
		Title:    title,
		Error:    decoded.Error,
	}, nil
}
