package news

import (
	"strings"
	"time"
)

// FeedSource describes a syndicated feed to ingest.
type FeedSource struct {
	Title         string     `mapstructure:"title" json:"title"`
	FeedURL       string     `mapstructure:"feed_url" json:"feed_url"`
	SiteURL       string     `mapstructure:"site_url" json:"site_url"`
	Category      string     `mapstructure:"category" json:"category"`
	LastFetchedAt *time.Time `mapstructure:"-" json:"last_fetched_at,omitempty"`
}

// RawArticle is a normalized feed item produced during a fetch cycle.
type RawArticle struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	PubDate   time.Time `json:"pub_date"`
	Snippet   string    `json:"snippet"`
	ImageURL  string    `json:"image_url,omitempty"`
	FeedTitle string    `json:"feed_title"`
	FeedURL   string    `json:"feed_url"`
	Category  string    `json:"category"`
	GUID      string    `json:"guid"`
}

// DedupKey returns the uniqueness key for the article: the guid, or the link
// when the feed supplied no guid.
func (a RawArticle) DedupKey() string {
	if key := strings.TrimSpace(a.GUID); key != "" {
		return key
	}
	return strings.TrimSpace(a.Link)
}

// Decision is the outcome of the curation gate.
type Decision string

const (
	// DecisionPublish admits the article to enrichment.
	DecisionPublish Decision = "PUBLISH"
	// DecisionScrap drops the article.
	DecisionScrap Decision = "SCRAP"
)

// CurationVerdict is the gate's answer for a single article.
type CurationVerdict struct {
	Decision   Decision `json:"decision"`
	Confidence int      `json:"confidence"`
	Reason     string   `json:"reason"`
}

// Publish reports whether the verdict admits the article.
func (v CurationVerdict) Publish() bool {
	return v.Decision == DecisionPublish
}

// ScrapedContent is the optional full-text enrichment of an article.
type ScrapedContent struct {
	Success   bool   `json:"success"`
	Markdown  string `json:"markdown,omitempty"`
	Title     string `json:"title,omitempty"`
	WordCount int    `json:"word_count"`
	Error     string `json:"error,omitempty"`
	URL       string `json:"url"`
}

// SummarySet holds the three summary tiers.
type SummarySet struct {
	Short  string `json:"short"`
	Medium string `json:"medium"`
	Long   string `json:"long"`
}

// IsZero reports whether no tier is populated.
func (s SummarySet) IsZero() bool {
	return s.Short == "" && s.Medium == "" && s.Long == ""
}

// Article carries a RawArticle through enrichment and summarization.
type Article struct {
	RawArticle
	Scraped         *ScrapedContent `json:"scraped,omitempty"`
	Summary         SummarySet      `json:"summary"`
	OriginalSnippet string          `json:"original_snippet"`
	UsedFullContent bool            `json:"used_full_content"`
}

// FromRaw wraps raw articles without enrichment. The snippet is kept as the
// original snippet.
func FromRaw(raw []RawArticle) []Article {
	out := make([]Article, 0, len(raw))
	for _, r := range raw {
		out = append(out, Article{RawArticle: r, OriginalSnippet: r.Snippet})
	}
	return out
}

// StoredSnippet is the snippet persisted for the article: the medium summary
// when present, otherwise the feed snippet.
func (a Article) StoredSnippet() string {
	if a.Summary.Medium != "" {
		return a.Summary.Medium
	}
	return a.Snippet
}

// PersistedArticle is an article row read back from the store.
type PersistedArticle struct {
	ID              string     `json:"id"`
	DedupKey        string     `json:"dedup_key"`
	GUID            string     `json:"guid"`
	Title           string     `json:"title"`
	Link            string     `json:"link"`
	PubDate         time.Time  `json:"pub_date"`
	Snippet         string     `json:"snippet"`
	OriginalSnippet string     `json:"original_snippet"`
	Summary         SummarySet `json:"summary"`
	ImageURL        string     `json:"image_url,omitempty"`
	FeedTitle       string     `json:"feed_title"`
	FeedURL         string     `json:"feed_url"`
	Category        string     `json:"category"`
	UsedFullContent bool       `json:"used_full_content"`
	CreatedAt       time.Time  `json:"created_at"`
}

// InsertResult counts the outcome of a batch insert.
type InsertResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// CategoryCount is one row of the article stats view.
type CategoryCount struct {
	Category     string `json:"category"`
	ArticleCount int    `json:"article_count"`
}

// CompletionRequest is a single-prompt call to a language model.
type CompletionRequest struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// ScrapeOptions tune a scrape backend call.
type ScrapeOptions struct {
	OnlyMainContent bool
	IncludeTags     []string
	ExcludeTags     []string
	Timeout         time.Duration
}

// ScrapeResult is what a scrape backend returns for a URL.
type ScrapeResult struct {
	Success  bool
	Markdown string
	Title    string
	Error    string
}
