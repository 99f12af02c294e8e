package publisher

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/newsfeed-curator/internal/hash/sha256"
	"github.com/JakeFAU/newsfeed-curator/internal/news"
)

const (
	// MaxSlugLength caps slugs derived from titles.
	MaxSlugLength = 80
	// DefaultExt is the published unit extension.
	DefaultExt = "mdx"

	maxTags = 6

	untitledSlug = "untitled"
)

var (
	slugDisallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces     = regexp.MustCompile(`\s+`)
	slugHyphens    = regexp.MustCompile(`-+`)
	wordPattern    = regexp.MustCompile(`[a-z0-9]+`)
)

// TopicTerms are promoted to tags when they appear as words in an article's
// title or snippet.
var TopicTerms = []string{
	"bitcoin", "btc", "ethereum", "eth", "crypto", "cryptocurrency",
	"blockchain", "defi", "nft", "altcoin", "trading", "mining",
	"solana", "cardano", "polkadot", "chainlink", "dogecoin",
	"binance", "coinbase", "regulation", "adoption", "web3",
	"metaverse", "dao", "stablecoin", "yield", "staking",
}

// Slugify derives a URL-safe slug from a title. It is deterministic and
// never empty.
func Slugify(title string, maxLen int) string {
	if s := slugify(title, maxLen); s != "" {
		return s
	}
	return untitledSlug
}

// ArticleSlug is Slugify over the title, except that a title with nothing
// sluggable gets a suffix from the dedup key so such articles do not share a
// filename.
func ArticleSlug(a news.PersistedArticle) string {
	if s := slugify(a.Title, MaxSlugLength); s != "" || a.DedupKey == "" {
		return Slugify(a.Title, MaxSlugLength)
	}
	return untitledSlug + "-" + sha256.Sum([]byte(a.DedupKey))[:8]
}

func slugify(title string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = MaxSlugLength
	}
	s := strings.ToLower(title)
	s = slugDisallowed.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugHyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxLen {
		s = strings.Trim(s[:maxLen], "-")
	}
	return s
}

// Filename joins the UTC publication date and slug.
func Filename(date time.Time, slug, ext string) string {
	if ext == "" {
		ext = DefaultExt
	}
	return fmt.Sprintf("%s-%s.%s", date.UTC().Format(time.DateOnly), slug, ext)
}

// DateFromFilename parses the date prefix written by Filename.
func DateFromFilename(name string) (time.Time, bool) {
	if len(name) < len(time.DateOnly) {
		return time.Time{}, false
	}
	d, err := time.Parse(time.DateOnly, name[:len(time.DateOnly)])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Tags returns the category tag, topic terms found in the title and snippet,
// and "news", at most six in total.
func Tags(a news.PersistedArticle) []string {
	tags := make([]string, 0, maxTags)
	seen := map[string]bool{}
	add := func(tag string) {
		if tag != "" && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	if c := strings.TrimSpace(a.Category); c != "" {
		add(slugSpaces.ReplaceAllString(strings.ToLower(c), "-"))
	}

	words := map[string]bool{}
	for _, w := range wordPattern.FindAllString(strings.ToLower(a.Title+" "+a.Snippet), -1) {
		words[w] = true
	}
	for _, term := range TopicTerms {
		if len(tags) >= maxTags-1 {
			break
		}
		if words[term] {
			add(term)
		}
	}
	add("news")
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	return tags
}

// Unit is a rendered article ready for a target.
type Unit struct {
	Filename string
	Slug     string
	Date     string
	Title    string
	Content  []byte
}

type frontmatter struct {
	Title        string   `yaml:"title"`
	Date         string   `yaml:"date"`
	Tags         []string `yaml:"tags,flow"`
	Draft        bool     `yaml:"draft"`
	Summary      string   `yaml:"summary"`
	SummaryShort string   `yaml:"summaryShort,omitempty"`
	SummaryLong  string   `yaml:"summaryLong,omitempty"`
	Images       []string `yaml:"images,flow,omitempty"`
	Authors      []string `yaml:"authors,flow"`
	Layout       string   `yaml:"layout"`
	CanonicalURL string   `yaml:"canonicalUrl"`
}

// Render converts a stored article into a blog post with YAML frontmatter.
func Render(a news.PersistedArticle, ext string) (Unit, error) {
	slug := ArticleSlug(a)
	date := a.PubDate.UTC().Format(time.DateOnly)

	summary := a.Summary.Medium
	if summary == "" {
		summary = a.Snippet
	}
	fm := frontmatter{
		Title:        a.Title,
		Date:         date,
		Tags:         Tags(a),
		Summary:      clip(summary, 160),
		SummaryShort: clip(a.Summary.Short, 100),
		SummaryLong:  clip(a.Summary.Long, 300),
		Authors:      []string{"default"},
		Layout:       "PostLayout",
		CanonicalURL: a.Link,
	}
	if a.ImageURL != "" {
		fm.Images = []string{a.ImageURL}
	}
	head, err := yaml.Marshal(fm)
	if err != nil {
		return Unit{}, fmt.Errorf("marshal frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(head)
	buf.WriteString("---\n\n")

	md := markdown.NewMarkdown(&buf)
	if a.ImageURL != "" {
		md.PlainTextf("![%s](%s)", a.Title, a.ImageURL)
		md.PlainText("")
	}
	if a.Snippet != "" {
		md.PlainText(a.Snippet)
		md.PlainText("")
	}
	source := a.FeedTitle
	if source == "" {
		source = "the original source"
	}
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("**Original Article:** [%s](%s)", source, a.Link)
	md.PlainText("")
	md.PlainTextf("*This article was originally published on [%s](%s) and has been curated for our readers.*", source, a.Link)
	if err := md.Build(); err != nil {
		return Unit{}, fmt.Errorf("render body: %w", err)
	}

	return Unit{
		Filename: Filename(a.PubDate, slug, ext),
		Slug:     slug,
		Date:     date,
		Title:    a.Title,
		Content:  buf.Bytes(),
	}, nil
}

func clip(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
