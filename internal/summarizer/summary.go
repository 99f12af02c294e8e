package summarizer

import (
	"regexp"
	"strings"

	"github.com/JakeFAU/newsfeed-curator/internal/news"
)

const unavailable = "Summary unavailable"

// ParseSummary reads the labeled SHORT/MEDIUM/LONG lines of a model
// response. Missing tiers are derived: medium from the first non-empty line
// (or the first 200 characters), short and long by truncating medium.
func ParseSummary(text string) news.SummarySet {
	var (
		set   news.SummarySet
		first string
	)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if first == "" {
			first = line
		}
		switch {
		case strings.HasPrefix(line, "SHORT:"):
			set.Short = strings.TrimSpace(strings.TrimPrefix(line, "SHORT:"))
		case strings.HasPrefix(line, "MEDIUM:"):
			set.Medium = strings.TrimSpace(strings.TrimPrefix(line, "MEDIUM:"))
		case strings.HasPrefix(line, "LONG:"):
			set.Long = strings.TrimSpace(strings.TrimPrefix(line, "LONG:"))
		}
	}
	if set.Medium == "" {
		set.Medium = first
		if set.Medium == "" {
			set.Medium = truncate(strings.TrimSpace(text), 200)
		}
	}
	if set.Short == "" {
		set.Short = truncate(set.Medium, 100)
	}
	if set.Long == "" {
		set.Long = truncate(set.Medium, 300)
	}
	return set
}

// DegradedSummary is the summary used when the model cannot be reached.
func DegradedSummary(title string) news.SummarySet {
	title = strings.TrimSpace(title)
	if title == "" {
		return news.SummarySet{Short: unavailable, Medium: unavailable, Long: unavailable}
	}
	return news.SummarySet{
		Short:  truncate(title, 80),
		Medium: truncate(title, 150),
		Long:   truncate(title, 250),
	}
}

// snippetSummary keeps the feed snippet in every tier.
func snippetSummary(snippet string) news.SummarySet {
	return news.SummarySet{Short: snippet, Medium: snippet, Long: snippet}
}

var (
	mdImage    = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdLink     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdHeading  = regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]*`)
	mdEmphasis = regexp.MustCompile(`\*\*|__|\*`)
	blankRuns  = regexp.MustCompile(`\n{3,}`)
)

// CleanMarkdown strips markup that costs tokens without carrying meaning:
// images, link targets, heading marks and emphasis.
func CleanMarkdown(md string) string {
	out := mdImage.ReplaceAllString(md, "")
	out = mdLink.ReplaceAllString(out, "$1")
	out = mdHeading.ReplaceAllString(out, "")
	out = mdEmphasis.ReplaceAllString(out, "")
	out = blankRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// clip bounds source text sent to the model.
func clip(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
