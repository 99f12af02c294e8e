// Package detector decides when an article page needs a headless render
// before content extraction.
package detector

import (
	"bytes"
	"net/http"
	"strings"

	collyfetcher "github.com/JakeFAU/newsfeed-curator/internal/fetcher/colly"
)

// Heuristic implements a handful of rule-based promotions.
type Heuristic struct {
	BodyLengthThreshold int
	MinParagraphs       int
}

// NewHeuristic creates a new detector.
func NewHeuristic(threshold int) *Heuristic {
	if threshold == 0 {
		threshold = 2048
	}
	return &Heuristic{BodyLengthThreshold: threshold, MinParagraphs: 1}
}

var spaMarkers = [][]byte{
	[]byte("id=\"__next\""),
	[]byte("id=\"root\""),
	[]byte("id=\"app\""),
	[]byte("data-reactroot"),
	[]byte("ng-version"),
}

// ShouldPromote reports whether the static response looks like an
// application shell whose article text is rendered client side.
func (h *Heuristic) ShouldPromote(resp collyfetcher.Response) bool {
	if resp.Rendered || resp.StatusCode != http.StatusOK {
		return false
	}
	body := resp.Body
	if len(body) == 0 {
		return true
	}
	if len(body) < h.BodyLengthThreshold && scriptDensityHigh(body) {
		return true
	}
	if paragraphCount(body) >= h.MinParagraphs {
		return false
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

func paragraphCount(body []byte) int {
	return bytes.Count(bytes.ToLower(body), []byte("<p"))
}

func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	scriptCoverage := 0
	searchPos := 0

	for {
		relativeStart := strings.Index(lower[searchPos:], openTag)
		if relativeStart == -1 {
			break
		}
		start := searchPos + relativeStart

		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			// Malformed tag: count the rest of the document as script.
			scriptCoverage += total - start
			break
		}
		contentStart := start + tagClose + 1

		relativeEnd := strings.Index(lower[contentStart:], closeTag)
		next := total
		if relativeEnd != -1 {
			next = contentStart + relativeEnd + len(closeTag)
		}

		scriptCoverage += next - start
		searchPos = next
	}

	return scriptCoverage*100/total >= 25
}
