package curator

import (
	"strconv"
	"strings"

	"github.com/JakeFAU/newsfeed-curator/internal/news"
)

// Source records where a verdict came from.
type Source string

const (
	// SourceModel is a verdict parsed from a model response.
	SourceModel Source = "model"
	// SourceInput is a verdict decided from input validation alone.
	SourceInput Source = "input"
	// SourceFailOpen is the default applied when the model call failed.
	SourceFailOpen Source = "fail_open"
	// SourceCache is a model verdict served from the cache.
	SourceCache Source = "cache"
)

// Verdict is the per-article outcome of the gate.
type Verdict struct {
	news.CurationVerdict
	Source Source `json:"source"`
	// Err is the backend failure behind a fail-open verdict.
	Err error `json:"-"`
}

// MissingContentVerdict rejects articles without a title or snippet.
func MissingContentVerdict() Verdict {
	return Verdict{
		CurationVerdict: news.CurationVerdict{
			Decision:   news.DecisionScrap,
			Confidence: 10,
			Reason:     "missing content",
		},
		Source: SourceInput,
	}
}

// FailOpenVerdict admits an article whose classification failed. Failing
// closed would silently discard legitimate news.
func FailOpenVerdict(err error) Verdict {
	reason := "curator unavailable, defaulting to publish"
	if err != nil {
		reason = "curator failed, defaulting to publish: " + err.Error()
	}
	return Verdict{
		CurationVerdict: news.CurationVerdict{
			Decision:   news.DecisionPublish,
			Confidence: 5,
			Reason:     reason,
		},
		Source: SourceFailOpen,
		Err:    err,
	}
}

// ParseVerdict reads the DECISION, CONFIDENCE and REASON lines of a model
// response. Confidence is clamped to [1,10]. Without a recognizable decision
// the article is published at confidence 5.
func ParseVerdict(response string) news.CurationVerdict {
	var (
		decision    news.Decision
		confidence  = 5
		reason      string
		hasDecision bool
	)
	for _, line := range strings.Split(response, "\n") {
		label, value, ok := labeledLine(line)
		if !ok {
			continue
		}
		switch label {
		case "DECISION":
			switch {
			case strings.HasPrefix(strings.ToUpper(value), string(news.DecisionPublish)):
				decision, hasDecision = news.DecisionPublish, true
			case strings.HasPrefix(strings.ToUpper(value), string(news.DecisionScrap)):
				decision, hasDecision = news.DecisionScrap, true
			}
		case "CONFIDENCE":
			if n, err := strconv.Atoi(leadingDigits(value)); err == nil {
				confidence = clamp(n, 1, 10)
			}
		case "REASON":
			reason = value
		}
	}

	if !hasDecision {
		return news.CurationVerdict{
			Decision:   news.DecisionPublish,
			Confidence: 5,
			Reason:     "unparseable curator response, defaulting to publish",
		}
	}
	if reason == "" {
		reason = "no reason given"
	}
	return news.CurationVerdict{Decision: decision, Confidence: confidence, Reason: reason}
}

// labeledLine splits "LABEL: value", tolerating markdown emphasis and list
// markers around the label.
func labeledLine(line string) (string, string, bool) {
	line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*# "))
	label, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	label = strings.ToUpper(strings.Trim(label, "* "))
	value = strings.TrimSpace(strings.Trim(strings.TrimSpace(value), "*"))
	return label, strings.TrimSpace(value), true
}

func leadingDigits(s string) string {
	s = strings.TrimLeft(s, "[ ")
	end := 0
	if strings.HasPrefix(s, "-") {
		end = 1
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}

func clamp(n, lo, hi int) int {
	return max(lo, min(hi, n))
}
