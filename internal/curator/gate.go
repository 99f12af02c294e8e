// Package curator implements the LLM admission gate that decides which feed
// items are worth scraping and summarizing.
package curator

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/newsfeed-curator/internal/cache"
	"github.com/JakeFAU/newsfeed-curator/internal/metrics"
	"github.com/JakeFAU/newsfeed-curator/internal/news"
	"github.com/JakeFAU/newsfeed-curator/internal/policy/ratelimit"
)

const (
	temperature = 0.1
	maxTokens   = 150
)

// Config tunes the gate.
type Config struct {
	Topic    string
	Delay    time.Duration
	CacheTTL time.Duration
}

// Gate classifies articles as PUBLISH or SCRAP.
type Gate struct {
	llm    news.Completer
	topic  string
	pacer  *ratelimit.Pacer
	cache  *cache.TTL[string, news.CurationVerdict]
	logger *zap.Logger
}

// New builds a Gate. Verdicts are cached for cfg.CacheTTL on clock; a zero
// TTL disables the cache.
func New(cfg Config, llm news.Completer, clock news.Clock, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	topic := strings.TrimSpace(cfg.Topic)
	if topic == "" {
		topic = DefaultTopic
	}
	g := &Gate{
		llm:    llm,
		topic:  topic,
		pacer:  ratelimit.NewPacer("curator", cfg.Delay),
		logger: logger,
	}
	if cfg.CacheTTL > 0 && clock != nil {
		g.cache = cache.NewTTL[string, news.CurationVerdict](cfg.CacheTTL, clock)
	}
	return g
}

// CurateArticle returns exactly one verdict for the article. Backend failures
// never escape: they become fail-open verdicts.
func (g *Gate) CurateArticle(ctx context.Context, article news.RawArticle) Verdict {
	if strings.TrimSpace(article.Title) == "" || strings.TrimSpace(article.Snippet) == "" {
		return MissingContentVerdict()
	}

	key := article.DedupKey()
	if g.cache != nil && key != "" {
		if cached, ok := g.cache.Get(key); ok {
			return Verdict{CurationVerdict: cached, Source: SourceCache}
		}
	}

	response, err := g.llm.Complete(ctx, news.CompletionRequest{
		Prompt:      buildPrompt(g.topic, article.Title, article.Snippet, article.FeedTitle),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err == nil && strings.TrimSpace(response) == "" {
		err = errors.New("empty curator response")
	}
	if err != nil {
		g.logger.Warn("curation failed, publishing by default",
			zap.String("title", article.Title),
			zap.Error(err),
		)
		return FailOpenVerdict(err)
	}

	verdict := ParseVerdict(response)
	if g.cache != nil && key != "" {
		g.cache.Set(key, verdict)
	}
	return Verdict{CurationVerdict: verdict, Source: SourceModel}
}

// Scrapped is an article the gate rejected.
type Scrapped struct {
	Article    news.RawArticle `json:"article"`
	Reason     string          `json:"reason"`
	Confidence int             `json:"confidence"`
}

// Judged pairs an article with its verdict.
type Judged struct {
	Article news.RawArticle `json:"article"`
	Verdict Verdict         `json:"verdict"`
}

// Stats aggregates a batch.
type Stats struct {
	Total       int `json:"total"`
	Published   int `json:"published"`
	Scrapped    int `json:"scrapped"`
	PublishRate int `json:"publish_rate"`
}

// BatchResult partitions a batch by verdict.
type BatchResult struct {
	Publishable []news.RawArticle `json:"publishable"`
	Scrapped    []Scrapped        `json:"scrapped"`
	Verdicts    []Judged          `json:"verdicts"`
	Stats       Stats             `json:"stats"`
}

// CurateBatch judges articles strictly in order with the configured spacing
// between calls. The only error is cancellation of ctx.
func (g *Gate) CurateBatch(ctx context.Context, articles []news.RawArticle) (BatchResult, error) {
	judged, err := ratelimit.Sequential(ctx, g.pacer, articles, func(ctx context.Context, a news.RawArticle) Judged {
		return Judged{Article: a, Verdict: g.CurateArticle(ctx, a)}
	})

	result := BatchResult{Verdicts: judged}
	for _, j := range judged {
		metrics.ObserveVerdict(string(j.Verdict.Decision), string(j.Verdict.Source))
		if j.Verdict.Publish() {
			result.Publishable = append(result.Publishable, j.Article)
			continue
		}
		result.Scrapped = append(result.Scrapped, Scrapped{
			Article:    j.Article,
			Reason:     j.Verdict.Reason,
			Confidence: j.Verdict.Confidence,
		})
	}
	result.Stats = Stats{
		Total:       len(judged),
		Published:   len(result.Publishable),
		Scrapped:    len(result.Scrapped),
		PublishRate: publishRate(len(result.Publishable), len(judged)),
	}

	g.logger.Info("curation complete",
		zap.Int("total", result.Stats.Total),
		zap.Int("published", result.Stats.Published),
		zap.Int("scrapped", result.Stats.Scrapped),
		zap.Int("publish_rate", result.Stats.PublishRate),
	)
	return result, err
}

func publishRate(published, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Floor(float64(published)*100/float64(total) + 0.5))
}
