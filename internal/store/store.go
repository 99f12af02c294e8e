package store

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/newsfeed-curator/internal/news"
)

// ErrDuplicate reports an article whose dedup key is already stored.
var ErrDuplicate = errors.New("duplicate article")

// Query limits applied when callers pass zero.
const (
	DefaultTodayLimit    = 100
	DefaultCategoryLimit = 50
	DefaultRecentDays    = 7
	DefaultRecentLimit   = 100
)

// InsertFunc writes one article row.
type InsertFunc func(ctx context.Context, article news.Article) error

// InsertEach inserts articles one at a time. Rows rejected by the uniqueness
// constraint count as skipped; any other failure is logged and counted as
// failed. The batch never aborts on a single row.
func InsertEach(
	ctx context.Context,
	logger *zap.Logger,
	articles []news.Article,
	insert InsertFunc,
	isDuplicate func(error) bool,
) news.InsertResult {
	if logger == nil {
		logger = zap.NewNop()
	}
	var res news.InsertResult
	for _, a := range articles {
		err := insert(ctx, a)
		switch {
		case err == nil:
			res.Inserted++
		case errors.Is(err, ErrDuplicate) || (isDuplicate != nil && isDuplicate(err)):
			res.Skipped++
			logger.Debug("article already stored", zap.String("dedup_key", a.DedupKey()))
		default:
			res.Failed++
			logger.Error("insert article failed",
				zap.String("dedup_key", a.DedupKey()),
				zap.String("title", a.Title),
				zap.Error(err),
			)
		}
	}
	logger.Info("articles stored",
		zap.Int("inserted", res.Inserted),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	return res
}

// DayBounds returns [local midnight, next midnight) for now.
func DayBounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}

// OrDefault returns v, or def when v is not positive.
func OrDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
