package server

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/newsfeed-curator/internal/pipeline"
)

// Starter launches a cycle without waiting for it.
type Starter interface {
	Start(ctx context.Context) error
}

// Schedule triggers a cycle immediately and then every interval until ctx is
// done. Ticks that land while a cycle is still running are dropped.
func Schedule(ctx context.Context, interval time.Duration, runner Starter, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	trigger := func(reason string) {
		err := runner.Start(ctx)
		switch {
		case errors.Is(err, pipeline.ErrBusy):
			logger.Info("scheduled cycle skipped, previous cycle still running", zap.String("reason", reason))
		case err != nil:
			logger.Error("scheduled cycle failed to start", zap.Error(err))
		default:
			logger.Info("scheduled cycle started", zap.String("reason", reason))
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	trigger("startup")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			trigger("interval")
		}
	}
}
