package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/newsfeed-curator/internal/pipeline"
)

type countingStarter struct {
	mu    sync.Mutex
	calls int
	busy  bool
}

func (c *countingStarter) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.busy {
		return pipeline.ErrBusy
	}
	return nil
}

func (c *countingStarter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestScheduleStartsImmediatelyAndTicks(t *testing.T) {
	t.Parallel()

	starter := &countingStarter{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Schedule(ctx, 20*time.Millisecond, starter, nil)
		close(done)
	}()

	require.Eventually(t, func() bool { return starter.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestScheduleToleratesBusy(t *testing.T) {
	t.Parallel()

	starter := &countingStarter{busy: true}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Schedule(ctx, time.Hour, starter, nil)
		close(done)
	}()

	require.Eventually(t, func() bool { return starter.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, 1, starter.count())
}
