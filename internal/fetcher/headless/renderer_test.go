package headless

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"
)

func TestNewChromedpValidation(t *testing.T) {
	t.Parallel()

	_, err := NewChromedp(Config{MaxParallel: -1})
	require.Error(t, err)

	r, err := NewChromedp(Config{MaxParallel: 2})
	require.NoError(t, err)
	t.Cleanup(r.Close)
	require.Equal(t, 2, cap(r.limiter))
	require.Equal(t, 45*time.Second, r.cfg.NavigationTimeout)
}

func TestAcquireRespectsContext(t *testing.T) {
	t.Parallel()

	r := &Chromedp{limiter: make(chan struct{}, 1)}
	require.NoError(t, r.acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, r.acquire(ctx))

	r.release()
	require.NoError(t, r.acquire(context.Background()))
}

func TestResponseMetaCaptureAndFallbacks(t *testing.T) {
	t.Parallel()

	meta := newResponseMeta()
	meta.captureEvent(&network.EventResponseReceived{
		Type: network.ResourceTypeDocument,
		Response: &network.Response{
			Status:  203,
			URL:     "https://example.com/rendered",
			Headers: network.Headers{"X-Request-ID": "abc"},
		},
	})
	status, headers, url := meta.snapshotWithFallbacks("https://req", "")
	require.Equal(t, 203, status)
	require.Equal(t, "abc", headers.Get("X-Request-ID"))
	require.Equal(t, "https://example.com/rendered", url)

	meta = newResponseMeta()
	meta.captureEvent(&network.EventResponseReceived{Type: network.ResourceTypeScript, Response: &network.Response{Status: 500}})
	status, _, url = meta.snapshotWithFallbacks("https://req", "https://final")
	require.Equal(t, 200, status)
	require.Equal(t, "https://final", url)
}

func TestNoopRenderFails(t *testing.T) {
	t.Parallel()

	_, err := Noop{}.Render(context.Background(), "https://example.com")
	require.Error(t, err)
}
