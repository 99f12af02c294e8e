package telemetry

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/JakeFAU/newsfeed-curator/internal/config"
)

// Init swaps global providers, so these tests do not run in parallel.

func TestInitRecordsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	p, err := Init(context.Background(), config.TelemetryConfig{ServiceName: "curator-test", Version: "t"},
		WithRegisterer(prometheus.NewRegistry()),
		WithSpanExporter(exporter),
	)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "pipeline.cycle")
	span.End()
	require.NoError(t, p.Tracer.ForceFlush(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "pipeline.cycle", spans[0].Name)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestInitWithoutProject(t *testing.T) {
	p, err := Init(context.Background(), config.TelemetryConfig{ServiceName: "curator-test"},
		WithRegisterer(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	require.NotNil(t, p.Meter)
	require.NoError(t, p.Shutdown(context.Background()))

	var nilProviders *Providers
	assert.NoError(t, nilProviders.Shutdown(context.Background()))
}
