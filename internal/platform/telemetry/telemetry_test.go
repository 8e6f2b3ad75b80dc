package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/phrazzld/scry-tutor/internal/config"
)

func TestInitNone(t *testing.T) {
	t.Parallel()
	shutdown, err := Init(context.Background(), config.TelemetryConfig{Exporter: "none"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitUnknownExporter(t *testing.T) {
	t.Parallel()
	shutdown, err := Init(context.Background(), config.TelemetryConfig{Exporter: "zipkin"})
	assert.ErrorIs(t, err, ErrUnknownExporter)
	require.NotNil(t, shutdown)
}

// Not parallel: installs the global tracer provider.
func TestInitStdoutExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), config.TelemetryConfig{
		Exporter:    "stdout",
		ServiceName: "scry-tutor-test",
		SampleRatio: 1,
	}, WithStdoutWriter(&buf), WithServiceVersion("test"))
	require.NoError(t, err)

	_, span := otel.Tracer(TracerName).Start(context.Background(), "router.handle_turn")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "router.handle_turn")
	assert.Contains(t, buf.String(), "scry-tutor-test")
}
