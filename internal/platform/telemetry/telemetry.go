// Package telemetry configures OpenTelemetry tracing for the engine.
//
// Init installs a global tracer provider according to config.TelemetryConfig
// and returns a shutdown function that flushes pending spans. With the "none"
// exporter the global no-op provider stays in place and spans cost nothing.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/phrazzld/scry-tutor/internal/config"
)

// TracerName is the instrumentation scope used by engine spans.
const TracerName = "github.com/phrazzld/scry-tutor"

// ErrUnknownExporter is returned for an exporter name Init does not support.
var ErrUnknownExporter = errors.New("unknown trace exporter")

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Option customizes Init.
type Option func(*options)

type options struct {
	stdout  io.Writer
	version string
}

// WithStdoutWriter redirects the stdout exporter, which otherwise writes to
// os.Stderr so spans never interleave with chat output.
func WithStdoutWriter(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

// WithServiceVersion tags every span with the running build version.
func WithServiceVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// Init sets up tracing. The returned shutdown function is never nil.
func Init(ctx context.Context, cfg config.TelemetryConfig, opts ...Option) (ShutdownFunc, error) {
	o := options{stdout: os.Stderr, version: "dev"}
	for _, opt := range opts {
		opt(&o)
	}

	noop := func(context.Context) error { return nil }

	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch cfg.Exporter {
	case "", "none":
		return noop, nil
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(o.stdout))
	case "otlp":
		grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, grpcOpts...)
	default:
		return noop, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.Exporter)
	}
	if err != nil {
		return noop, fmt.Errorf("create %s exporter: %w", cfg.Exporter, err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", o.version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
