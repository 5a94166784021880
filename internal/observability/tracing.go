// Package observability exports the spans Genkit records for every
// generation and embedding call to an OpenTelemetry collector.
//
// Genkit installs its own TracerProvider at init and traces each model
// action on it. Setup attaches an OTLP HTTP exporter to that provider, so
// pipeline requests show up in whatever backend the collector forwards to
// without any per-call instrumentation here.
//
// The exporter speaks plain HTTP. The expected collector is an agent on
// localhost (an OpenTelemetry Collector or a vendor agent with an OTLP
// receiver on :4318); point remote endpoints through a local forwarder
// rather than at a TLS ingest directly.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config tells Setup where spans go and how they are tagged.
type Config struct {
	// Endpoint is the collector's OTLP HTTP host:port. Empty disables
	// tracing entirely.
	Endpoint string
	// Service is the service name spans are tagged with.
	Service string
	// Environment is the deployment environment tag (dev, staging, prod).
	Environment string
}

// Setup registers a batching OTLP exporter with Genkit's TracerProvider
// and returns a shutdown function that flushes pending spans.
//
// Tracing is best-effort: an empty endpoint, or an exporter that cannot be
// constructed, yields a no-op shutdown and no error. An unreachable
// collector surfaces later as dropped batches, never as a setup failure.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Endpoint == "" {
		logger.Debug("tracing disabled, no endpoint configured")
		return noop, nil
	}

	// Genkit's TracerProvider builds its resource from the OTEL_*
	// environment, so the tags have to be set before spans are exported.
	if cfg.Service != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.Service)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "endpoint", cfg.Endpoint, "error", err)
		return noop, nil
	}

	tracing.TracerProvider().RegisterSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter))
	logger.Debug("tracing enabled",
		"endpoint", cfg.Endpoint,
		"service", cfg.Service,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
