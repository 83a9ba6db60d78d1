// Package telemetry configures OpenTelemetry tracing.
package telemetry

import (
	"context"
	"log/slog"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Config struct {
	ServiceName string

	// Endpoint is the OTLP gRPC collector address.  Empty disables tracing.
	Endpoint string
	Insecure bool
}

// Setup installs the global tracer provider and returns its shutdown
// function.  Exporter failures are logged and leave tracing disabled.
func Setup(ctx context.Context, c Config, logger *slog.Logger) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if c.Endpoint == "" {
		logger.DebugContext(ctx, "tracing disabled")
		return noop
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(c.Endpoint)}
	if c.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		logger.ErrorContext(ctx, "creating otlp exporter", slogutil.KeyError, err)
		return noop
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(c.ServiceName)))
	if err != nil {
		logger.WarnContext(ctx, "creating otel resource", slogutil.KeyError, err)
	}

	provider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "tracing enabled", "endpoint", c.Endpoint)

	return provider.Shutdown
}
