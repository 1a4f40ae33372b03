package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "bindsig"

// Tracer is the package-wide tracer. It delegates to the global provider, so
// spans are no-ops until InitTracing installs an exporter.
var Tracer trace.Tracer = otel.Tracer(instrumentationName)

// TracingConfig selects the OTLP endpoint spans are exported to.
type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	Insecure    bool
}

// InitTracing installs a batching OTLP/gRPC tracer provider. The returned
// function flushes and shuts it down. When tracing is disabled it returns a
// no-op shutdown.
func InitTracing(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res := sdkresource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	Tracer = provider.Tracer(instrumentationName)

	return provider.Shutdown, nil
}
