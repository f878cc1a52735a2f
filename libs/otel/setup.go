package otelx

import (
	"context"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

type Config struct {
	ServiceName string
	// Endpoint is the OTLP gRPC collector address (host:port).
	Endpoint    string
	SampleRatio float64
	Enabled     bool
}

// ConfigFromEnv reads OTEL_ENABLED, OTEL_EXPORTER_OTLP_ENDPOINT and
// OTEL_SAMPLING_RATIO. Tracing defaults to on with full sampling against a
// local collector, which suits dev compose setups; production overrides the
// ratio down.
func ConfigFromEnv(serviceName string) Config {
	cfg := Config{
		ServiceName: serviceName,
		Endpoint:    envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "jaeger:4317"),
		SampleRatio: 1.0,
		Enabled:     true,
	}
	switch envOr("OTEL_ENABLED", "true") {
	case "false", "0":
		cfg.Enabled = false
	}
	if f, err := strconv.ParseFloat(envOr("OTEL_SAMPLING_RATIO", "1"), 64); err == nil && f >= 0 && f <= 1 {
		cfg.SampleRatio = f
	}
	return cfg
}

// Setup installs the global propagator and, when enabled, a tracer provider
// exporting to the configured OTLP endpoint. The returned func flushes and
// shuts the provider down; call it during graceful shutdown.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithTimeout(3*time.Second),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
