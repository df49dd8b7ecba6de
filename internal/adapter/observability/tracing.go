// Package observability provides logging, metrics, and tracing.
//
// Logs are JSON via log/slog with a request-scoped logger carried in the context,
// metrics are Prometheus collectors registered by InitMetrics, and traces are
// exported over OTLP/gRPC when an endpoint is configured.
package observability

import (
	"context"
	"log/slog"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// SetupTracing configures OTEL tracing if an endpoint is set. Returns the shutdown func, or nil when disabled.
func SetupTracing(cfg config.Config) (func(context.Context) error, error) {
	if cfg.OTLPEndpoint == "" {
		slog.Info("OTLP endpoint not set; tracing disabled")
		return nil, nil
	}

	exporter, err := otlptracegrpc.New(context.Background(), otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, err
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceNameKey.String(cfg.OTELServiceName),
		semconv.DeploymentEnvironmentKey.String(cfg.AppEnv),
	))
	if err != nil {
		return nil, err
	}

	ratio := samplingRatio(cfg)
	slog.Info("tracing configured",
		slog.String("endpoint", cfg.OTLPEndpoint),
		slog.Float64("sampling_ratio", ratio))

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return tp.Shutdown, nil
}

// samplingRatio clamps OTEL_SAMPLE_RATIO to (0,1]; prod is capped at 10%.
func samplingRatio(cfg config.Config) float64 {
	r := cfg.OTELSampleRatio
	if r <= 0 || r > 1 {
		r = 1
	}
	if cfg.IsProd() && r > 0.1 {
		r = 0.1
	}
	return r
}
