// Package telemetry wires OpenTelemetry tracing across the query and ingest
// paths: the HTTP server opens a root span per request, and the Search
// Orchestrator, Embedding Client, LLM Client, and Vector/Catalog gateways
// each open a child span for their I/O.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"
)

// Config controls resource attribution and the OTLP endpoint.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
}

// Init configures the global tracer provider. Returns a shutdown func. When
// cfg.OTLPEndpoint is empty, a no-op tracer provider is installed (useful for
// tests and local runs without a collector).
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if cfg.OTLPEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithProcess(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: init resource: %w", err)
	}

	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("telemetry: init trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// Tracer name shared by every span this system opens.
const tracerName = "fdbsearch"

// StartSpan opens a child span named name under ctx's active span, tagging
// it with attrs. Mirrors the request/component span shape used throughout
// the query and ingest paths.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tr := otel.Tracer(tracerName)
	return tr.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError records err on span if non-nil, returning err unchanged so it
// can be used inline in a return statement.
func RecordError(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
	}
	return err
}
