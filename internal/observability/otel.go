// Package observability sets up OpenTelemetry tracing for provider calls.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies spans emitted by this module.
const TracerName = "github.com/jonathanhorst/obsidian-media-summarizer"

// Setup installs a global tracer provider exporting over OTLP/HTTP to
// endpoint (host:port). An empty endpoint installs nothing and returns a
// no-op shutdown.
func Setup(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(semconv.ServiceName("media-summarizer"))),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Tracer returns the module tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// Attributes for chat completion spans.
func Attributes(provider, model, requestID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
		attribute.String("request.id", requestID),
	}
}
