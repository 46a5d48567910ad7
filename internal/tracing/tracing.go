// Package tracing wires an optional Jaeger exporter for the bridge's and
// resolver's otel spans. It is off by default - InitTracerProvider is only
// called when the server is started with --enable-jaeger - since most
// development and test runs have nothing listening on the collector
// endpoint.
package tracing

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

func newJaegerExporter(endpoint string) (tracesdk.SpanExporter, error) {
	return jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)))
}

// InitTracerProvider sets the global TracerProvider up to export spans to
// a Jaeger collector and returns it so the caller can Shutdown it on exit.
func InitTracerProvider(log logr.Logger, jaegerEndpoint string) (*tracesdk.TracerProvider, error) {
	exp, err := newJaegerExporter(jaegerEndpoint)
	if err != nil {
		log.Error(err, "failed to create jaeger exporter")
		return nil, err
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithSampler(tracesdk.AlwaysSample()),
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("kotlin-sidecar-bridge"),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Shutdown flushes and tears down a TracerProvider created by
// InitTracerProvider, bounded to 5 seconds so a slow or unreachable
// collector never hangs process exit.
func Shutdown(ctx context.Context, log logr.Logger, tp *tracesdk.TracerProvider) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := tp.Shutdown(ctx); err != nil {
		log.Error(err, "error shutting down tracer provider")
	}
}
