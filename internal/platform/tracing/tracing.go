// Package tracing installs the global OpenTelemetry tracer provider that the
// cases and screening services report their spans to.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"watchdesk/internal/platform/config"
)

type options struct {
	exporter sdktrace.SpanExporter
}

type Option func(*options)

// WithExporter replaces the OTLP exporter. Spans are exported synchronously
// as they end.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) {
		o.exporter = exp
	}
}

// New builds a tracer provider, installs it as the global provider and sets
// the W3C trace-context propagator. It returns (nil, nil) when no endpoint
// or exporter is configured, leaving the no-op provider in place.
func New(ctx context.Context, cfg config.TracingConfig, opts ...Option) (*sdktrace.TracerProvider, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.Endpoint == "" && o.exporter == nil {
		return nil, nil
	}

	name := cfg.ServiceName
	if name == "" {
		name = "watchdesk"
	}
	providerOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	}
	if o.exporter != nil {
		providerOpts = append(providerOpts, sdktrace.WithSyncer(o.exporter))
	} else {
		httpOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			httpOpts = append(httpOpts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptracehttp.New(ctx, httpOpts...)
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
		providerOpts = append(providerOpts, sdktrace.WithBatcher(exp))
	}

	tp := sdktrace.NewTracerProvider(providerOpts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp, nil
}
