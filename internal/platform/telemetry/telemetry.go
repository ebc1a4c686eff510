// Package telemetry wires OpenTelemetry tracing and Prometheus metrics into
// the HTTP server and the scheduling services.
package telemetry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/hospitall/hospitall"

type TelemetryConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TracingEnabled bool
	OTLPEndpoint   string
	SampleRate     float64
}

func (c *TelemetryConfig) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "hospitall-server"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "0.0.0"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
}

// TelemetryProvider owns the tracer provider and the metrics collector.
type TelemetryProvider struct {
	cfg     TelemetryConfig
	tp      *sdktrace.TracerProvider
	tracer  trace.Tracer
	Metrics *Collector

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewTelemetryProvider builds the provider and installs it as the global
// tracer provider. With tracing disabled spans are created but never sampled.
func NewTelemetryProvider(ctx context.Context, cfg TelemetryConfig) (*TelemetryProvider, error) {
	cfg.applyDefaults()

	var opts []sdktrace.TracerProviderOption
	if cfg.TracingEnabled {
		exp, err := otlptracehttp.New(ctx, exporterOptions(cfg.OTLPEndpoint)...)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(resourceAttributes(cfg)...),
		resource.WithProcess(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}
	opts = append(opts, sdktrace.WithResource(res))

	p := newProvider(cfg, opts...)

	otel.SetTracerProvider(p.tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return p, nil
}

func newProvider(cfg TelemetryConfig, opts ...sdktrace.TracerProviderOption) *TelemetryProvider {
	cfg.applyDefaults()

	sampler := sdktrace.NeverSample()
	if cfg.TracingEnabled {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))
	}
	opts = append(opts, sdktrace.WithSampler(sampler))

	tp := sdktrace.NewTracerProvider(opts...)
	return &TelemetryProvider{
		cfg:     cfg,
		tp:      tp,
		tracer:  tp.Tracer(instrumentationName),
		Metrics: NewCollector(metricNamespace(cfg.ServiceName)),
	}
}

func exporterOptions(endpoint string) []otlptracehttp.Option {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return []otlptracehttp.Option{otlptracehttp.WithEndpointURL(endpoint)}
	}
	return []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	}
}

func resourceAttributes(cfg TelemetryConfig) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		attribute.String("deployment.environment.name", cfg.Environment),
	}
}

// metricNamespace turns a service name into a valid Prometheus namespace.
func metricNamespace(service string) string {
	return strings.NewReplacer("-", "_", ".", "_").Replace(service)
}

// Tracer returns the tracer used by the HTTP middleware.
func (p *TelemetryProvider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes pending spans. Safe to call more than once.
func (p *TelemetryProvider) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		p.shutdownErr = p.tp.Shutdown(ctx)
	})
	return p.shutdownErr
}

// Resource returns the resource attributes as plain strings.
func (p *TelemetryProvider) Resource() map[string]string {
	return map[string]string{
		"service.name":                p.cfg.ServiceName,
		"service.version":             p.cfg.ServiceVersion,
		"deployment.environment.name": p.cfg.Environment,
	}
}
