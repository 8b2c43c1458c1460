// Package observability provides OpenTelemetry tracing, Prometheus metrics
// and structured logging for roadnet.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// TracerName is the instrumentation scope of every roadnet span.
const TracerName = "github.com/efebarandurmaz/roadnet"

// TracingConfig configures span export.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// OTLPEndpoint is the OTLP gRPC collector, e.g. "localhost:4317".
	// Empty disables export.
	OTLPEndpoint string

	// SampleRate is clamped to [0, 1].
	SampleRate float64
}

// DefaultTracingConfig returns tracing with export disabled.
func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		ServiceName:    "roadnet",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		SampleRate:     1.0,
	}
}

// TracerProvider owns the SDK provider when export is enabled.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	conn     *grpc.ClientConn
	tracer   trace.Tracer
}

// InitTracing installs the global tracer provider. Without an endpoint the
// global no-op tracer is used.
func InitTracing(ctx context.Context, cfg *TracingConfig) (*TracerProvider, error) {
	if cfg == nil {
		cfg = DefaultTracingConfig()
	}
	if cfg.OTLPEndpoint == "" {
		return &TracerProvider{tracer: otel.Tracer(TracerName)}, nil
	}

	conn, err := grpc.NewClient(cfg.OTLPEndpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("collector connect: %w", err)
	}
	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(cfg.SampleRate)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{provider: provider, conn: conn, tracer: provider.Tracer(TracerName)}, nil
}

func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Shutdown flushes pending spans and closes the collector connection.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}
	err := tp.provider.Shutdown(ctx)
	if cerr := tp.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

// Tracer returns the underlying tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// Span kinds recorded in the roadnet.span.kind attribute.
const (
	SpanKindParse   = "parse"
	SpanKindImport  = "import"
	SpanKindQuery   = "query"
	SpanKindCompute = "compute"
	SpanKindReport  = "report"
)

func start(ctx context.Context, name, kind string, spanKind trace.SpanKind, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("roadnet.span.kind", kind))
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(spanKind),
		trace.WithAttributes(attrs...),
	)
}

// StartParseSpan starts a span for reading an edge list or export.
func StartParseSpan(ctx context.Context, path string) (context.Context, trace.Span) {
	return start(ctx, "parse", SpanKindParse, trace.SpanKindInternal,
		attribute.String("parse.path", path))
}

// RecordParseResult records the size of the parsed graph.
func RecordParseResult(span trace.Span, nodes, edges int) {
	span.SetAttributes(
		attribute.Int("graph.nodes", nodes),
		attribute.Int("graph.edges", edges),
	)
}

// StartImportSpan starts a span for loading a graph into a store.
func StartImportSpan(ctx context.Context, backend string, nodes, edges int) (context.Context, trace.Span) {
	return start(ctx, fmt.Sprintf("import.%s", backend), SpanKindImport, trace.SpanKindClient,
		attribute.String("graph.backend", backend),
		attribute.Int("graph.nodes", nodes),
		attribute.Int("graph.edges", edges),
	)
}

// StartQuerySpan starts a span for a single store query.
func StartQuerySpan(ctx context.Context, backend, query string) (context.Context, trace.Span) {
	return start(ctx, fmt.Sprintf("query.%s", query), SpanKindQuery, trace.SpanKindClient,
		attribute.String("graph.backend", backend),
		attribute.String("graph.query", query),
	)
}

// StartComputeSpan starts a span for a full metrics computation.
func StartComputeSpan(ctx context.Context, topK int) (context.Context, trace.Span) {
	return start(ctx, "metrics.compute", SpanKindCompute, trace.SpanKindInternal,
		attribute.Int("metrics.top_k", topK))
}

// RecordComputeResult records the headline figures on a compute span.
func RecordComputeResult(span trace.Span, nodes, edges, maxDegree int) {
	span.SetAttributes(
		attribute.Int("graph.nodes", nodes),
		attribute.Int("graph.edges", edges),
		attribute.Int("metrics.max_degree", maxDegree),
	)
}

// StartReportSpan starts a span for rendering a report.
func StartReportSpan(ctx context.Context, format, path string) (context.Context, trace.Span) {
	return start(ctx, fmt.Sprintf("report.%s", format), SpanKindReport, trace.SpanKindInternal,
		attribute.String("report.format", format),
		attribute.String("report.path", path),
	)
}

// RecordError marks the span failed. A nil error is ignored.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
