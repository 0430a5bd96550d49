package obs

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer scoped to one runtime instance.
//
// A Tracer brackets predict_step calls, computer handler dispatch, and
// grounding calls with spans. Exporting those spans somewhere (OTLP, stdout)
// is the embedding application's concern: NewTracer takes an optional
// sdktrace.SpanExporter and is a no-op tracer when none is given.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// TraceConfig configures the tracer.
type TraceConfig struct {
	ServiceName    string
	ServiceVersion string
	// Exporter receives finished spans. A nil Exporter yields a tracer that
	// creates real spans (so context propagation still works) but exports
	// nothing.
	Exporter sdktrace.SpanExporter
	// SamplingRate is the fraction of traces recorded, 0.0-1.0. Defaults to 1.0.
	SamplingRate float64
}

// NewTracer builds a tracer and returns a shutdown func that must be called
// on exit to flush any batched exporter.
func NewTracer(config TraceConfig) (*Tracer, func(context.Context) error) {
	if config.ServiceName == "" {
		config.ServiceName = "cua"
	}
	if config.SamplingRate == 0 {
		config.SamplingRate = 1.0
	}

	var sampler sdktrace.Sampler
	switch {
	case config.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case config.SamplingRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SamplingRate)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithSampler(sampler)}
	if config.Exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(config.Exporter))
	}
	provider := sdktrace.NewTracerProvider(opts...)

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(config.ServiceName),
	}, provider.Shutdown
}

// Start opens a span named name and returns the derived context.
func (t *Tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError marks span as failed and attaches err, leaving span open for
// the caller to End().
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// NoopTracer returns a Tracer that creates real (unsampled) spans but never
// exports them, for tests and for callers that don't configure tracing.
func NoopTracer() *Tracer {
	provider := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample()))
	return &Tracer{provider: provider, tracer: provider.Tracer("cua")}
}

func init() {
	// Avoid otel's default global no-op provider warnings when a caller
	// reaches for the package-level otel.Tracer before constructing one.
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample())))
}
