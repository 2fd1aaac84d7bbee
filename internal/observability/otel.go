// Package observability sets up OpenTelemetry tracing for the voting service.
// Spans come from otelgin on the HTTP edge, the gorm plugin in the storage
// layer, and the service operations (vote casting, ranking refreshes).
//
// Reads are sampled at the configured ratio. Operations that change voting
// state are always kept, so a disputed vote or a ranking reset can be traced
// even at low sampling ratios.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials"

	"github.com/tbourn/go-product-voting/internal/config"
)

// StateChangingSpans are the service span names sampled regardless of the
// ratio.
var StateChangingSpans = []string{
	"AdminService.Init",
	"AccountRegistry.Register",
	"ProductService.Create",
	"ProductService.Deactivate",
	"Voting.CastVote",
	"RankingService.Reset",
}

// Test seams.
var (
	newExporter = func(ctx context.Context, opts ...otlptracegrpc.Option) (sdktrace.SpanExporter, error) {
		return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	}
	newResource = func(ctx context.Context, serviceName, version string) (*resource.Resource, error) {
		return resource.New(ctx, resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		))
	}
)

// SetupOTel installs the global tracer provider and W3C propagators and
// returns the provider's shutdown. When tracing is disabled the global no-op
// provider stays in place and shutdown does nothing. Globals are left
// untouched on error.
func SetupOTel(ctx context.Context, cfg config.OTELConfig, version string) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := newExporter(ctx, exporterOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	res, err := newResource(ctx, cfg.ServiceName, version)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(NewSampler(cfg.SampleRatio)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

func exporterOptions(cfg config.OTELConfig) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		return append(opts, otlptracegrpc.WithInsecure())
	}
	return append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
}

// NewSampler follows the parent decision and samples new traces at ratio
// (clamped to [0, 1]), except for StateChangingSpans, which are always
// recorded.
func NewSampler(ratio float64) sdktrace.Sampler {
	always := make(map[string]struct{}, len(StateChangingSpans))
	for _, n := range StateChangingSpans {
		always[n] = struct{}{}
	}
	return stateSampler{
		always: always,
		base:   sdktrace.ParentBased(sdktrace.TraceIDRatioBased(clampRatio(ratio))),
	}
}

type stateSampler struct {
	always map[string]struct{}
	base   sdktrace.Sampler
}

func (s stateSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	if _, ok := s.always[p.Name]; ok {
		return sdktrace.SamplingResult{
			Decision:   sdktrace.RecordAndSample,
			Tracestate: trace.SpanContextFromContext(p.ParentContext).TraceState(),
		}
	}
	return s.base.ShouldSample(p)
}

func (s stateSampler) Description() string {
	return "StateChanging{" + s.base.Description() + "}"
}

// clampRatio keeps a sampling ratio within [0, 1].
func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}
