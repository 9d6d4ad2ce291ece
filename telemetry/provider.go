package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Providers bundles the tracer/meter this package's handlers need, plus a
// shutdown func that flushes and closes whatever exporter was wired.
type Providers struct {
	Tracer   trace.Tracer
	Meter    metric.Meter
	Shutdown func(context.Context) error
}

// Setup builds a tracer and meter for the run. When otlpEndpoint is empty,
// spans and metrics are recorded in-process (no exporter) — TracingHandler
// and MetricsHandler still work, they just have no backend to ship to. When
// set, an OTLP/HTTP exporter is wired in, matching the teacher's own
// posture of only enabling a real exporter when explicitly configured from
// cmd, never by default.
func Setup(ctx context.Context, otlpEndpoint string) (*Providers, error) {
	tp := sdktrace.NewTracerProvider()
	mp := sdkmetric.NewMeterProvider()

	shutdown := func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return err
		}
		return mp.Shutdown(ctx)
	}

	if otlpEndpoint == "" {
		return &Providers{
			Tracer:   tp.Tracer("fractalic"),
			Meter:    mp.Meter("fractalic"),
			Shutdown: shutdown,
		}, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(otlpEndpoint))
	if err != nil {
		return nil, err
	}
	tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	shutdown = func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return err
		}
		return mp.Shutdown(ctx)
	}

	return &Providers{
		Tracer:   tp.Tracer("fractalic"),
		Meter:    mp.Meter("fractalic"),
		Shutdown: shutdown,
	}, nil
}
