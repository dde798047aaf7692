package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// Observability bundles the OpenTelemetry meter and tracer used by aggregate
// operations. The zero value records nothing.
type Observability struct {
	meterProvider     *metric.MeterProvider
	meter             otelmetric.Meter
	tracer            trace.Tracer
	operationCounter  otelmetric.Int64Counter
	operationDuration otelmetric.Float64Histogram
	endpointFailures  otelmetric.Int64Counter
}

// New registers a prometheus-backed meter provider. Exporter failures leave
// metrics disabled rather than failing startup.
func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return &Observability{tracer: otel.Tracer(serviceName)}, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	o := newWithMeter(provider.Meter(serviceName), otel.Tracer(serviceName))
	o.meterProvider = provider
	return o, nil
}

// NewWithProviders builds an Observability from explicit providers.
func NewWithProviders(mp otelmetric.MeterProvider, tp trace.TracerProvider, name string) *Observability {
	return newWithMeter(mp.Meter(name), tp.Tracer(name))
}

func newWithMeter(meter otelmetric.Meter, tracer trace.Tracer) *Observability {
	operationCounter, _ := meter.Int64Counter(
		"borehole.operations",
		otelmetric.WithDescription("Number of aggregate operations by outcome"),
	)
	operationDuration, _ := meter.Float64Histogram(
		"borehole.operations.duration",
		otelmetric.WithDescription("Aggregate operation duration"),
		otelmetric.WithUnit("ms"),
	)
	endpointFailures, _ := meter.Int64Counter(
		"borehole.endpoint.failures",
		otelmetric.WithDescription("Endpoints that failed within an aggregate operation"),
	)

	return &Observability{
		meter:             meter,
		tracer:            tracer,
		operationCounter:  operationCounter,
		operationDuration: operationDuration,
		endpointFailures:  endpointFailures,
	}
}

// Tracer returns the configured tracer, or the global one.
func (o *Observability) Tracer() trace.Tracer {
	if o == nil || o.tracer == nil {
		return otel.Tracer("borehole-workers")
	}
	return o.tracer
}

func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordOperation records one aggregate operation with its outcome.
func (o *Observability) RecordOperation(ctx context.Context, operation, status string, failed int, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
	if o.operationCounter != nil {
		o.operationCounter.Add(ctx, 1, attrs)
	}
	if o.operationDuration != nil {
		o.operationDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
	if o.endpointFailures != nil && failed > 0 {
		o.endpointFailures.Add(ctx, int64(failed), otelmetric.WithAttributes(attribute.String("operation", operation)))
	}
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
