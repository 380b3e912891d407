package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// AppMetrics holds the application's counters. A nil *AppMetrics is
// valid and records nothing, so callers never need to branch.
type AppMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	OrdersPlaced           metric.Int64Counter
	OversellRejections     metric.Int64Counter
	DiscountRejections     metric.Int64Counter
	WebhookEventsApplied   metric.Int64Counter
	WebhookEventsIgnored   metric.Int64Counter
	ExpiredOrdersCancelled metric.Int64Counter
}

// Init wires an OTLP HTTP exporter (endpoint from the standard OTEL env
// vars) and registers the meter provider globally.
func Init(ctx context.Context, serviceName string) (*AppMetrics, *sdkmetric.MeterProvider, error) {
	exporter, err := otlpmetrichttp.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("build resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	m := &AppMetrics{}
	if m.HTTPRequestsTotal, err = meter.Int64Counter("http.requests.total"); err != nil {
		return nil, nil, err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("http.request.duration",
		metric.WithUnit("s")); err != nil {
		return nil, nil, err
	}
	if m.OrdersPlaced, err = meter.Int64Counter("orders.placed"); err != nil {
		return nil, nil, err
	}
	if m.OversellRejections, err = meter.Int64Counter("checkout.oversell.rejections"); err != nil {
		return nil, nil, err
	}
	if m.DiscountRejections, err = meter.Int64Counter("checkout.discount.rejections"); err != nil {
		return nil, nil, err
	}
	if m.WebhookEventsApplied, err = meter.Int64Counter("webhook.events.applied"); err != nil {
		return nil, nil, err
	}
	if m.WebhookEventsIgnored, err = meter.Int64Counter("webhook.events.ignored"); err != nil {
		return nil, nil, err
	}
	if m.ExpiredOrdersCancelled, err = meter.Int64Counter("orders.expired.cancelled"); err != nil {
		return nil, nil, err
	}
	return m, provider, nil
}

func (m *AppMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, seconds, attrs)
}

func (m *AppMetrics) IncOrdersPlaced(ctx context.Context) {
	if m == nil {
		return
	}
	m.OrdersPlaced.Add(ctx, 1)
}

func (m *AppMetrics) IncOversellRejections(ctx context.Context) {
	if m == nil {
		return
	}
	m.OversellRejections.Add(ctx, 1)
}

func (m *AppMetrics) IncDiscountRejections(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.DiscountRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *AppMetrics) IncWebhookEvent(ctx context.Context, kind string, applied bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("event", kind))
	if applied {
		m.WebhookEventsApplied.Add(ctx, 1, attrs)
	} else {
		m.WebhookEventsIgnored.Add(ctx, 1, attrs)
	}
}

func (m *AppMetrics) AddExpiredOrdersCancelled(ctx context.Context, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.ExpiredOrdersCancelled.Add(ctx, n)
}
