// Package telemetry provides OpenTelemetry metrics instrumentation for the
// fleet daemon, exported in Prometheus format.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// DefaultServiceName is the default service name for telemetry
const DefaultServiceName = "fleetkeeper"

// Provider bundles the meter provider with the HTTP handler that serves
// the Prometheus scrape endpoint.
type Provider struct {
	meterProvider metric.MeterProvider
	registry      *promclient.Registry
	sdkProvider   *sdkmetric.MeterProvider
}

// NewProvider creates a meter provider backed by a Prometheus exporter.
// If enabled is false it returns a no-op provider with no scrape handler.
func NewProvider(ctx context.Context, enabled bool, serviceVersion string) (*Provider, error) {
	if !enabled {
		return &Provider{meterProvider: noop.NewMeterProvider()}, nil
	}

	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(DefaultServiceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	return &Provider{
		meterProvider: mp,
		registry:      registry,
		sdkProvider:   mp,
	}, nil
}

// MeterProvider returns the underlying meter provider.
func (p *Provider) MeterProvider() metric.MeterProvider {
	return p.meterProvider
}

// Handler returns the Prometheus scrape handler, or nil when metrics are
// disabled.
func (p *Provider) Handler() http.Handler {
	if p.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdkProvider == nil {
		return nil
	}
	return p.sdkProvider.Shutdown(ctx)
}
