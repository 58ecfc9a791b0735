package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// FleetMetricsMeterName is the name used for the fleet metrics meter
const FleetMetricsMeterName = "github.com/gaeaops/fleetkeeper/fleet"

// FleetMetrics holds the OpenTelemetry instruments for fleet metrics
type FleetMetrics struct {
	accountsTotal   metric.Int64Gauge
	accountsRunning metric.Int64Gauge
	accountsStopped metric.Int64Gauge
	accountsError   metric.Int64Gauge
	pingsTotal      metric.Int64Counter
	infoRefreshes   metric.Int64Counter
}

// NewFleetMetrics creates a new FleetMetrics instance with the given meter
// provider. If provider is nil, it returns nil (no-op metrics).
func NewFleetMetrics(provider metric.MeterProvider) (*FleetMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(FleetMetricsMeterName)

	accountsTotal, err := meter.Int64Gauge(
		"fleetkeeper_accounts_total",
		metric.WithDescription("Number of registered accounts"),
		metric.WithUnit("{account}"),
	)
	if err != nil {
		return nil, err
	}
	accountsRunning, err := meter.Int64Gauge(
		"fleetkeeper_accounts_running",
		metric.WithDescription("Number of accounts in the running set"),
		metric.WithUnit("{account}"),
	)
	if err != nil {
		return nil, err
	}
	accountsStopped, err := meter.Int64Gauge(
		"fleetkeeper_accounts_stopped",
		metric.WithDescription("Number of stopped accounts"),
		metric.WithUnit("{account}"),
	)
	if err != nil {
		return nil, err
	}
	accountsError, err := meter.Int64Gauge(
		"fleetkeeper_accounts_error",
		metric.WithDescription("Number of accounts whose last ping failed"),
		metric.WithUnit("{account}"),
	)
	if err != nil {
		return nil, err
	}
	pingsTotal, err := meter.Int64Counter(
		"fleetkeeper_pings_total",
		metric.WithDescription("Keepalive pings performed, by outcome"),
		metric.WithUnit("{ping}"),
	)
	if err != nil {
		return nil, err
	}
	infoRefreshes, err := meter.Int64Counter(
		"fleetkeeper_info_refreshes_total",
		metric.WithDescription("Account info refreshes performed, by outcome"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, err
	}

	return &FleetMetrics{
		accountsTotal:   accountsTotal,
		accountsRunning: accountsRunning,
		accountsStopped: accountsStopped,
		accountsError:   accountsError,
		pingsTotal:      pingsTotal,
		infoRefreshes:   infoRefreshes,
	}, nil
}

// RecordFleetCounts records the current fleet status counters
func (m *FleetMetrics) RecordFleetCounts(ctx context.Context, total, running, stopped, errored int) {
	if m == nil {
		return
	}
	m.accountsTotal.Record(ctx, int64(total))
	m.accountsRunning.Record(ctx, int64(running))
	m.accountsStopped.Record(ctx, int64(stopped))
	m.accountsError.Record(ctx, int64(errored))
}

// RecordPing records one completed ping attempt
func (m *FleetMetrics) RecordPing(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.pingsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordInfoRefresh records one completed info refresh attempt
func (m *FleetMetrics) RecordInfoRefresh(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.infoRefreshes.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}
