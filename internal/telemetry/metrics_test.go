package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNewFleetMetrics(t *testing.T) {
	t.Parallel()

	metrics, err := NewFleetMetrics(noop.NewMeterProvider())
	require.NoError(t, err)
	require.NotNil(t, metrics)

	ctx := context.Background()
	metrics.RecordFleetCounts(ctx, 5, 2, 2, 1)
	metrics.RecordPing(ctx, true)
	metrics.RecordPing(ctx, false)
	metrics.RecordInfoRefresh(ctx, true)
}

func TestNewFleetMetricsNilProvider(t *testing.T) {
	t.Parallel()

	metrics, err := NewFleetMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, metrics)
}

func TestNilFleetMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var metrics *FleetMetrics
	ctx := context.Background()

	// Nil receivers must be safe so callers never guard metric calls.
	metrics.RecordFleetCounts(ctx, 1, 1, 0, 0)
	metrics.RecordPing(ctx, true)
	metrics.RecordInfoRefresh(ctx, false)
}
