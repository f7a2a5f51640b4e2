package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMeterProviderDisabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), MetricsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NoError(t, mp.Shutdown(context.Background()))
	assert.NoError(t, mp.ForceFlush(context.Background()))
	// falls back to the global no-op meter
	assert.NotNil(t, mp.Meter("fablab.billing"))
}

func TestCounterHelpers(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), MetricsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	meter := mp.Meter("test")

	counter, err := NewCounter(meter, "test_total", "test counter", "{events}")
	require.NoError(t, err)
	counter.Inc(context.Background())
	counter.Add(context.Background(), 5, AttrEventType.String("test"))

	histogram, err := NewHistogram(meter, "test_duration", "test histogram", "s")
	require.NoError(t, err)
	histogram.Record(context.Background(), 0.05)
}
