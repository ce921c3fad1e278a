package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-data-etl/internal/config"
)

func TestMetricsRegisterOnFreshRegistry(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(m.FilesLoaded))
	require.NoError(t, reg.Register(m.StageDuration))

	m.FilesLoaded.WithLabelValues("raster", "success").Inc()
	m.FilesLoaded.WithLabelValues("raster", "success").Inc()
	m.CellsClipped.WithLabelValues("t2m").Set(42)

	assert.InDelta(t, 2, testutil.ToFloat64(m.FilesLoaded.WithLabelValues("raster", "success")), 0)
	assert.InDelta(t, 42, testutil.ToFloat64(m.CellsClipped.WithLabelValues("t2m")), 0)
}

func TestNewMetricsForTestingIsRepeatable(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetricsForTesting()
		NewMetricsForTesting()
	})
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(&config.Config{LogLevel: "debug", LogFormat: "text"})
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(t.Context(), -4))
}
