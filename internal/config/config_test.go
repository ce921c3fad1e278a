package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
}

func TestLoad_Defaults(t *testing.T) {
	noEnvFile(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/data_0.nc", cfg.TemperatureFile)
	assert.Equal(t, "t2m", cfg.TemperatureVar)
	assert.Equal(t, "data/data_1.nc", cfg.PrecipitationFile)
	assert.Equal(t, "tp", cfg.PrecipitationVar)
	assert.Equal(t, "data/regiao_sul.shp", cfg.RegionFile)
	assert.Empty(t, cfg.TemperaturePattern)
	assert.Empty(t, cfg.PrecipitationPattern)
	assert.Empty(t, cfg.MonthlyTmaxPattern)
	assert.Equal(t, "tmax", cfg.MonthlyTmaxVar)
	assert.Equal(t, time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC), cfg.PeriodStart)
	assert.Equal(t, 2024, cfg.PeriodEnd.Year())
	assert.True(t, cfg.PeriodEnd.After(time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, "centers", cfg.ClipMode)
	assert.Equal(t, 0.5, cfg.BBoxMarginDeg)
	assert.Equal(t, DefaultGridCRS, cfg.GridCRS)
	assert.Equal(t, "outputs", cfg.OutputDir)
	assert.Equal(t, "figures", cfg.FiguresDir)
	assert.True(t, cfg.FiguresEnabled)
	assert.Equal(t, []int{1940, 1950, 1960, 1970, 1980, 1990, 2000, 2010, 2020, 2024}, cfg.MapYears)
	assert.Empty(t, cfg.SQLitePath)
	assert.Empty(t, cfg.XLSXPath)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "climate-results", cfg.KafkaResultsTopic)
	assert.Empty(t, cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	noEnvFile(t)
	t.Setenv("TEMPERATURE_FILE", "in/t.nc")
	t.Setenv("PRECIPITATION_VAR", "precip")
	t.Setenv("MONTHLY_TMAX_PATTERN", "in/tmax_%02d.nc")
	t.Setenv("TEMPERATURE_PATTERN", "in/t2m_%04d_%02d.nc")
	t.Setenv("PERIOD_START", "1970-01-01")
	t.Setenv("PERIOD_END", "2000-12-31")
	t.Setenv("CLIP_MODE", "TOUCHES")
	t.Setenv("BBOX_MARGIN_DEG", "1.25")
	t.Setenv("GRID_CRS", "")
	t.Setenv("FIGURES_ENABLED", "false")
	t.Setenv("MAP_YEARS", "1970, 2000")
	t.Setenv("SQLITE_PATH", "out/results.db")
	t.Setenv("XLSX_PATH", "out/results.xlsx")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_RESULTS_TOPIC", "custom-results")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "in/t.nc", cfg.TemperatureFile)
	assert.Equal(t, "precip", cfg.PrecipitationVar)
	assert.Equal(t, "in/tmax_03.nc", cfg.MonthlyTmaxFile(time.March))
	assert.Equal(t, "in/t2m_%04d_%02d.nc", cfg.TemperaturePattern)
	assert.Empty(t, cfg.PrecipitationPattern)
	assert.Equal(t, 1970, cfg.PeriodStart.Year())
	assert.Equal(t, 2000, cfg.PeriodEnd.Year())
	assert.Equal(t, "touches", cfg.ClipMode)
	assert.Equal(t, 1.25, cfg.BBoxMarginDeg)
	assert.Empty(t, cfg.GridCRS, "empty GRID_CRS disables assignment")
	assert.False(t, cfg.FiguresEnabled)
	assert.Equal(t, []int{1970, 2000}, cfg.MapYears)
	assert.Equal(t, "out/results.db", cfg.SQLitePath)
	assert.Equal(t, "out/results.xlsx", cfg.XLSXPath)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, "custom-results", cfg.KafkaResultsTopic)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.env")
	require.NoError(t, os.WriteFile(path, []byte("TEMPERATURE_VAR=t2m_file\nOUTPUT_DIR=from-file\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("OUTPUT_DIR", "from-env")
	t.Cleanup(func() { os.Unsetenv("TEMPERATURE_VAR") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "t2m_file", cfg.TemperatureVar)
	assert.Equal(t, "from-env", cfg.OutputDir, "environment wins over the file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value, wantErr string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration", "SHUTDOWN_TIMEOUT"},
		{"SHUTDOWN_TIMEOUT", "-1s", "SHUTDOWN_TIMEOUT"},
		{"PERIOD_START", "1940/01/01", "PERIOD_START"},
		{"PERIOD_END", "1930-01-01", "PERIOD_START/PERIOD_END"},
		{"CLIP_MODE", "nearest", "CLIP_MODE"},
		{"BBOX_MARGIN_DEG", "-1", "BBOX_MARGIN_DEG"},
		{"FIGURES_ENABLED", "maybe", "FIGURES_ENABLED"},
		{"MAP_YEARS", "1940,abc", "MAP_YEARS"},
		{"MONTHLY_TMAX_PATTERN", "tmax.nc", "MONTHLY_TMAX_PATTERN"},
		{"TEMPERATURE_PATTERN", "t2m_%02d.nc", "TEMPERATURE_PATTERN"},
		{"PRECIPITATION_PATTERN", "tp.nc", "PRECIPITATION_PATTERN"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			noEnvFile(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
