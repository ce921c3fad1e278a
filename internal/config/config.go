package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// DefaultGridCRS is assigned to grids that carry no CRS metadata. ERA5
// publishes on a regular latitude/longitude grid.
const DefaultGridCRS = "+proj=longlat +datum=WGS84"

// Config holds all run settings, populated from environment variables.
type Config struct {
	TemperatureFile   string
	TemperatureVar    string
	PrecipitationFile string
	PrecipitationVar  string
	RegionFile        string

	// TemperaturePattern and PrecipitationPattern are fmt patterns with a
	// year and a month verb naming one single-band file per month, such as
	// "t2m_%04d_%02d.nc". When set they replace the multi-year file.
	TemperaturePattern   string
	PrecipitationPattern string

	// MonthlyTmaxPattern is a fmt pattern with one integer verb for the month
	// (1-12). Empty disables the monthly climatology stage.
	MonthlyTmaxPattern string
	MonthlyTmaxVar     string

	PeriodStart time.Time
	PeriodEnd   time.Time

	ClipMode      string
	BBoxMarginDeg float64
	GridCRS       string

	OutputDir      string
	FiguresDir     string
	FiguresEnabled bool
	MapYears       []int

	// Optional sinks; empty values disable them.
	SQLitePath        string
	XLSXPath          string
	KafkaBrokers      []string
	KafkaResultsTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
// Variables from ENV_FILE (default .env) are loaded first without overriding the
// environment; a missing file is not an error.
func Load() (*Config, error) {
	if err := loadEnvFile(sharedcfg.EnvOrDefault("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	start, err := parseDate("PERIOD_START", "1940-01-01", false)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("PERIOD_END", "2024-12-31", true)
	if err != nil {
		return nil, err
	}

	margin, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("BBOX_MARGIN_DEG", "0.5"), 64)
	if err != nil || margin < 0 {
		return nil, errors.New("invalid BBOX_MARGIN_DEG: must be a non-negative number")
	}

	figuresEnabled, err := strconv.ParseBool(sharedcfg.EnvOrDefault("FIGURES_ENABLED", "true"))
	if err != nil {
		return nil, errors.New("invalid FIGURES_ENABLED: must be true or false")
	}

	mapYears, err := parseYears(sharedcfg.EnvOrDefault("MAP_YEARS", "1940,1950,1960,1970,1980,1990,2000,2010,2020,2024"))
	if err != nil {
		return nil, err
	}

	gridCRS := DefaultGridCRS
	if v, ok := os.LookupEnv("GRID_CRS"); ok {
		gridCRS = strings.TrimSpace(v)
	}

	cfg := &Config{
		TemperatureFile:      sharedcfg.EnvOrDefault("TEMPERATURE_FILE", "data/data_0.nc"),
		TemperatureVar:       sharedcfg.EnvOrDefault("TEMPERATURE_VAR", "t2m"),
		PrecipitationFile:    sharedcfg.EnvOrDefault("PRECIPITATION_FILE", "data/data_1.nc"),
		PrecipitationVar:     sharedcfg.EnvOrDefault("PRECIPITATION_VAR", "tp"),
		TemperaturePattern:   os.Getenv("TEMPERATURE_PATTERN"),
		PrecipitationPattern: os.Getenv("PRECIPITATION_PATTERN"),
		RegionFile:           sharedcfg.EnvOrDefault("REGION_FILE", "data/regiao_sul.shp"),
		MonthlyTmaxPattern:   os.Getenv("MONTHLY_TMAX_PATTERN"),
		MonthlyTmaxVar:       sharedcfg.EnvOrDefault("MONTHLY_TMAX_VAR", "tmax"),
		PeriodStart:          start,
		PeriodEnd:            end,
		ClipMode:             strings.ToLower(sharedcfg.EnvOrDefault("CLIP_MODE", "centers")),
		BBoxMarginDeg:        margin,
		GridCRS:              gridCRS,
		OutputDir:            sharedcfg.EnvOrDefault("OUTPUT_DIR", "outputs"),
		FiguresDir:           sharedcfg.EnvOrDefault("FIGURES_DIR", "figures"),
		FiguresEnabled:       figuresEnabled,
		MapYears:             mapYears,
		SQLitePath:           os.Getenv("SQLITE_PATH"),
		XLSXPath:             os.Getenv("XLSX_PATH"),
		KafkaBrokers:         sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaResultsTopic:    sharedcfg.EnvOrDefault("KAFKA_RESULTS_TOPIC", "climate-results"),
		HTTPAddr:             os.Getenv("HTTP_ADDR"),
		LogLevel:             sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:      shutdownTimeout,
	}

	if !cfg.PeriodStart.Before(cfg.PeriodEnd) {
		return nil, errors.New("invalid PERIOD_START/PERIOD_END: start must precede end")
	}
	if cfg.ClipMode != "centers" && cfg.ClipMode != "touches" {
		return nil, errors.New("invalid CLIP_MODE: must be centers or touches")
	}
	if cfg.RegionFile == "" {
		return nil, errors.New("REGION_FILE is required")
	}
	if cfg.MonthlyTmaxPattern != "" && strings.Count(cfg.MonthlyTmaxPattern, "%") != 1 {
		return nil, errors.New("invalid MONTHLY_TMAX_PATTERN: must contain exactly one month verb such as %02d")
	}
	for name, pattern := range map[string]string{
		"TEMPERATURE_PATTERN":   cfg.TemperaturePattern,
		"PRECIPITATION_PATTERN": cfg.PrecipitationPattern,
	} {
		if pattern != "" && strings.Count(pattern, "%") != 2 {
			return nil, fmt.Errorf("invalid %s: must contain a year and a month verb such as %%04d_%%02d", name)
		}
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaResultsTopic == "" {
		return nil, errors.New("KAFKA_RESULTS_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether results should be published.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// MonthlyTmaxFile returns the monthly climatology file for month m (1-12).
func (c *Config) MonthlyTmaxFile(m time.Month) string {
	return fmt.Sprintf(c.MonthlyTmaxPattern, int(m))
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// parseDate reads a YYYY-MM-DD date. End dates cover the whole day.
func parseDate(key, def string, endOfDay bool) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, sharedcfg.EnvOrDefault(key, def))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: must be YYYY-MM-DD", key)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func parseYears(s string) ([]int, error) {
	var years []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid MAP_YEARS: %q is not a year", part)
		}
		years = append(years, y)
	}
	return years, nil
}
