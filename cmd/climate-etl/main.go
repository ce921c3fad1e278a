package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/climate-data-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/climate-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/climate-data-etl/internal/adapter/netcdf"
	"github.com/couchcryptid/climate-data-etl/internal/adapter/shapefile"
	"github.com/couchcryptid/climate-data-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/climate-data-etl/internal/adapter/xlsx"
	"github.com/couchcryptid/climate-data-etl/internal/config"
	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/climate-data-etl/internal/observability"
	"github.com/couchcryptid/climate-data-etl/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sinks, closers, err := openSinks(ctx, cfg, logger)
	defer closeAll(closers, logger)
	if err != nil {
		logger.Error("failed to open sinks", "error", err)
		return 1
	}

	p := pipeline.New(
		netcdf.NewLoader(logger),
		shapefile.NewLoader(logger),
		pipeline.OptionsFromConfig(cfg),
		logger,
		metrics,
		sinks...,
	)

	// The status server is optional; it keeps /report available for the
	// lifetime of the process.
	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
	}

	report, runErr := p.Run(ctx)
	if runErr == nil {
		logTrends(logger, report)
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("pipeline failed", "error", runErr)
		return 1
	}
	logger.Info("run complete", "outputs", len(report.Outputs), "failures", len(report.Failures))
	return 0
}

// openSinks builds the configured optional sinks. The closers are returned
// even on error so the caller can release what was opened.
func openSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]pipeline.Sink, []io.Closer, error) {
	var (
		sinks   []pipeline.Sink
		closers []io.Closer
	)
	if cfg.SQLitePath != "" {
		store, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return sinks, closers, err
		}
		sinks = append(sinks, store)
		closers = append(closers, store)
		logger.Info("sqlite sink enabled", "path", cfg.SQLitePath)
	}
	if cfg.XLSXPath != "" {
		sinks = append(sinks, xlsx.NewExporter(cfg.XLSXPath, logger))
		logger.Info("xlsx sink enabled", "path", cfg.XLSXPath)
	}
	if cfg.KafkaEnabled() {
		pub := kafkaadapter.NewPublisher(cfg, logger)
		sinks = append(sinks, pub)
		closers = append(closers, pub)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaResultsTopic)
	}
	return sinks, closers, nil
}

func closeAll(closers []io.Closer, logger *slog.Logger) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("sink close error", "error", err)
		}
	}
}

func logTrends(logger *slog.Logger, report domain.Report) {
	for _, t := range report.Trends {
		verdict := "not significant"
		if t.Significant {
			verdict = "significant " + t.Direction()
		}
		logger.Info("trend",
			"variable", t.Variable,
			"slope_per_year", t.Slope,
			"p_value", t.PValue,
			"r_squared", t.RSquared,
			"verdict", verdict,
		)
	}
}
