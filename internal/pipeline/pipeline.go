// Package pipeline runs the climate ETL once: load, clip, aggregate, persist
// tables, analyse, render and hand the report to the optional sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/config"
	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/climate-data-etl/internal/observability"
	"github.com/couchcryptid/climate-data-etl/internal/spatial"
)

// RasterLoader reads one gridded variable from a file.
type RasterLoader interface {
	Load(ctx context.Context, path, variable string) (domain.Grid, error)
	// LoadAt reads a single-band file and stamps it with at.
	LoadAt(ctx context.Context, path, variable string, at time.Time) (domain.Grid, error)
}

// RegionLoader reads the study region boundary.
type RegionLoader interface {
	Load(ctx context.Context, path string) (domain.Region, error)
}

// Sink receives the finished report.
type Sink interface {
	Name() string
	Save(ctx context.Context, report domain.Report) error
}

// Input names one variable inside a multi-year raster file, or inside a
// series of single-band files with one file per month.
type Input struct {
	Path     string
	Variable string
	// Pattern is a fmt pattern with a year and a month verb, such as
	// "t2m_%04d_%02d.nc". It takes precedence over Path when set.
	Pattern string
}

// MonthFile returns the per-month file of month m in year.
func (in Input) MonthFile(year int, m time.Month) string {
	return fmt.Sprintf(in.Pattern, year, int(m))
}

// Source is the path or pattern the variable is read from.
func (in Input) Source() string {
	if in.Pattern != "" {
		return in.Pattern
	}
	return in.Path
}

// Options configures a run.
type Options struct {
	Temperature   Input
	Precipitation Input
	RegionPath    string

	// MonthlyTmax returns the single-band file of a calendar month. Nil
	// disables the climatology stage.
	MonthlyTmax    func(time.Month) string
	MonthlyTmaxVar string

	Start time.Time
	End   time.Time

	// GridCRS is assigned to grids that carry no CRS. Empty leaves them
	// untagged, which forces the bounding-box clip.
	GridCRS string
	Clip    spatial.Options

	OutputDir string
	// FiguresDir empty disables chart rendering.
	FiguresDir string
	MapYears   []int
}

// OptionsFromConfig maps the environment configuration onto run options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Temperature:    Input{Path: cfg.TemperatureFile, Variable: cfg.TemperatureVar, Pattern: cfg.TemperaturePattern},
		Precipitation:  Input{Path: cfg.PrecipitationFile, Variable: cfg.PrecipitationVar, Pattern: cfg.PrecipitationPattern},
		RegionPath:     cfg.RegionFile,
		MonthlyTmaxVar: cfg.MonthlyTmaxVar,
		Start:          cfg.PeriodStart,
		End:            cfg.PeriodEnd,
		GridCRS:        cfg.GridCRS,
		Clip:           spatial.Options{Mode: spatial.Mode(cfg.ClipMode), MarginDeg: cfg.BBoxMarginDeg},
		OutputDir:      cfg.OutputDir,
		MapYears:       cfg.MapYears,
	}
	if cfg.MonthlyTmaxPattern != "" {
		opts.MonthlyTmax = cfg.MonthlyTmaxFile
	}
	if cfg.FiguresEnabled {
		opts.FiguresDir = cfg.FiguresDir
	}
	return opts
}

// Pipeline orchestrates one end-to-end run.
type Pipeline struct {
	rasters RasterLoader
	regions RegionLoader
	clipper *spatial.Clipper
	sinks   []Sink
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics

	ready atomic.Bool
	mu    sync.RWMutex
	last  *domain.Report
}

// New creates a Pipeline with the given loaders, options and sinks.
func New(rasters RasterLoader, regions RegionLoader, opts Options, logger *slog.Logger, metrics *observability.Metrics, sinks ...Sink) *Pipeline {
	return &Pipeline{
		rasters: rasters,
		regions: regions,
		clipper: spatial.NewClipper(opts.Clip, logger),
		sinks:   sinks,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a run has completed, or an error describing
// why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// LastReport returns the report of the most recent successful run.
func (p *Pipeline) LastReport() (domain.Report, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return domain.Report{}, false
	}
	return *p.last, true
}

// Run executes every stage in order. Only an unreadable region, the absence
// of any usable variable, a failed table write or cancellation abort the
// run; failed analyses, figures and sinks are recorded in the report.
func (p *Pipeline) Run(ctx context.Context) (domain.Report, error) {
	started := time.Now()
	p.logger.Info("pipeline started",
		"from", p.opts.Start.Format(time.DateOnly),
		"to", p.opts.End.Format(time.DateOnly),
		"sinks", len(p.sinks),
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	report := domain.Report{GeneratedAt: domain.Now()}

	var region domain.Region
	if err := p.stage(ctx, "region", func() (err error) {
		region, err = p.loadRegion(ctx)
		return err
	}); err != nil {
		return domain.Report{}, err
	}
	report.Region = region.Name

	var vars []variableSeries
	if err := p.stage(ctx, "extract", func() (err error) {
		vars, err = p.extract(ctx, region)
		return err
	}); err != nil {
		return domain.Report{}, err
	}

	if err := p.stage(ctx, "tables", func() error {
		return p.tables(&report, vars)
	}); err != nil {
		return domain.Report{}, err
	}

	var months []monthSample
	if p.opts.MonthlyTmax != nil {
		if err := p.stage(ctx, "climatology", func() (err error) {
			months, err = p.climatology(ctx, &report, region)
			return err
		}); err != nil {
			return domain.Report{}, err
		}
	}

	var decomps []namedDecomposition
	if err := p.stage(ctx, "analysis", func() (err error) {
		decomps, err = p.analyze(&report, vars)
		return err
	}); err != nil {
		return domain.Report{}, err
	}

	if p.opts.FiguresDir != "" {
		if err := p.stage(ctx, "figures", func() error {
			p.render(&report, vars, decomps, months)
			return nil
		}); err != nil {
			return domain.Report{}, err
		}
	}

	if err := p.stage(ctx, "sinks", func() error {
		return p.save(ctx, &report)
	}); err != nil {
		return domain.Report{}, err
	}

	p.mu.Lock()
	p.last = &report
	p.mu.Unlock()
	p.ready.Store(true)

	p.logger.Info("pipeline finished",
		"region", report.Region,
		"years", report.Annual.Len(),
		"trends", len(report.Trends),
		"outputs", len(report.Outputs),
		"failures", len(report.Failures),
		"duration", time.Since(started),
	)
	return report, nil
}

// stage runs f after checking ctx and records its duration.
func (p *Pipeline) stage(ctx context.Context, name string, f func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	start := time.Now()
	err := f()
	p.metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		p.logger.Error("stage failed", "stage", name, "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	p.logger.Debug("stage complete", "stage", name, "duration", time.Since(start))
	return nil
}

// fail records a skipped computation without aborting the run.
func (p *Pipeline) fail(report *domain.Report, analysis, subject string, err error) {
	p.logger.Warn("analysis skipped", "analysis", analysis, "subject", subject, "error", err)
	p.metrics.AnalysisErrors.WithLabelValues(analysis).Inc()
	report.Failures = append(report.Failures, domain.AnalysisFailure{Analysis: analysis, Subject: subject, Err: err})
}

// save hands the report to every sink. Sink failures are recorded and do not
// fail the run since every CSV is already on disk.
func (p *Pipeline) save(ctx context.Context, report *domain.Report) error {
	for _, s := range p.sinks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Save(ctx, *report); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.fail(report, "sink", s.Name(), err)
			continue
		}
		p.metrics.OutputsWritten.WithLabelValues("sink").Inc()
		p.logger.Info("report saved", "sink", s.Name())
	}
	return nil
}
