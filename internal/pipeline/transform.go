package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/aggregate"
	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/climate-data-etl/internal/table"
)

// variable describes one input and the table columns it feeds.
type variable struct {
	// key is the ASCII stem used in figure names.
	key   string
	label string
	input Input
	// maps draws the annual maximum of the variable as a map per year.
	maps bool
	// units overrides the units attribute of the source file when set.
	units      string
	monthlyCol string
	meanCol    string
	maxCol     string
}

// variableSeries is a variable after clip, window and aggregation. Series
// are in physical units; grid keeps the units of the source file.
type variableSeries struct {
	variable
	grid    domain.Grid
	monthly domain.PeriodSeries
	annual  aggregate.AnnualSeries
}

func (p *Pipeline) variables() []variable {
	return []variable{
		{
			key:        "temperatura",
			label:      "Temperatura",
			input:      p.opts.Temperature,
			maps:       true,
			monthlyCol: table.MonthlyTempMean,
			meanCol:    table.AnnualTempMean,
			maxCol:     table.AnnualTempMax,
		},
		{
			key:        "precipitacao",
			label:      "Precipitação",
			input:      p.opts.Precipitation,
			units:      domain.UnitsMetres,
			monthlyCol: table.MonthlyPrecMean,
			meanCol:    table.AnnualPrecMean,
			maxCol:     table.AnnualPrecMax,
		},
	}
}

func (p *Pipeline) loadRegion(ctx context.Context) (domain.Region, error) {
	region, err := p.regions.Load(ctx, p.opts.RegionPath)
	if err != nil {
		p.metrics.FilesLoaded.WithLabelValues("region", outcome(err)).Inc()
		return domain.Region{}, fmt.Errorf("load region %s: %w", p.opts.RegionPath, err)
	}
	if region.Empty() {
		p.metrics.FilesLoaded.WithLabelValues("region", "error").Inc()
		return domain.Region{}, &domain.FormatError{Path: p.opts.RegionPath, Err: errors.New("region has no polygons")}
	}
	p.metrics.FilesLoaded.WithLabelValues("region", "success").Inc()
	p.logger.Info("region loaded", "path", p.opts.RegionPath, "region", region.Name, "parts", len(region.Geometry))
	return region, nil
}

// extract loads and aggregates every configured variable. A variable that
// cannot be loaded or does not overlap the region is skipped; the stage
// fails only when none is left.
func (p *Pipeline) extract(ctx context.Context, region domain.Region) ([]variableSeries, error) {
	var out []variableSeries
	for _, v := range p.variables() {
		if v.input.Source() == "" {
			continue
		}
		vs, err := p.transform(ctx, v, region)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.Warn("variable skipped",
				"variable", v.input.Variable,
				"path", v.input.Source(),
				"error", err,
			)
			continue
		}
		out = append(out, vs)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no input variable could be loaded", domain.ErrInsufficientData)
	}
	return out, nil
}

// transform runs load, clip, window and aggregation for one variable.
// A grid in Kelvin is converted to °C after the reductions.
func (p *Pipeline) transform(ctx context.Context, v variable, region domain.Region) (variableSeries, error) {
	grid, err := p.load(ctx, v.input)
	if err != nil {
		return variableSeries{}, err
	}

	clipped, err := p.clip(p.withCRS(grid), region)
	if err != nil {
		return variableSeries{}, err
	}

	windowed := aggregate.Window(clipped, p.opts.Start, p.opts.End)
	monthly, err := aggregate.Monthly(windowed)
	if err != nil {
		return variableSeries{}, err
	}
	annual, err := aggregate.Annual(windowed)
	if err != nil {
		return variableSeries{}, err
	}
	p.metrics.SeriesComputed.Add(3)

	if domain.IsKelvin(grid.Units()) {
		monthly = domain.KelvinToCelsius(monthly)
		annual.Mean = domain.KelvinToCelsius(annual.Mean)
		annual.Max = domain.KelvinToCelsius(annual.Max)
	}
	if v.units != "" {
		monthly.Units, annual.Mean.Units, annual.Max.Units = v.units, v.units, v.units
	}

	p.logger.Info("variable aggregated",
		"variable", v.input.Variable,
		"cells", windowed.CellCount(),
		"months", monthly.Len(),
		"years", annual.Mean.Len(),
	)
	return variableSeries{variable: v, grid: windowed, monthly: monthly, annual: annual}, nil
}

func (p *Pipeline) load(ctx context.Context, in Input) (domain.Grid, error) {
	if in.Pattern != "" {
		return p.loadMonthly(ctx, in)
	}
	grid, err := p.rasters.Load(ctx, in.Path, in.Variable)
	if err != nil {
		p.metrics.FilesLoaded.WithLabelValues("raster", outcome(err)).Inc()
		return domain.Grid{}, err
	}
	p.metrics.FilesLoaded.WithLabelValues("raster", "success").Inc()
	return grid, nil
}

// loadMonthly reads one single-band file per month of the run period and
// stacks them along the time axis. Unreadable months are skipped.
func (p *Pipeline) loadMonthly(ctx context.Context, in Input) (domain.Grid, error) {
	start := time.Date(p.opts.Start.Year(), p.opts.Start.Month(), 1, 0, 0, 0, 0, time.UTC)
	var grids []domain.Grid
	for at := start; !at.After(p.opts.End); at = at.AddDate(0, 1, 0) {
		if err := ctx.Err(); err != nil {
			return domain.Grid{}, err
		}
		path := in.MonthFile(at.Year(), at.Month())
		grid, err := p.rasters.LoadAt(ctx, path, in.Variable, at)
		if err != nil {
			p.metrics.FilesLoaded.WithLabelValues("raster", outcome(err)).Inc()
			p.logger.Debug("monthly file skipped", "path", path, "error", err)
			continue
		}
		p.metrics.FilesLoaded.WithLabelValues("raster", "success").Inc()
		grids = append(grids, grid)
	}
	if len(grids) == 0 {
		return domain.Grid{}, &domain.InsufficientDataError{Op: "load " + in.Pattern, Need: 1, Got: 0}
	}
	p.logger.Info("monthly files stacked", "pattern", in.Pattern, "months", len(grids))
	return domain.ConcatTimes(grids...)
}

// clip restricts grid to region. A region that misses the grid is reported
// as insufficient data for that grid.
func (p *Pipeline) clip(grid domain.Grid, region domain.Region) (domain.Grid, error) {
	clipped, rep, err := p.clipper.Clip(grid, region)
	if err != nil {
		return domain.Grid{}, err
	}
	p.metrics.CellsClipped.WithLabelValues(grid.Variable()).Set(float64(rep.OutputCells))
	if rep.Empty {
		return domain.Grid{}, &domain.InsufficientDataError{Op: "clip " + grid.Variable(), Need: 1, Got: 0}
	}
	return clipped, nil
}

func (p *Pipeline) withCRS(g domain.Grid) domain.Grid {
	if g.CRS() != "" || p.opts.GridCRS == "" {
		return g
	}
	return g.WithCRS(p.opts.GridCRS)
}

func outcome(err error) string {
	if errors.Is(err, domain.ErrInputNotFound) {
		return "missing"
	}
	return "error"
}
