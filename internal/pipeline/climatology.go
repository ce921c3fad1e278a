package pipeline

import (
	"context"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/aggregate"
	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/climate-data-etl/internal/table"
)

// monthSample holds every clipped maximum-temperature value of one calendar
// month, in °C.
type monthSample struct {
	month  time.Month
	values []float64
}

// climatology summarizes the twelve single-band monthly maximum temperature
// files. Missing or unusable months are skipped; with no month left the
// table stays empty and the run continues.
func (p *Pipeline) climatology(ctx context.Context, report *domain.Report, region domain.Region) ([]monthSample, error) {
	var mean, low, high []domain.PeriodValue
	var samples []monthSample
	for m := time.January; m <= time.December; m++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := p.opts.MonthlyTmax(m)
		grid, err := p.rasters.LoadAt(ctx, path, p.opts.MonthlyTmaxVar, time.Date(p.opts.Start.Year(), m, 1, 0, 0, 0, 0, time.UTC))
		if err != nil {
			p.metrics.FilesLoaded.WithLabelValues("raster", outcome(err)).Inc()
			p.logger.Warn("monthly file skipped", "path", path, "month", int(m), "error", err)
			continue
		}
		p.metrics.FilesLoaded.WithLabelValues("raster", "success").Inc()

		clipped, err := p.clip(p.withCRS(grid), region)
		if err != nil {
			p.fail(report, "climatology", path, err)
			continue
		}
		ext, err := aggregate.Summarize(clipped)
		if err != nil {
			p.fail(report, "climatology", path, err)
			continue
		}
		values := aggregate.CellValues(clipped)
		if domain.IsKelvin(grid.Units()) {
			ext.Mean, ext.Min, ext.Max = domain.Celsius(ext.Mean), domain.Celsius(ext.Min), domain.Celsius(ext.Max)
			for i, v := range values {
				values[i] = domain.Celsius(v)
			}
		}

		period := domain.MonthPeriod(0, m)
		mean = append(mean, domain.PeriodValue{Period: period, Value: ext.Mean})
		low = append(low, domain.PeriodValue{Period: period, Value: ext.Min})
		high = append(high, domain.PeriodValue{Period: period, Value: ext.Max})
		samples = append(samples, monthSample{month: m, values: values})
	}

	if len(samples) == 0 {
		p.logger.Warn("no monthly maximum temperature file usable, climatology skipped")
		return nil, nil
	}

	t, err := table.New(table.NameClimatology, domain.ColumnMonth).
		Add(table.TmaxMean, domain.NewPeriodSeries(table.TmaxMean, domain.UnitsCelsius, mean)).
		Add(table.TmaxMin, domain.NewPeriodSeries(table.TmaxMin, domain.UnitsCelsius, low)).
		Add(table.TmaxMax, domain.NewPeriodSeries(table.TmaxMax, domain.UnitsCelsius, high)).
		Build()
	if err != nil {
		return nil, err
	}
	report.Climatology = t
	if err := p.writeTable(report, t); err != nil {
		return nil, err
	}
	return samples, nil
}
