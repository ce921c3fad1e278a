package pipeline

import (
	"github.com/couchcryptid/climate-data-etl/internal/analysis"
	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/climate-data-etl/internal/figures"
	"github.com/couchcryptid/climate-data-etl/internal/table"
)

// column is one annual table column with the variable it came from.
type column struct {
	name   string
	units  string
	source variableSeries
	series domain.PeriodSeries
}

// namedDecomposition carries a decomposition with its figure stem and title.
type namedDecomposition struct {
	stem   string
	title  string
	result domain.DecompositionResult
}

// annualColumns reads every annual column back out of the built table so
// all analyses see the same aligned rows.
func annualColumns(annual domain.Table, vars []variableSeries) []column {
	var out []column
	for _, v := range vars {
		for _, name := range []string{v.meanCol, v.maxCol} {
			s, ok := annual.Series(name, v.annual.Mean.Units)
			if !ok {
				continue
			}
			out = append(out, column{name: name, units: s.Units, source: v, series: s})
		}
	}
	return out
}

// analyze fits trends, decomposes and correlates the annual and monthly
// series. Each failed computation is recorded and skipped.
func (p *Pipeline) analyze(report *domain.Report, vars []variableSeries) ([]namedDecomposition, error) {
	cols := annualColumns(report.Annual, vars)

	for _, c := range cols {
		sum := analysis.Describe(c.series.Values())
		p.logger.Info("annual summary",
			"variable", c.name,
			"count", sum.Count,
			"mean", sum.Mean,
			"std", sum.StdDev,
			"min", sum.Min,
			"median", sum.Median,
			"max", sum.Max,
		)

		tr, err := analysis.Trend(c.series)
		if err != nil {
			p.fail(report, "trend", c.name, err)
			continue
		}
		report.Trends = append(report.Trends, tr)
	}

	var decomps []namedDecomposition
	for _, v := range vars {
		runs := []struct {
			granularity string
			series      domain.PeriodSeries
			period      int
		}{
			{"anual", v.annual.Mean.Renamed(v.meanCol, v.annual.Mean.Units), analysis.PeriodAnnual},
			{"mensal", v.monthly.Renamed(v.monthlyCol, v.monthly.Units), analysis.PeriodMonthly},
		}
		for _, r := range runs {
			d, err := analysis.Decompose(r.series, r.period)
			if err != nil {
				p.fail(report, "decomposition", r.series.Name, err)
				continue
			}
			report.Decompositions = append(report.Decompositions, d)
			decomps = append(decomps, namedDecomposition{
				stem:   figures.Name("decomposicao", v.key, r.granularity),
				title:  "Decomposição " + r.granularity + " - " + r.series.Name,
				result: d,
			})
		}
	}

	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			c, err := analysis.Correlate(cols[i].series, cols[j].series)
			if err != nil {
				p.fail(report, "correlation", cols[i].name+" x "+cols[j].name, err)
				continue
			}
			report.Correlations = append(report.Correlations, c)
		}
	}

	if len(report.Trends) > 0 {
		if err := p.writeRecords(report, table.NameTrends, table.TrendRecords(report.Trends)); err != nil {
			return nil, err
		}
	}
	if len(report.Correlations) > 0 {
		if err := p.writeRecords(report, table.NameCorrelations, table.CorrelationRecords(report.Correlations)); err != nil {
			return nil, err
		}
	}
	return decomps, nil
}
