package pipeline

import (
	"fmt"
	"strconv"

	"github.com/couchcryptid/climate-data-etl/internal/aggregate"
	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/climate-data-etl/internal/figures"
	"github.com/couchcryptid/climate-data-etl/internal/table"
)

// render draws every chart. A chart that cannot be drawn is recorded and
// skipped.
func (p *Pipeline) render(report *domain.Report, vars []variableSeries, decomps []namedDecomposition, months []monthSample) {
	r := figures.NewRenderer(p.opts.FiguresDir, p.logger)
	region := report.Region
	drawn := 0
	add := func(subject string) func(string, error) {
		return func(path string, err error) {
			if err != nil {
				p.fail(report, "figure", subject, err)
				return
			}
			drawn++
			p.wrote(report, "figure", path)
		}
	}
	defer func() { p.logger.Info("figures rendered", "dir", r.Dir(), "count", drawn) }()

	trends := make(map[string]domain.TrendResult, len(report.Trends))
	for _, t := range report.Trends {
		trends[t.Variable] = t
	}

	for _, c := range annualColumns(report.Annual, vars) {
		ylabel := c.name
		add(c.name)(r.Line(figures.Name(c.name, region), c.series, c.name+" - "+region, ylabel))
		add(c.name)(r.LineHTML(figures.Name(c.name, region), c.series, c.name+" - "+region, ylabel))
		add(c.name)(r.BlockBoxPlot(figures.Name("boxplot", c.name, "5anos", region), c.series,
			c.name+" por blocos de 5 anos", ylabel))
		add(c.name)(r.Histogram(figures.Name("histograma", c.name, region), c.series.Values(), figures.AnnualBins,
			"Histograma - "+c.name, ylabel))
		if tr, ok := trends[c.name]; ok {
			add(c.name)(r.Trend(figures.Name("tendencia anual", c.name), c.series, tr,
				"Tendência - "+c.name, ylabel))
		}
	}

	for _, v := range vars {
		add(v.monthlyCol)(r.MonthBoxPlot(figures.Name("boxplot", v.key+" mensal", region), v.monthly,
			v.label+" mensal por mês - "+region, v.monthlyCol))
	}

	if prec, ok := report.Annual.Series(table.AnnualPrecMean, domain.UnitsMetres); ok {
		for _, x := range []struct{ stem, column string }{
			{"dispersao temp media precip anual", table.AnnualTempMean},
			{"dispersao temp max precip anual", table.AnnualTempMax},
		} {
			temp, ok := report.Annual.Series(x.column, domain.UnitsCelsius)
			if !ok {
				continue
			}
			add(x.column)(r.Scatter(figures.Name(x.stem, region), temp, prec,
				x.column+" x "+prec.Name, x.column, prec.Name))
		}
	}

	for _, d := range decomps {
		add(d.result.Variable)(r.Decomposition(d.stem, d.result, d.title))
	}

	for _, v := range vars {
		if v.maps {
			p.renderMaps(r, report, v, add)
		}
	}

	if len(months) > 0 {
		labels := make([]string, len(months))
		values := make([][]float64, len(months))
		for i, m := range months {
			labels[i] = fmt.Sprintf("%02d", int(m.month))
			values[i] = m.values
			add(table.NameClimatology)(r.Histogram(figures.Name("histograma tmax", labels[i], region), m.values,
				figures.MonthlyBins, "Tmax - mês "+labels[i], table.TmaxMean))
		}
		add(table.NameClimatology)(r.ValuesBoxPlot(figures.Name("boxplot tmax mensal"), labels, values,
			"Tmax por mês - "+region, "Mês", table.TmaxMean))
		add(table.NameClimatology)(r.Table(figures.Name("tabela tmax mensal", region), report.Climatology,
			"Estatísticas mensais de Tmax (°C) - "+region))
	}
}

// renderMaps draws the annual maximum temperature map of each configured
// year present in the data.
func (p *Pipeline) renderMaps(r *figures.Renderer, report *domain.Report, v variableSeries, add func(string) func(string, error)) {
	for _, year := range p.opts.MapYears {
		g, err := aggregate.AnnualMaxGrid(v.grid, year)
		if err != nil {
			p.logger.Debug("map year not in data", "year", year, "error", err)
			continue
		}
		if domain.IsKelvin(g.Units()) {
			g = domain.GridKelvinToCelsius(g)
		}
		y := strconv.Itoa(year)
		add("mapa "+y)(r.Map(figures.Name("temperatura maxima", y), g,
			"Temperatura máxima "+y+" (°C) - "+report.Region))
	}
}
