package figures

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// Bin counts used by the histograms.
const (
	AnnualBins  = 15
	MonthlyBins = 20
)

// BlockYears is the width of the grouped annual box plots.
const BlockYears = 5

// Line draws s against its year axis with markers.
func (r *Renderer) Line(stem string, s domain.PeriodSeries, title, ylabel string) (string, error) {
	xys := seriesXY(s)
	if len(xys) == 0 {
		return "", errNoData(stem)
	}
	p := r.newPlot(title, "Ano", ylabel)
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return "", fmt.Errorf("figure %s: %w", stem, err)
	}
	line.Color = colorLine
	line.Width = vg.Points(1.5)
	points.Color = colorLine
	points.Shape = draw.CircleGlyph{}
	points.Radius = vg.Points(2)
	p.Add(line, points)
	return r.save(p, stem)
}

// Trend draws s with its least-squares line.
func (r *Renderer) Trend(stem string, s domain.PeriodSeries, fit domain.TrendResult, title, ylabel string) (string, error) {
	xys := seriesXY(s)
	if len(xys) == 0 {
		return "", errNoData(stem)
	}
	p := r.newPlot(title, "Ano", ylabel)

	data, err := plotter.NewLine(xys)
	if err != nil {
		return "", fmt.Errorf("figure %s: %w", stem, err)
	}
	data.Color = colorLine
	data.Width = vg.Points(1.5)

	first, last := xys[0].X, xys[len(xys)-1].X
	fitted, err := plotter.NewLine(plotter.XYs{
		{X: first, Y: fit.Intercept + fit.Slope*first},
		{X: last, Y: fit.Intercept + fit.Slope*last},
	})
	if err != nil {
		return "", fmt.Errorf("figure %s: %w", stem, err)
	}
	fitted.Color = colorTrend
	fitted.Width = vg.Points(2)
	fitted.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}

	p.Add(data, fitted)
	p.Legend.Add(s.Name, data)
	p.Legend.Add(fmt.Sprintf("Tendência (%+.4g/ano, p=%.3g)", fit.Slope, fit.PValue), fitted)
	p.Legend.Top = true
	return r.save(p, stem)
}

// BlockBoxPlot groups an annual series into consecutive blocks of
// BlockYears and draws one box per block.
func (r *Renderer) BlockBoxPlot(stem string, s domain.PeriodSeries, title, ylabel string) (string, error) {
	blocks := make(map[int][]float64)
	for _, pt := range s.Valid().Points {
		start := pt.Period.Year - floorMod(pt.Period.Year, BlockYears)
		blocks[start] = append(blocks[start], pt.Value)
	}
	starts := make([]int, 0, len(blocks))
	for k := range blocks {
		starts = append(starts, k)
	}
	sort.Ints(starts)

	groups := make([]boxGroup, len(starts))
	for i, k := range starts {
		groups[i] = boxGroup{label: fmt.Sprintf("%d-%d", k, k+BlockYears-1), values: blocks[k]}
	}
	return r.boxPlot(stem, groups, title, "Período", ylabel)
}

// MonthBoxPlot draws one box per calendar month of a monthly series.
func (r *Renderer) MonthBoxPlot(stem string, s domain.PeriodSeries, title, ylabel string) (string, error) {
	months := make([][]float64, 12)
	for _, pt := range s.Valid().Points {
		if pt.Period.IsAnnual() {
			continue
		}
		months[pt.Period.Month-1] = append(months[pt.Period.Month-1], pt.Value)
	}
	groups := make([]boxGroup, 0, 12)
	for m, vals := range months {
		if len(vals) > 0 {
			groups = append(groups, boxGroup{label: fmt.Sprintf("%02d", m+1), values: vals})
		}
	}
	return r.boxPlot(stem, groups, title, "Mês", ylabel)
}

// ValuesBoxPlot draws one box per labelled sample set, in the given order.
func (r *Renderer) ValuesBoxPlot(stem string, labels []string, values [][]float64, title, xlabel, ylabel string) (string, error) {
	if len(labels) != len(values) {
		return "", fmt.Errorf("figure %s: %w", stem, &domain.MismatchedLengthError{Left: len(labels), Right: len(values)})
	}
	groups := make([]boxGroup, 0, len(labels))
	for i, l := range labels {
		if vals := finite(values[i]); len(vals) > 0 {
			groups = append(groups, boxGroup{label: l, values: vals})
		}
	}
	return r.boxPlot(stem, groups, title, xlabel, ylabel)
}

type boxGroup struct {
	label  string
	values []float64
}

func (r *Renderer) boxPlot(stem string, groups []boxGroup, title, xlabel, ylabel string) (string, error) {
	if len(groups) == 0 {
		return "", errNoData(stem)
	}
	p := r.newPlot(title, xlabel, ylabel)
	labels := make([]string, len(groups))
	for i, g := range groups {
		box, err := plotter.NewBoxPlot(vg.Points(20), float64(i), plotter.Values(g.values))
		if err != nil {
			return "", fmt.Errorf("figure %s: box %s: %w", stem, g.label, err)
		}
		box.FillColor = colorBar
		p.Add(box)
		labels[i] = g.label
	}
	p.NominalX(labels...)
	return r.save(p, stem)
}

// Histogram bins the valid values into bins buckets.
func (r *Renderer) Histogram(stem string, values []float64, bins int, title, xlabel string) (string, error) {
	vals := finite(values)
	if len(vals) == 0 {
		return "", errNoData(stem)
	}
	p := r.newPlot(title, xlabel, "Frequência")
	h, err := plotter.NewHist(plotter.Values(vals), bins)
	if err != nil {
		return "", fmt.Errorf("figure %s: %w", stem, err)
	}
	h.FillColor = colorBar
	p.Add(h)
	return r.save(p, stem)
}

// Scatter plots x against y, paired by position. Pairs with a missing side
// are skipped.
func (r *Renderer) Scatter(stem string, x, y domain.PeriodSeries, title, xlabel, ylabel string) (string, error) {
	if x.Len() != y.Len() {
		return "", fmt.Errorf("figure %s: %w", stem, &domain.MismatchedLengthError{Left: x.Len(), Right: y.Len()})
	}
	xys := make(plotter.XYs, 0, x.Len())
	for i := range x.Points {
		xv, yv := x.Points[i].Value, y.Points[i].Value
		if math.IsNaN(xv) || math.IsNaN(yv) {
			continue
		}
		xys = append(xys, plotter.XY{X: xv, Y: yv})
	}
	if len(xys) == 0 {
		return "", errNoData(stem)
	}
	p := r.newPlot(title, xlabel, ylabel)
	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return "", fmt.Errorf("figure %s: %w", stem, err)
	}
	sc.GlyphStyle.Color = colorScatter
	sc.GlyphStyle.Radius = vg.Points(3)
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(sc)
	return r.save(p, stem)
}

// subtitle stamps a chart with its generation time.
func subtitle(at time.Time) string {
	return "Gerado em " + at.Format("2006-01-02 15:04 MST")
}

func finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}

func floorMod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
