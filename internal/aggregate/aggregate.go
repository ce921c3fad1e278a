// Package aggregate resamples clipped grids into monthly and annual series.
//
// Every reduction runs in two steps: a temporal reduction per cell over the
// samples of a bucket, then a spatial reduction over the cells inside the
// region. Missing samples (NaN) are skipped; a bucket with no valid sample
// yields NaN, never zero.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// AnnualSeries pairs the two annual reductions of one variable.
type AnnualSeries struct {
	// Mean is the spatial mean of each cell's mean over the year.
	Mean domain.PeriodSeries
	// Max is the spatial maximum of each cell's maximum over the year.
	Max domain.PeriodSeries
}

// Window keeps the time steps within [from, to], both inclusive.
func Window(g domain.Grid, from, to time.Time) domain.Grid {
	return g.SelectTimes(func(t time.Time) bool {
		return !t.Before(from) && !t.After(to)
	})
}

// Monthly resamples g into calendar-month buckets: temporal mean per cell,
// then spatial mean.
func Monthly(g domain.Grid) (domain.PeriodSeries, error) {
	if err := checkGrid(g, "monthly aggregation"); err != nil {
		return domain.PeriodSeries{}, err
	}
	groups := groupBy(g, domain.PeriodOf)
	pts := make([]domain.PeriodValue, 0, len(groups))
	for _, grp := range groups {
		cells := reduceCells(g, grp.steps, Mean)
		pts = append(pts, domain.PeriodValue{Period: grp.period, Value: Mean(cells)})
	}
	return domain.NewPeriodSeries(g.Variable(), g.Units(), pts), nil
}

// Annual groups g by calendar year and returns the mean-of-year spatial mean
// and the max-of-year spatial max.
func Annual(g domain.Grid) (AnnualSeries, error) {
	if err := checkGrid(g, "annual aggregation"); err != nil {
		return AnnualSeries{}, err
	}
	groups := groupBy(g, func(t time.Time) domain.Period { return domain.YearPeriod(t.UTC().Year()) })
	means := make([]domain.PeriodValue, 0, len(groups))
	maxes := make([]domain.PeriodValue, 0, len(groups))
	for _, grp := range groups {
		means = append(means, domain.PeriodValue{Period: grp.period, Value: Mean(reduceCells(g, grp.steps, Mean))})
		maxes = append(maxes, domain.PeriodValue{Period: grp.period, Value: Max(reduceCells(g, grp.steps, Max))})
	}
	return AnnualSeries{
		Mean: domain.NewPeriodSeries(g.Variable(), g.Units(), means),
		Max:  domain.NewPeriodSeries(g.Variable(), g.Units(), maxes),
	}, nil
}

// AnnualMaxGrid returns a single-step grid holding each cell's maximum over
// year. Cells outside the region stay masked.
func AnnualMaxGrid(g domain.Grid, year int) (domain.Grid, error) {
	var steps []int
	for t, ts := range g.Times() {
		if ts.UTC().Year() == year {
			steps = append(steps, t)
		}
	}
	if len(steps) == 0 {
		return domain.Grid{}, &domain.InsufficientDataError{Op: "annual max grid", Need: 1, Got: 0}
	}

	_, ny, nx := g.Dims()
	mask := make([]bool, ny*nx)
	for i := 0; i < ny; i++ {
		for j := 0; j < nx; j++ {
			mask[i*nx+j] = g.Inside(i, j)
		}
	}
	return domain.NewGrid(domain.GridSpec{
		Variable: g.Variable(),
		Units:    g.Units(),
		CRS:      g.CRS(),
		Times:    []time.Time{time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)},
		Lats:     g.Lats(),
		Lons:     g.Lons(),
		Values:   reduceCells(g, steps, Max),
		Mask:     mask,
	})
}

// CellValues returns every valid sample inside the region across all time
// steps.
func CellValues(g domain.Grid) []float64 {
	nt, ny, nx := g.Dims()
	out := make([]float64, 0, nt*g.CellCount())
	for t := 0; t < nt; t++ {
		for i := 0; i < ny; i++ {
			for j := 0; j < nx; j++ {
				if v := g.Value(t, i, j); !math.IsNaN(v) {
					out = append(out, v)
				}
			}
		}
	}
	return out
}

// Extremes is the spatial summary of every valid sample of a grid.
type Extremes struct {
	Mean float64
	Min  float64
	Max  float64
	N    int
}

// Summarize reduces every valid sample inside the region, across all time
// steps, to its mean, minimum and maximum.
func Summarize(g domain.Grid) (Extremes, error) {
	if err := checkGrid(g, "summary"); err != nil {
		return Extremes{}, err
	}
	vals := CellValues(g)
	if len(vals) == 0 {
		return Extremes{}, &domain.InsufficientDataError{Op: "summary", Need: 1, Got: 0}
	}
	return Extremes{Mean: Mean(vals), Min: Min(vals), Max: Max(vals), N: len(vals)}, nil
}

// Mean averages the valid values of xs; NaN when none are valid.
func Mean(xs []float64) float64 { return reduce(xs, stats.Mean) }

// Max returns the largest valid value of xs; NaN when none are valid.
func Max(xs []float64) float64 { return reduce(xs, stats.Max) }

// Min returns the smallest valid value of xs; NaN when none are valid.
func Min(xs []float64) float64 { return reduce(xs, stats.Min) }

func reduce(xs []float64, f func(stats.Float64Data) (float64, error)) float64 {
	valid := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			valid = append(valid, x)
		}
	}
	v, err := f(valid)
	if err != nil {
		return math.NaN()
	}
	return v
}

type group struct {
	period domain.Period
	steps  []int
}

func groupBy(g domain.Grid, key func(time.Time) domain.Period) []group {
	index := make(map[domain.Period]int)
	var groups []group
	for t, ts := range g.Times() {
		p := key(ts)
		k, ok := index[p]
		if !ok {
			k = len(groups)
			index[p] = k
			groups = append(groups, group{period: p})
		}
		groups[k].steps = append(groups[k].steps, t)
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a].period.Before(groups[b].period) })
	return groups
}

// reduceCells applies f over the given time steps of every cell. Cells
// outside the region come back as NaN so the spatial step ignores them.
func reduceCells(g domain.Grid, steps []int, f func([]float64) float64) []float64 {
	_, ny, nx := g.Dims()
	out := make([]float64, ny*nx)
	buf := make([]float64, len(steps))
	for i := 0; i < ny; i++ {
		for j := 0; j < nx; j++ {
			if !g.Inside(i, j) {
				out[i*nx+j] = math.NaN()
				continue
			}
			for k, t := range steps {
				buf[k] = g.Value(t, i, j)
			}
			out[i*nx+j] = f(buf)
		}
	}
	return out
}

func checkGrid(g domain.Grid, op string) error {
	nt, _, _ := g.Dims()
	if g.Empty() || nt == 0 {
		return &domain.InsufficientDataError{Op: op, Need: 1, Got: 0}
	}
	return nil
}
