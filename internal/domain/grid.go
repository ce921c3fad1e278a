package domain

import (
	"fmt"
	"math"
	"time"
)

// GridSpec is the raw material for NewGrid.
type GridSpec struct {
	Variable string
	Units    string
	CRS      string
	Times    []time.Time
	Lats     []float64
	Lons     []float64
	// Values are laid out time-major, then latitude, then longitude.
	Values []float64
	// Mask optionally marks which lat/lon cells belong to the grid
	// (len(Lats)*len(Lons)). Nil keeps every cell.
	Mask []bool
}

// Grid is an immutable labeled array over {time, latitude, longitude}.
// Missing samples are NaN. Every transform returns a new Grid.
type Grid struct {
	variable string
	units    string
	crs      string
	times    []time.Time
	lats     []float64
	lons     []float64
	values   []float64
	mask     []bool
}

// NewGrid validates spec and copies it into a Grid. Coordinates must be
// strictly monotonic and times strictly increasing.
func NewGrid(spec GridSpec) (Grid, error) {
	nt, ny, nx := len(spec.Times), len(spec.Lats), len(spec.Lons)
	if len(spec.Values) != nt*ny*nx {
		return Grid{}, fmt.Errorf("%w: grid %q has %d values, want %d (%d x %d x %d)",
			ErrFormat, spec.Variable, len(spec.Values), nt*ny*nx, nt, ny, nx)
	}
	if spec.Mask != nil && len(spec.Mask) != ny*nx {
		return Grid{}, fmt.Errorf("%w: grid %q mask has %d cells, want %d", ErrFormat, spec.Variable, len(spec.Mask), ny*nx)
	}
	if !monotonic(spec.Lats) {
		return Grid{}, fmt.Errorf("%w: grid %q latitude is not monotonic", ErrFormat, spec.Variable)
	}
	if !monotonic(spec.Lons) {
		return Grid{}, fmt.Errorf("%w: grid %q longitude is not monotonic", ErrFormat, spec.Variable)
	}
	for i := 1; i < nt; i++ {
		if !spec.Times[i].After(spec.Times[i-1]) {
			return Grid{}, fmt.Errorf("%w: grid %q time axis is not increasing at index %d", ErrFormat, spec.Variable, i)
		}
	}

	g := Grid{
		variable: spec.Variable,
		units:    spec.Units,
		crs:      spec.CRS,
		times:    append([]time.Time(nil), spec.Times...),
		lats:     append([]float64(nil), spec.Lats...),
		lons:     append([]float64(nil), spec.Lons...),
		values:   append([]float64(nil), spec.Values...),
	}
	if spec.Mask != nil {
		g.mask = append([]bool(nil), spec.Mask...)
	}
	return g, nil
}

func monotonic(xs []float64) bool {
	if len(xs) < 2 {
		return true
	}
	asc := xs[1] > xs[0]
	for i := 1; i < len(xs); i++ {
		if math.IsNaN(xs[i]) || (asc && xs[i] <= xs[i-1]) || (!asc && xs[i] >= xs[i-1]) {
			return false
		}
	}
	return true
}

// Variable returns the name of the sampled variable.
func (g Grid) Variable() string { return g.variable }

// Units returns the units attribute of the source file.
func (g Grid) Units() string { return g.units }

// CRS returns the coordinate reference system, or "" when untagged.
func (g Grid) CRS() string { return g.crs }

// Dims returns the time, latitude and longitude lengths.
func (g Grid) Dims() (nt, ny, nx int) { return len(g.times), len(g.lats), len(g.lons) }

// Times returns a copy of the time axis.
func (g Grid) Times() []time.Time { return append([]time.Time(nil), g.times...) }

// Lats returns a copy of the latitude axis.
func (g Grid) Lats() []float64 { return append([]float64(nil), g.lats...) }

// Lons returns a copy of the longitude axis.
func (g Grid) Lons() []float64 { return append([]float64(nil), g.lons...) }

// Time returns the timestamp at index t.
func (g Grid) Time(t int) time.Time { return g.times[t] }

// Lat returns the latitude of row i.
func (g Grid) Lat(i int) float64 { return g.lats[i] }

// Lon returns the longitude of column j.
func (g Grid) Lon(j int) float64 { return g.lons[j] }

// Value returns the sample at (t, i, j). Cells outside the mask read as NaN.
func (g Grid) Value(t, i, j int) float64 {
	if !g.Inside(i, j) {
		return math.NaN()
	}
	return g.values[(t*len(g.lats)+i)*len(g.lons)+j]
}

// Inside reports whether cell (i, j) belongs to the grid.
func (g Grid) Inside(i, j int) bool {
	if g.mask == nil {
		return true
	}
	return g.mask[i*len(g.lons)+j]
}

// CellCount is the number of lat/lon cells inside the grid.
func (g Grid) CellCount() int {
	if g.mask == nil {
		return len(g.lats) * len(g.lons)
	}
	n := 0
	for _, in := range g.mask {
		if in {
			n++
		}
	}
	return n
}

// Empty reports whether the grid has no cells.
func (g Grid) Empty() bool { return g.CellCount() == 0 }

// LatAscending reports the latitude direction. Single-row grids count as
// ascending.
func (g Grid) LatAscending() bool { return len(g.lats) < 2 || g.lats[1] > g.lats[0] }

// LonAscending reports the longitude direction.
func (g Grid) LonAscending() bool { return len(g.lons) < 2 || g.lons[1] > g.lons[0] }

// Extent returns the coordinate bounds of the cell centres.
func (g Grid) Extent() (minLon, minLat, maxLon, maxLat float64) {
	if len(g.lats) == 0 || len(g.lons) == 0 {
		return math.NaN(), math.NaN(), math.NaN(), math.NaN()
	}
	minLat, maxLat = g.lats[0], g.lats[len(g.lats)-1]
	if minLat > maxLat {
		minLat, maxLat = maxLat, minLat
	}
	minLon, maxLon = g.lons[0], g.lons[len(g.lons)-1]
	if minLon > maxLon {
		minLon, maxLon = maxLon, minLon
	}
	return minLon, minLat, maxLon, maxLat
}

// WithCRS returns a copy of g tagged with crs.
func (g Grid) WithCRS(crs string) Grid {
	out := g
	out.crs = crs
	return out
}

// MapValues applies f to every sample and relabels the units. NaN samples
// stay NaN.
func (g Grid) MapValues(f func(float64) float64, units string) Grid {
	out := g
	out.units = units
	out.values = make([]float64, len(g.values))
	for k, v := range g.values {
		if math.IsNaN(v) {
			out.values[k] = v
			continue
		}
		out.values[k] = f(v)
	}
	return out
}

// SelectTimes keeps the time steps for which keep returns true.
func (g Grid) SelectTimes(keep func(time.Time) bool) Grid {
	cells := len(g.lats) * len(g.lons)
	out := g
	out.times = nil
	out.values = nil
	for t, ts := range g.times {
		if !keep(ts) {
			continue
		}
		out.times = append(out.times, ts)
		out.values = append(out.values, g.values[t*cells:(t+1)*cells]...)
	}
	return out
}

// Crop returns the index window [i0,i1) x [j0,j1) with an optional mask over
// the window. Cells already masked out in g stay masked.
func (g Grid) Crop(i0, i1, j0, j1 int, mask []bool) (Grid, error) {
	if i0 < 0 || j0 < 0 || i1 > len(g.lats) || j1 > len(g.lons) || i0 > i1 || j0 > j1 {
		return Grid{}, fmt.Errorf("crop window [%d:%d, %d:%d] outside grid %dx%d", i0, i1, j0, j1, len(g.lats), len(g.lons))
	}
	ny, nx := i1-i0, j1-j0
	if mask != nil && len(mask) != ny*nx {
		return Grid{}, fmt.Errorf("crop mask has %d cells, want %d", len(mask), ny*nx)
	}

	out := Grid{
		variable: g.variable,
		units:    g.units,
		crs:      g.crs,
		times:    g.times,
		lats:     append([]float64(nil), g.lats[i0:i1]...),
		lons:     append([]float64(nil), g.lons[j0:j1]...),
		values:   make([]float64, 0, len(g.times)*ny*nx),
	}
	for t := range g.times {
		for i := i0; i < i1; i++ {
			base := (t*len(g.lats) + i) * len(g.lons)
			out.values = append(out.values, g.values[base+j0:base+j1]...)
		}
	}
	if mask != nil || g.mask != nil {
		out.mask = make([]bool, ny*nx)
		for i := 0; i < ny; i++ {
			for j := 0; j < nx; j++ {
				in := g.Inside(i0+i, j0+j)
				if mask != nil {
					in = in && mask[i*nx+j]
				}
				out.mask[i*nx+j] = in
			}
		}
	}
	return out, nil
}

// ConcatTimes stacks grids that share coordinates along the time axis.
func ConcatTimes(grids ...Grid) (Grid, error) {
	if len(grids) == 0 {
		return Grid{}, fmt.Errorf("%w: no grids to concatenate", ErrInsufficientData)
	}
	first := grids[0]
	spec := GridSpec{
		Variable: first.variable,
		Units:    first.units,
		CRS:      first.crs,
		Lats:     first.lats,
		Lons:     first.lons,
		Mask:     first.mask,
	}
	for _, g := range grids {
		if !sameCoords(g.lats, first.lats) || !sameCoords(g.lons, first.lons) {
			return Grid{}, fmt.Errorf("%w: grid %q does not share coordinates with %q", ErrFormat, g.variable, first.variable)
		}
		spec.Times = append(spec.Times, g.times...)
		spec.Values = append(spec.Values, g.values...)
	}
	return NewGrid(spec)
}

func sameCoords(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			return false
		}
	}
	return true
}
