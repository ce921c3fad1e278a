package figures

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// gridXYZ adapts the first time step of a grid to plotter.GridXYZ. Rows are
// presented south to north whatever the stored latitude order, and cells
// outside the region read as NaN.
type gridXYZ struct {
	g        domain.Grid
	ny, nx   int
	min, max float64
}

func newGridXYZ(g domain.Grid) (*gridXYZ, bool) {
	_, ny, nx := g.Dims()
	xyz := &gridXYZ{g: g, ny: ny, nx: nx, min: math.Inf(1), max: math.Inf(-1)}
	for i := 0; i < ny; i++ {
		for j := 0; j < nx; j++ {
			v := g.Value(0, i, j)
			if math.IsNaN(v) {
				continue
			}
			xyz.min = math.Min(xyz.min, v)
			xyz.max = math.Max(xyz.max, v)
		}
	}
	if math.IsInf(xyz.min, 1) {
		return nil, false
	}
	if xyz.min == xyz.max {
		xyz.min, xyz.max = xyz.min-0.5, xyz.max+0.5
	}
	return xyz, true
}

func (g *gridXYZ) Dims() (c, r int) { return g.nx, g.ny }

func (g *gridXYZ) row(r int) int {
	if g.g.LatAscending() {
		return r
	}
	return g.ny - 1 - r
}

func (g *gridXYZ) col(c int) int {
	if g.g.LonAscending() {
		return c
	}
	return g.nx - 1 - c
}

func (g *gridXYZ) Z(c, r int) float64 { return g.g.Value(0, g.row(r), g.col(c)) }
func (g *gridXYZ) X(c int) float64    { return g.g.Lon(g.col(c)) }
func (g *gridXYZ) Y(r int) float64    { return g.g.Lat(g.row(r)) }
func (g *gridXYZ) Min() float64       { return g.min }
func (g *gridXYZ) Max() float64       { return g.max }

// Map draws the first time step of g as a heat map over longitude and
// latitude. Cells outside the region are left transparent.
func (r *Renderer) Map(stem string, g domain.Grid, title string) (string, error) {
	nt, ny, nx := g.Dims()
	if nt == 0 || ny < 2 || nx < 2 {
		return "", fmt.Errorf("figure %s: %w: map needs at least 2x2 cells", stem, domain.ErrInsufficientData)
	}
	xyz, ok := newGridXYZ(g)
	if !ok {
		return "", errNoData(stem)
	}

	p := r.newPlot(title, "Longitude", "Latitude")
	hm := plotter.NewHeatMap(xyz, palette.Heat(12, 1))
	hm.NaN = color.Transparent
	hm.Min, hm.Max = xyz.Min(), xyz.Max()
	p.Add(hm)

	legend := fmt.Sprintf("%.1f a %.1f %s", xyz.Min(), xyz.Max(), g.Units())
	thumbs := plotter.PaletteThumbnailers(hm.Palette)
	p.Legend.Add(legend, thumbs[len(thumbs)-1])
	p.Legend.Top = true
	return r.save(p, stem)
}
