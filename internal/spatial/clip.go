// Package spatial restricts gridded data to a study region.
package spatial

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// Mode selects which cells a polygon clip keeps.
type Mode string

const (
	// ModeCenters keeps cells whose centre lies inside or on the boundary.
	ModeCenters Mode = "centers"
	// ModeTouches keeps cells whose footprint intersects the region.
	ModeTouches Mode = "touches"
)

// Method names reported in ClipReport.
const (
	MethodPolygon = "polygon"
	MethodBBox    = "bbox"
)

// DefaultMarginDeg is the bounding-box fallback margin in degrees.
const DefaultMarginDeg = 0.5

// Options configures a Clipper.
type Options struct {
	Mode      Mode
	MarginDeg float64
}

// ClipReport describes how a clip was performed.
type ClipReport struct {
	Method      string
	InputCells  int
	OutputCells int
	Empty       bool
	// Fallback holds the CRS mismatch that forced a bounding-box selection.
	Fallback error
}

// Clipper intersects grids with a region.
type Clipper struct {
	opts   Options
	logger *slog.Logger
}

// NewClipper creates a Clipper. A zero Mode means ModeCenters.
func NewClipper(opts Options, logger *slog.Logger) *Clipper {
	if opts.Mode == "" {
		opts.Mode = ModeCenters
	}
	return &Clipper{opts: opts, logger: logger}
}

// Clip returns the part of grid that falls inside region. When the grid or
// region lacks a usable coordinate system the selection degrades to the
// region's bounding box widened by the configured margin. A region that
// misses the grid yields an empty grid and no error.
func (c *Clipper) Clip(grid domain.Grid, region domain.Region) (domain.Grid, ClipReport, error) {
	if grid.Empty() {
		return domain.Grid{}, ClipReport{}, fmt.Errorf("clip %q: %w: grid has no cells", grid.Variable(), domain.ErrInsufficientData)
	}
	if region.Empty() {
		return domain.Grid{}, ClipReport{}, fmt.Errorf("clip %q: %w: region has no geometry", grid.Variable(), domain.ErrInsufficientData)
	}

	report := ClipReport{InputCells: grid.CellCount()}

	parts, err := regionInGridCRS(grid, region)
	var out domain.Grid
	if err != nil {
		c.logger.Warn("crs mismatch, clipping by bounding box",
			"variable", grid.Variable(),
			"margin_deg", c.opts.MarginDeg,
			"error", err,
		)
		report.Method = MethodBBox
		report.Fallback = err
		out, err = c.clipBBox(grid, region.Bounds())
	} else {
		report.Method = MethodPolygon
		out, err = c.clipPolygon(grid, parts)
	}
	if err != nil {
		return domain.Grid{}, report, fmt.Errorf("clip %q: %w", grid.Variable(), err)
	}

	report.OutputCells = out.CellCount()
	report.Empty = report.OutputCells == 0
	c.logger.Info("grid clipped",
		"variable", grid.Variable(),
		"method", report.Method,
		"cells_in", report.InputCells,
		"cells_out", report.OutputCells,
	)
	return out, report, nil
}

// regionInGridCRS reprojects the region into the grid's coordinate system.
// It returns a *domain.CRSMismatchError when either side is unknown or the
// transform cannot be built.
func regionInGridCRS(grid domain.Grid, region domain.Region) ([]geom.Polygon, error) {
	mismatch := &domain.CRSMismatchError{Grid: grid.CRS(), Region: region.CRS}
	if grid.CRS() == "" || !region.HasCRS() {
		return nil, mismatch
	}
	gridSR, err := proj.Parse(grid.CRS())
	if err != nil {
		return nil, fmt.Errorf("%w: parse grid crs: %v", mismatch, err)
	}
	trans, err := region.SR.NewTransform(gridSR)
	if err != nil {
		return nil, fmt.Errorf("%w: transform: %v", mismatch, err)
	}
	g, err := region.Geometry.Transform(trans)
	if err != nil {
		return nil, fmt.Errorf("%w: reproject region: %v", mismatch, err)
	}
	poly, ok := g.(geom.Polygonal)
	if !ok {
		return nil, fmt.Errorf("%w: reprojected region is %T", mismatch, g)
	}
	return poly.Polygons(), nil
}

// regionPart is an R-tree entry for one polygon of the region.
type regionPart struct {
	geom.Polygon
}

func (c *Clipper) clipPolygon(grid domain.Grid, parts []geom.Polygon) (domain.Grid, error) {
	index := rtree.NewTree(25, 50)
	for _, p := range parts {
		index.Insert(&regionPart{Polygon: p})
	}
	regionBounds := geom.MultiPolygon(parts).Bounds()

	_, ny, nx := grid.Dims()
	halfLat, halfLon := halfSpacing(grid.Lats()), halfSpacing(grid.Lons())
	mask := make([]bool, ny*nx)
	for i := 0; i < ny; i++ {
		lat := grid.Lat(i)
		for j := 0; j < nx; j++ {
			if !grid.Inside(i, j) {
				continue
			}
			lon := toFrame(grid.Lon(j), regionBounds)
			center := geom.Point{X: lon, Y: lat}
			switch c.opts.Mode {
			case ModeTouches:
				mask[i*nx+j] = touches(index, center, halfLon, halfLat)
			default:
				mask[i*nx+j] = centerInside(index, center)
			}
		}
	}
	return cropToMask(grid, mask)
}

func centerInside(index *rtree.Rtree, pt geom.Point) bool {
	for _, item := range index.SearchIntersect(&geom.Bounds{Min: pt, Max: pt}) {
		part, ok := item.(*regionPart)
		if !ok {
			continue
		}
		if pt.Within(part.Polygon) != geom.Outside {
			return true
		}
	}
	return false
}

func touches(index *rtree.Rtree, center geom.Point, halfLon, halfLat float64) bool {
	if centerInside(index, center) {
		return true
	}
	box := &geom.Bounds{
		Min: geom.Point{X: center.X - halfLon, Y: center.Y - halfLat},
		Max: geom.Point{X: center.X + halfLon, Y: center.Y + halfLat},
	}
	cell := geom.Polygon{{
		box.Min,
		{X: box.Max.X, Y: box.Min.Y},
		box.Max,
		{X: box.Min.X, Y: box.Max.Y},
		box.Min,
	}}
	for _, item := range index.SearchIntersect(box) {
		part, ok := item.(*regionPart)
		if !ok {
			continue
		}
		isect := cell.Intersection(part.Polygon)
		if isect != nil && isect.Area() > 0 {
			return true
		}
	}
	return false
}

// clipBBox selects the rows and columns inside b widened by the margin. The
// latitude window is located according to the grid's detected direction.
func (c *Clipper) clipBBox(grid domain.Grid, b *geom.Bounds) (domain.Grid, error) {
	m := c.opts.MarginDeg
	minLon, maxLon := b.Min.X-m, b.Max.X+m
	minLat, maxLat := b.Min.Y-m, b.Max.Y+m

	if _, _, gridMaxLon, _ := grid.Extent(); gridMaxLon > 180 && minLon < 0 {
		minLon, maxLon = minLon+360, maxLon+360
	}

	i0, i1 := window(grid.Lats(), minLat, maxLat, grid.LatAscending())
	j0, j1 := window(grid.Lons(), minLon, maxLon, grid.LonAscending())
	if i0 >= i1 || j0 >= j1 {
		return grid.Crop(0, 0, 0, 0, nil)
	}
	return grid.Crop(i0, i1, j0, j1, nil)
}

// window returns the index range [lo, hi) of coords within [minV, maxV].
// coords must be monotonic in the stated direction.
func window(coords []float64, minV, maxV float64, ascending bool) (int, int) {
	n := len(coords)
	if ascending {
		lo := sort.Search(n, func(k int) bool { return coords[k] >= minV })
		hi := sort.Search(n, func(k int) bool { return coords[k] > maxV })
		return lo, hi
	}
	lo := sort.Search(n, func(k int) bool { return coords[k] <= maxV })
	hi := sort.Search(n, func(k int) bool { return coords[k] < minV })
	return lo, hi
}

// cropToMask crops grid to the smallest window holding every kept cell.
func cropToMask(grid domain.Grid, mask []bool) (domain.Grid, error) {
	_, ny, nx := grid.Dims()
	i0, i1, j0, j1 := ny, -1, nx, -1
	for i := 0; i < ny; i++ {
		for j := 0; j < nx; j++ {
			if !mask[i*nx+j] {
				continue
			}
			i0, i1 = min(i0, i), max(i1, i)
			j0, j1 = min(j0, j), max(j1, j)
		}
	}
	if i1 < 0 {
		return grid.Crop(0, 0, 0, 0, nil)
	}

	wy, wx := i1-i0+1, j1-j0+1
	sub := make([]bool, wy*wx)
	for i := 0; i < wy; i++ {
		for j := 0; j < wx; j++ {
			sub[i*wx+j] = mask[(i0+i)*nx+j0+j]
		}
	}
	return grid.Crop(i0, i1+1, j0, j1+1, sub)
}

func halfSpacing(coords []float64) float64 {
	if len(coords) < 2 {
		return 0
	}
	return math.Abs(coords[1]-coords[0]) / 2
}

// toFrame shifts a longitude by 360 degrees when the grid uses 0..360 and the
// region -180..180 (or the reverse).
func toFrame(lon float64, b *geom.Bounds) float64 {
	switch {
	case lon > 180 && b.Min.X < 0:
		return lon - 360
	case lon < 0 && b.Max.X > 180:
		return lon + 360
	default:
		return lon
	}
}
