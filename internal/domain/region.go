package domain

import (
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// Region is the study area: every polygon part of the boundary file merged
// into one multi-polygon, plus its spatial reference when known.
type Region struct {
	Name     string
	Geometry geom.MultiPolygon
	// SR is nil when the boundary carries no usable projection.
	SR *proj.SR
	// CRS is the projection text the SR was parsed from.
	CRS string
}

// Empty reports whether the region has no polygon parts.
func (r Region) Empty() bool { return len(r.Geometry) == 0 }

// HasCRS reports whether the region's coordinate system is known.
func (r Region) HasCRS() bool { return r.SR != nil }

// Bounds returns the bounding box of the region geometry.
func (r Region) Bounds() *geom.Bounds { return r.Geometry.Bounds() }
