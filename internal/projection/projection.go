// Package projection defines the coordinate transform between geographic
// lon/lat and world (x, z) positions.
package projection

import (
	"math"

	"github.com/paulmach/orb"
)

// Projection converts between geographic and world coordinates. Both
// directions must be pure.
type Projection interface {
	ToGeo(x, z float64) (lon, lat float64)
	FromGeo(lon, lat float64) (x, z float64)
}

// Equirectangular maps one degree to Scale world units on both axes.
// North is towards negative z.
type Equirectangular struct {
	Scale float64
}

// DefaultScale places roughly one world unit per metre at the equator.
const DefaultScale = 111320.0

// NewEquirectangular returns an Equirectangular projection, using
// DefaultScale when scale is not positive.
func NewEquirectangular(scale float64) Equirectangular {
	if scale <= 0 {
		scale = DefaultScale
	}
	return Equirectangular{Scale: scale}
}

func (p Equirectangular) ToGeo(x, z float64) (float64, float64) {
	return x / p.Scale, -z / p.Scale
}

func (p Equirectangular) FromGeo(lon, lat float64) (float64, float64) {
	return lon * p.Scale, -lat * p.Scale
}

// ProjectPoint projects an orb point (lon, lat) into world space.
func ProjectPoint(p Projection, pt orb.Point) orb.Point {
	x, z := p.FromGeo(pt.Lon(), pt.Lat())
	return orb.Point{x, z}
}

// ProjectBound projects every corner of a geographic bound and returns the
// world-space bound enclosing them.
func ProjectBound(p Projection, b orb.Bound) orb.Bound {
	corners := [4]orb.Point{
		b.Min,
		{b.Max.Lon(), b.Min.Lat()},
		b.Max,
		{b.Min.Lon(), b.Max.Lat()},
	}

	out := orb.Bound{
		Min: orb.Point{math.Inf(1), math.Inf(1)},
		Max: orb.Point{math.Inf(-1), math.Inf(-1)},
	}
	for _, c := range corners {
		out = out.Extend(ProjectPoint(p, c))
	}
	return out
}
