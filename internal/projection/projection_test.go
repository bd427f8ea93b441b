package projection

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestEquirectangularRoundTrip(t *testing.T) {
	p := NewEquirectangular(0)

	for _, pt := range []orb.Point{{9.7387, 52.3745}, {-122.4, 37.8}, {0, 0}} {
		x, z := p.FromGeo(pt.Lon(), pt.Lat())
		lon, lat := p.ToGeo(x, z)
		assert.InDelta(t, pt.Lon(), lon, 1e-9)
		assert.InDelta(t, pt.Lat(), lat, 1e-9)
	}
}

func TestEquirectangularNorthIsNegativeZ(t *testing.T) {
	p := NewEquirectangular(100)
	_, zSouth := p.FromGeo(0, 10)
	_, zNorth := p.FromGeo(0, 11)
	assert.Less(t, zNorth, zSouth)
}

func TestProjectBound(t *testing.T) {
	p := NewEquirectangular(100)
	b := ProjectBound(p, orb.Bound{Min: orb.Point{1, 2}, Max: orb.Point{3, 4}})

	assert.InDelta(t, 100.0, b.Min.X(), 1e-9)
	assert.InDelta(t, 300.0, b.Max.X(), 1e-9)
	assert.InDelta(t, -400.0, b.Min.Y(), 1e-9)
	assert.InDelta(t, -200.0, b.Max.Y(), 1e-9)
}
