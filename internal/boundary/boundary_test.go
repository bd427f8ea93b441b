package boundary

import (
	"testing"

	"github.com/MeKo-Tech/osmterrain/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tile = types.TileCoord{X: 540, Y: 3120}

const res = 256

// ring adds a closed polygon given in tile-local grid units.
func ring(b *Builder, id int64, pts ...[2]float64) {
	unit := types.TileSize / res
	geo := func(p [2]float64) (float64, float64) {
		return tile.West() + p[0]*unit, tile.South() + p[1]*unit
	}
	for i := range pts {
		s, e := pts[i], pts[(i+1)%len(pts)]
		slon, slat := geo(s)
		elon, elat := geo(e)
		b.AddSegment(slon, slat, elon, elat, id)
	}
}

func allStates(ix *Index) map[State]int {
	out := make(map[State]int)
	for x := 0; x < res; x++ {
		for y := 0; y < res; y++ {
			out[ix.State(x, y)]++
		}
	}
	return out
}

func TestTileInsideWater(t *testing.T) {
	b := NewBuilder(tile, res)
	ring(b, 3600000042, [2]float64{-100.5, -100.5}, [2]float64{400.5, -100.5}, [2]float64{400.5, 400.5}, [2]float64{-100.5, 400.5})

	ix := b.Compile([]int64{3600000042})
	assert.Equal(t, map[State]int{Water: res * res}, allStates(ix))
}

func TestTileOutsideWater(t *testing.T) {
	b := NewBuilder(tile, res)
	ring(b, 2400000007, [2]float64{300.5, 300.5}, [2]float64{400.5, 300.5}, [2]float64{400.5, 400.5}, [2]float64{300.5, 400.5})

	ix := b.Compile(nil)
	assert.Equal(t, map[State]int{Ground: res * res}, allStates(ix))
}

func TestLakeInsideTile(t *testing.T) {
	b := NewBuilder(tile, res)
	ring(b, 2400000007, [2]float64{64.5, 64.5}, [2]float64{128.5, 64.5}, [2]float64{128.5, 128.5}, [2]float64{64.5, 128.5})
	ix := b.Compile(nil)

	tests := []struct {
		x, y int
		want State
	}{
		{100, 100, Water},
		{65, 65, Water},
		{128, 128, Water},
		{100, 10, Ground},
		{10, 100, Ground},
		{100, 200, Ground},
		{64, 100, Ground},
		{100, 64, Ground},
		{129, 100, Ground},
		{100, 129, Ground},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ix.State(tt.x, tt.y), "cell (%d, %d)", tt.x, tt.y)
	}

	rows, states := ix.Column(100)
	assert.Equal(t, []uint16{0, 65, 129}, rows)
	assert.Equal(t, []State{Ground, Water, Ground}, states)
}

func TestPolygonCrossingSouthEdge(t *testing.T) {
	b := NewBuilder(tile, res)
	ring(b, 7, [2]float64{64.5, -50.5}, [2]float64{128.5, -50.5}, [2]float64{128.5, 100.5}, [2]float64{64.5, 100.5})
	ix := b.Compile(nil)

	assert.Equal(t, Water, ix.State(100, 0))
	assert.Equal(t, Water, ix.State(100, 100))
	assert.Equal(t, Ground, ix.State(100, 101))
	assert.Equal(t, Water, ix.State(65, 0))
	assert.Equal(t, Ground, ix.State(65, 101))
	assert.Equal(t, Water, ix.State(128, 50))
	assert.Equal(t, Ground, ix.State(64, 0))
	assert.Equal(t, Ground, ix.State(129, 0))
	assert.Equal(t, Ground, ix.State(10, 0))
}

func TestCoastlineMeansOcean(t *testing.T) {
	b := NewBuilder(tile, res)
	// A lake-shaped hole of land inside the sea, traced by the coastline.
	ring(b, CoastlineID, [2]float64{64.5, 64.5}, [2]float64{128.5, 64.5}, [2]float64{128.5, 128.5}, [2]float64{64.5, 128.5})
	ix := b.Compile([]int64{CoastlineID})

	assert.Equal(t, Ocean, ix.State(10, 10))
	assert.Equal(t, Ground, ix.State(100, 100))
}

func TestNestedOutlines(t *testing.T) {
	b := NewBuilder(tile, res)
	ring(b, 1, [2]float64{32.5, 32.5}, [2]float64{224.5, 32.5}, [2]float64{224.5, 224.5}, [2]float64{32.5, 224.5})
	// island inside the lake
	ring(b, 1, [2]float64{96.5, 96.5}, [2]float64{160.5, 96.5}, [2]float64{160.5, 160.5}, [2]float64{96.5, 160.5})
	ix := b.Compile(nil)

	assert.Equal(t, Water, ix.State(50, 50))
	assert.Equal(t, Ground, ix.State(128, 128))
	assert.Equal(t, Water, ix.State(128, 200))
	assert.Equal(t, Ground, ix.State(240, 240))
}

func TestStateIndexSearch(t *testing.T) {
	ix := &Index{
		tile:   tile,
		res:    4,
		rows:   [][]uint16{{0, 5, 9, 20}, {0}, {0, 3}, {0, 1, 2, 3}},
		states: [][]State{{Ground, Water, Ground, Water}, {Water}, {Ground, Water}, {Ground, Water, Ground, Water}},
	}

	tests := []struct {
		x, y int
		want int
	}{
		{0, 0, 0},
		{0, 4, 0},
		{0, 5, 1},
		{0, 8, 1},
		{0, 9, 2},
		{0, 19, 2},
		{0, 20, 3},
		{0, 255, 3},
		{1, 100, 0},
		{2, 2, 0},
		{2, 3, 1},
		{3, 2, 2},
		{-5, 6, 1}, // column clamped
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ix.StateIndex(tt.x, tt.y), "StateIndex(%d, %d)", tt.x, tt.y)
	}
	assert.Equal(t, Water, ix.State(0, 7))
}

func TestStateAt(t *testing.T) {
	b := NewBuilder(tile, res)
	ring(b, 9, [2]float64{-10.5, 128.5}, [2]float64{300.5, 128.5}, [2]float64{300.5, 300.5}, [2]float64{-10.5, 300.5})
	ix := b.Compile(nil)

	b2 := tile.Bounds()
	assert.Equal(t, Ground, ix.StateAt(b2.MinLon+types.TileSize/2, b2.MinLat+types.TileSize/4))
	assert.Equal(t, Water, ix.StateAt(b2.MinLon+types.TileSize/2, b2.MinLat+types.TileSize*3/4))
}

func TestCompileIsDeterministic(t *testing.T) {
	build := func() *Index {
		b := NewBuilder(tile, res)
		ring(b, 1, [2]float64{10.5, -3}, [2]float64{200.25, 40}, [2]float64{150, 230.75}, [2]float64{5, 180})
		ring(b, 2, [2]float64{50, 50}, [2]float64{90, 60}, [2]float64{70, 100})
		return b.Compile([]int64{})
	}
	a, c := build(), build()
	require.Equal(t, a.Breakpoints(), c.Breakpoints())
	for x := 0; x < res; x++ {
		ra, sa := a.Column(x)
		rc, sc := c.Column(x)
		assert.Equal(t, ra, rc)
		assert.Equal(t, sa, sc)
	}
}

func TestBuilderClampsResolution(t *testing.T) {
	b := NewBuilder(tile, MaxResolution+10)
	assert.Equal(t, MaxResolution, b.res)

	// A lake reaching the top rows: every breakpoint row must fit.
	lat := func(row float64) float64 { return tile.South() + row*b.unit }
	lon := func(col float64) float64 { return tile.West() + col*b.unit }
	pts := [][2]float64{{10.5, 65500.5}, {20.5, 65500.5}, {20.5, 65534.5}, {10.5, 65534.5}}
	for i := range pts {
		s, e := pts[i], pts[(i+1)%len(pts)]
		b.AddSegment(lon(s[0]), lat(s[1]), lon(e[0]), lat(e[1]), 7)
	}
	ix := b.Compile(nil)
	assert.Equal(t, Ground, ix.State(15, 65000))
	assert.Equal(t, Water, ix.State(15, 65520))
	assert.Equal(t, Ground, ix.State(5, 65520))

	rows, _ := ix.Column(15)
	assert.Equal(t, []uint16{0, 65501}, rows, "the closing row lies past the top edge")
}
