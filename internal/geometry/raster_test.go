package geometry

import (
	"testing"

	"github.com/MeKo-Tech/osmterrain/internal/projection"
	"github.com/MeKo-Tech/osmterrain/internal/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

var wide = CellBounds{MinX: -100, MinZ: -100, MaxX: 100, MaxZ: 100}

func cells(pairs ...int) []types.CellCoord {
	out := make([]types.CellCoord, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, types.CellCoord{X: pairs[i], Z: pairs[i+1]})
	}
	return out
}

func TestRasterize(t *testing.T) {
	tests := []struct {
		name           string
		sx, sy, ex, ey float64
		bounds         CellBounds
		want           []types.CellCoord
	}{
		{"horizontal three cells", 0, 0, 48, 0, wide, cells(0, 0, 1, 0, 2, 0)},
		{"reversed direction", 48, 0, 0, 0, wide, cells(0, 0, 1, 0, 2, 0)},
		{"vertical", 8, 0, 8, 40, wide, cells(0, 0, 0, 1, 0, 2)},
		{"diagonal through corner", 0, 0, 32, 32, wide, cells(0, 0, 1, 1)},
		{"inside one cell", 2, 2, 10, 12, wide, cells(0, 0)},
		{"negative coordinates", -20, -4, -4, -4, wide, cells(-2, -1, -1, -1)},
		{"steep in one column", 1, 1, 3, 40, wide, cells(0, 0, 0, 1, 0, 2)},
		{"clipped by bounds", 0, 0, 48, 0, CellBounds{MinX: 1, MinZ: 0, MaxX: 2, MaxZ: 1}, cells(1, 0)},
		{"outside bounds", 0, 0, 48, 0, CellBounds{MinX: 0, MinZ: 5, MaxX: 3, MaxZ: 6}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEdge(tt.sx, tt.sy, tt.ex, tt.ey, road, types.TileCoord{})
			got := Rasterize(e, tt.bounds)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Rasterize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTileCellBounds(t *testing.T) {
	p := projection.NewEquirectangular(3000) // one tile spans 50 world units
	b := TileCellBounds(p, types.TileCoord{X: 2, Y: 1})

	// x spans [100, 150]; z grows southwards so lat [1/60, 2/60] is z [-100, -50].
	assert.Equal(t, CellBounds{MinX: 6, MinZ: -7, MaxX: 10, MaxZ: -3}, b)
	assert.True(t, b.Contains(types.CellCoord{X: 6, Z: -7}))
	assert.False(t, b.Contains(types.CellCoord{X: 10, Z: -7}))
	assert.False(t, b.Empty())
}
