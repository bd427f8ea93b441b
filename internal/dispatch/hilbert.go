package dispatch

import (
	"slices"

	"github.com/MeKo-Tech/osmterrain/internal/types"
	"github.com/google/hilbert"
)

// HilbertOrder sorts tiles along a Hilbert curve over their bounding
// rectangle, so consecutive requests stay spatially close. The input is not
// modified.
func HilbertOrder(tiles []types.TileCoord) []types.TileCoord {
	out := slices.Clone(tiles)
	if len(out) < 2 {
		return out
	}

	minX, minY := out[0].X, out[0].Y
	maxX, maxY := minX, minY
	for _, t := range out[1:] {
		minX, maxX = min(minX, t.X), max(maxX, t.X)
		minY, maxY = min(minY, t.Y), max(maxY, t.Y)
	}

	n := 1
	for n <= maxX-minX || n <= maxY-minY {
		n <<= 1
	}
	h, err := hilbert.NewHilbert(n)
	if err != nil {
		return out
	}

	dist := make(map[types.TileCoord]int, len(out))
	for _, t := range out {
		d, err := h.MapInverse(t.X-minX, t.Y-minY)
		if err != nil {
			return out
		}
		dist[t] = d
	}
	slices.SortStableFunc(out, func(a, b types.TileCoord) int {
		return dist[a] - dist[b]
	})
	return out
}
