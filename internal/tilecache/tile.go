package tilecache

import (
	"sync"

	"github.com/MeKo-Tech/osmterrain/internal/boundary"
	"github.com/MeKo-Tech/osmterrain/internal/geometry"
	"github.com/MeKo-Tech/osmterrain/internal/projection"
	"github.com/MeKo-Tech/osmterrain/internal/types"
)

// Tile is a cache entry. It is either compiled (edges and water index set)
// or failed, never both, and does not change after insertion.
type Tile struct {
	Coord types.TileCoord

	failed   bool
	attempts int
	edges    []*geometry.Edge
	water    *boundary.Index
	// cells that received at least one of this tile's edges
	cells []types.CellCoord

	proj       projection.Projection
	boundsOnce sync.Once
	bounds     geometry.CellBounds
}

// Failed reports whether the tile is a negative cache entry.
func (t *Tile) Failed() bool { return t.failed }

// Compiled reports whether the tile holds data.
func (t *Tile) Compiled() bool { return !t.failed }

// Attempts returns how many fetch attempts produced this entry.
func (t *Tile) Attempts() int { return t.attempts }

// Edges returns a copy of the tile's edges.
func (t *Tile) Edges() []geometry.Edge {
	out := make([]geometry.Edge, len(t.edges))
	for i, e := range t.edges {
		out[i] = *e
	}
	return out
}

// EdgeCount returns the number of edges parsed for the tile.
func (t *Tile) EdgeCount() int { return len(t.edges) }

// Water returns the compiled water index, or nil.
func (t *Tile) Water() *boundary.Index { return t.water }

// Cells returns the cells this tile contributed edges to.
func (t *Tile) Cells() []types.CellCoord { return t.cells }

// Bounds returns the cells covered by the tile. Computed once.
func (t *Tile) Bounds() geometry.CellBounds {
	t.boundsOnce.Do(func() {
		t.bounds = geometry.TileCellBounds(t.proj, t.Coord)
	})
	return t.bounds
}
