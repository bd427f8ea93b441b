package geometry

import (
	"cmp"
	"slices"
	"sync"

	"github.com/MeKo-Tech/osmterrain/internal/types"
)

// CellIndex maps cells to the set of edges crossing them. Buckets are keyed
// by EdgeKey: the first edge inserted for a given pair of endpoints wins.
type CellIndex struct {
	mu    sync.RWMutex
	cells map[types.CellCoord]map[EdgeKey]*Edge
}

// NewCellIndex creates an empty index.
func NewCellIndex() *CellIndex {
	return &CellIndex{cells: make(map[types.CellCoord]map[EdgeKey]*Edge)}
}

// AddTile rasterizes edges within bounds and inserts them. It returns the
// cells that received at least one edge, sorted, so the caller can remove
// the tile again later.
func (ci *CellIndex) AddTile(edges []*Edge, bounds CellBounds) []types.CellCoord {
	touched := make(map[types.CellCoord]struct{})

	ci.mu.Lock()
	defer ci.mu.Unlock()

	for _, e := range edges {
		key := e.Key()
		for _, c := range Rasterize(e, bounds) {
			bucket, ok := ci.cells[c]
			if !ok {
				bucket = make(map[EdgeKey]*Edge)
				ci.cells[c] = bucket
			}
			if _, dup := bucket[key]; dup {
				continue
			}
			bucket[key] = e
			touched[c] = struct{}{}
		}
	}

	out := make([]types.CellCoord, 0, len(touched))
	for c := range touched {
		out = append(out, c)
	}
	slices.SortFunc(out, compareCells)
	return out
}

// RemoveTile drops every edge originating from tile in the given cells and
// returns how many were removed. Empty buckets are deleted. An edge another
// tile also carries goes too when tile inserted it first.
func (ci *CellIndex) RemoveTile(tile types.TileCoord, cells []types.CellCoord) int {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	removed := 0
	for _, c := range cells {
		bucket, ok := ci.cells[c]
		if !ok {
			continue
		}
		for k, e := range bucket {
			if e.Tile == tile {
				delete(bucket, k)
				removed++
			}
		}
		if len(bucket) == 0 {
			delete(ci.cells, c)
		}
	}
	return removed
}

// Edges returns a snapshot of the edges in a cell ordered by endpoints.
// The second result is false when the cell has no bucket.
func (ci *CellIndex) Edges(c types.CellCoord) ([]Edge, bool) {
	ci.mu.RLock()
	defer ci.mu.RUnlock()

	bucket, ok := ci.cells[c]
	if !ok {
		return nil, false
	}
	out := make([]Edge, 0, len(bucket))
	for _, e := range bucket {
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b Edge) int { return compareKeys(a.Key(), b.Key()) })
	return out, true
}

// Cells returns every non-empty cell, sorted.
func (ci *CellIndex) Cells() []types.CellCoord {
	ci.mu.RLock()
	defer ci.mu.RUnlock()

	out := make([]types.CellCoord, 0, len(ci.cells))
	for c := range ci.cells {
		out = append(out, c)
	}
	slices.SortFunc(out, compareCells)
	return out
}

// Len returns the number of non-empty cells.
func (ci *CellIndex) Len() int {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	return len(ci.cells)
}

// Any reports whether some bucket holds an edge matching fn.
func (ci *CellIndex) Any(fn func(*Edge) bool) bool {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	for _, bucket := range ci.cells {
		for _, e := range bucket {
			if fn(e) {
				return true
			}
		}
	}
	return false
}

func compareCells(a, b types.CellCoord) int {
	if c := cmp.Compare(a.X, b.X); c != 0 {
		return c
	}
	return cmp.Compare(a.Z, b.Z)
}
