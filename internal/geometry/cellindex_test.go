package geometry

import (
	"testing"

	"github.com/MeKo-Tech/osmterrain/internal/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellIndexAddRemove(t *testing.T) {
	tileA := types.TileCoord{X: 1, Y: 1}
	tileB := types.TileCoord{X: 2, Y: 1}

	ci := NewCellIndex()
	touchedA := ci.AddTile([]*Edge{
		NewEdge(0, 0, 48, 0, road, tileA),
		NewEdge(0, 20, 10, 20, road, tileA),
	}, wide)
	touchedB := ci.AddTile([]*Edge{
		NewEdge(40, 8, 60, 8, road, tileB),
	}, wide)

	assert.Equal(t, cells(0, 0, 0, 1, 1, 0, 2, 0), touchedA)
	assert.Equal(t, cells(2, 0, 3, 0), touchedB)
	assert.Equal(t, 5, ci.Len())

	edges, ok := ci.Edges(types.CellCoord{X: 2, Z: 0})
	require.True(t, ok)
	require.Len(t, edges, 2)
	assert.Equal(t, tileA, edges[0].Tile, "snapshot is ordered by endpoints")

	removed := ci.RemoveTile(tileA, touchedA)
	assert.Equal(t, 4, removed)
	assert.Equal(t, cells(2, 0, 3, 0), ci.Cells())
	assert.False(t, ci.Any(func(e *Edge) bool { return e.Tile == tileA }))

	_, ok = ci.Edges(types.CellCoord{X: 0, Z: 0})
	assert.False(t, ok)
}

func TestCellIndexFirstInsertWins(t *testing.T) {
	tileA := types.TileCoord{X: 1}
	tileB := types.TileCoord{X: 2}

	ci := NewCellIndex()
	ci.AddTile([]*Edge{NewEdge(0, 0, 10, 0, road, tileA)}, wide)
	touchedB := ci.AddTile([]*Edge{
		NewEdge(0, 0, 10, 0, Classification{Type: types.FeatureRiver}, tileB),
	}, wide)

	// Same endpoints, so tile B's river is a duplicate of tile A's road.
	assert.Empty(t, touchedB)
	edges, _ := ci.Edges(types.CellCoord{})
	require.Len(t, edges, 1)
	assert.Equal(t, types.FeatureMain, edges[0].Type)

	assert.Equal(t, 0, ci.RemoveTile(tileB, []types.CellCoord{{}}))
	assert.Equal(t, 1, ci.RemoveTile(tileA, []types.CellCoord{{}}))
	assert.Equal(t, 0, ci.Len())
}

// An edge both tiles carry belongs to the tile inserted first, so removing
// that tile drops it even while the other one stays indexed.
func TestCellIndexSharedEdgeLeavesWithFirstOwner(t *testing.T) {
	tileA := types.TileCoord{X: 1}
	tileB := types.TileCoord{X: 2}
	border := func(tile types.TileCoord) *Edge { return NewEdge(0, 4, 40, 4, road, tile) }

	ci := NewCellIndex()
	touchedA := ci.AddTile([]*Edge{border(tileA)}, wide)
	touchedB := ci.AddTile([]*Edge{border(tileB), NewEdge(0, 40, 10, 40, road, tileB)}, wide)
	assert.Equal(t, cells(0, 2), touchedB)

	assert.Equal(t, 3, ci.RemoveTile(tileA, touchedA))
	_, ok := ci.Edges(types.CellCoord{X: 1, Z: 0})
	assert.False(t, ok, "the shared edge left with its first owner")
	assert.Equal(t, cells(0, 2), ci.Cells())

	// Re-adding the surviving tile restores it.
	assert.Equal(t, cells(0, 0, 1, 0, 2, 0), ci.AddTile([]*Edge{border(tileB)}, wide))
	edges, ok := ci.Edges(types.CellCoord{X: 1, Z: 0})
	require.True(t, ok)
	assert.Equal(t, tileB, edges[0].Tile)
}

func TestCellIndexSnapshotIsCopy(t *testing.T) {
	ci := NewCellIndex()
	ci.AddTile([]*Edge{NewEdge(0, 0, 10, 0, road, types.TileCoord{})}, wide)

	edges, _ := ci.Edges(types.CellCoord{})
	edges[0].Type = types.FeatureIgnore

	again, _ := ci.Edges(types.CellCoord{})
	if diff := cmp.Diff(types.FeatureMain, again[0].Type); diff != "" {
		t.Errorf("bucket mutated through snapshot:\n%s", diff)
	}
}
