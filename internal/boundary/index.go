package boundary

import (
	"math"

	"github.com/MeKo-Tech/osmterrain/internal/types"
)

// Index is the compiled, immutable breakpoint index of a tile. For every
// column it holds the rows at which the state changes, ascending and
// starting at row 0, and the state that holds from each of those rows on.
type Index struct {
	tile   types.TileCoord
	res    int
	rows   [][]uint16
	states [][]State
}

// Resolution returns the number of columns and rows.
func (ix *Index) Resolution() int { return ix.res }

// Tile returns the tile the index was compiled for.
func (ix *Index) Tile() types.TileCoord { return ix.tile }

// Column returns the breakpoints and states of column x.
func (ix *Index) Column(x int) ([]uint16, []State) {
	x = ix.clamp(x)
	return ix.rows[x], ix.states[x]
}

// StateIndex returns the position of the breakpoint governing (x, y): the
// exact match when y is a breakpoint, otherwise the closest one below it.
func (ix *Index) StateIndex(x, y int) int {
	index := ix.rows[ix.clamp(x)]

	lo, hi := 0, len(index)
	for lo < hi-1 {
		mid := lo + (hi-lo)/2
		switch v := int(index[mid]); {
		case v < y:
			lo = mid
		case v > y:
			hi = mid
		default:
			return mid
		}
	}
	return lo
}

// State classifies cell (x, y) of the tile.
func (ix *Index) State(x, y int) State {
	x = ix.clamp(x)
	return ix.states[x][ix.StateIndex(x, y)]
}

// StateAt classifies a geographic point inside the tile. Points outside the
// tile are clamped to its border.
func (ix *Index) StateAt(lon, lat float64) State {
	unit := types.TileSize / float64(ix.res)
	x := int(math.Floor((lon - ix.tile.West()) / unit))
	y := int(math.Floor((lat - ix.tile.South()) / unit))
	return ix.State(x, ix.clamp(y))
}

// Breakpoints returns the total number of breakpoints over all columns.
func (ix *Index) Breakpoints() int {
	n := 0
	for _, r := range ix.rows {
		n += len(r)
	}
	return n
}

func (ix *Index) clamp(v int) int {
	return min(max(v, 0), ix.res-1)
}
