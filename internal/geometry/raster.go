package geometry

import (
	"math"

	"github.com/MeKo-Tech/osmterrain/internal/projection"
	"github.com/MeKo-Tech/osmterrain/internal/types"
)

// CellBounds is a half-open rectangle of cells: [MinX, MaxX) x [MinZ, MaxZ).
type CellBounds struct {
	MinX, MinZ int
	MaxX, MaxZ int
}

// Contains reports whether the cell lies inside the bounds.
func (b CellBounds) Contains(c types.CellCoord) bool {
	return c.X >= b.MinX && c.X < b.MaxX && c.Z >= b.MinZ && c.Z < b.MaxZ
}

// Empty reports whether the bounds contain no cell.
func (b CellBounds) Empty() bool {
	return b.MinX >= b.MaxX || b.MinZ >= b.MaxZ
}

// TileCellBounds returns the cells covered by the tile's four projected
// corners.
func TileCellBounds(p projection.Projection, tile types.TileCoord) CellBounds {
	wb := projection.ProjectBound(p, tile.Bounds().Bound())
	return CellBounds{
		MinX: int(math.Floor(wb.Min.X() / types.CellSize)),
		MinZ: int(math.Floor(wb.Min.Y() / types.CellSize)),
		MaxX: int(math.Ceil(wb.Max.X() / types.CellSize)),
		MaxZ: int(math.Ceil(wb.Max.Y() / types.CellSize)),
	}
}

// Rasterize returns the cells inside bounds that the edge crosses, column by
// column from west to east. The far end of the edge's extent is exclusive on
// both axes, so an edge ending exactly on a cell border does not touch the
// next cell.
func Rasterize(e *Edge, bounds CellBounds) []types.CellCoord {
	minX, maxX := e.MinX(), e.MaxX()

	startCol := int(math.Floor(minX / types.CellSize))
	endCol := max(startCol, int(math.Ceil(maxX/types.CellSize))-1)

	startCol = max(startCol, bounds.MinX)
	endCol = min(endCol, bounds.MaxX-1)

	var cells []types.CellCoord
	for col := startCol; col <= endCol; col++ {
		x0 := float64(col) * types.CellSize
		lo := e.At(max(x0, minX))
		hi := e.At(min(x0+types.CellSize, maxX))
		if lo > hi {
			lo, hi = hi, lo
		}

		from := int(math.Floor(lo / types.CellSize))
		to := max(from, int(math.Ceil(hi/types.CellSize))-1)

		for row := max(from, bounds.MinZ); row <= to && row < bounds.MaxZ; row++ {
			cells = append(cells, types.CellCoord{X: col, Z: row})
		}
	}
	return cells
}
