package types

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const (
	// TileSize is the edge length of a fetch tile in degrees.
	TileSize = 1.0 / 60.0
	// CellSize is the edge length of a consumer grid cell in world units.
	CellSize = 16.0
	// WaterResolution is the number of boundary columns (and rows) per tile edge.
	WaterResolution = 256

	// Latitude limit of the data service. Requests beyond it are rejected.
	MaxLatitude = 80.0
)

// TileCoord identifies a TileSize x TileSize degree tile by its south-west corner.
type TileCoord struct {
	X int // longitude index (west to east)
	Y int // latitude index (south to north)
}

// CellCoord identifies a CellSize x CellSize cell in world space.
type CellCoord struct {
	X int
	Z int
}

// BoundingBox represents a geographic bounding box in WGS84 (EPSG:4326)
type BoundingBox struct {
	MinLon float64 // Western edge (degrees)
	MinLat float64 // Southern edge (degrees)
	MaxLon float64 // Eastern edge (degrees)
	MaxLat float64 // Northern edge (degrees)
}

// TileAt returns the tile containing the given point.
func TileAt(lon, lat float64) TileCoord {
	return TileCoord{
		X: int(math.Floor(lon / TileSize)),
		Y: int(math.Floor(lat / TileSize)),
	}
}

// CellAt returns the cell containing the given world position.
func CellAt(x, z float64) CellCoord {
	return CellCoord{
		X: int(math.Floor(x / CellSize)),
		Z: int(math.Floor(z / CellSize)),
	}
}

// South returns the latitude of the tile's southern edge.
func (t TileCoord) South() float64 { return float64(t.Y) * TileSize }

// West returns the longitude of the tile's western edge.
func (t TileCoord) West() float64 { return float64(t.X) * TileSize }

// Bounds converts the tile to its geographic bounding box.
func (t TileCoord) Bounds() BoundingBox {
	return BoundingBox{
		MinLon: t.West(),
		MinLat: t.South(),
		MaxLon: t.West() + TileSize,
		MaxLat: t.South() + TileSize,
	}
}

// InDomain reports whether the data service can answer for this tile.
// Tiles beyond the latitude limit or wrapping past the antimeridian are not.
func (t TileCoord) InDomain() bool {
	south, west := t.South(), t.West()
	return south <= MaxLatitude && south >= -MaxLatitude &&
		west >= -180 && west <= 180-TileSize
}

// String returns a human-readable representation of the tile coordinate
func (t TileCoord) String() string {
	return fmt.Sprintf("x%d_y%d", t.X, t.Y)
}

// ParseTileCoord parses a tile string like "x123_y-45".
func ParseTileCoord(s string) (TileCoord, error) {
	var t TileCoord
	if _, err := fmt.Sscanf(s, "x%d_y%d", &t.X, &t.Y); err != nil {
		return t, fmt.Errorf("invalid tile coordinate format: %s", s)
	}
	return t, nil
}

func (c CellCoord) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Z)
}

// Bound returns the box as an orb.Bound (lon/lat order).
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}

// String returns a human-readable representation of the bounding box
func (b BoundingBox) String() string {
	return fmt.Sprintf("bbox(%.6f,%.6f,%.6f,%.6f)", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
}

// Width returns the width of the bounding box in degrees
func (b BoundingBox) Width() float64 {
	return b.MaxLon - b.MinLon
}

// Height returns the height of the bounding box in degrees
func (b BoundingBox) Height() float64 {
	return b.MaxLat - b.MinLat
}

// TilesInBBox returns every tile intersecting the bounding box, row by row
// from the south-west.
func TilesInBBox(b BoundingBox) []TileCoord {
	minT := TileAt(b.MinLon, b.MinLat)
	maxT := TileAt(b.MaxLon, b.MaxLat)

	tiles := make([]TileCoord, 0, (maxT.X-minT.X+1)*(maxT.Y-minT.Y+1))
	for y := minT.Y; y <= maxT.Y; y++ {
		for x := minT.X; x <= maxT.X; x++ {
			tiles = append(tiles, TileCoord{X: x, Y: y})
		}
	}
	return tiles
}
