package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/osmterrain/internal/types"
)

// parseBBox parses "minLon,minLat,maxLon,maxLat".
func parseBBox(s string) (types.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return types.BoundingBox{}, fmt.Errorf("expected 4 comma-separated values, got %d", len(parts))
	}

	var v [4]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return types.BoundingBox{}, fmt.Errorf("invalid number at position %d: %w", i, err)
		}
		v[i] = f
	}

	b := types.BoundingBox{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	if b.MinLon >= b.MaxLon {
		return types.BoundingBox{}, fmt.Errorf("minLon (%.4f) must be < maxLon (%.4f)", b.MinLon, b.MaxLon)
	}
	if b.MinLat >= b.MaxLat {
		return types.BoundingBox{}, fmt.Errorf("minLat (%.4f) must be < maxLat (%.4f)", b.MinLat, b.MaxLat)
	}
	return b, nil
}

// parseTile accepts either a tile name like "x583_y3142" or a "lon,lat"
// pair inside the tile.
func parseTile(s string) (types.TileCoord, error) {
	if strings.HasPrefix(s, "x") {
		return types.ParseTileCoord(s)
	}
	lon, lat, ok := strings.Cut(s, ",")
	if !ok {
		return types.TileCoord{}, fmt.Errorf("invalid tile %q: want x<X>_y<Y> or lon,lat", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return types.TileCoord{}, fmt.Errorf("invalid longitude: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return types.TileCoord{}, fmt.Errorf("invalid latitude: %w", err)
	}
	return types.TileAt(x, y), nil
}

// parseWorldPos parses a world position "x,z".
func parseWorldPos(s string) (float64, float64, error) {
	xs, zs, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("invalid position %q: want x,z", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x: %w", err)
	}
	z, err := strconv.ParseFloat(strings.TrimSpace(zs), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid z: %w", err)
	}
	return x, z, nil
}
