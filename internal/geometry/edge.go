// Package geometry turns Overpass responses into classified edges in world
// space and buckets them into consumer grid cells.
package geometry

import (
	"cmp"
	"fmt"

	"github.com/MeKo-Tech/osmterrain/internal/types"
)

// verticalEpsilon is added to the end x of near-vertical edges so that the
// slope stays finite.
const verticalEpsilon = 0.01

// Edge is an immutable directed segment in world coordinates. Y holds the
// projected z axis.
type Edge struct {
	StartX, StartY float64
	EndX, EndY     float64

	Type      types.FeatureType
	Lanes     uint8
	Layer     int8
	Attribute types.Attribute

	// Line through the (possibly perturbed) endpoints: y = Slope*x + Offset.
	Slope  float64
	Offset float64

	// Tile that produced the edge.
	Tile types.TileCoord
}

// EdgeKey identifies an edge by its endpoints only. Two edges with equal
// endpoints share a key even when their type, lanes or attribute differ.
type EdgeKey struct {
	StartX, StartY float64
	EndX, EndY     float64
}

// NewEdge builds an edge, nudging EndX away from StartX when the segment is
// (nearly) vertical.
func NewEdge(sx, sy, ex, ey float64, class Classification, tile types.TileCoord) *Edge {
	dif := ex - sx
	if -verticalEpsilon <= dif && dif <= verticalEpsilon {
		if dif < 0 {
			ex -= verticalEpsilon
		} else {
			ex += verticalEpsilon
		}
	}

	slope := (ey - sy) / (ex - sx)
	return &Edge{
		StartX:    sx,
		StartY:    sy,
		EndX:      ex,
		EndY:      ey,
		Type:      class.Type,
		Lanes:     class.Lanes,
		Layer:     class.Layer,
		Attribute: class.Attribute,
		Slope:     slope,
		Offset:    sy - slope*sx,
		Tile:      tile,
	}
}

// Key returns the endpoint identity of the edge.
func (e *Edge) Key() EdgeKey {
	return EdgeKey{StartX: e.StartX, StartY: e.StartY, EndX: e.EndX, EndY: e.EndY}
}

// At evaluates the edge's line at x.
func (e *Edge) At(x float64) float64 {
	return e.Slope*x + e.Offset
}

// MinX and MaxX return the horizontal extent of the edge.
func (e *Edge) MinX() float64 { return min(e.StartX, e.EndX) }
func (e *Edge) MaxX() float64 { return max(e.StartX, e.EndX) }

func (e *Edge) String() string {
	return fmt.Sprintf("%s(%.2f, %.2f -> %.2f, %.2f)", e.Type, e.StartX, e.StartY, e.EndX, e.EndY)
}

func compareKeys(a, b EdgeKey) int {
	if c := cmp.Compare(a.StartX, b.StartX); c != 0 {
		return c
	}
	if c := cmp.Compare(a.StartY, b.StartY); c != 0 {
		return c
	}
	if c := cmp.Compare(a.EndX, b.EndX); c != 0 {
		return c
	}
	return cmp.Compare(a.EndY, b.EndY)
}
