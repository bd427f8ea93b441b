package geometry

import (
	"testing"

	"github.com/MeKo-Tech/osmterrain/internal/types"
	"github.com/stretchr/testify/assert"
)

var road = Classification{Type: types.FeatureMain, Lanes: 2, Layer: 1}

func TestNewEdgeSlope(t *testing.T) {
	e := NewEdge(0, 1, 4, 9, road, types.TileCoord{})
	assert.Equal(t, 2.0, e.Slope)
	assert.Equal(t, 1.0, e.Offset)
	assert.Equal(t, 5.0, e.At(2))
}

func TestNewEdgePerturbsVertical(t *testing.T) {
	tests := []struct {
		name     string
		sx, ex   float64
		wantEndX float64
	}{
		{"exactly vertical", 5, 5, 5.01},
		{"slightly right", 5, 5.005, 5.015},
		{"slightly left", 5, 4.995, 4.985},
		{"not vertical", 5, 6, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEdge(tt.sx, 0, tt.ex, 10, road, types.TileCoord{})
			assert.InDelta(t, tt.wantEndX, e.EndX, 1e-12)
			// slope and offset reproduce both endpoints
			assert.InDelta(t, e.StartY, e.At(e.StartX), 1e-6)
			assert.InDelta(t, e.EndY, e.At(e.EndX), 1e-6)
		})
	}
}

func TestEdgeKeyIgnoresClassification(t *testing.T) {
	a := NewEdge(0, 0, 10, 10, road, types.TileCoord{X: 1})
	b := NewEdge(0, 0, 10, 10, Classification{Type: types.FeatureRiver, Lanes: 8}, types.TileCoord{X: 2})
	c := NewEdge(0, 0, 10, 11, road, types.TileCoord{X: 1})

	assert.Equal(t, a.Key(), b.Key(), "endpoint-only identity")
	assert.NotEqual(t, a.Key(), c.Key())
}
