package geometry

import (
	"testing"

	"github.com/MeKo-Tech/osmterrain/internal/boundary"
	"github.com/MeKo-Tech/osmterrain/internal/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tile x540_y3120 covers lon [9.0, 9.0167], lat [52.0, 52.0167].
var fixtureTile = types.TileCoord{X: 540, Y: 3120}

const fixture = `{
  "version": 0.6,
  "generator": "Overpass API",
  "elements": [
    {"type": "way", "id": 100, "tags": {"highway": "motorway", "lanes": "3"},
     "geometry": [{"lat": 52.001, "lon": 9.001}, {"lat": 52.002, "lon": 9.003}, null,
                  {"lat": 52.004, "lon": 9.004}, {"lat": 52.005, "lon": 9.006}]},
    {"type": "way", "id": 200, "tags": {"waterway": "river"},
     "geometry": [{"lat": 52.010, "lon": 9.000}, {"lat": 52.011, "lon": 9.015}]},
    {"type": "way", "id": 300,
     "geometry": [{"lat": 52.003, "lon": 9.010}, {"lat": 52.003, "lon": 9.011},
                  {"lat": 52.004, "lon": 9.011}]},
    {"type": "way", "id": 500,
     "geometry": [{"lat": 51.99, "lon": 8.99}, {"lat": 51.99, "lon": 9.03},
                  {"lat": 52.03, "lon": 9.03}, {"lat": 52.03, "lon": 8.99}, {"lat": 51.99, "lon": 8.99}]},
    {"type": "way", "id": 600, "tags": {"natural": "water"},
     "geometry": [{"lat": 52.008, "lon": 9.008}, {"lat": 52.008, "lon": 9.012},
                  {"lat": 52.012, "lon": 9.012}, {"lat": 52.012, "lon": 9.008}, {"lat": 52.008, "lon": 9.008}]},
    {"type": "way", "id": 700, "tags": {"highway": "service"}, "geometry": [{"lat": 52.001, "lon": 9.001}]},
    {"type": "relation", "id": 99, "tags": {"natural": "water", "type": "multipolygon"},
     "members": [{"type": "way", "ref": 500, "role": "outer"}]},
    {"type": "relation", "id": 88, "tags": {"building": "yes", "type": "multipolygon"},
     "members": [{"type": "way", "ref": 300, "role": "outer"}, {"type": "node", "ref": 1}]},
    {"type": "way", "id": 100, "tags": {"highway": "motorway", "lanes": "3"}},
    {"type": "area", "id": 3600000099},
    {"type": "way", "id": "broken"}
  ]
}`

func newTestIndexer(grounding Grounding) *Indexer {
	cfg := DefaultConfig()
	cfg.Grounding = grounding
	return NewIndexer(cfg)
}

func TestParseFixture(t *testing.T) {
	res, err := newTestIndexer(nil).Parse([]byte(fixture), fixtureTile)
	require.NoError(t, err)

	assert.Equal(t, fixtureTile, res.Tile)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []int64{3600000099}, res.Ground)
	assert.Equal(t, 8, res.WaterSegments, "relation outline and standalone lake")

	byType := make(map[types.FeatureType]int)
	for _, e := range res.Edges {
		byType[e.Type]++
		assert.Equal(t, fixtureTile, e.Tile)
	}
	assert.Equal(t, map[types.FeatureType]int{
		types.FeatureFreeway:  2, // the null vertex splits the motorway
		types.FeatureRiver:    1,
		types.FeatureBuilding: 2,
	}, byType)

	for _, e := range res.Edges {
		switch e.Type {
		case types.FeatureFreeway:
			assert.Equal(t, uint8(3), e.Lanes)
		case types.FeatureBuilding:
			assert.Equal(t, uint8(1), e.Lanes)
			assert.Equal(t, int8(0), e.Layer)
		}
	}

	require.NotNil(t, res.Water)
	// Inside the relation; the lake overlaps it and stays water.
	assert.Equal(t, boundary.Water, res.Water.StateAt(9.002, 52.002))
	assert.Equal(t, boundary.Water, res.Water.StateAt(9.010, 52.010))
}

func TestParseStandaloneLake(t *testing.T) {
	const doc = `{"elements": [
	  {"type": "way", "id": 600, "tags": {"natural": "water"},
	   "geometry": [{"lat": 52.008, "lon": 9.008}, {"lat": 52.008, "lon": 9.012},
	                {"lat": 52.012, "lon": 9.012}, {"lat": 52.012, "lon": 9.008}, {"lat": 52.008, "lon": 9.008}]}
	]}`

	res, err := newTestIndexer(nil).Parse([]byte(doc), fixtureTile)
	require.NoError(t, err)
	assert.Empty(t, res.Edges)
	assert.Equal(t, boundary.Water, res.Water.StateAt(9.010, 52.010))
	assert.Equal(t, boundary.Ground, res.Water.StateAt(9.002, 52.002))
	assert.Equal(t, boundary.Ground, res.Water.StateAt(9.014, 52.010))
}

func TestParseGroundingSeedsOcean(t *testing.T) {
	ocean, err := ParseOceanTiles([]string{fixtureTile.String()})
	require.NoError(t, err)
	ix := newTestIndexer(ocean)

	res, err := ix.Parse([]byte(`{"elements": []}`), fixtureTile)
	require.NoError(t, err)
	assert.Equal(t, []int64{boundary.CoastlineID}, res.Ground)
	assert.Equal(t, boundary.Ocean, res.Water.State(100, 100))

	inland := types.TileCoord{X: fixtureTile.X + 1, Y: fixtureTile.Y}
	res, err = ix.Parse([]byte(`{"elements": []}`), inland)
	require.NoError(t, err)
	assert.Empty(t, res.Ground)
	assert.Equal(t, boundary.Ground, res.Water.State(100, 100))
}

func TestParseOceanTilesRejectsBadName(t *testing.T) {
	_, err := ParseOceanTiles([]string{"x1_y2", "atlantic"})
	assert.Error(t, err)
}

func TestNewIndexerClampsWaterResolution(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WaterResolution = 1 << 20
	assert.Equal(t, boundary.MaxResolution, NewIndexer(cfg).cfg.WaterResolution)
}

func TestParseWithoutWater(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Features = Features{Roads: true, Buildings: true}
	res, err := NewIndexer(cfg).Parse([]byte(fixture), fixtureTile)
	require.NoError(t, err)

	assert.Nil(t, res.Water)
	for _, e := range res.Edges {
		assert.NotEqual(t, types.FeatureRiver, e.Type)
	}
}

func TestParseRejectsBrokenDocument(t *testing.T) {
	_, err := newTestIndexer(nil).Parse([]byte(`<html>rate limited</html>`), fixtureTile)
	assert.Error(t, err)
}

func TestParseIsDeterministic(t *testing.T) {
	ix := newTestIndexer(nil)
	a, err := ix.Parse([]byte(fixture), fixtureTile)
	require.NoError(t, err)
	b, err := ix.Parse([]byte(fixture), fixtureTile)
	require.NoError(t, err)

	if diff := cmp.Diff(a.Edges, b.Edges); diff != "" {
		t.Errorf("edges differ between parses (-first +second):\n%s", diff)
	}

	bounds := TileCellBounds(ix.Projection(), fixtureTile)
	cellsA := NewCellIndex().AddTile(a.Edges, bounds)
	cellsB := NewCellIndex().AddTile(b.Edges, bounds)
	assert.NotEmpty(t, cellsA)
	if diff := cmp.Diff(cellsA, cellsB); diff != "" {
		t.Errorf("cell associations differ (-first +second):\n%s", diff)
	}
}
