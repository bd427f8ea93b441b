package preview

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"testing"

	"github.com/MeKo-Tech/osmterrain/internal/boundary"
	"github.com/MeKo-Tech/osmterrain/internal/tilecache"
	"github.com/MeKo-Tech/osmterrain/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticFetcher func(types.TileCoord) []byte

func (f staticFetcher) Fetch(_ context.Context, tile types.TileCoord) ([]byte, error) {
	return f(tile), nil
}

// lakeAndRoad has a lake in the middle of the tile and a primary road
// running west to east near its southern edge.
func lakeAndRoad(tile types.TileCoord) []byte {
	b := tile.Bounds()
	lo, hi := b.MinLat+0.005, b.MinLat+0.011
	w, e := b.MinLon+0.005, b.MinLon+0.011
	return []byte(fmt.Sprintf(`{"elements": [
	  {"type": "way", "id": 5, "tags": {"natural": "water"},
	   "geometry": [{"lat": %[1]f, "lon": %[3]f}, {"lat": %[1]f, "lon": %[4]f},
	                {"lat": %[2]f, "lon": %[4]f}, {"lat": %[2]f, "lon": %[3]f}, {"lat": %[1]f, "lon": %[3]f}]},
	  {"type": "way", "id": 6, "tags": {"highway": "primary"},
	   "geometry": [{"lat": %[5]f, "lon": %[6]f}, {"lat": %[5]f, "lon": %[7]f}]}
	]}`, lo, hi, w, e, b.MinLat+0.002, b.MinLon+0.001, b.MinLon+0.015))
}

func loadTile(t *testing.T, body staticFetcher) (*tilecache.Tile, *tilecache.Cache) {
	t.Helper()
	cfg := tilecache.DefaultConfig()
	cfg.Fetcher = body
	c := tilecache.New(cfg)
	tile, _ := c.Get(context.Background(), types.TileCoord{X: 583, Y: 3142})
	got, ok := c.Peek(types.TileCoord{X: 583, Y: 3142})
	require.True(t, ok)
	if tile != nil {
		require.Same(t, tile, got)
	}
	return got, c
}

func TestRenderColours(t *testing.T) {
	tile, c := loadTile(t, lakeAndRoad)
	r := New(Options{Size: 64, Supersample: 1}, c.Projection())

	img, err := r.Render(tile)
	require.NoError(t, err)
	require.Equal(t, 64, img.Bounds().Dx())

	assert.Equal(t, groundColor, img.NRGBAAt(2, 2), "north-west corner is dry")
	assert.Equal(t, stateColors[boundary.Water], img.NRGBAAt(32, 32), "tile centre is lake")
	assert.Equal(t, featureColors[types.FeatureMain], img.NRGBAAt(32, 56), "primary road")
}

func TestWritePNGSupersampled(t *testing.T) {
	tile, c := loadTile(t, lakeAndRoad)
	r := New(Options{Size: 32}, c.Projection())

	var buf bytes.Buffer
	require.NoError(t, r.WritePNG(&buf, tile))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}

func TestRenderFailedTile(t *testing.T) {
	tile, c := loadTile(t, func(types.TileCoord) []byte { return []byte("<html>rate limited</html>") })
	require.True(t, tile.Failed())

	_, err := New(DefaultOptions(), c.Projection()).Render(tile)
	assert.ErrorIs(t, err, ErrFailedTile)
}
