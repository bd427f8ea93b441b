// Package preview draws a compiled tile, its water classification and its
// edges, into an image for visual inspection.
package preview

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/MeKo-Tech/osmterrain/internal/boundary"
	"github.com/MeKo-Tech/osmterrain/internal/geometry"
	"github.com/MeKo-Tech/osmterrain/internal/projection"
	"github.com/MeKo-Tech/osmterrain/internal/tilecache"
	"github.com/MeKo-Tech/osmterrain/internal/types"
	"github.com/disintegration/gift"
	"golang.org/x/image/vector"
)

// ErrFailedTile is returned when asked to draw a tile that never compiled.
var ErrFailedTile = errors.New("tile has no data")

// Options controls the output image.
type Options struct {
	// Size is the edge length of the output in pixels (default: 512).
	Size int
	// Supersample renders at Size*Supersample and downsamples (default: 2).
	Supersample int
	// LaneWidth is the stroke width of one road lane in output pixels.
	LaneWidth float64
}

// DefaultOptions returns the options used by the preview command.
func DefaultOptions() Options {
	return Options{Size: 512, Supersample: 2, LaneWidth: 1.5}
}

var (
	groundColor = color.NRGBA{R: 0xf2, G: 0xef, B: 0xe6, A: 0xff}
	stateColors = map[boundary.State]color.NRGBA{
		boundary.Water: {R: 0x9d, G: 0xc3, B: 0xe6, A: 0xff},
		boundary.Ocean: {R: 0x4a, G: 0x80, B: 0xb5, A: 0xff},
	}
	featureColors = map[types.FeatureType]color.NRGBA{
		types.FeatureRoad:          {R: 0x99, G: 0x99, B: 0x99, A: 0xff},
		types.FeatureMinor:         {R: 0xaa, G: 0xaa, B: 0xaa, A: 0xff},
		types.FeatureSide:          {R: 0x88, G: 0x88, B: 0x88, A: 0xff},
		types.FeatureMain:          {R: 0xe8, G: 0xb0, B: 0x4a, A: 0xff},
		types.FeatureLimitedAccess: {R: 0xe0, G: 0x8a, B: 0x3c, A: 0xff},
		types.FeatureInterchange:   {R: 0xd9, G: 0x6b, B: 0x3a, A: 0xff},
		types.FeatureFreeway:       {R: 0xc8, G: 0x40, B: 0x30, A: 0xff},
		types.FeatureStream:        {R: 0x5b, G: 0x9b, B: 0xd5, A: 0xff},
		types.FeatureRiver:         {R: 0x2f, G: 0x6f, B: 0xb3, A: 0xff},
		types.FeatureBuilding:      {R: 0x8c, G: 0x6a, B: 0x5a, A: 0xff},
		types.FeatureRail:          {R: 0x33, G: 0x33, B: 0x33, A: 0xff},
	}
)

// Renderer maps world coordinates of one tile onto a square canvas.
type Renderer struct {
	opts Options
	proj projection.Projection
}

// New creates a renderer for tiles indexed in proj.
func New(opts Options, proj projection.Projection) *Renderer {
	def := DefaultOptions()
	if opts.Size <= 0 {
		opts.Size = def.Size
	}
	if opts.Supersample <= 0 {
		opts.Supersample = def.Supersample
	}
	if opts.LaneWidth <= 0 {
		opts.LaneWidth = def.LaneWidth
	}
	return &Renderer{opts: opts, proj: proj}
}

// Render draws the tile.
func (r *Renderer) Render(t *tilecache.Tile) (*image.NRGBA, error) {
	if t == nil || t.Failed() {
		return nil, ErrFailedTile
	}

	n := r.opts.Size * r.opts.Supersample
	canvas := image.NewNRGBA(image.Rect(0, 0, n, n))
	r.fillWater(canvas, t.Water())

	// Draw low severities first so major roads end up on top.
	edges := t.Edges()
	for pass := types.FeatureRoad; pass <= types.FeatureRail; pass++ {
		for i := range edges {
			if edges[i].Type == pass {
				r.strokeEdge(canvas, t.Coord, &edges[i])
			}
		}
	}

	if r.opts.Supersample == 1 {
		return canvas, nil
	}
	g := gift.New(gift.Resize(r.opts.Size, r.opts.Size, gift.LanczosResampling))
	dst := image.NewNRGBA(g.Bounds(canvas.Bounds()))
	g.Draw(dst, canvas)
	return dst, nil
}

// WritePNG renders the tile and encodes it as PNG.
func (r *Renderer) WritePNG(w io.Writer, t *tilecache.Tile) error {
	img, err := r.Render(t)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

func (r *Renderer) fillWater(dst *image.NRGBA, ix *boundary.Index) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(groundColor), image.Point{}, draw.Src)
	if ix == nil {
		return
	}

	n := dst.Bounds().Dx()
	res := ix.Resolution()
	for py := range n {
		// pixel rows grow southwards, index rows northwards
		row := (n - 1 - py) * res / n
		for px := range n {
			if c, ok := stateColors[ix.State(px*res/n, row)]; ok {
				dst.SetNRGBA(px, py, c)
			}
		}
	}
}

func (r *Renderer) strokeEdge(dst *image.NRGBA, tile types.TileCoord, e *geometry.Edge) {
	c, ok := featureColors[e.Type]
	if !ok {
		return
	}

	x0, y0 := r.toPixel(tile, e.StartX, e.StartY, dst.Bounds().Dx())
	x1, y1 := r.toPixel(tile, e.EndX, e.EndY, dst.Bounds().Dx())
	half := r.strokeWidth(e) * float64(r.opts.Supersample) / 2

	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 || math.IsNaN(length) {
		return
	}
	// unit normal scaled to half the stroke width
	nx, ny := -dy/length*half, dx/length*half

	b := dst.Bounds()
	ras := vector.NewRasterizer(b.Dx(), b.Dy())
	ras.MoveTo(float32(x0+nx), float32(y0+ny))
	ras.LineTo(float32(x1+nx), float32(y1+ny))
	ras.LineTo(float32(x1-nx), float32(y1-ny))
	ras.LineTo(float32(x0-nx), float32(y0-ny))
	ras.ClosePath()
	ras.Draw(dst, b, image.NewUniform(c), image.Point{})
}

func (r *Renderer) strokeWidth(e *geometry.Edge) float64 {
	switch {
	case e.Type.IsRoad():
		return float64(max(e.Lanes, 1)) * r.opts.LaneWidth
	case e.Type.IsWaterway():
		if e.Type == types.FeatureRiver {
			return 3
		}
		return 1.5
	default:
		return 1
	}
}

// toPixel converts world coordinates to canvas pixels of an n*n canvas.
func (r *Renderer) toPixel(tile types.TileCoord, x, z float64, n int) (float64, float64) {
	lon, lat := r.proj.ToGeo(x, z)
	scale := float64(n) / types.TileSize
	north := tile.South() + types.TileSize
	return (lon - tile.West()) * scale, (north - lat) * scale
}
