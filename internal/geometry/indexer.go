package geometry

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/osmterrain/internal/boundary"
	"github.com/MeKo-Tech/osmterrain/internal/osm"
	"github.com/MeKo-Tech/osmterrain/internal/projection"
	"github.com/MeKo-Tech/osmterrain/internal/types"
)

// Grounding reports whether a tile's south-west corner lies in open ocean.
type Grounding interface {
	IsOcean(tile types.TileCoord) bool
}

// OceanTiles is a Grounding backed by a fixed set of tiles.
type OceanTiles map[types.TileCoord]struct{}

// ParseOceanTiles builds an OceanTiles set from tile names like x583_y3142.
func ParseOceanTiles(names []string) (OceanTiles, error) {
	out := make(OceanTiles, len(names))
	for _, name := range names {
		t, err := types.ParseTileCoord(name)
		if err != nil {
			return nil, fmt.Errorf("ocean tile %q: %w", name, err)
		}
		out[t] = struct{}{}
	}
	return out, nil
}

func (o OceanTiles) IsOcean(tile types.TileCoord) bool {
	_, ok := o[tile]
	return ok
}

// Config configures an Indexer.
type Config struct {
	Projection projection.Projection
	Features   Features
	// WaterResolution is the number of boundary columns per tile.
	WaterResolution int
	// Grounding is optional. Without it no tile starts in the ocean.
	Grounding Grounding
	Logger    *slog.Logger
}

// DefaultConfig returns a configuration with every feature enabled.
func DefaultConfig() Config {
	return Config{
		Projection:      projection.NewEquirectangular(0),
		Features:        AllFeatures(),
		WaterResolution: types.WaterResolution,
		Logger:          slog.Default(),
	}
}

// Indexer parses raw Overpass responses into edges and water indexes.
type Indexer struct {
	cfg Config
}

// NewIndexer creates an indexer.
func NewIndexer(cfg Config) *Indexer {
	if cfg.Projection == nil {
		cfg.Projection = projection.NewEquirectangular(0)
	}
	if cfg.WaterResolution <= 0 {
		cfg.WaterResolution = types.WaterResolution
	}
	cfg.WaterResolution = min(cfg.WaterResolution, boundary.MaxResolution)
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Indexer{cfg: cfg}
}

// Projection returns the projection edges are built in.
func (ix *Indexer) Projection() projection.Projection { return ix.cfg.Projection }

// Result is the outcome of parsing one tile.
type Result struct {
	Tile  types.TileCoord
	Edges []*Edge
	// Water is nil when water features are disabled.
	Water *boundary.Index
	// Ground holds the ids of the outlines enclosing the south-west corner.
	Ground []int64
	// Skipped counts elements that could not be decoded.
	Skipped       int
	WaterSegments int
}

// Parse decodes data and classifies its elements for tile. Only an
// undecodable document is an error; unusable elements are skipped.
func (ix *Indexer) Parse(data []byte, tile types.TileCoord) (*Result, error) {
	doc, skipped, err := osm.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("tile %s: %w", tile, err)
	}

	p := &parse{
		ix:     ix,
		tile:   tile,
		result: &Result{Tile: tile, Skipped: skipped},
	}
	if ix.cfg.Features.Water {
		p.water = boundary.NewBuilder(tile, ix.cfg.WaterResolution)
	}
	p.run(doc)

	if skipped > 0 {
		ix.cfg.Logger.Debug("skipped malformed elements", "tile", tile.String(), "count", skipped)
	}
	return p.result, nil
}

type parse struct {
	ix     *Indexer
	tile   types.TileCoord
	result *Result
	water  *boundary.Builder
}

func (p *parse) run(doc *osm.Document) {
	f := p.ix.cfg.Features

	// Ways are re-emitted without geometry after relations; keep the copy
	// that has one.
	ways := make(map[int64]*osm.Element)
	var order []int64
	for i := range doc.Elements {
		el := &doc.Elements[i]
		if el.Type != osm.TypeWay {
			continue
		}
		prev, seen := ways[el.ID]
		if !seen {
			order = append(order, el.ID)
		}
		if !seen || (len(prev.Geometry) == 0 && len(el.Geometry) > 0) {
			ways[el.ID] = el
		}
	}

	unused := make(map[int64]bool)
	for _, id := range order {
		way := ways[id]
		if way.Tags == nil {
			unused[id] = true
			continue
		}
		if f.Water && way.Tag("natural") == "coastline" {
			p.addWater(way, boundary.CoastlineID)
			continue
		}
		class, ok := Classify(way.Tags, f)
		if !ok {
			unused[id] = true
			continue
		}
		p.addWay(way, class)
	}

	var ground []int64
	for i := range doc.Elements {
		el := &doc.Elements[i]
		switch el.Type {
		case osm.TypeRelation:
			p.relation(el, ways, unused)
		case osm.TypeArea:
			ground = append(ground, el.ID)
		}
	}

	if p.water == nil {
		return
	}
	for _, id := range order {
		if way := ways[id]; unused[id] && isWaterArea(way.Tags) {
			p.addWater(way, id+osm.WayAreaOffset)
		}
	}
	if g := p.ix.cfg.Grounding; g != nil && g.IsOcean(p.tile) {
		ground = append(ground, boundary.CoastlineID)
	}

	p.result.Ground = ground
	p.result.WaterSegments = p.water.Segments()
	p.result.Water = p.water.Compile(ground)
}

func (p *parse) relation(rel *osm.Element, ways map[int64]*osm.Element, unused map[int64]bool) {
	if rel.Tags == nil || len(rel.Members) == 0 {
		return
	}
	f := p.ix.cfg.Features

	if f.Water && isWaterArea(rel.Tags) {
		for _, m := range rel.Members {
			if way, ok := ways[m.Ref]; ok && m.Type == osm.TypeWay {
				p.addWater(way, rel.ID+osm.RelationAreaOffset)
				delete(unused, m.Ref)
			}
		}
		return
	}

	if f.Buildings && rel.Tag("building") != "" {
		class := Classification{Type: types.FeatureBuilding, Lanes: 1, Layer: 0}
		for _, m := range rel.Members {
			if way, ok := ways[m.Ref]; ok && m.Type == osm.TypeWay {
				p.addWay(way, class)
				delete(unused, m.Ref)
			}
		}
	}
}

// addWay projects the way's vertices and emits one edge per consecutive
// pair. A nil vertex breaks the chain.
func (p *parse) addWay(way *osm.Element, class Classification) {
	proj := p.ix.cfg.Projection
	var last *[2]float64
	for _, pt := range way.Geometry {
		if pt == nil {
			last = nil
			continue
		}
		x, y := proj.FromGeo(pt.Lon, pt.Lat)
		if last != nil {
			p.result.Edges = append(p.result.Edges, NewEdge(last[0], last[1], x, y, class, p.tile))
		}
		last = &[2]float64{x, y}
	}
}

func (p *parse) addWater(way *osm.Element, id int64) {
	if p.water == nil {
		return
	}
	var last *osm.LatLon
	for _, pt := range way.Geometry {
		if pt != nil && last != nil {
			p.water.AddSegment(last.Lon, last.Lat, pt.Lon, pt.Lat, id)
		}
		last = pt
	}
}
