package datasource

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/osmterrain/internal/types"
)

// QueryOptions selects which feature classes a tile query returns.
type QueryOptions struct {
	Roads     bool
	Water     bool
	Buildings bool
}

// DefaultQueryOptions requests every feature class.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{Roads: true, Water: true, Buildings: true}
}

// BuildTileQuery creates the Overpass QL query for a tile.
//
// Ways are fetched with full geometry clipped to the tile box, followed by
// their parent relations (member references only). When water is enabled
// the query also asks for the water areas enclosing the tile's south-west
// corner, which seed the boundary classifier's initial state.
func BuildTileQuery(tile types.TileCoord, opts QueryOptions) string {
	b := tile.Bounds()
	// Overpass bbox order: south,west,north,east
	bbox := fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)

	var filter strings.Builder
	if !opts.Buildings {
		filter.WriteString(`[!"building"]`)
	}
	if !opts.Roads {
		filter.WriteString(`[!"highway"][!"railway"]`)
	}
	if !opts.Water {
		filter.WriteString(`[!"water"][!"natural"][!"waterway"]`)
	}

	var q strings.Builder
	q.WriteString("[out:json][timeout:60];\n")
	fmt.Fprintf(&q, "way(%s)%s;\n", bbox, filter.String())
	fmt.Fprintf(&q, "out geom(%s) tags qt;\n", bbox)
	q.WriteString("(._<;);\n")
	q.WriteString("out body qt;\n")
	if opts.Water {
		fmt.Fprintf(&q, "is_in(%.6f,%.6f);\n", b.MinLat, b.MinLon)
		q.WriteString(`area._[~"natural|waterway"~"water|riverbank"];` + "\n")
		q.WriteString("out ids;\n")
	}

	return q.String()
}
