package geometry

import (
	"strconv"

	"github.com/MeKo-Tech/osmterrain/internal/types"
)

const (
	defaultLanes = 2
	maxLanes     = 8
	defaultLayer = 1
)

// Features selects which feature classes the indexer keeps.
type Features struct {
	Roads     bool
	Water     bool
	Buildings bool
}

// AllFeatures enables every feature class.
func AllFeatures() Features {
	return Features{Roads: true, Water: true, Buildings: true}
}

// Classification is the edge metadata derived from a way's tags.
type Classification struct {
	Type      types.FeatureType
	Lanes     uint8
	Layer     int8
	Attribute types.Attribute
}

// highwayTypes maps highway values to road severities. Unknown values fall
// back to FeatureRoad.
var highwayTypes = map[string]types.FeatureType{
	"motorway":       types.FeatureFreeway,
	"trunk":          types.FeatureLimitedAccess,
	"motorway_link":  types.FeatureInterchange,
	"trunk_link":     types.FeatureInterchange,
	"primary":        types.FeatureMain,
	"raceway":        types.FeatureMain,
	"secondary":      types.FeatureSide,
	"primary_link":   types.FeatureSide,
	"secondary_link": types.FeatureSide,
	"living_street":  types.FeatureSide,
	"bus_guideway":   types.FeatureSide,
	"service":        types.FeatureSide,
	"unclassified":   types.FeatureSide,
	"tertiary":       types.FeatureMinor,
	"residential":    types.FeatureMinor,
}

var railTypes = map[string]bool{
	"rail":       true,
	"light_rail": true,
	"subway":     true,
	"tram":       true,
}

// Classify derives the edge classification of a way. The second result is
// false when the way does not produce edges (it may still be a water
// boundary).
func Classify(tags map[string]string, f Features) (Classification, bool) {
	var highway, waterway, building, railway, tunnel, bridge string
	if f.Roads {
		highway = tags["highway"]
		railway = tags["railway"]
		tunnel = tags["tunnel"]
		bridge = tags["bridge"]
	}
	if f.Water {
		switch w := tags["waterway"]; w {
		case "river", "canal", "stream":
			waterway = w
		}
	}
	if f.Buildings {
		building = tags["building"]
	}

	c := Classification{Type: types.FeatureRoad, Attribute: types.AttributeNone}
	switch {
	case building != "":
		c.Type = types.FeatureBuilding
	case highway != "":
		// keep FeatureRoad until subclassified below
	case waterway == "stream":
		c.Type = types.FeatureStream
	case waterway != "":
		c.Type = types.FeatureRiver
	case railTypes[railway]:
		c.Type = types.FeatureRail
	default:
		return Classification{}, false
	}

	switch {
	case tunnel == "yes":
		c.Attribute = types.AttributeTunnel
	case bridge == "yes":
		c.Attribute = types.AttributeBridge
	case highway != "" && c.Type == types.FeatureRoad:
		if t, ok := highwayTypes[highway]; ok {
			c.Type = t
		}
	}

	c.Lanes = parseLanes(tags["lanes"])
	c.Layer = parseLayer(tags["layer"])

	if c.Lanes < 2 && c.Type == types.FeatureInterchange {
		c.Lanes = 2
	}
	if c.Lanes > 2 && c.Type == types.FeatureMinor {
		c.Type = types.FeatureMain
	}
	return c, true
}

func parseLanes(s string) uint8 {
	if s == "" {
		return defaultLanes
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return defaultLanes
	}
	if n > maxLanes {
		return maxLanes
	}
	return uint8(n)
}

func parseLayer(s string) int8 {
	if s == "" {
		return defaultLayer
	}
	n, err := strconv.ParseInt(s, 10, 8)
	if err != nil {
		return defaultLayer
	}
	return int8(n)
}

// isWaterArea reports whether tags describe a closed water body.
func isWaterArea(tags map[string]string) bool {
	if tags == nil {
		return false
	}
	return tags["water"] != "" || tags["natural"] == "water" || tags["waterway"] == "riverbank"
}
