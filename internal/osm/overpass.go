package osm

import (
	"maps"
	"slices"

	"github.com/MeKo-Christian/go-overpass"
)

// FromOverpassResult converts a go-overpass result into a Document. Ways and
// relations are emitted in id order so the output is deterministic. The
// client does not expose area elements or geometry breaks, so neither
// appears in the converted document.
func FromOverpassResult(result *overpass.Result) *Document {
	doc := &Document{Generator: "go-overpass", Elements: []Element{}}
	if result == nil {
		return doc
	}

	for _, id := range slices.Sorted(maps.Keys(result.Ways)) {
		way := result.Ways[id]
		if way == nil {
			continue
		}
		doc.Elements = append(doc.Elements, convertWay(way))
	}

	for _, id := range slices.Sorted(maps.Keys(result.Relations)) {
		rel := result.Relations[id]
		if rel == nil {
			continue
		}
		doc.Elements = append(doc.Elements, convertRelation(rel))
	}

	return doc
}

func convertWay(way *overpass.Way) Element {
	el := Element{
		Type: TypeWay,
		ID:   way.ID,
		Tags: copyTags(way.Tags),
	}
	if len(way.Geometry) > 0 {
		el.Geometry = make([]*LatLon, len(way.Geometry))
		for i, p := range way.Geometry {
			el.Geometry[i] = &LatLon{Lat: p.Lat, Lon: p.Lon}
		}
	}
	return el
}

func convertRelation(rel *overpass.Relation) Element {
	el := Element{
		Type: TypeRelation,
		ID:   rel.ID,
		Tags: copyTags(rel.Tags),
	}
	for _, m := range rel.Members {
		// Only way members carry geometry we can use.
		if string(m.Type) != string(TypeWay) || m.Way == nil {
			continue
		}
		el.Members = append(el.Members, Member{
			Type: TypeWay,
			Ref:  m.Way.ID,
			Role: m.Role,
		})
	}
	return el
}

func copyTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	return maps.Clone(tags)
}
