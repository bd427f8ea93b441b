// Package osm models the flat element list returned by the Overpass API.
package osm

import (
	"encoding/json"
	"fmt"
)

// ElementType is the kind of an Overpass element.
type ElementType string

const (
	TypeNode     ElementType = "node"
	TypeWay      ElementType = "way"
	TypeRelation ElementType = "relation"
	TypeArea     ElementType = "area"
)

// Area id offsets used by Overpass to derive area ids from ways and relations.
const (
	WayAreaOffset      int64 = 2400000000
	RelationAreaOffset int64 = 3600000000
)

// LatLon is a single geometry vertex.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Member is a typed reference held by a relation.
type Member struct {
	Type ElementType `json:"type"`
	Ref  int64       `json:"ref"`
	Role string      `json:"role,omitempty"`
}

// Element is one entry of the response. A nil entry in Geometry marks a
// break: the vertices on either side are not connected.
type Element struct {
	Type     ElementType       `json:"type"`
	ID       int64             `json:"id"`
	Tags     map[string]string `json:"tags,omitempty"`
	Members  []Member          `json:"members,omitempty"`
	Geometry []*LatLon         `json:"geometry,omitempty"`
}

// Tag returns the value of key, or "" when the element has no such tag.
func (e *Element) Tag(key string) string {
	if e.Tags == nil {
		return ""
	}
	return e.Tags[key]
}

// Document is a decoded Overpass JSON response.
type Document struct {
	Version   float64           `json:"version,omitempty"`
	Generator string            `json:"generator,omitempty"`
	OSM3S     map[string]string `json:"osm3s,omitempty"`
	Elements  []Element         `json:"elements"`
}

type rawDocument struct {
	Version   float64           `json:"version"`
	Generator string            `json:"generator"`
	Elements  []json.RawMessage `json:"elements"`
}

// Decode parses an Overpass JSON response. Only a malformed envelope is an
// error; individual elements that fail to decode are skipped and counted.
func Decode(data []byte) (*Document, int, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal overpass json: %w", err)
	}
	if raw.Elements == nil {
		return nil, 0, fmt.Errorf("overpass json has no elements list")
	}

	doc := &Document{
		Version:   raw.Version,
		Generator: raw.Generator,
		Elements:  make([]Element, 0, len(raw.Elements)),
	}

	skipped := 0
	for _, msg := range raw.Elements {
		var el Element
		if err := json.Unmarshal(msg, &el); err != nil {
			skipped++
			continue
		}
		switch el.Type {
		case TypeNode, TypeWay, TypeRelation, TypeArea:
			doc.Elements = append(doc.Elements, el)
		default:
			skipped++
		}
	}

	return doc, skipped, nil
}

// Encode serializes the document in Overpass JSON form.
func (d *Document) Encode() ([]byte, error) {
	return json.Marshal(d)
}
