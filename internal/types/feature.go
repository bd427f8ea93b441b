package types

// FeatureType classifies an edge. Road kinds are ordered from least to most
// important so that comparisons express severity.
type FeatureType uint8

const (
	FeatureIgnore FeatureType = iota
	FeatureRoad               // generic road, used when the highway kind is unknown
	FeatureMinor
	FeatureSide
	FeatureMain
	FeatureLimitedAccess
	FeatureInterchange
	FeatureFreeway
	FeatureStream
	FeatureRiver
	FeatureBuilding
	FeatureRail
)

var featureNames = [...]string{
	FeatureIgnore:        "ignore",
	FeatureRoad:          "road",
	FeatureMinor:         "minor",
	FeatureSide:          "side",
	FeatureMain:          "main",
	FeatureLimitedAccess: "limited_access",
	FeatureInterchange:   "interchange",
	FeatureFreeway:       "freeway",
	FeatureStream:        "stream",
	FeatureRiver:         "river",
	FeatureBuilding:      "building",
	FeatureRail:          "rail",
}

func (f FeatureType) String() string {
	if int(f) < len(featureNames) {
		return featureNames[f]
	}
	return "unknown"
}

// IsRoad reports whether f is one of the road kinds.
func (f FeatureType) IsRoad() bool {
	return f >= FeatureRoad && f <= FeatureFreeway
}

// IsWaterway reports whether f is a linear waterway.
func (f FeatureType) IsWaterway() bool {
	return f == FeatureStream || f == FeatureRiver
}

// Attribute marks structures that are not at ground level.
type Attribute uint8

const (
	AttributeNone Attribute = iota
	AttributeBridge
	AttributeTunnel
)

func (a Attribute) String() string {
	switch a {
	case AttributeBridge:
		return "bridge"
	case AttributeTunnel:
		return "tunnel"
	default:
		return "none"
	}
}
