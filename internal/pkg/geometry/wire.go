package geometry

import (
	"regexp"
	"strings"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
)

// Kind tags the encoding of a wire geometry value.
type Kind int

const (
	KindEmpty Kind = iota
	KindGeoJSON
	KindWKT
	KindWKBHex
)

func (k Kind) String() string {
	switch k {
	case KindGeoJSON:
		return "geojson"
	case KindWKT:
		return "wkt"
	case KindWKBHex:
		return "wkb_hex"
	default:
		return "empty"
	}
}

// Wire is a geometry as received from a store or client. It only lives at
// the boundary; the in-memory form is always []domain.GeoPoint.
type Wire struct {
	Kind  Kind
	Value string
}

// GeoJSON tags a GeoJSON geometry object.
func GeoJSON(s string) Wire { return tagged(KindGeoJSON, s) }

// WKT tags WKT or EWKT text.
func WKT(s string) Wire { return tagged(KindWKT, s) }

// WKBHex tags hex-encoded WKB or EWKB.
func WKBHex(s string) Wire { return tagged(KindWKBHex, s) }

func tagged(k Kind, s string) Wire {
	s = strings.TrimSpace(s)
	if s == "" {
		return Wire{}
	}
	return Wire{Kind: k, Value: s}
}

var hexRe = regexp.MustCompile(`(?i)^[0-9a-f]+$`)

// Sniff classifies an untagged value by its content: hex digits only means
// WKB, a leading brace means GeoJSON, anything else is treated as WKT.
func Sniff(raw string) Wire {
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return Wire{}
	case hexRe.MatchString(s):
		return Wire{Kind: KindWKBHex, Value: s}
	case strings.HasPrefix(s, "{"):
		return Wire{Kind: KindGeoJSON, Value: s}
	default:
		return Wire{Kind: KindWKT, Value: s}
	}
}

// LineString decodes a tagged value with the decoder its tag names.
func (w Wire) LineString() []domain.GeoPoint {
	switch w.Kind {
	case KindWKBHex:
		return decodeWKBLineString(w.Value)
	case KindGeoJSON:
		points, _, _ := lineFromGeoJSON(w.Value)
		return points
	case KindWKT:
		return parseWKTLineString(w.Value)
	default:
		return nil
	}
}

// Point decodes a tagged point value.
func (w Wire) Point() (domain.GeoPoint, bool) {
	switch w.Kind {
	case KindWKBHex:
		return decodeWKBPoint(w.Value)
	case KindGeoJSON:
		return pointFromGeoJSON(w.Value)
	case KindWKT:
		return parseWKTPoint(w.Value)
	default:
		return domain.GeoPoint{}, false
	}
}

// DecodeLineString decodes a value whose encoding is not known up front.
// It tries, in order: WKB hex (when the value is all hex digits and yields
// at least one point), GeoJSON (when it starts with '{'; invalid JSON gives
// an empty result), then the LINESTRING(...) text pattern.
func DecodeLineString(raw string) []domain.GeoPoint {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if hexRe.MatchString(s) {
		if points := decodeWKBLineString(s); len(points) > 0 {
			return points
		}
	}
	if strings.HasPrefix(s, "{") {
		points, valid, found := lineFromGeoJSON(s)
		if !valid {
			return nil
		}
		if found {
			return points
		}
	}
	return parseWKTLineString(s)
}

// DecodePoint is DecodeLineString for single points: WKB hex, GeoJSON Point
// or POINT(lon lat) text.
func DecodePoint(raw string) (domain.GeoPoint, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return domain.GeoPoint{}, false
	}
	if hexRe.MatchString(s) {
		if p, ok := decodeWKBPoint(s); ok {
			return p, true
		}
	}
	if strings.HasPrefix(s, "{") {
		return pointFromGeoJSON(s)
	}
	return parseWKTPoint(s)
}
