// Package geometry converts point sequences to and from the wire encodings
// used by the stores and the API: WKT text, WKB hex and GeoJSON.
//
// Decoding never fails loudly. Unparseable input yields an empty sequence or
// a false ok, so a damaged stored geometry cannot break the record it
// belongs to.
package geometry

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
)

// SRID is the spatial reference (WGS 84) written into every EWKT value.
const SRID = 4326

var (
	lineStringRe = regexp.MustCompile(`(?i)LINESTRING\((.+)\)`)
	pointRe      = regexp.MustCompile(`(?i)POINT\((.+)\)`)
)

// EncodeLineString renders points as EWKT: SRID=4326;LINESTRING(lon lat, ...).
// An empty slice produces a LINESTRING without coordinates, which PostGIS
// rejects; callers must not store empty tracks.
func EncodeLineString(points []domain.GeoPoint) string {
	var sb strings.Builder
	sb.WriteString("SRID=4326;LINESTRING(")
	for i, p := range points {
		if i > 0 {
			sb.WriteString(", ")
		}
		writePair(&sb, p)
	}
	sb.WriteByte(')')
	return sb.String()
}

// EncodePoint renders p as EWKT: SRID=4326;POINT(lon lat).
func EncodePoint(p domain.GeoPoint) string {
	var sb strings.Builder
	sb.WriteString("SRID=4326;POINT(")
	writePair(&sb, p)
	sb.WriteByte(')')
	return sb.String()
}

func writePair(sb *strings.Builder, p domain.GeoPoint) {
	sb.WriteString(strconv.FormatFloat(p.Lon, 'f', -1, 64))
	sb.WriteByte(' ')
	sb.WriteString(strconv.FormatFloat(p.Lat, 'f', -1, 64))
}

// parseWKTLineString extracts the coordinates of the first LINESTRING(...)
// found in s. Pairs that are not exactly two finite numbers are dropped.
func parseWKTLineString(s string) []domain.GeoPoint {
	m := lineStringRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	pairs := strings.Split(m[1], ",")
	points := make([]domain.GeoPoint, 0, len(pairs))
	for _, pair := range pairs {
		if p, ok := parsePair(pair); ok {
			points = append(points, p)
		}
	}
	return points
}

func parseWKTPoint(s string) (domain.GeoPoint, bool) {
	m := pointRe.FindStringSubmatch(s)
	if m == nil {
		return domain.GeoPoint{}, false
	}
	return parsePair(m[1])
}

// parsePair reads "lon lat".
func parsePair(pair string) (domain.GeoPoint, bool) {
	fields := strings.Fields(pair)
	if len(fields) != 2 {
		return domain.GeoPoint{}, false
	}
	lon, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || !finite(lon) {
		return domain.GeoPoint{}, false
	}
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || !finite(lat) {
		return domain.GeoPoint{}, false
	}
	return domain.GeoPoint{Lat: lat, Lon: lon}, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
