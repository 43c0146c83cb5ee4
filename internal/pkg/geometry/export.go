package geometry

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	kml "github.com/twpayne/go-kml"
	"github.com/twpayne/go-polyline"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
)

// GeoJSONContentType is the media type of exported features.
const GeoJSONContentType = "application/geo+json"

// LineStringGeometry projects points into an orb LineString ([lon, lat]).
func LineStringGeometry(points []domain.GeoPoint) orb.LineString {
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = orb.Point{p.Lon, p.Lat}
	}
	return ls
}

// Feature builds the downloadable GeoJSON Feature for an activity.
func Feature(a domain.Activity) *geojson.Feature {
	f := geojson.NewFeature(LineStringGeometry(a.Track))
	f.Properties["id"] = a.ID
	f.Properties["sport"] = string(a.Sport)
	f.Properties["started_at"] = a.StartedAt.UTC().Format(time.RFC3339)
	f.Properties["ended_at"] = a.EndedAt.UTC().Format(time.RFC3339)
	f.Properties["total_distance_m"] = a.TotalDistanceMeters
	return f
}

// FeatureJSON is Feature rendered as indented JSON.
func FeatureJSON(a domain.Activity) ([]byte, error) {
	return json.MarshalIndent(Feature(a), "", "  ")
}

// FeatureFileName is the download name used for an exported activity.
func FeatureFileName(id string) string {
	return fmt.Sprintf("activity-%s.geojson", id)
}

// EncodePolyline encodes points with the Google polyline algorithm
// (precision 5), the compact form map widgets consume.
func EncodePolyline(points []domain.GeoPoint) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lon}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePolyline is the inverse of EncodePolyline. Invalid input yields nil.
func DecodePolyline(s string) []domain.GeoPoint {
	coords, _, err := polyline.DecodeCoords([]byte(s))
	if err != nil {
		return nil
	}
	points := make([]domain.GeoPoint, 0, len(coords))
	for _, c := range coords {
		if len(c) == 2 {
			points = append(points, domain.GeoPoint{Lat: c[0], Lon: c[1]})
		}
	}
	return points
}

// WriteKML writes the activity track as a KML document with one placemark.
func WriteKML(w io.Writer, a domain.Activity) error {
	coords := make([]kml.Coordinate, len(a.Track))
	for i, p := range a.Track {
		coords[i] = kml.Coordinate{Lon: p.Lon, Lat: p.Lat}
	}
	desc := fmt.Sprintf("%s, %s, started %s",
		a.Sport, FormatDistance(a.TotalDistanceMeters), a.StartedAt.UTC().Format(time.RFC3339))
	doc := kml.KML(
		kml.Document(
			kml.Name("activity "+a.ID),
			kml.Placemark(
				kml.Name(string(a.Sport)),
				kml.Description(desc),
				kml.LineString(
					kml.Tessellate(true),
					kml.Coordinates(coords...),
				),
			),
		),
	)
	return doc.WriteIndent(w, "", "  ")
}

// FormatDistance renders meters the way the activity cards do: kilometres
// with one decimal from 1 km up, whole meters below.
func FormatDistance(meters float64) string {
	if meters >= 1000 {
		return fmt.Sprintf("%.1f km", meters/1000)
	}
	return fmt.Sprintf("%d m", int(math.Round(meters)))
}
