package geospatial

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
)

// TrackBounds returns the bounding box of the finite points of a track.
func TrackBounds(points []domain.GeoPoint) (domain.Bounds, bool) {
	b := domain.Bounds{
		MinLat: math.Inf(1), MinLon: math.Inf(1),
		MaxLat: math.Inf(-1), MaxLon: math.Inf(-1),
	}
	found := false
	for _, p := range points {
		if !p.Finite() {
			continue
		}
		found = true
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}
	if !found {
		return domain.Bounds{}, false
	}
	return b, true
}

// Centroid is the arithmetic mean of latitudes and longitudes, taken
// independently. It is not a geodesic centroid and drifts near the poles and
// the antimeridian; stored activities depend on this exact formula.
func Centroid(points []domain.GeoPoint) domain.GeoPoint {
	if len(points) == 0 {
		return domain.GeoPoint{}
	}
	lats := make([]float64, len(points))
	lons := make([]float64, len(points))
	for i, p := range points {
		lats[i] = p.Lat
		lons[i] = p.Lon
	}
	return domain.GeoPoint{Lat: stat.Mean(lats, nil), Lon: stat.Mean(lons, nil)}
}
