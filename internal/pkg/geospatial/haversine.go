package geospatial

import (
	"math"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
)

// EarthRadiusMeters is the mean Earth radius used by every distance
// comparison in the system, including the SQL tw_haversine_m function.
const EarthRadiusMeters = 6371000.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push h past 1 for near-antipodal points.
	h = math.Min(1, h)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// Distance is Haversine over domain points.
func Distance(a, b domain.GeoPoint) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 111320.0
	lonDelta := radiusMeters / (111320.0 * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

// RadiusBounds is BoundingBox returned as a domain.Bounds. Near the poles the
// longitude span is widened to the full range.
func RadiusBounds(center domain.GeoPoint, radiusMeters float64) domain.Bounds {
	minLat, minLon, maxLat, maxLon := BoundingBox(center.Lat, center.Lon, radiusMeters)
	b := domain.Bounds{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
	if math.IsNaN(minLon) || math.IsInf(minLon, 0) || maxLon-minLon >= 360 {
		b.MinLon, b.MaxLon = -180, 180
	}
	return b
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
