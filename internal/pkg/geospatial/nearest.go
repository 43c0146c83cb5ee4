package geospatial

import (
	"math"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
)

// NearestPoint scans the whole track and returns the point closest to target.
// It reports false for an empty track or one without finite coordinates.
func NearestPoint(track []domain.GeoPoint, target domain.GeoPoint) (domain.ProximityMatch, bool) {
	return nearest(track, target, math.NaN())
}

// NearestPointWithin returns the first point whose running minimum distance to
// target drops to maxDistance or below, and stops scanning there. The result
// is a point within range, not necessarily the closest one: callers that need
// the true nearest point must use NearestPoint. It reports false when no point
// of the track comes within maxDistance.
func NearestPointWithin(track []domain.GeoPoint, target domain.GeoPoint, maxDistance float64) (domain.ProximityMatch, bool) {
	if math.IsNaN(maxDistance) {
		return domain.ProximityMatch{}, false
	}
	m, ok := nearest(track, target, maxDistance)
	if !ok || m.DistanceMeters > maxDistance {
		return domain.ProximityMatch{}, false
	}
	return m, true
}

// nearest is the linear scan shared by both lookups. A NaN threshold disables
// the early exit.
func nearest(track []domain.GeoPoint, target domain.GeoPoint, maxDistance float64) (domain.ProximityMatch, bool) {
	best := domain.ProximityMatch{DistanceMeters: math.Inf(1)}
	found := false
	for _, p := range track {
		if !p.Finite() {
			continue
		}
		d := Distance(p, target)
		if d < best.DistanceMeters {
			best = domain.ProximityMatch{Point: p, DistanceMeters: d}
			found = true
		}
		if !math.IsNaN(maxDistance) && best.DistanceMeters <= maxDistance {
			return best, true
		}
	}
	if !found {
		return domain.ProximityMatch{}, false
	}
	return best, true
}

// WithinRadius reports whether any point of the track lies within
// radiusMeters of target.
func WithinRadius(track []domain.GeoPoint, target domain.GeoPoint, radiusMeters float64) bool {
	_, ok := NearestPointWithin(track, target, radiusMeters)
	return ok
}

// FilterActivitiesNear keeps the activities whose track passes within
// radiusMeters of target, preserving order.
func FilterActivitiesNear(activities []domain.Activity, target domain.GeoPoint, radiusMeters float64) []domain.Activity {
	out := make([]domain.Activity, 0, len(activities))
	for _, a := range activities {
		if len(a.Track) == 0 {
			continue
		}
		if WithinRadius(a.Track, target, radiusMeters) {
			out = append(out, a)
		}
	}
	return out
}
