package usecases

import "github.com/samirrijal/trailwhisper/internal/core/domain"

// ResolveLocation picks the coordinate to use from src: a valid manual
// override first, then the device position.
func ResolveLocation(src domain.LocationSource) (domain.GeoPoint, domain.LocationSourceKind, error) {
	p, kind, ok := src.Resolve()
	if !ok {
		return domain.GeoPoint{}, "", ErrNoLocation
	}
	return p, kind, nil
}
