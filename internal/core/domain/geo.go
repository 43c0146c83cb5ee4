package domain

import "math"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Finite reports whether both components are finite numbers.
func (p GeoPoint) Finite() bool {
	return !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) &&
		!math.IsNaN(p.Lon) && !math.IsInf(p.Lon, 0)
}

// Valid reports whether the point lies inside the WGS 84 coordinate range.
func (p GeoPoint) Valid() bool {
	return p.Finite() && p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// GeoLineString represents an ordered sequence of geographic coordinates.
type GeoLineString struct {
	Coordinates []GeoPoint `json:"coordinates"`
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether p falls inside the box (edges included).
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Intersects reports whether two boxes overlap.
func (b Bounds) Intersects(o Bounds) bool {
	return b.MinLat <= o.MaxLat && o.MinLat <= b.MaxLat &&
		b.MinLon <= o.MaxLon && o.MinLon <= b.MaxLon
}

// ProximityMatch is the point of a track found nearest to (or within range
// of) a reference coordinate.
type ProximityMatch struct {
	Point          GeoPoint `json:"point"`
	DistanceMeters float64  `json:"distance_m"`
}

// LocationSourceKind tells where the current coordinate comes from.
type LocationSourceKind string

const (
	LocationDevice LocationSourceKind = "device"
	LocationManual LocationSourceKind = "manual"
)

// LocationSource is the caller's current-coordinate configuration. A manual
// override, when present, always wins over the device reading.
type LocationSource struct {
	Device *GeoPoint `json:"device,omitempty"`
	Manual *GeoPoint `json:"manual,omitempty"`
}

// Resolve returns the effective coordinate and where it came from.
func (s LocationSource) Resolve() (GeoPoint, LocationSourceKind, bool) {
	if s.Manual != nil && s.Manual.Valid() {
		return *s.Manual, LocationManual, true
	}
	if s.Device != nil && s.Device.Valid() {
		return *s.Device, LocationDevice, true
	}
	return GeoPoint{}, "", false
}
