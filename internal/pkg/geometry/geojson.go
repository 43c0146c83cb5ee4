package geometry

import (
	"github.com/tidwall/gjson"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
)

// lineFromGeoJSON reads the "coordinates" member of a GeoJSON object as
// [lon, lat] pairs. The geometry type is not checked. valid is false when s
// is not JSON at all; found is false when it has no coordinates array.
func lineFromGeoJSON(s string) (points []domain.GeoPoint, valid, found bool) {
	if !gjson.Valid(s) {
		return nil, false, false
	}
	coords := gjson.Get(s, "coordinates")
	if !coords.IsArray() {
		return nil, true, false
	}
	items := coords.Array()
	points = make([]domain.GeoPoint, 0, len(items))
	for _, item := range items {
		if p, ok := pairFromJSON(item); ok {
			points = append(points, p)
		}
	}
	return points, true, true
}

// pointFromGeoJSON reads a GeoJSON Point's [lon, lat].
func pointFromGeoJSON(s string) (domain.GeoPoint, bool) {
	if !gjson.Valid(s) {
		return domain.GeoPoint{}, false
	}
	return pairFromJSON(gjson.Get(s, "coordinates"))
}

func pairFromJSON(v gjson.Result) (domain.GeoPoint, bool) {
	if !v.IsArray() {
		return domain.GeoPoint{}, false
	}
	arr := v.Array()
	if len(arr) < 2 || arr[0].Type != gjson.Number || arr[1].Type != gjson.Number {
		return domain.GeoPoint{}, false
	}
	lon, lat := arr[0].Float(), arr[1].Float()
	if !finite(lon) || !finite(lat) {
		return domain.GeoPoint{}, false
	}
	return domain.GeoPoint{Lat: lat, Lon: lon}, true
}
