package geospatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
)

func TestTrackBounds(t *testing.T) {
	b, ok := TrackBounds([]domain.GeoPoint{
		{Lat: 43.26, Lon: -2.93},
		{Lat: math.NaN(), Lon: 5},
		{Lat: 43.30, Lon: -2.99},
		{Lat: 43.21, Lon: -2.90},
	})
	require.True(t, ok)
	assert.Equal(t, domain.Bounds{MinLat: 43.21, MinLon: -2.99, MaxLat: 43.30, MaxLon: -2.90}, b)

	_, ok = TrackBounds(nil)
	assert.False(t, ok)
}

func TestCentroid_ArithmeticMean(t *testing.T) {
	c := Centroid([]domain.GeoPoint{
		{Lat: 10, Lon: 20},
		{Lat: 20, Lon: 40},
		{Lat: 30, Lon: 0},
	})
	assert.InDelta(t, 20, c.Lat, 1e-9)
	assert.InDelta(t, 20, c.Lon, 1e-9)

	// Across the antimeridian the mean lands on the wrong side of the globe;
	// that is the stored behaviour.
	c = Centroid([]domain.GeoPoint{{Lat: 0, Lon: 179}, {Lat: 0, Lon: -179}})
	assert.InDelta(t, 0, c.Lon, 1e-9)

	assert.Equal(t, domain.GeoPoint{}, Centroid(nil))
}
