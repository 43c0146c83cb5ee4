package fitdecode

import (
	"math"
	"time"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
	"github.com/samirrijal/trailwhisper/internal/pkg/geospatial"
)

// Normalize builds a NormalizedActivity from a parsed container.
//
// Only records carrying a usable latitude and longitude become track
// points. The first session, when present, is authoritative for sport,
// start, end and total distance; otherwise the first and last records
// stand in. An end before the start is clamped to the start.
func Normalize(name string, c Container) (domain.NormalizedActivity, error) {
	points := make([]domain.GeoPoint, 0, len(c.Records))
	for _, r := range c.Records {
		if r.Lat == nil || r.Lon == nil {
			continue
		}
		// Out-of-range coordinates only come from corrupt fields; they are
		// dropped with the non-finite ones.
		p := domain.GeoPoint{Lat: *r.Lat, Lon: *r.Lon}
		if !p.Valid() {
			continue
		}
		points = append(points, p)
	}
	if len(points) == 0 {
		return domain.NormalizedActivity{}, &DecodeError{File: name, Kind: KindNoGPSData}
	}

	var session Session
	if len(c.Sessions) > 0 {
		session = c.Sessions[0]
	}
	var first, last Record
	if n := len(c.Records); n > 0 {
		first, last = c.Records[0], c.Records[n-1]
	}

	startedAt := firstTime(session.StartTime, first.Timestamp)
	endedAt := firstTime(session.Timestamp, last.Timestamp, startedAt)
	if startedAt == nil || endedAt == nil {
		return domain.NormalizedActivity{}, &DecodeError{File: name, Kind: KindMissingTimestamps}
	}
	start, end := startedAt.UTC(), endedAt.UTC()
	if end.Before(start) {
		end = start
	}

	distance := 0.0
	switch {
	case usable(session.TotalDistance):
		distance = *session.TotalDistance
	case usable(last.Distance):
		distance = *last.Distance
	}

	var sport string
	if session.Sport != nil {
		sport = *session.Sport
	}

	return domain.NormalizedActivity{
		Name:                name,
		Sport:               domain.ParseSport(sport),
		StartedAt:           start,
		EndedAt:             end,
		TotalDistanceMeters: math.Round(distance),
		Points:              points,
		Centroid:            geospatial.Centroid(points),
	}, nil
}

func firstTime(candidates ...*time.Time) *time.Time {
	for _, t := range candidates {
		if t != nil && !t.IsZero() {
			return t
		}
	}
	return nil
}

func usable(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}
