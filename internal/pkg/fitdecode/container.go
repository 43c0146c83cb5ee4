// Package fitdecode turns FIT workout files into normalized activities.
//
// Decoding happens in two steps. A ContainerParser reads the binary file
// into a Container of loosely typed records and session summaries, then
// Normalize applies the activity rules (GPS filtering, session-first
// fallbacks, sport vocabulary, centroid) to produce a
// domain.NormalizedActivity.
package fitdecode

import "time"

// Record is one sample from the file. Nil fields were absent or invalid.
type Record struct {
	Timestamp *time.Time
	Lat       *float64
	Lon       *float64
	// Distance is the cumulative distance in meters.
	Distance *float64
}

// Session is a session summary. Nil fields were absent or invalid.
type Session struct {
	Sport     *string
	StartTime *time.Time
	// Timestamp marks the end of the session.
	Timestamp *time.Time
	// TotalDistance is in meters.
	TotalDistance *float64
}

// Container is the generic content of a workout file, in file order.
type Container struct {
	Records  []Record
	Sessions []Session
}

// ContainerParser reads raw file bytes into a Container.
type ContainerParser interface {
	Parse(data []byte) (Container, error)
}
