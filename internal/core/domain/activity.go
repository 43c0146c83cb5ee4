package domain

import (
	"strings"
	"time"
)

// Sport is the normalized activity type.
type Sport string

const (
	SportRunning  Sport = "running"
	SportWalking  Sport = "walking"
	SportHiking   Sport = "hiking"
	SportCycling  Sport = "cycling"
	SportSwimming Sport = "swimming"
	SportOther    Sport = "other"
)

var sportAliases = map[string]Sport{
	"running":  SportRunning,
	"walking":  SportWalking,
	"hiking":   SportHiking,
	"cycling":  SportCycling,
	"biking":   SportCycling,
	"swimming": SportSwimming,
}

// ParseSport maps a raw sport label onto the fixed vocabulary. Unknown or
// empty labels become SportOther.
func ParseSport(raw string) Sport {
	if s, ok := sportAliases[strings.ToLower(raw)]; ok {
		return s
	}
	return SportOther
}

// NormalizedActivity is the result of decoding one workout file.
type NormalizedActivity struct {
	Name                string     `json:"name"`
	Sport               Sport      `json:"sport"`
	StartedAt           time.Time  `json:"started_at"`
	EndedAt             time.Time  `json:"ended_at"`
	TotalDistanceMeters float64    `json:"total_distance_m"`
	Points              []GeoPoint `json:"points"`
	Centroid            GeoPoint   `json:"centroid"`
}

// Activity is a stored workout.
type Activity struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"user_id"`
	Sport               Sport      `json:"sport"`
	StartedAt           time.Time  `json:"started_at"`
	EndedAt             time.Time  `json:"ended_at"`
	TotalDistanceMeters float64    `json:"total_distance_m"`
	Track               []GeoPoint `json:"track,omitempty"`
	Center              *GeoPoint  `json:"center,omitempty"`
	ArchiveKey          string     `json:"archive_key,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// ActivityFromNormalized builds a storable activity from a decoded one.
func ActivityFromNormalized(id, userID string, n NormalizedActivity) Activity {
	center := n.Centroid
	return Activity{
		ID:                  id,
		UserID:              userID,
		Sport:               n.Sport,
		StartedAt:           n.StartedAt,
		EndedAt:             n.EndedAt,
		TotalDistanceMeters: n.TotalDistanceMeters,
		Track:               n.Points,
		Center:              &center,
	}
}

// ActivityFilter narrows an activity listing. Zero values mean "no filter".
type ActivityFilter struct {
	UserID string
	Sport  Sport
	From   *time.Time
	To     *time.Time
	Near   *RadiusFilter
	Limit  int
}

// RadiusFilter keeps activities whose track passes within RadiusMeters of
// Center.
type RadiusFilter struct {
	Center       GeoPoint
	RadiusMeters float64
}

// VisitRecord is one activity that passed near a reference coordinate.
type VisitRecord struct {
	ActivityID          string    `json:"activity_id"`
	Sport               Sport     `json:"sport"`
	StartedAt           time.Time `json:"started_at"`
	EndedAt             time.Time `json:"ended_at"`
	TotalDistanceMeters float64   `json:"total_distance_m"`
	DistanceMeters      float64   `json:"distance_m"`
}

// SportCount is a per-sport tally.
type SportCount struct {
	Sport Sport `json:"sport"`
	Count int   `json:"count"`
}

// VisitSummary aggregates visits near a location. Derived, never stored.
type VisitSummary struct {
	TotalVisits         int           `json:"total_visits"`
	TotalDistanceMeters float64       `json:"total_distance_m"`
	RecentVisits        []VisitRecord `json:"recent_visits"`
	BySport             []SportCount  `json:"by_sport"`
}

// UploadStatus is the state of one file in an upload batch.
type UploadStatus string

const (
	UploadReady     UploadStatus = "ready"
	UploadUploading UploadStatus = "uploading"
	UploadDone      UploadStatus = "done"
	UploadError     UploadStatus = "error"
)

// UploadResult reports the outcome for a single uploaded file.
type UploadResult struct {
	FileName   string       `json:"file_name"`
	ActivityID string       `json:"activity_id,omitempty"`
	Sport      Sport        `json:"sport,omitempty"`
	Status     UploadStatus `json:"status"`
	Error      string       `json:"error,omitempty"`
	Retryable  bool         `json:"retryable,omitempty"`
}

// ActivityUploadedEvent is published after an activity is stored.
type ActivityUploadedEvent struct {
	ActivityID string    `json:"activity_id"`
	UserID     string    `json:"user_id"`
	Sport      Sport     `json:"sport"`
	StartedAt  time.Time `json:"started_at"`
	Center     GeoPoint  `json:"center"`
	UploadedAt time.Time `json:"uploaded_at"`
}
