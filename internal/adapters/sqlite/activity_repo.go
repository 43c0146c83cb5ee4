package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
	"github.com/samirrijal/trailwhisper/internal/pkg/geometry"
	"github.com/samirrijal/trailwhisper/internal/pkg/geospatial"
)

// Fixed-width UTC timestamps sort lexicographically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const activityColumns = `id, user_id, sport, started_at, ended_at, total_distance_m,
	track_wkt, center_wkt, COALESCE(archive_key, ''), created_at`

var errEmptyTrack = errors.New("activity has no track points")

// ActivityRepo implements ports.ActivityRepository on SQLite.
type ActivityRepo struct {
	db *DB
}

// NewActivityRepo creates a new ActivityRepo.
func NewActivityRepo(db *DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

// Insert stores a new activity with its track as WKT and its bounds for
// proximity prefiltering.
func (r *ActivityRepo) Insert(ctx context.Context, a *domain.Activity) error {
	bounds, ok := geospatial.TrackBounds(a.Track)
	if !ok {
		return errEmptyTrack
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activities (id, user_id, sport, started_at, ended_at, total_distance_m,
		                        track_wkt, center_wkt, min_lat, min_lon, max_lat, max_lon,
		                        archive_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?)
	`, a.ID, a.UserID, string(a.Sport), formatTime(a.StartedAt), formatTime(a.EndedAt),
		a.TotalDistanceMeters, geometry.EncodeLineString(a.Track), centerWKT(a.Center),
		bounds.MinLat, bounds.MinLon, bounds.MaxLat, bounds.MaxLon,
		a.ArchiveKey, formatTime(createdAt))
	return err
}

// Update rewrites the decoded fields of an activity.
func (r *ActivityRepo) Update(ctx context.Context, a *domain.Activity) error {
	bounds, ok := geospatial.TrackBounds(a.Track)
	if !ok {
		return errEmptyTrack
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE activities
		SET sport = ?, started_at = ?, ended_at = ?, total_distance_m = ?,
		    track_wkt = ?, center_wkt = ?, min_lat = ?, min_lon = ?, max_lat = ?, max_lon = ?
		WHERE id = ?
	`, string(a.Sport), formatTime(a.StartedAt), formatTime(a.EndedAt), a.TotalDistanceMeters,
		geometry.EncodeLineString(a.Track), centerWKT(a.Center),
		bounds.MinLat, bounds.MinLon, bounds.MaxLat, bounds.MaxLon, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update activity %s: %w", a.ID, sql.ErrNoRows)
	}
	return nil
}

// Query lists activities matching the filter, most recent first.
func (r *ActivityRepo) Query(ctx context.Context, f domain.ActivityFilter) ([]domain.Activity, error) {
	where := []string{"user_id = ?"}
	args := []any{f.UserID}
	if f.Sport != "" {
		where = append(where, "sport = ?")
		args = append(args, string(f.Sport))
	}
	if f.From != nil {
		where = append(where, "started_at >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		where = append(where, "started_at <= ?")
		args = append(args, formatTime(*f.To))
	}
	query := "SELECT " + activityColumns + " FROM activities WHERE " +
		strings.Join(where, " AND ") + " ORDER BY started_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

// GetByID returns an activity, or nil when it does not exist.
func (r *ActivityRepo) GetByID(ctx context.Context, id string) (*domain.Activity, error) {
	a, err := scanActivity(r.db.QueryRowContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// Delete removes one of the user's activities.
func (r *ActivityRepo) Delete(ctx context.Context, userID, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM activities WHERE id = ? AND user_id = ?`, id, userID)
	return err
}

// ListArchived returns the oldest archived activities first, without tracks.
func (r *ActivityRepo) ListArchived(ctx context.Context, limit int) ([]domain.Activity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, sport, started_at, ended_at, total_distance_m, archive_key, created_at
		FROM activities
		WHERE archive_key IS NOT NULL
		ORDER BY created_at
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		var (
			a                         domain.Activity
			sport, start, end, create string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &sport, &start, &end,
			&a.TotalDistanceMeters, &a.ArchiveKey, &create); err != nil {
			return nil, err
		}
		a.Sport = domain.Sport(sport)
		a.StartedAt, a.EndedAt, a.CreatedAt = parseTime(start), parseTime(end), parseTime(create)
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// FindVisitsNear prefilters on stored track bounds, then checks each track
// with the proximity engine. The reported distance is that of the closest
// track point.
func (r *ActivityRepo) FindVisitsNear(ctx context.Context, userID string, lat, lon, radiusMeters float64) ([]domain.VisitRecord, error) {
	target := domain.GeoPoint{Lat: lat, Lon: lon}
	box := geospatial.RadiusBounds(target, radiusMeters*1.01)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sport, started_at, ended_at, total_distance_m, track_wkt
		FROM activities
		WHERE user_id = ?
		  AND max_lat >= ? AND min_lat <= ?
		  AND max_lon >= ? AND min_lon <= ?
		ORDER BY started_at DESC
	`, userID, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []domain.VisitRecord
	for rows.Next() {
		var (
			v                      domain.VisitRecord
			sport, start, end, wkt string
		)
		if err := rows.Scan(&v.ActivityID, &sport, &start, &end, &v.TotalDistanceMeters, &wkt); err != nil {
			return nil, err
		}
		track := geometry.WKT(wkt).LineString()
		if !geospatial.WithinRadius(track, target, radiusMeters) {
			continue
		}
		m, _ := geospatial.NearestPoint(track, target)
		v.Sport = domain.Sport(sport)
		v.StartedAt, v.EndedAt = parseTime(start), parseTime(end)
		v.DistanceMeters = m.DistanceMeters
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanActivity(row scanner) (*domain.Activity, error) {
	var (
		a                         domain.Activity
		sport, start, end, create string
		track                     string
		center                    sql.NullString
	)
	if err := row.Scan(&a.ID, &a.UserID, &sport, &start, &end, &a.TotalDistanceMeters,
		&track, &center, &a.ArchiveKey, &create); err != nil {
		return nil, err
	}
	a.Sport = domain.Sport(sport)
	a.StartedAt, a.EndedAt, a.CreatedAt = parseTime(start), parseTime(end), parseTime(create)
	a.Track = geometry.WKT(track).LineString()
	if center.Valid {
		if p, ok := geometry.WKT(center.String).Point(); ok {
			a.Center = &p
		}
	}
	return &a, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime reads a stored timestamp; unreadable values become the zero time.
func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func centerWKT(p *domain.GeoPoint) any {
	if p == nil {
		return nil
	}
	return geometry.EncodePoint(*p)
}
