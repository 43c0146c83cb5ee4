package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
	"github.com/samirrijal/trailwhisper/internal/pkg/geometry"
)

var errEmptyTrack = errors.New("activity has no track points")

// Tracks are read back as EWKB hex; centers as EWKT.
const activityColumns = `
	id::text, user_id, sport, started_at, ended_at, total_distance_m,
	encode(ST_AsEWKB(track_geom), 'hex'), ST_AsEWKT(center),
	COALESCE(archive_key, ''), created_at`

// ActivityRepo implements ports.ActivityRepository with pgx and PostGIS.
type ActivityRepo struct {
	db *DB
}

// NewActivityRepo creates a new ActivityRepo.
func NewActivityRepo(db *DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

// Insert stores a new activity. Geometry is sent as EWKT.
func (r *ActivityRepo) Insert(ctx context.Context, a *domain.Activity) error {
	if len(a.Track) == 0 {
		return errEmptyTrack
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO activities (id, user_id, sport, started_at, ended_at, total_distance_m,
		                        track_geom, center, archive_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, ST_GeomFromEWKT($7), ST_GeomFromEWKT($8), NULLIF($9, ''), $10)
	`, a.ID, a.UserID, string(a.Sport), a.StartedAt, a.EndedAt, a.TotalDistanceMeters,
		geometry.EncodeLineString(a.Track), centerEWKT(a.Center), a.ArchiveKey, createdAt)
	return err
}

// Update rewrites the decoded fields of an activity.
func (r *ActivityRepo) Update(ctx context.Context, a *domain.Activity) error {
	if len(a.Track) == 0 {
		return errEmptyTrack
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE activities
		SET sport = $2, started_at = $3, ended_at = $4, total_distance_m = $5,
		    track_geom = ST_GeomFromEWKT($6), center = ST_GeomFromEWKT($7)
		WHERE id = $1
	`, a.ID, string(a.Sport), a.StartedAt, a.EndedAt, a.TotalDistanceMeters,
		geometry.EncodeLineString(a.Track), centerEWKT(a.Center))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update activity %s: %w", a.ID, pgx.ErrNoRows)
	}
	return nil
}

// Query lists activities matching the filter, most recent first.
func (r *ActivityRepo) Query(ctx context.Context, f domain.ActivityFilter) ([]domain.Activity, error) {
	where := []string{"user_id = $1"}
	args := []any{f.UserID}
	if f.Sport != "" {
		args = append(args, string(f.Sport))
		where = append(where, fmt.Sprintf("sport = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("started_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("started_at <= $%d", len(args)))
	}

	query := "SELECT " + activityColumns + " FROM activities WHERE " +
		strings.Join(where, " AND ") + " ORDER BY started_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
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
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	a, err := scanActivity(r.db.Pool.QueryRow(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// Delete removes one of the user's activities.
func (r *ActivityRepo) Delete(ctx context.Context, userID, id string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM activities WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}

// ListArchived returns the oldest archived activities first, without tracks.
func (r *ActivityRepo) ListArchived(ctx context.Context, limit int) ([]domain.Activity, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, user_id, sport, started_at, ended_at, total_distance_m, archive_key, created_at
		FROM activities
		WHERE archive_key IS NOT NULL
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		var a domain.Activity
		var sport string
		if err := rows.Scan(&a.ID, &a.UserID, &sport, &a.StartedAt, &a.EndedAt,
			&a.TotalDistanceMeters, &a.ArchiveKey, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Sport = domain.Sport(sport)
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// FindVisitsNear runs the find_visits_near SQL function.
func (r *ActivityRepo) FindVisitsNear(ctx context.Context, userID string, lat, lon, radiusMeters float64) ([]domain.VisitRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT activity_id::text, sport, started_at, ended_at, total_distance_m, distance_m
		FROM find_visits_near($1, $2, $3, $4)
	`, userID, lat, lon, radiusMeters)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []domain.VisitRecord
	for rows.Next() {
		var v domain.VisitRecord
		var sport string
		if err := rows.Scan(&v.ActivityID, &sport, &v.StartedAt, &v.EndedAt,
			&v.TotalDistanceMeters, &v.DistanceMeters); err != nil {
			return nil, err
		}
		v.Sport = domain.Sport(sport)
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

func scanActivity(row pgx.Row) (*domain.Activity, error) {
	var (
		a         domain.Activity
		sport     string
		trackHex  string
		centerTxt *string
	)
	if err := row.Scan(&a.ID, &a.UserID, &sport, &a.StartedAt, &a.EndedAt,
		&a.TotalDistanceMeters, &trackHex, &centerTxt, &a.ArchiveKey, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Sport = domain.Sport(sport)
	a.Track = geometry.WKBHex(trackHex).LineString()
	if centerTxt != nil {
		if p, ok := geometry.WKT(*centerTxt).Point(); ok {
			a.Center = &p
		}
	}
	return &a, nil
}

func centerEWKT(p *domain.GeoPoint) *string {
	if p == nil {
		return nil
	}
	s := geometry.EncodePoint(*p)
	return &s
}
