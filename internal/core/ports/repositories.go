package ports

import (
	"context"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
)

// ActivityRepository persists activities and their tracks.
type ActivityRepository interface {
	Insert(ctx context.Context, a *domain.Activity) error
	// Update replaces the decoded fields of an existing activity.
	Update(ctx context.Context, a *domain.Activity) error
	// Query lists a user's activities, most recent first. The Near field of
	// the filter is not applied by the store.
	Query(ctx context.Context, filter domain.ActivityFilter) ([]domain.Activity, error)
	GetByID(ctx context.Context, id string) (*domain.Activity, error)
	Delete(ctx context.Context, userID, id string) error
	// ListArchived returns activities that have a raw file archived, without
	// their tracks.
	ListArchived(ctx context.Context, limit int) ([]domain.Activity, error)
	// FindVisitsNear returns the user's activities whose track passes within
	// radiusMeters of (lat, lon), most recent first.
	FindVisitsNear(ctx context.Context, userID string, lat, lon, radiusMeters float64) ([]domain.VisitRecord, error)
}
