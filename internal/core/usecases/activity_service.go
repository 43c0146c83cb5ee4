package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
	"github.com/samirrijal/trailwhisper/internal/core/ports"
	"github.com/samirrijal/trailwhisper/internal/pkg/geospatial"
	"github.com/samirrijal/trailwhisper/internal/pkg/telemetry"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// ActivityService reads and deletes stored activities.
type ActivityService struct {
	activities ports.ActivityRepository
	archive    ports.ArchiveStore
	publisher  ports.EventPublisher
	cache      ports.CacheService
	tracer     trace.Tracer
}

// NewActivityService creates a new ActivityService. archive, publisher and
// cache may be nil.
func NewActivityService(
	activities ports.ActivityRepository,
	archive ports.ArchiveStore,
	publisher ports.EventPublisher,
	cache ports.CacheService,
) *ActivityService {
	return &ActivityService{
		activities: activities,
		archive:    archive,
		publisher:  publisher,
		cache:      cache,
		tracer:     telemetry.Tracer(),
	}
}

// List returns the user's activities matching filter, most recent first.
// A Near filter is applied here with the proximity engine, after the store
// has applied the other criteria.
func (s *ActivityService) List(ctx context.Context, filter domain.ActivityFilter) ([]domain.Activity, error) {
	ctx, span := s.tracer.Start(ctx, telemetry.SpanActivityQuery)
	defer span.End()

	if filter.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, fmt.Errorf("%w: 'to' is before 'from'", ErrInvalidInput)
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultActivityLimit
	}
	if filter.Limit > maxActivityLimit {
		filter.Limit = maxActivityLimit
	}

	near := filter.Near
	if near != nil {
		if !near.Center.Valid() || near.RadiusMeters <= 0 {
			return nil, fmt.Errorf("%w: invalid near filter", ErrInvalidInput)
		}
		span.SetAttributes(attribute.Float64(telemetry.AttrRadius, near.RadiusMeters))
	}

	storeFilter := filter
	storeFilter.Near = nil
	if near != nil {
		// The limit counts matches, so the store cannot cut the list short.
		storeFilter.Limit = 0
	}

	activities, err := s.activities.Query(ctx, storeFilter)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	if near != nil {
		activities = geospatial.FilterActivitiesNear(activities, near.Center, near.RadiusMeters)
		if len(activities) > filter.Limit {
			activities = activities[:filter.Limit]
		}
	}
	return activities, nil
}

// Get returns one of the user's activities. Activities owned by someone
// else are reported as ErrNotFound.
func (s *ActivityService) Get(ctx context.Context, userID, id string) (*domain.Activity, error) {
	a, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil || a.UserID != userID {
		return nil, ErrNotFound
	}
	return a, nil
}

// Delete removes an activity together with its archived file.
func (s *ActivityService) Delete(ctx context.Context, userID, id string) error {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.activities.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if s.archive != nil && a.ArchiveKey != "" {
		if err := s.archive.Delete(ctx, a.ArchiveKey); err != nil {
			slog.WarnContext(ctx, "delete archived file", "key", a.ArchiveKey, "error", err)
		}
	}
	invalidateUser(ctx, s.cache, userID)
	if s.publisher != nil {
		_ = s.publisher.PublishActivityDeleted(ctx, userID, id)
	}
	return nil
}
