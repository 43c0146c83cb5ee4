package usecases

import (
	"context"
	"fmt"
	"path"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
	"github.com/samirrijal/trailwhisper/internal/core/ports"
	"github.com/samirrijal/trailwhisper/internal/pkg/telemetry"
)

// ReprocessService rebuilds stored activities from their archived files,
// so that decoder fixes reach activities uploaded before them.
type ReprocessService struct {
	decoder    ports.TrackDecoder
	activities ports.ActivityRepository
	archive    ports.ArchiveStore
	cache      ports.CacheService
	tracer     trace.Tracer
}

// NewReprocessService creates a new ReprocessService. cache may be nil.
func NewReprocessService(
	decoder ports.TrackDecoder,
	activities ports.ActivityRepository,
	archive ports.ArchiveStore,
	cache ports.CacheService,
) *ReprocessService {
	return &ReprocessService{
		decoder:    decoder,
		activities: activities,
		archive:    archive,
		cache:      cache,
		tracer:     telemetry.Tracer(),
	}
}

// Archived lists up to limit activities that can be rebuilt.
func (s *ReprocessService) Archived(ctx context.Context, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 1000
	}
	return s.activities.ListArchived(ctx, limit)
}

// Rebuild decodes the archived file of activity id again and stores the
// result in place. Identity, owner and upload time are kept.
func (s *ReprocessService) Rebuild(ctx context.Context, id string) (*domain.Activity, error) {
	ctx, span := s.tracer.Start(ctx, telemetry.SpanReprocess,
		trace.WithAttributes(attribute.String(telemetry.AttrActivityID, id)))
	defer span.End()

	a, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	if a.ArchiveKey == "" || s.archive == nil {
		return nil, fmt.Errorf("%w: activity %s has no archived file", ErrInvalidInput, id)
	}

	data, err := s.archive.Get(ctx, a.ArchiveKey)
	if err != nil {
		return nil, fmt.Errorf("fetch archive %s: %w", a.ArchiveKey, err)
	}
	n, err := s.decoder.Decode(path.Base(a.ArchiveKey), data)
	if err != nil {
		return nil, err
	}

	rebuilt := domain.ActivityFromNormalized(a.ID, a.UserID, n)
	rebuilt.ArchiveKey = a.ArchiveKey
	rebuilt.CreatedAt = a.CreatedAt
	if err := s.activities.Update(ctx, &rebuilt); err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}
	invalidateUser(ctx, s.cache, a.UserID)
	return &rebuilt, nil
}
