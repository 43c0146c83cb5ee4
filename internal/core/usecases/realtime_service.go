package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
	"github.com/samirrijal/trailwhisper/internal/core/ports"
	"github.com/samirrijal/trailwhisper/internal/pkg/metrics"
)

// RealtimeService reacts to activity events from the broker. Writers that
// run without a cache (bulk imports, other nodes) rely on it to drop stale
// visit lookups.
type RealtimeService struct {
	cache ports.CacheService
}

// NewRealtimeService creates a new RealtimeService. cache may be nil, in
// which case events are only counted and logged.
func NewRealtimeService(cache ports.CacheService) *RealtimeService {
	return &RealtimeService{cache: cache}
}

// HandleUploaded processes an activity.uploaded event.
func (s *RealtimeService) HandleUploaded(ctx context.Context, event *domain.ActivityUploadedEvent) error {
	if event == nil || event.UserID == "" {
		return fmt.Errorf("%w: upload event without user", ErrInvalidInput)
	}
	metrics.EventsConsumed.WithLabelValues("uploaded").Inc()
	slog.InfoContext(ctx, "activity uploaded",
		"activity_id", event.ActivityID,
		"user_id", event.UserID,
		"sport", string(event.Sport),
	)
	invalidateUser(ctx, s.cache, event.UserID)
	return nil
}

// HandleDeleted processes an activity.deleted event.
func (s *RealtimeService) HandleDeleted(ctx context.Context, userID, activityID string) error {
	if userID == "" {
		return fmt.Errorf("%w: delete event without user", ErrInvalidInput)
	}
	metrics.EventsConsumed.WithLabelValues("deleted").Inc()
	slog.InfoContext(ctx, "activity deleted", "activity_id", activityID, "user_id", userID)
	invalidateUser(ctx, s.cache, userID)
	return nil
}
