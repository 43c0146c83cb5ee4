package ports

import (
	"context"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
)

// TrackDecoder turns a raw workout file into a normalized activity.
type TrackDecoder interface {
	Decode(name string, data []byte) (domain.NormalizedActivity, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishActivityUploaded(ctx context.Context, event *domain.ActivityUploadedEvent) error
	PublishActivityDeleted(ctx context.Context, userID, activityID string) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeActivityUploaded(ctx context.Context, handler func(ctx context.Context, event *domain.ActivityUploadedEvent) error) error
	SubscribeActivityDeleted(ctx context.Context, handler func(ctx context.Context, userID, activityID string) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// ArchiveStore keeps the original uploaded files.
type ArchiveStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
