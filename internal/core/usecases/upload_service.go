package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
	"github.com/samirrijal/trailwhisper/internal/core/ports"
	"github.com/samirrijal/trailwhisper/internal/pkg/fitdecode"
	"github.com/samirrijal/trailwhisper/internal/pkg/metrics"
	"github.com/samirrijal/trailwhisper/internal/pkg/telemetry"
)

// UploadFile is one file of an upload batch.
type UploadFile struct {
	Name string
	Data []byte
}

// UploadService decodes uploaded workout files and stores the activities.
type UploadService struct {
	decoder    ports.TrackDecoder
	activities ports.ActivityRepository
	archive    ports.ArchiveStore
	publisher  ports.EventPublisher
	cache      ports.CacheService
	workers    int
	tracer     trace.Tracer

	newID func() string
	now   func() time.Time
}

// NewUploadService creates an UploadService. archive, publisher and cache
// may be nil. workers bounds how many files are processed at once.
func NewUploadService(
	decoder ports.TrackDecoder,
	activities ports.ActivityRepository,
	archive ports.ArchiveStore,
	publisher ports.EventPublisher,
	cache ports.CacheService,
	workers int,
) *UploadService {
	if workers <= 0 {
		workers = 4
	}
	return &UploadService{
		decoder:    decoder,
		activities: activities,
		archive:    archive,
		publisher:  publisher,
		cache:      cache,
		workers:    workers,
		tracer:     telemetry.Tracer(),
		newID:      func() string { return uuid.NewString() },
		now:        time.Now,
	}
}

// ProcessBatch decodes and stores every file for userID. Files are handled
// concurrently and independently: results[i] always describes files[i], and
// a failing file never affects its siblings.
func (s *UploadService) ProcessBatch(ctx context.Context, userID string, files []UploadFile) []domain.UploadResult {
	ctx, span := s.tracer.Start(ctx, telemetry.SpanUploadBatch,
		trace.WithAttributes(attribute.Int("files", len(files))))
	defer span.End()

	results := make([]domain.UploadResult, len(files))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.workers)

	for i, f := range files {
		wg.Add(1)
		go func(i int, f UploadFile) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = failed(f.Name, ctx.Err().Error(), true)
				return
			}
			defer func() { <-sem }()

			results[i] = s.processFile(ctx, userID, f)
		}(i, f)
	}

	wg.Wait()

	stored := 0
	for _, r := range results {
		if r.Status == domain.UploadDone {
			stored++
		}
	}
	if stored > 0 {
		invalidateUser(ctx, s.cache, userID)
	}
	span.SetAttributes(attribute.Int("stored", stored))
	return results
}

func (s *UploadService) processFile(ctx context.Context, userID string, f UploadFile) domain.UploadResult {
	ctx, span := s.tracer.Start(ctx, telemetry.SpanUploadFile, trace.WithAttributes(
		attribute.String(telemetry.AttrFileName, f.Name),
		attribute.Int(telemetry.AttrFileSize, len(f.Data)),
	))
	defer span.End()

	start := time.Now()
	n, err := s.decoder.Decode(f.Name, f.Data)
	metrics.DecodeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode")
		return s.decodeFailure(ctx, f.Name, err)
	}
	metrics.TrackPoints.Observe(float64(len(n.Points)))
	span.SetAttributes(
		attribute.String(telemetry.AttrSport, string(n.Sport)),
		attribute.Int(telemetry.AttrPoints, len(n.Points)),
	)

	activity := domain.ActivityFromNormalized(s.newID(), userID, n)
	activity.CreatedAt = s.now().UTC()
	span.SetAttributes(attribute.String(telemetry.AttrActivityID, activity.ID))

	if s.archive != nil {
		key := ArchiveKey(userID, activity.ID, f.Name)
		if err := s.archive.Put(ctx, key, f.Data); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "archive")
			slog.WarnContext(ctx, "archive upload failed", "file", f.Name, "error", err)
			return failed(f.Name, "Upload failed: could not archive file", true)
		}
		activity.ArchiveKey = key
	}

	if err := s.activities.Insert(ctx, &activity); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert")
		slog.ErrorContext(ctx, "insert activity failed", "file", f.Name, "error", err)
		if activity.ArchiveKey != "" {
			_ = s.archive.Delete(ctx, activity.ArchiveKey)
		}
		return failed(f.Name, "Upload failed", true)
	}

	metrics.ActivitiesDecoded.WithLabelValues(string(activity.Sport)).Inc()

	if s.publisher != nil {
		event := &domain.ActivityUploadedEvent{
			ActivityID: activity.ID,
			UserID:     userID,
			Sport:      activity.Sport,
			StartedAt:  activity.StartedAt,
			Center:     n.Centroid,
			UploadedAt: activity.CreatedAt,
		}
		if err := s.publisher.PublishActivityUploaded(ctx, event); err != nil {
			slog.WarnContext(ctx, "publish activity uploaded", "activity_id", activity.ID, "error", err)
		}
	}

	return domain.UploadResult{
		FileName:   f.Name,
		ActivityID: activity.ID,
		Sport:      activity.Sport,
		Status:     domain.UploadDone,
	}
}

func (s *UploadService) decodeFailure(ctx context.Context, name string, err error) domain.UploadResult {
	var de *fitdecode.DecodeError
	if errors.As(err, &de) {
		metrics.DecodeFailures.WithLabelValues(string(de.Kind)).Inc()
		slog.WarnContext(ctx, "decode failed", "file", name, "reason", string(de.Kind), "error", err)
		return failed(name, de.Message(), false)
	}
	metrics.DecodeFailures.WithLabelValues("unknown").Inc()
	slog.WarnContext(ctx, "decode failed", "file", name, "error", err)
	return failed(name, fmt.Sprintf("Could not parse %s", name), false)
}

func failed(name, msg string, retryable bool) domain.UploadResult {
	return domain.UploadResult{
		FileName:  name,
		Status:    domain.UploadError,
		Error:     msg,
		Retryable: retryable,
	}
}

// ArchiveKey is the object key under which an uploaded file is kept.
func ArchiveKey(userID, activityID, fileName string) string {
	return path.Join("activities", userID, activityID, path.Base(fileName))
}
