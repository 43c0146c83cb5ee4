package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
	"github.com/samirrijal/trailwhisper/internal/core/ports"
	"github.com/samirrijal/trailwhisper/internal/pkg/metrics"
	"github.com/samirrijal/trailwhisper/internal/pkg/telemetry"
)

const (
	// DefaultVisitRadius is used when a lookup does not name a radius.
	DefaultVisitRadius = 400.0
	maxVisitRadius     = 50_000.0
	visitsCacheTTL     = 120
)

// VisitsNear is the answer to "have I been here before?".
type VisitsNear struct {
	Location     domain.GeoPoint           `json:"location"`
	Source       domain.LocationSourceKind `json:"source,omitempty"`
	RadiusMeters float64                   `json:"radius_m"`
	Visits       []domain.VisitRecord      `json:"visits"`
	Summary      domain.VisitSummary       `json:"summary"`
}

// VisitService finds and summarizes past activities near a location.
type VisitService struct {
	activities    ports.ActivityRepository
	cache         ports.CacheService
	defaultRadius float64
	tracer        trace.Tracer
}

// NewVisitService creates a new VisitService. A non-positive defaultRadius
// means DefaultVisitRadius.
func NewVisitService(activities ports.ActivityRepository, cache ports.CacheService, defaultRadius float64) *VisitService {
	if defaultRadius <= 0 {
		defaultRadius = DefaultVisitRadius
	}
	return &VisitService{
		activities:    activities,
		cache:         cache,
		defaultRadius: defaultRadius,
		tracer:        telemetry.Tracer(),
	}
}

// Near returns the user's visits within radiusMeters of at, with their
// summary. A non-positive radius means the service default.
func (s *VisitService) Near(ctx context.Context, userID string, at domain.GeoPoint, radiusMeters float64) (*VisitsNear, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if !at.Valid() {
		return nil, fmt.Errorf("%w: coordinate out of range", ErrInvalidInput)
	}
	if radiusMeters <= 0 {
		radiusMeters = s.defaultRadius
	}
	if radiusMeters > maxVisitRadius {
		return nil, fmt.Errorf("%w: radius must not exceed %.0f m", ErrInvalidInput, maxVisitRadius)
	}

	ctx, span := s.tracer.Start(ctx, telemetry.SpanVisitsNear,
		trace.WithAttributes(attribute.Float64(telemetry.AttrRadius, radiusMeters)))
	defer span.End()
	metrics.VisitsQueries.Inc()

	cacheKey := visitsCacheKey(userID, at.Lat, at.Lon, radiusMeters)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var cached VisitsNear
			if err := json.Unmarshal(data, &cached); err == nil {
				metrics.CacheHits.WithLabelValues("visits_near").Inc()
				cached.Location = at
				cached.RadiusMeters = radiusMeters
				return &cached, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("visits_near").Inc()
	}

	visits, err := s.activities.FindVisitsNear(ctx, userID, at.Lat, at.Lon, radiusMeters)
	if err != nil {
		return nil, fmt.Errorf("find visits near: %w", err)
	}
	if visits == nil {
		visits = []domain.VisitRecord{}
	}

	result := &VisitsNear{
		Location:     at,
		RadiusMeters: radiusMeters,
		Visits:       visits,
		Summary:      AggregateVisits(visits),
	}

	if s.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, visitsCacheTTL)
		}
	}
	return result, nil
}

// NearSource resolves src to a coordinate and looks up visits there.
func (s *VisitService) NearSource(ctx context.Context, userID string, src domain.LocationSource, radiusMeters float64) (*VisitsNear, error) {
	at, kind, err := ResolveLocation(src)
	if err != nil {
		return nil, err
	}
	result, err := s.Near(ctx, userID, at, radiusMeters)
	if err != nil {
		return nil, err
	}
	out := *result
	out.Source = kind
	return &out, nil
}
