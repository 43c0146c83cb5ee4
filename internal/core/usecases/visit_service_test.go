package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
	"github.com/samirrijal/trailwhisper/internal/core/usecases"
)

func TestVisitService_Near(t *testing.T) {
	var gotRadius float64
	repo := &mockActivityRepo{
		visitsNearFn: func(ctx context.Context, userID string, lat, lon, radius float64) ([]domain.VisitRecord, error) {
			gotRadius = radius
			return []domain.VisitRecord{
				visit("a", domain.SportRunning, 0, 5000),
				visit("b", domain.SportCycling, 1, 30000),
				visit("c", domain.SportRunning, 2, 7000),
			}, nil
		},
	}
	svc := usecases.NewVisitService(repo, nil, 0)

	res, err := svc.Near(context.Background(), "u", domain.GeoPoint{Lat: 43.263, Lon: -2.935}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotRadius != usecases.DefaultVisitRadius || res.RadiusMeters != usecases.DefaultVisitRadius {
		t.Errorf("expected default radius %v, got %v", usecases.DefaultVisitRadius, gotRadius)
	}
	if res.Summary.TotalVisits != 3 || res.Summary.TotalDistanceMeters != 42000 {
		t.Errorf("unexpected summary: %+v", res.Summary)
	}
	if res.Summary.BySport[0].Sport != domain.SportRunning || res.Summary.BySport[0].Count != 2 {
		t.Errorf("unexpected by-sport: %+v", res.Summary.BySport)
	}
}

func TestVisitService_Near_NoVisits(t *testing.T) {
	svc := usecases.NewVisitService(&mockActivityRepo{}, nil, 250)

	res, err := svc.Near(context.Background(), "u", domain.GeoPoint{Lat: 1, Lon: 1}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Visits == nil || len(res.Visits) != 0 {
		t.Errorf("expected empty visit list, got %#v", res.Visits)
	}
	if res.RadiusMeters != 250 {
		t.Errorf("expected configured default radius, got %v", res.RadiusMeters)
	}
}

func TestVisitService_Near_Validation(t *testing.T) {
	svc := usecases.NewVisitService(&mockActivityRepo{}, nil, 0)
	ctx := context.Background()

	if _, err := svc.Near(ctx, "", domain.GeoPoint{}, 100); !errors.Is(err, usecases.ErrInvalidInput) {
		t.Errorf("missing user: got %v", err)
	}
	if _, err := svc.Near(ctx, "u", domain.GeoPoint{Lat: 91}, 100); !errors.Is(err, usecases.ErrInvalidInput) {
		t.Errorf("bad latitude: got %v", err)
	}
	if _, err := svc.Near(ctx, "u", domain.GeoPoint{}, 1e6); !errors.Is(err, usecases.ErrInvalidInput) {
		t.Errorf("huge radius: got %v", err)
	}
}

func TestVisitService_Near_Cached(t *testing.T) {
	calls := 0
	repo := &mockActivityRepo{
		visitsNearFn: func(ctx context.Context, userID string, lat, lon, radius float64) ([]domain.VisitRecord, error) {
			calls++
			return []domain.VisitRecord{visit("a", domain.SportHiking, 0, 100)}, nil
		},
	}
	cache := newMockCache()
	svc := usecases.NewVisitService(repo, cache, 0)
	at := domain.GeoPoint{Lat: 43.263, Lon: -2.935}

	for i := 0; i < 3; i++ {
		res, err := svc.Near(context.Background(), "u", at, 400)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Summary.TotalVisits != 1 {
			t.Fatalf("unexpected summary on call %d: %+v", i, res.Summary)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 store call, got %d", calls)
	}
	if cache.sets != 1 {
		t.Errorf("expected 1 cache write, got %d", cache.sets)
	}
}

func TestVisitService_Near_CacheKeepsNearbyLookupsApart(t *testing.T) {
	var lats []float64
	repo := &mockActivityRepo{
		visitsNearFn: func(ctx context.Context, userID string, lat, lon, radius float64) ([]domain.VisitRecord, error) {
			lats = append(lats, lat)
			if lat == 43.26301 {
				return []domain.VisitRecord{visit("a", domain.SportHiking, 0, 100)}, nil
			}
			return nil, nil
		},
	}
	svc := usecases.NewVisitService(repo, newMockCache(), 0)
	ctx := context.Background()

	first := domain.GeoPoint{Lat: 43.26301, Lon: -2.935}
	second := domain.GeoPoint{Lat: 43.26304, Lon: -2.935}

	if _, err := svc.Near(ctx, "u", first, 400); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := svc.Near(ctx, "u", second, 400.4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lats) != 2 {
		t.Fatalf("expected both lookups to reach the store, got %v", lats)
	}
	if res.Location != second || res.RadiusMeters != 400.4 || len(res.Visits) != 0 {
		t.Errorf("second lookup answered with another point's result: %+v", res)
	}

	// A repeated lookup is served from the cache with its own location.
	res, err = svc.Near(ctx, "u", first, 400)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lats) != 2 || res.Location != first || len(res.Visits) != 1 {
		t.Errorf("expected cached result for first point, got %+v after %d store calls", res, len(lats))
	}
}

func TestVisitService_NearSource(t *testing.T) {
	var gotLat float64
	repo := &mockActivityRepo{
		visitsNearFn: func(ctx context.Context, userID string, lat, lon, radius float64) ([]domain.VisitRecord, error) {
			gotLat = lat
			return nil, nil
		},
	}
	svc := usecases.NewVisitService(repo, nil, 0)

	src := domain.LocationSource{
		Device: &domain.GeoPoint{Lat: 40.4168, Lon: -3.7038},
		Manual: &domain.GeoPoint{Lat: 43.263, Lon: -2.935},
	}
	res, err := svc.NearSource(context.Background(), "u", src, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != domain.LocationManual || gotLat != 43.263 {
		t.Errorf("manual override should win, got %s at %v", res.Source, gotLat)
	}

	if _, err := svc.NearSource(context.Background(), "u", domain.LocationSource{}, 0); !errors.Is(err, usecases.ErrNoLocation) {
		t.Errorf("expected ErrNoLocation, got %v", err)
	}
}

func TestResolveLocation(t *testing.T) {
	device := &domain.GeoPoint{Lat: 40.4168, Lon: -3.7038}

	p, kind, err := usecases.ResolveLocation(domain.LocationSource{Device: device})
	if err != nil || kind != domain.LocationDevice || p != *device {
		t.Errorf("device only: got %v %s %v", p, kind, err)
	}

	// An invalid override falls back to the device.
	p, kind, err = usecases.ResolveLocation(domain.LocationSource{Device: device, Manual: &domain.GeoPoint{Lat: 200}})
	if err != nil || kind != domain.LocationDevice || p != *device {
		t.Errorf("invalid manual: got %v %s %v", p, kind, err)
	}
}
