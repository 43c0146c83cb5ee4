package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
	"github.com/samirrijal/trailwhisper/internal/core/usecases"
)

func storedActivity(id, userID string, track ...domain.GeoPoint) domain.Activity {
	return domain.Activity{
		ID:        id,
		UserID:    userID,
		Sport:     domain.SportRunning,
		StartedAt: uploadStart,
		EndedAt:   uploadStart.Add(time.Hour),
		Track:     track,
	}
}

func TestActivityService_List_ClampLimit(t *testing.T) {
	var got domain.ActivityFilter
	repo := &mockActivityRepo{
		queryFn: func(ctx context.Context, f domain.ActivityFilter) ([]domain.Activity, error) {
			got = f
			return nil, nil
		},
	}
	svc := usecases.NewActivityService(repo, nil, nil, nil)

	if _, err := svc.List(context.Background(), domain.ActivityFilter{UserID: "u", Limit: 5000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Limit != 200 {
		t.Errorf("expected limit clamped to 200, got %d", got.Limit)
	}

	if _, err := svc.List(context.Background(), domain.ActivityFilter{UserID: "u"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Limit != 50 {
		t.Errorf("expected default limit 50, got %d", got.Limit)
	}
}

func TestActivityService_List_Validation(t *testing.T) {
	svc := usecases.NewActivityService(&mockActivityRepo{}, nil, nil, nil)
	from := uploadStart
	to := uploadStart.Add(-time.Hour)

	cases := map[string]domain.ActivityFilter{
		"missing user":  {},
		"inverted time": {UserID: "u", From: &from, To: &to},
		"bad radius":    {UserID: "u", Near: &domain.RadiusFilter{Center: domain.GeoPoint{Lat: 1, Lon: 1}}},
		"bad center":    {UserID: "u", Near: &domain.RadiusFilter{Center: domain.GeoPoint{Lat: 100}, RadiusMeters: 10}},
	}
	for name, f := range cases {
		if _, err := svc.List(context.Background(), f); !errors.Is(err, usecases.ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}
}

func TestActivityService_List_NearFilter(t *testing.T) {
	here := domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}
	var storeLimit = -1
	repo := &mockActivityRepo{
		queryFn: func(ctx context.Context, f domain.ActivityFilter) ([]domain.Activity, error) {
			storeLimit = f.Limit
			if f.Near != nil {
				t.Error("near filter must not reach the store")
			}
			return []domain.Activity{
				storedActivity("near-1", "u", domain.GeoPoint{Lat: 43.2631, Lon: -2.9351}),
				storedActivity("far", "u", domain.GeoPoint{Lat: 40.4168, Lon: -3.7038}),
				storedActivity("empty", "u"),
				storedActivity("near-2", "u", domain.GeoPoint{Lat: 43.2700, Lon: -2.9000}, domain.GeoPoint{Lat: 43.2632, Lon: -2.9352}),
				storedActivity("near-3", "u", here),
			}, nil
		},
	}
	svc := usecases.NewActivityService(repo, nil, nil, nil)

	got, err := svc.List(context.Background(), domain.ActivityFilter{
		UserID: "u",
		Limit:  2,
		Near:   &domain.RadiusFilter{Center: here, RadiusMeters: 100},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if storeLimit != 0 {
		t.Errorf("store should be queried without a limit, got %d", storeLimit)
	}
	if len(got) != 2 || got[0].ID != "near-1" || got[1].ID != "near-2" {
		t.Errorf("unexpected activities: %+v", got)
	}
}

func TestActivityService_Get_OtherUser(t *testing.T) {
	repo := &mockActivityRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Activity, error) {
			a := storedActivity(id, "owner")
			return &a, nil
		},
	}
	svc := usecases.NewActivityService(repo, nil, nil, nil)

	if _, err := svc.Get(context.Background(), "intruder", "a1"); !errors.Is(err, usecases.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	a, err := svc.Get(context.Background(), "owner", "a1")
	if err != nil || a.ID != "a1" {
		t.Errorf("owner should see the activity, got %v %v", a, err)
	}
}

func TestActivityService_Delete(t *testing.T) {
	repo := &mockActivityRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Activity, error) {
			a := storedActivity(id, "u")
			a.ArchiveKey = "activities/u/a1/run.fit"
			return &a, nil
		},
	}
	archive := newMockArchive()
	_ = archive.Put(context.Background(), "activities/u/a1/run.fit", []byte("fit"))
	pub := &mockPublisher{}
	cache := newMockCache()
	_ = cache.Set(context.Background(), "visits:u:1.0000:1.0000:400", []byte("{}"), 60)

	svc := usecases.NewActivityService(repo, archive, pub, cache)
	if err := svc.Delete(context.Background(), "u", "a1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.deleted) != 1 || repo.deleted[0] != "u/a1" {
		t.Errorf("unexpected deletes: %v", repo.deleted)
	}
	if len(archive.objects) != 0 {
		t.Error("archived file should be deleted")
	}
	if len(pub.deleted) != 1 {
		t.Error("expected a deleted event")
	}
	if len(cache.data) != 0 {
		t.Error("visit cache should be invalidated")
	}
}

func TestActivityService_Delete_NotFound(t *testing.T) {
	repo := &mockActivityRepo{}
	svc := usecases.NewActivityService(repo, nil, nil, nil)

	if err := svc.Delete(context.Background(), "u", "missing"); !errors.Is(err, usecases.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Error("nothing should be deleted")
	}
}
