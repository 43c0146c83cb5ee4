package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
	"github.com/samirrijal/trailwhisper/internal/core/usecases"
	"github.com/samirrijal/trailwhisper/internal/pkg/fitdecode"
)

var uploadStart = time.Date(2024, 5, 4, 8, 0, 0, 0, time.UTC)

func decodedActivity(name string) domain.NormalizedActivity {
	return domain.NormalizedActivity{
		Name:                name,
		Sport:               domain.SportRunning,
		StartedAt:           uploadStart,
		EndedAt:             uploadStart.Add(time.Hour),
		TotalDistanceMeters: 10000,
		Points:              []domain.GeoPoint{{Lat: 43.26, Lon: -2.93}, {Lat: 43.27, Lon: -2.92}},
		Centroid:            domain.GeoPoint{Lat: 43.265, Lon: -2.925},
	}
}

// fileDecoder fails files by name prefix.
func fileDecoder() *mockDecoder {
	return &mockDecoder{decodeFn: func(name string, data []byte) (domain.NormalizedActivity, error) {
		switch {
		case strings.HasPrefix(name, "nogps"):
			return domain.NormalizedActivity{}, &fitdecode.DecodeError{File: name, Kind: fitdecode.KindNoGPSData}
		case strings.HasPrefix(name, "notime"):
			return domain.NormalizedActivity{}, &fitdecode.DecodeError{File: name, Kind: fitdecode.KindMissingTimestamps}
		case strings.HasPrefix(name, "weird"):
			return domain.NormalizedActivity{}, errors.New("unexpected")
		}
		return decodedActivity(name), nil
	}}
}

func TestUploadService_ProcessBatch_PerFileResults(t *testing.T) {
	repo := &mockActivityRepo{}
	archive := newMockArchive()
	pub := &mockPublisher{}
	svc := usecases.NewUploadService(fileDecoder(), repo, archive, pub, nil, 2)

	files := []usecases.UploadFile{
		{Name: "morning.fit", Data: []byte("a")},
		{Name: "nogps.fit", Data: []byte("b")},
		{Name: "notime.fit", Data: []byte("c")},
		{Name: "weird.fit", Data: []byte("d")},
	}
	results := svc.ProcessBatch(context.Background(), "user-1", files)

	if len(results) != len(files) {
		t.Fatalf("expected %d results, got %d", len(files), len(results))
	}
	for i, r := range results {
		if r.FileName != files[i].Name {
			t.Errorf("results[%d] is for %s, want %s", i, r.FileName, files[i].Name)
		}
	}

	ok := results[0]
	if ok.Status != domain.UploadDone || ok.ActivityID == "" || ok.Sport != domain.SportRunning {
		t.Errorf("unexpected result for good file: %+v", ok)
	}

	wantErrors := map[int]string{
		1: "No GPS points found in FIT file.",
		2: "Missing timestamps in FIT file.",
		3: "Could not parse weird.fit",
	}
	for i, msg := range wantErrors {
		r := results[i]
		if r.Status != domain.UploadError {
			t.Errorf("results[%d]: expected error status, got %s", i, r.Status)
		}
		if r.Error != msg {
			t.Errorf("results[%d]: error = %q, want %q", i, r.Error, msg)
		}
		if r.Retryable {
			t.Errorf("results[%d]: decode failures are not retryable", i)
		}
	}

	if len(repo.inserted) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(repo.inserted))
	}
	stored := repo.inserted[0]
	if stored.UserID != "user-1" || stored.ID != ok.ActivityID {
		t.Errorf("stored activity has wrong identity: %+v", stored)
	}
	if stored.Center == nil || *stored.Center != (domain.GeoPoint{Lat: 43.265, Lon: -2.925}) {
		t.Errorf("stored center = %v", stored.Center)
	}
	wantKey := "activities/user-1/" + ok.ActivityID + "/morning.fit"
	if stored.ArchiveKey != wantKey {
		t.Errorf("archive key = %q, want %q", stored.ArchiveKey, wantKey)
	}
	if _, err := archive.Get(context.Background(), wantKey); err != nil {
		t.Errorf("file was not archived: %v", err)
	}

	if len(pub.uploaded) != 1 || pub.uploaded[0].ActivityID != ok.ActivityID {
		t.Errorf("expected one uploaded event, got %+v", pub.uploaded)
	}
}

func TestUploadService_InsertFailureIsRetryable(t *testing.T) {
	repo := &mockActivityRepo{
		insertFn: func(ctx context.Context, a *domain.Activity) error {
			return errors.New("connection reset")
		},
	}
	archive := newMockArchive()
	svc := usecases.NewUploadService(fileDecoder(), repo, archive, nil, nil, 1)

	results := svc.ProcessBatch(context.Background(), "user-1", []usecases.UploadFile{{Name: "a.fit"}})

	r := results[0]
	if r.Status != domain.UploadError || !r.Retryable {
		t.Fatalf("expected retryable error, got %+v", r)
	}
	if len(archive.objects) != 0 || len(archive.deleted) != 1 {
		t.Errorf("archived file should be removed after a failed insert: objects=%d deleted=%v",
			len(archive.objects), archive.deleted)
	}
}

func TestUploadService_ArchiveFailureIsRetryable(t *testing.T) {
	repo := &mockActivityRepo{}
	archive := newMockArchive()
	archive.putErr = errors.New("s3 unavailable")
	svc := usecases.NewUploadService(fileDecoder(), repo, archive, nil, nil, 1)

	results := svc.ProcessBatch(context.Background(), "user-1", []usecases.UploadFile{{Name: "a.fit"}})

	if results[0].Status != domain.UploadError || !results[0].Retryable {
		t.Fatalf("expected retryable error, got %+v", results[0])
	}
	if len(repo.inserted) != 0 {
		t.Errorf("nothing should be stored when archiving fails")
	}
}

func TestUploadService_NoArchive(t *testing.T) {
	repo := &mockActivityRepo{}
	svc := usecases.NewUploadService(fileDecoder(), repo, nil, nil, nil, 1)

	results := svc.ProcessBatch(context.Background(), "user-1", []usecases.UploadFile{{Name: "a.fit"}})

	if results[0].Status != domain.UploadDone {
		t.Fatalf("expected done, got %+v", results[0])
	}
	if repo.inserted[0].ArchiveKey != "" {
		t.Errorf("archive key should be empty without an archive store")
	}
}

func TestUploadService_BoundedConcurrency(t *testing.T) {
	var running, peak int32
	dec := &mockDecoder{decodeFn: func(name string, data []byte) (domain.NormalizedActivity, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return decodedActivity(name), nil
	}}
	repo := &mockActivityRepo{}
	svc := usecases.NewUploadService(dec, repo, nil, nil, nil, 3)

	var files []usecases.UploadFile
	for i := 0; i < 20; i++ {
		files = append(files, usecases.UploadFile{Name: fmt.Sprintf("f%02d.fit", i)})
	}
	results := svc.ProcessBatch(context.Background(), "user-1", files)

	if p := atomic.LoadInt32(&peak); p > 3 {
		t.Errorf("expected at most 3 concurrent decodes, saw %d", p)
	}
	if len(repo.inserted) != 20 {
		t.Errorf("expected 20 inserts, got %d", len(repo.inserted))
	}
	ids := map[string]bool{}
	for _, r := range results {
		ids[r.ActivityID] = true
	}
	if len(ids) != 20 {
		t.Errorf("expected 20 distinct activity ids, got %d", len(ids))
	}
}

func TestUploadService_InvalidatesVisitCache(t *testing.T) {
	cache := newMockCache()
	_ = cache.Set(context.Background(), "visits:user-1:43.2630:-2.9350:400", []byte("{}"), 60)
	_ = cache.Set(context.Background(), "visits:user-2:43.2630:-2.9350:400", []byte("{}"), 60)

	svc := usecases.NewUploadService(fileDecoder(), &mockActivityRepo{}, nil, nil, cache, 1)
	svc.ProcessBatch(context.Background(), "user-1", []usecases.UploadFile{{Name: "a.fit"}})

	if _, err := cache.Get(context.Background(), "visits:user-1:43.2630:-2.9350:400"); err == nil {
		t.Error("user-1 visits should be invalidated")
	}
	if _, err := cache.Get(context.Background(), "visits:user-2:43.2630:-2.9350:400"); err != nil {
		t.Error("user-2 visits should be kept")
	}
}

func TestUploadService_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	block := make(chan struct{})
	dec := &mockDecoder{decodeFn: func(name string, data []byte) (domain.NormalizedActivity, error) {
		<-block
		return decodedActivity(name), nil
	}}
	svc := usecases.NewUploadService(dec, &mockActivityRepo{}, nil, nil, nil, 1)

	// Worker slot is free, so at most one file may slip through; release it.
	close(block)
	results := svc.ProcessBatch(ctx, "user-1", []usecases.UploadFile{{Name: "a.fit"}, {Name: "b.fit"}, {Name: "c.fit"}})

	for _, r := range results {
		if r.Status == domain.UploadError && !r.Retryable {
			t.Errorf("cancellation must be retryable: %+v", r)
		}
	}
}
