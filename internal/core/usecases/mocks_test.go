package usecases_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
)

// --- Mock ActivityRepository ---

type mockActivityRepo struct {
	mu       sync.Mutex
	inserted []domain.Activity
	updated  []domain.Activity
	deleted  []string

	insertFn       func(ctx context.Context, a *domain.Activity) error
	queryFn        func(ctx context.Context, f domain.ActivityFilter) ([]domain.Activity, error)
	getByIDFn      func(ctx context.Context, id string) (*domain.Activity, error)
	listArchivedFn func(ctx context.Context, limit int) ([]domain.Activity, error)
	visitsNearFn   func(ctx context.Context, userID string, lat, lon, radius float64) ([]domain.VisitRecord, error)
}

func (m *mockActivityRepo) Insert(ctx context.Context, a *domain.Activity) error {
	if m.insertFn != nil {
		if err := m.insertFn(ctx, a); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.inserted = append(m.inserted, *a)
	m.mu.Unlock()
	return nil
}

func (m *mockActivityRepo) Update(ctx context.Context, a *domain.Activity) error {
	m.mu.Lock()
	m.updated = append(m.updated, *a)
	m.mu.Unlock()
	return nil
}

func (m *mockActivityRepo) Query(ctx context.Context, f domain.ActivityFilter) ([]domain.Activity, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, f)
	}
	return nil, nil
}

func (m *mockActivityRepo) GetByID(ctx context.Context, id string) (*domain.Activity, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockActivityRepo) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	m.deleted = append(m.deleted, userID+"/"+id)
	m.mu.Unlock()
	return nil
}

func (m *mockActivityRepo) ListArchived(ctx context.Context, limit int) ([]domain.Activity, error) {
	if m.listArchivedFn != nil {
		return m.listArchivedFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockActivityRepo) FindVisitsNear(ctx context.Context, userID string, lat, lon, radius float64) ([]domain.VisitRecord, error) {
	if m.visitsNearFn != nil {
		return m.visitsNearFn(ctx, userID, lat, lon, radius)
	}
	return nil, nil
}

// --- Mock TrackDecoder ---

type mockDecoder struct {
	decodeFn func(name string, data []byte) (domain.NormalizedActivity, error)
}

func (m *mockDecoder) Decode(name string, data []byte) (domain.NormalizedActivity, error) {
	return m.decodeFn(name, data)
}

// --- Mock ArchiveStore ---

type mockArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	putErr  error
}

func newMockArchive() *mockArchive {
	return &mockArchive{objects: map[string][]byte{}}
}

func (m *mockArchive) Put(ctx context.Context, key string, data []byte) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *mockArchive) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func (m *mockArchive) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu       sync.Mutex
	uploaded []domain.ActivityUploadedEvent
	deleted  []string
}

func (m *mockPublisher) PublishActivityUploaded(ctx context.Context, e *domain.ActivityUploadedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploaded = append(m.uploaded, *e)
	return nil
}

func (m *mockPublisher) PublishActivityDeleted(ctx context.Context, userID, activityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, activityID)
	return nil
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mockCache) DeletePrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}
