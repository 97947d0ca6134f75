package service

import (
	"context"
	"errors"
	"testing"

	"github.com/garyjia/erp-requisitions/internal/domain/entity"
)

type mockBadgeCache struct {
	stored      map[string]map[entity.RequisitionStatus]int
	generations map[string]int64
	getErr      error
	sets        int
}

func (m *mockBadgeCache) Get(ctx context.Context, organizationID string) (map[entity.RequisitionStatus]int, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	counts, ok := m.stored[organizationID]
	return counts, ok, nil
}

func (m *mockBadgeCache) Generation(ctx context.Context, organizationID string) (int64, error) {
	return m.generations[organizationID], nil
}

func (m *mockBadgeCache) Set(ctx context.Context, organizationID string, generation int64, counts map[entity.RequisitionStatus]int) error {
	if generation != m.generations[organizationID] {
		return nil
	}
	if m.stored == nil {
		m.stored = make(map[string]map[entity.RequisitionStatus]int)
	}
	m.stored[organizationID] = counts
	m.sets++
	return nil
}

func (m *mockBadgeCache) Invalidate(ctx context.Context, organizationID string) error {
	delete(m.stored, organizationID)
	if m.generations == nil {
		m.generations = make(map[string]int64)
	}
	m.generations[organizationID]++
	return nil
}

func countingRepo(calls *int) *mockRequisitionRepo {
	return &mockRequisitionRepo{
		countByStatusFunc: func(ctx context.Context, organizationID string) (map[entity.RequisitionStatus]int, error) {
			*calls++
			return map[entity.RequisitionStatus]int{
				entity.RequisitionPendingSupervisor: 2,
				entity.RequisitionPendingGM:         1,
				entity.RequisitionCompleted:         7,
			}, nil
		},
	}
}

func TestBadgeService_PendingCounts(t *testing.T) {
	calls := 0
	cache := &mockBadgeCache{}
	svc := NewBadgeService(countingRepo(&calls), cache, &mockLogger{})

	counts, err := svc.PendingCounts(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("PendingCounts() error = %v", err)
	}

	if len(counts) != len(entity.PendingRequisitionStatuses) {
		t.Errorf("len = %d, want one entry per pending status", len(counts))
	}
	if counts[entity.RequisitionPendingSupervisor] != 2 || counts[entity.RequisitionPendingFA] != 0 || counts[entity.RequisitionPendingGM] != 1 {
		t.Errorf("counts = %v", counts)
	}
	if _, ok := counts[entity.RequisitionCompleted]; ok {
		t.Error("terminal statuses must not be counted")
	}

	// Second call is served from the cache
	if _, err := svc.PendingCounts(context.Background(), "org-1"); err != nil {
		t.Fatalf("PendingCounts() error = %v", err)
	}
	if calls != 1 || cache.sets != 1 {
		t.Errorf("repo calls = %d, cache sets = %d, want 1 and 1", calls, cache.sets)
	}

	// Invalidation forces a recount
	_ = cache.Invalidate(context.Background(), "org-1")
	if _, err := svc.PendingCounts(context.Background(), "org-1"); err != nil {
		t.Fatalf("PendingCounts() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("repo calls = %d, want 2", calls)
	}
}

func TestBadgeService_InvalidationDuringCountIsNotCached(t *testing.T) {
	cache := &mockBadgeCache{}
	calls := 0
	repo := &mockRequisitionRepo{
		countByStatusFunc: func(ctx context.Context, organizationID string) (map[entity.RequisitionStatus]int, error) {
			calls++
			if calls == 1 {
				// a transition commits while the first count is in flight
				_ = cache.Invalidate(ctx, organizationID)
				return map[entity.RequisitionStatus]int{entity.RequisitionPendingGM: 1}, nil
			}
			return map[entity.RequisitionStatus]int{entity.RequisitionPendingGM: 2}, nil
		},
	}
	svc := NewBadgeService(repo, cache, &mockLogger{})

	if _, err := svc.PendingCounts(context.Background(), "org-1"); err != nil {
		t.Fatalf("PendingCounts() error = %v", err)
	}
	if _, cached := cache.stored["org-1"]; cached {
		t.Fatal("counts taken before the invalidation must not be cached")
	}

	counts, err := svc.PendingCounts(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("PendingCounts() error = %v", err)
	}
	if counts[entity.RequisitionPendingGM] != 2 || calls != 2 {
		t.Errorf("counts = %v, calls = %d, want fresh recount", counts, calls)
	}
	if cache.stored["org-1"][entity.RequisitionPendingGM] != 2 {
		t.Errorf("cached = %v, want the fresh counts", cache.stored["org-1"])
	}
}

func TestBadgeService_CacheFailureFallsBack(t *testing.T) {
	calls := 0
	svc := NewBadgeService(countingRepo(&calls), &mockBadgeCache{getErr: errors.New("connection refused")}, &mockLogger{})

	counts, err := svc.PendingCounts(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("PendingCounts() error = %v", err)
	}
	if counts[entity.RequisitionPendingSupervisor] != 2 || calls != 1 {
		t.Errorf("counts = %v, calls = %d", counts, calls)
	}
}

func TestBadgeService_NoCache(t *testing.T) {
	calls := 0
	svc := NewBadgeService(countingRepo(&calls), nil, &mockLogger{})

	for i := 0; i < 2; i++ {
		if _, err := svc.PendingCounts(context.Background(), "org-1"); err != nil {
			t.Fatalf("PendingCounts() error = %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("repo calls = %d, want 2", calls)
	}
}
