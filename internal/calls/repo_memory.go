package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a simple in-memory Store for tests and early development.
// It enforces the same terminal-status and ownership rules as PGStore.
type MemoryStore struct {
	mu sync.Mutex

	records map[string]CallRecord // keyed by provider call sid

	// Clock is injectable for deterministic tests.
	Clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]CallRecord),
		Clock:   time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, rec CallRecord) (CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ProviderCallSid]; exists {
		return CallRecord{}, ErrConflict
	}
	s.records[rec.ProviderCallSid] = rec
	return rec, nil
}

func (s *MemoryStore) UpdateStatusByProviderCallSid(ctx context.Context, providerCallSid string, status Status) (CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[providerCallSid]
	if !ok {
		return CallRecord{}, ErrNotFound
	}
	if rec.Status.IsTerminal() {
		return CallRecord{}, ErrFinalStatus
	}
	rec.Status = status
	rec.UpdatedAt = s.Clock().UTC()
	s.records[providerCallSid] = rec
	return rec, nil
}

func (s *MemoryStore) GetByProviderCallSid(ctx context.Context, providerCallSid string) (CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[providerCallSid]
	if !ok {
		return CallRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) ListByOwner(ctx context.Context, ownerID string) ([]CallRecord, error) {
	if ownerID == "" {
		return nil, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]CallRecord, 0)
	for _, rec := range s.records {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
