package cache

import (
	"context"
	"sync"
	"time"

	"consigna/backend/internal/domain"
)

// DraftStore keeps in-progress carts between requests. Drafts expire after
// the ttl given on Save.
type DraftStore interface {
	Get(ctx context.Context, id string) (*domain.DraftSale, bool, error)
	Save(ctx context.Context, draft domain.DraftSale, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	draft     domain.DraftSale
	expiresAt time.Time
}

type MemoryDraftStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryDraftStore) Get(_ context.Context, id string) (*domain.DraftSale, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.entries, id)
		return nil, false, nil
	}
	draft := entry.draft
	draft.Lines = append([]domain.SaleLine(nil), entry.draft.Lines...)
	return &draft, true, nil
}

func (s *MemoryDraftStore) Save(_ context.Context, draft domain.DraftSale, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{draft: draft}
	entry.draft.Lines = append([]domain.SaleLine(nil), draft.Lines...)
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[draft.ID] = entry
	return nil
}

func (s *MemoryDraftStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}
