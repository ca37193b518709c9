package memory

import (
	"context"
	"sort"
	"sync"

	"dscr-analyzer/internal/domain"
	"dscr-analyzer/internal/storage"
)

// SearchEventStore is an in-memory implementation of storage.SearchEventStore.
type SearchEventStore struct {
	mu   sync.RWMutex
	data []*domain.SearchEvent
}

// NewSearchEventStore creates a new in-memory search event store.
func NewSearchEventStore() *SearchEventStore {
	return &SearchEventStore{}
}

// Insert adds one search event.
func (s *SearchEventStore) Insert(_ context.Context, e *domain.SearchEvent) error {
	if e == nil || e.SearchID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eventCopy := *e
	s.data = append(s.data, &eventCopy)
	return nil
}

// InsertBulk adds multiple events. Validates the whole batch before
// appending so a bad record does not leave a partial write.
func (s *SearchEventStore) InsertBulk(_ context.Context, events []*domain.SearchEvent) error {
	for _, e := range events {
		if e == nil || e.SearchID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		eventCopy := *e
		s.data = append(s.data, &eventCopy)
	}
	return nil
}

// GetByTimeRange retrieves events created within [start, end] (inclusive),
// ordered by created_at ASC.
func (s *SearchEventStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.SearchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SearchEvent
	for _, e := range s.data {
		if e.CreatedAt >= start && e.CreatedAt <= end {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt < result[j].CreatedAt
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.SearchEventStore = (*SearchEventStore)(nil)
