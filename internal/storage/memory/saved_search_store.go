package memory

import (
	"context"
	"sort"
	"sync"

	"dscr-analyzer/internal/domain"
	"dscr-analyzer/internal/storage"
)

// SavedSearchStore is an in-memory implementation of storage.SavedSearchStore.
type SavedSearchStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SavedSearch // keyed by search ID
}

// NewSavedSearchStore creates a new in-memory saved search store.
func NewSavedSearchStore() *SavedSearchStore {
	return &SavedSearchStore{
		data: make(map[string]*domain.SavedSearch),
	}
}

// Insert adds a new saved search. Returns ErrDuplicateKey if the ID exists.
func (s *SavedSearchStore) Insert(_ context.Context, search *domain.SavedSearch) error {
	if search == nil || search.ID == "" || search.Username == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[search.ID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	searchCopy := *search
	s.data[search.ID] = &searchCopy
	return nil
}

// GetByID retrieves a saved search by ID. Returns ErrNotFound if not exists.
func (s *SavedSearchStore) GetByID(_ context.Context, id string) (*domain.SavedSearch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	searchCopy := *search
	return &searchCopy, nil
}

// GetByUsername retrieves all saved searches for a user, newest first.
func (s *SavedSearchStore) GetByUsername(_ context.Context, username string) ([]*domain.SavedSearch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SavedSearch
	for _, search := range s.data {
		if search.Username == username {
			searchCopy := *search
			result = append(result, &searchCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt > result[j].CreatedAt
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.SavedSearchStore = (*SavedSearchStore)(nil)
