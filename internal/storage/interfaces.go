package storage

import (
	"context"

	"dscr-analyzer/internal/domain"
)

// SavedSearchStore provides access to saved_searches storage.
type SavedSearchStore interface {
	// Insert adds a new saved search. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, s *domain.SavedSearch) error

	// GetByID retrieves a saved search by ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.SavedSearch, error)

	// GetByUsername retrieves all saved searches for a user, newest first.
	GetByUsername(ctx context.Context, username string) ([]*domain.SavedSearch, error)
}

// SearchEventStore provides access to search_events analytics storage.
type SearchEventStore interface {
	// Insert adds one search event.
	Insert(ctx context.Context, e *domain.SearchEvent) error

	// InsertBulk adds multiple events in one batch.
	InsertBulk(ctx context.Context, events []*domain.SearchEvent) error

	// GetByTimeRange retrieves events created within [start, end] (inclusive,
	// Unix ms), ordered by created_at ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.SearchEvent, error)
}
