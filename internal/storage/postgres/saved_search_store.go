package postgres

import (
	"context"
	"fmt"
	"time"

	"dscr-analyzer/internal/domain"
	"dscr-analyzer/internal/observability"
	"dscr-analyzer/internal/storage"
)

// SavedSearchStore implements storage.SavedSearchStore using PostgreSQL.
type SavedSearchStore struct {
	pool *Pool
}

// NewSavedSearchStore creates a new SavedSearchStore.
func NewSavedSearchStore(pool *Pool) *SavedSearchStore {
	return &SavedSearchStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SavedSearchStore = (*SavedSearchStore)(nil)

// Insert adds a new saved search. Returns ErrDuplicateKey if the ID exists.
func (s *SavedSearchStore) Insert(ctx context.Context, search *domain.SavedSearch) error {
	if search == nil || search.ID == "" || search.Username == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO saved_searches (
			id, username, city, state, down_payment_pct, interest_rate,
			min_price, max_price, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		search.ID,
		search.Username,
		search.City,
		search.State,
		search.DownPaymentPct,
		search.InterestRate,
		search.MinPrice,
		search.MaxPrice,
		search.CreatedAt,
	)
	observability.RecordDBQuery("postgres", "insert_saved_search", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert saved search: %w", err)
	}
	return nil
}

// GetByID retrieves a saved search by ID. Returns ErrNotFound if not exists.
func (s *SavedSearchStore) GetByID(ctx context.Context, id string) (*domain.SavedSearch, error) {
	query := `
		SELECT id, username, city, state, down_payment_pct, interest_rate,
		       min_price, max_price, created_at
		FROM saved_searches
		WHERE id = $1
	`

	start := time.Now()
	var search domain.SavedSearch
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&search.ID,
		&search.Username,
		&search.City,
		&search.State,
		&search.DownPaymentPct,
		&search.InterestRate,
		&search.MinPrice,
		&search.MaxPrice,
		&search.CreatedAt,
	)
	observability.RecordDBQuery("postgres", "get_saved_search", time.Since(start).Seconds(), err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get saved search by id: %w", err)
	}
	return &search, nil
}

// GetByUsername retrieves all saved searches for a user, newest first.
func (s *SavedSearchStore) GetByUsername(ctx context.Context, username string) ([]*domain.SavedSearch, error) {
	query := `
		SELECT id, username, city, state, down_payment_pct, interest_rate,
		       min_price, max_price, created_at
		FROM saved_searches
		WHERE username = $1
		ORDER BY created_at DESC
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, username)
	observability.RecordDBQuery("postgres", "list_saved_searches", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("get saved searches by username: %w", err)
	}
	defer rows.Close()

	var result []*domain.SavedSearch
	for rows.Next() {
		var search domain.SavedSearch
		if err := rows.Scan(
			&search.ID,
			&search.Username,
			&search.City,
			&search.State,
			&search.DownPaymentPct,
			&search.InterestRate,
			&search.MinPrice,
			&search.MaxPrice,
			&search.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan saved search: %w", err)
		}
		result = append(result, &search)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved searches: %w", err)
	}
	return result, nil
}
