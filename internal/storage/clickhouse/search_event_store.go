package clickhouse

import (
	"context"
	"fmt"
	"time"

	"dscr-analyzer/internal/domain"
	"dscr-analyzer/internal/observability"
	"dscr-analyzer/internal/storage"
)

// SearchEventStore implements storage.SearchEventStore using ClickHouse.
// Events are append-only analytics rows; MergeTree does not enforce
// uniqueness and none is needed here.
type SearchEventStore struct {
	conn *Conn
}

// NewSearchEventStore creates a new SearchEventStore.
func NewSearchEventStore(conn *Conn) *SearchEventStore {
	return &SearchEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SearchEventStore = (*SearchEventStore)(nil)

// Insert adds one search event.
func (s *SearchEventStore) Insert(ctx context.Context, e *domain.SearchEvent) error {
	if e == nil || e.SearchID == "" {
		return storage.ErrInvalidInput
	}
	return s.InsertBulk(ctx, []*domain.SearchEvent{e})
}

// InsertBulk adds multiple events in one batch.
func (s *SearchEventStore) InsertBulk(ctx context.Context, events []*domain.SearchEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e == nil || e.SearchID == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO search_events (
			search_id, username, city, state,
			listings_fetched, results_returned, duration_ms, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.SearchID, e.Username, e.City, e.State,
			uint32(e.ListingsFetched), uint32(e.ResultsReturned),
			uint64(e.DurationMs), uint64(e.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	sendStart := time.Now()
	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert_search_events", time.Since(sendStart).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves events created within [start, end] (inclusive),
// ordered by created_at ASC.
func (s *SearchEventStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.SearchEvent, error) {
	query := `
		SELECT search_id, username, city, state,
		       listings_fetched, results_returned, duration_ms, created_at
		FROM search_events
		WHERE created_at >= ? AND created_at <= ?
		ORDER BY created_at ASC
	`

	queryStart := time.Now()
	rows, err := s.conn.Query(ctx, query, uint64(start), uint64(end))
	observability.RecordDBQuery("clickhouse", "get_search_events", time.Since(queryStart).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query search events: %w", err)
	}
	defer rows.Close()

	var result []*domain.SearchEvent
	for rows.Next() {
		var (
			event              domain.SearchEvent
			listings, returned uint32
			duration, created  uint64
		)
		if err := rows.Scan(
			&event.SearchID, &event.Username, &event.City, &event.State,
			&listings, &returned, &duration, &created,
		); err != nil {
			return nil, fmt.Errorf("scan search event: %w", err)
		}
		event.ListingsFetched = int(listings)
		event.ResultsReturned = int(returned)
		event.DurationMs = int64(duration)
		event.CreatedAt = int64(created)
		result = append(result, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search events: %w", err)
	}
	return result, nil
}
