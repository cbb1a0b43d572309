package store

import (
	"context"
	"fmt"

	"github.com/roach88/slotswap/internal/slot"
)

// Snapshot is a consistent view of every table except the journal.
type Snapshot struct {
	Events   []slot.Event
	Requests []slot.SwapRequest
	Locks    map[string]string // event id -> request id
}

// Snapshot reads events, swap requests and locks in one read transaction.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	events, err := queryEvents(ctx, tx, `
		SELECT `+eventColumns+` FROM events
		ORDER BY start_time ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}

	requests, err := queryRequests(ctx, tx, `
		SELECT `+requestColumns+` FROM swap_requests
		ORDER BY created_at ASC, rowid ASC
	`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT event_id, request_id FROM swap_locks`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: query locks: %w", err)
	}
	defer rows.Close()

	locks := map[string]string{}
	for rows.Next() {
		var eventID, requestID string
		if err := rows.Scan(&eventID, &requestID); err != nil {
			return Snapshot{}, fmt.Errorf("snapshot: scan lock: %w", err)
		}
		locks[eventID] = requestID
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: iterate locks: %w", err)
	}

	return Snapshot{Events: events, Requests: requests, Locks: locks}, nil
}
