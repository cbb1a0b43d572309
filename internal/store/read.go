package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/slotswap/internal/slot"
)

const eventColumns = `id, owner_id, title, start_time, end_time, status, version, created_at, updated_at`

const requestColumns = `id, requester_id, requester_slot_id, target_user_id, target_slot_id, status, version, created_at, updated_at`

// EventFilter narrows ListEvents. Zero fields are ignored.
type EventFilter struct {
	OwnerID        string
	ExcludeOwnerID string
	Status         slot.Status
}

// RequestFilter narrows ListRequests. Zero fields are ignored.
type RequestFilter struct {
	RequesterID  string
	TargetUserID string
	Status       slot.RequestStatus
}

// GetEvent returns the event with the given id.
// Returns an error wrapping ErrNotFound if it does not exist.
func (s *Store) GetEvent(ctx context.Context, id string) (slot.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE id = ?
	`, id)

	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return slot.Event{}, fmt.Errorf("get event %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return slot.Event{}, fmt.Errorf("get event %s: %w", id, err)
	}
	return e, nil
}

// GetSwapRequest returns the swap request with the given id.
// Returns an error wrapping ErrNotFound if it does not exist.
func (s *Store) GetSwapRequest(ctx context.Context, id string) (slot.SwapRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM swap_requests
		WHERE id = ?
	`, id)

	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return slot.SwapRequest{}, fmt.Errorf("get swap request %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return slot.SwapRequest{}, fmt.Errorf("get swap request %s: %w", id, err)
	}
	return r, nil
}

// LockHolder returns the id of the pending request holding eventID.
// ok is false when the event is not locked.
func (s *Store) LockHolder(ctx context.Context, eventID string) (requestID string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT request_id FROM swap_locks WHERE event_id = ?
	`, eventID).Scan(&requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lock holder %s: %w", eventID, err)
	}
	return requestID, true, nil
}

// ListEvents returns events matching f ordered by start_time ASC, id ASC.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListEvents(ctx context.Context, f EventFilter) ([]slot.Event, error) {
	var (
		where []string
		args  []any
	)
	if f.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.ExcludeOwnerID != "" {
		where = append(where, "owner_id <> ?")
		args = append(args, f.ExcludeOwnerID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY start_time ASC, id COLLATE BINARY ASC`

	return queryEvents(ctx, s.db, query, args...)
}

// ListRequests returns requests matching f together with the slots they name,
// ordered by created_at DESC with later inserts first on ties.
// A slot that has since been deleted is left nil.
func (s *Store) ListRequests(ctx context.Context, f RequestFilter) ([]slot.RequestDetail, error) {
	var (
		where []string
		args  []any
	)
	if f.RequesterID != "" {
		where = append(where, "r.requester_id = ?")
		args = append(args, f.RequesterID)
	}
	if f.TargetUserID != "" {
		where = append(where, "r.target_user_id = ?")
		args = append(args, f.TargetUserID)
	}
	if f.Status != "" {
		where = append(where, "r.status = ?")
		args = append(args, string(f.Status))
	}

	query := `
		SELECT r.id, r.requester_id, r.requester_slot_id, r.target_user_id, r.target_slot_id,
		       r.status, r.version, r.created_at, r.updated_at,
		       a.id, a.owner_id, a.title, a.start_time, a.end_time, a.status, a.version, a.created_at, a.updated_at,
		       b.id, b.owner_id, b.title, b.start_time, b.end_time, b.status, b.version, b.created_at, b.updated_at
		FROM swap_requests r
		LEFT JOIN events a ON a.id = r.requester_slot_id
		LEFT JOIN events b ON b.id = r.target_slot_id`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY r.created_at DESC, r.rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query swap requests: %w", err)
	}
	defer rows.Close()

	details := []slot.RequestDetail{}
	for rows.Next() {
		var (
			d    slot.RequestDetail
			a, b nullableEvent
		)
		r := &d.SwapRequest
		var status string
		var created, updated int64
		err := rows.Scan(
			&r.ID, &r.RequesterID, &r.RequesterSlotID, &r.TargetUserID, &r.TargetSlotID,
			&status, &r.Version, &created, &updated,
			&a.id, &a.ownerID, &a.title, &a.start, &a.end, &a.status, &a.version, &a.created, &a.updated,
			&b.id, &b.ownerID, &b.title, &b.start, &b.end, &b.status, &b.version, &b.created, &b.updated,
		)
		if err != nil {
			return nil, fmt.Errorf("scan swap request: %w", err)
		}
		r.Status = slot.RequestStatus(status)
		r.CreatedAt = fromMillis(created)
		r.UpdatedAt = fromMillis(updated)
		d.RequesterSlot = a.event()
		d.TargetSlot = b.event()
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap requests: %w", err)
	}

	return details, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryEvents(ctx context.Context, q queryer, query string, args ...any) ([]slot.Event, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []slot.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func queryRequests(ctx context.Context, q queryer, query string, args ...any) ([]slot.SwapRequest, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query swap requests: %w", err)
	}
	defer rows.Close()

	requests := []slot.SwapRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap requests: %w", err)
	}
	return requests, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (slot.Event, error) {
	var (
		e                            slot.Event
		status                       string
		start, end, created, updated int64
	)
	err := sc.Scan(&e.ID, &e.OwnerID, &e.Title, &start, &end, &status, &e.Version, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return slot.Event{}, err
		}
		return slot.Event{}, fmt.Errorf("scan event: %w", err)
	}
	e.Status = slot.Status(status)
	e.StartTime = fromMillis(start)
	e.EndTime = fromMillis(end)
	e.CreatedAt = fromMillis(created)
	e.UpdatedAt = fromMillis(updated)
	return e, nil
}

func scanRequest(sc scanner) (slot.SwapRequest, error) {
	var (
		r                slot.SwapRequest
		status           string
		created, updated int64
	)
	err := sc.Scan(&r.ID, &r.RequesterID, &r.RequesterSlotID, &r.TargetUserID, &r.TargetSlotID,
		&status, &r.Version, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return slot.SwapRequest{}, err
		}
		return slot.SwapRequest{}, fmt.Errorf("scan swap request: %w", err)
	}
	r.Status = slot.RequestStatus(status)
	r.CreatedAt = fromMillis(created)
	r.UpdatedAt = fromMillis(updated)
	return r, nil
}

// nullableEvent holds the LEFT JOIN side of a request listing.
type nullableEvent struct {
	id, ownerID, title, status sql.NullString
	start, end, version        sql.NullInt64
	created, updated           sql.NullInt64
}

func (n nullableEvent) event() *slot.Event {
	if !n.id.Valid {
		return nil
	}
	return &slot.Event{
		ID:        n.id.String,
		OwnerID:   n.ownerID.String,
		Title:     n.title.String,
		StartTime: fromMillis(n.start.Int64),
		EndTime:   fromMillis(n.end.Int64),
		Status:    slot.Status(n.status.String),
		Version:   n.version.Int64,
		CreatedAt: fromMillis(n.created.Int64),
		UpdatedAt: fromMillis(n.updated.Int64),
	}
}
