package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/slotswap/internal/slot"
)

// ErrPreconditionFailed is wrapped by every Commit failure caused by a row
// having changed since it was read.
var ErrPreconditionFailed = errors.New("precondition failed")

// PreconditionError identifies the write in a batch whose condition did not hold.
type PreconditionError struct {
	Table  string
	ID     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s %s: %s", e.Table, e.ID, e.Reason)
}

// Unwrap allows errors.Is(err, ErrPreconditionFailed).
func (e *PreconditionError) Unwrap() error {
	return ErrPreconditionFailed
}

// WriteKind selects the statement a batch entry turns into.
type WriteKind int

const (
	WriteInsert WriteKind = iota + 1
	WriteUpdate
	WriteDelete
)

func (k WriteKind) String() string {
	switch k {
	case WriteInsert:
		return "insert"
	case WriteUpdate:
		return "update"
	case WriteDelete:
		return "delete"
	default:
		return fmt.Sprintf("WriteKind(%d)", int(k))
	}
}

// EventWrite is one conditional change to the events table.
//
// Event carries the full new row for inserts and updates, including the new
// Version. For updates and deletes the row must still have ExpectVersion and
// ExpectStatus.
type EventWrite struct {
	Kind          WriteKind
	Event         slot.Event
	ExpectVersion int64
	ExpectStatus  slot.Status
}

// RequestWrite is one conditional change to the swap_requests table.
// Only status, version and updated_at change on update.
type RequestWrite struct {
	Kind          WriteKind
	Request       slot.SwapRequest
	ExpectVersion int64
	ExpectStatus  slot.RequestStatus
}

// LockWrite inserts or removes a swap_locks row. Removal requires the lock
// to be held by RequestID.
type LockWrite struct {
	Kind      WriteKind
	EventID   string
	RequestID string
}

// Batch is the unit of atomic change.
type Batch struct {
	Events   []EventWrite
	Requests []RequestWrite
	Locks    []LockWrite
	Journal  *JournalEntry
}

// Commit applies every write in b inside one transaction.
//
// Statements run in dependency order: request writes, lock removals, event
// writes, lock inserts, then the journal entry. If any conditional statement
// affects no rows or violates a constraint, the transaction is rolled back
// and the returned error wraps ErrPreconditionFailed. Any other failure is
// returned wrapped and also leaves the database unchanged.
func (s *Store) Commit(ctx context.Context, b Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, w := range b.Requests {
		if err := applyRequestWrite(ctx, tx, w); err != nil {
			return err
		}
	}
	for _, w := range b.Locks {
		if w.Kind != WriteDelete {
			continue
		}
		if err := applyLockWrite(ctx, tx, w); err != nil {
			return err
		}
	}
	for _, w := range b.Events {
		if err := applyEventWrite(ctx, tx, w); err != nil {
			return err
		}
	}
	for _, w := range b.Locks {
		if w.Kind == WriteDelete {
			continue
		}
		if err := applyLockWrite(ctx, tx, w); err != nil {
			return err
		}
	}
	if b.Journal != nil {
		if err := appendJournal(ctx, tx, *b.Journal); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func applyEventWrite(ctx context.Context, tx *sql.Tx, w EventWrite) error {
	e := w.Event
	var (
		res sql.Result
		err error
	)
	switch w.Kind {
	case WriteInsert:
		res, err = tx.ExecContext(ctx, `
			INSERT INTO events (`+eventColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID, e.OwnerID, e.Title, toMillis(e.StartTime), toMillis(e.EndTime),
			string(e.Status), e.Version, toMillis(e.CreatedAt), toMillis(e.UpdatedAt))
	case WriteUpdate:
		res, err = tx.ExecContext(ctx, `
			UPDATE events
			SET owner_id = ?, title = ?, start_time = ?, end_time = ?, status = ?, version = ?, updated_at = ?
			WHERE id = ? AND version = ? AND status = ?
		`, e.OwnerID, e.Title, toMillis(e.StartTime), toMillis(e.EndTime), string(e.Status), e.Version,
			toMillis(e.UpdatedAt), e.ID, w.ExpectVersion, string(w.ExpectStatus))
	case WriteDelete:
		res, err = tx.ExecContext(ctx, `
			DELETE FROM events WHERE id = ? AND version = ? AND status = ?
		`, e.ID, w.ExpectVersion, string(w.ExpectStatus))
	default:
		return fmt.Errorf("event write %s: unknown kind %s", e.ID, w.Kind)
	}
	return checkResult("events", e.ID, w.Kind, res, err)
}

func applyRequestWrite(ctx context.Context, tx *sql.Tx, w RequestWrite) error {
	r := w.Request
	var (
		res sql.Result
		err error
	)
	switch w.Kind {
	case WriteInsert:
		res, err = tx.ExecContext(ctx, `
			INSERT INTO swap_requests (`+requestColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ID, r.RequesterID, r.RequesterSlotID, r.TargetUserID, r.TargetSlotID,
			string(r.Status), r.Version, toMillis(r.CreatedAt), toMillis(r.UpdatedAt))
	case WriteUpdate:
		res, err = tx.ExecContext(ctx, `
			UPDATE swap_requests
			SET status = ?, version = ?, updated_at = ?
			WHERE id = ? AND version = ? AND status = ?
		`, string(r.Status), r.Version, toMillis(r.UpdatedAt), r.ID, w.ExpectVersion, string(w.ExpectStatus))
	default:
		return fmt.Errorf("swap request write %s: unsupported kind %s", r.ID, w.Kind)
	}
	return checkResult("swap_requests", r.ID, w.Kind, res, err)
}

func applyLockWrite(ctx context.Context, tx *sql.Tx, w LockWrite) error {
	var (
		res sql.Result
		err error
	)
	switch w.Kind {
	case WriteInsert:
		res, err = tx.ExecContext(ctx, `
			INSERT INTO swap_locks (event_id, request_id) VALUES (?, ?)
		`, w.EventID, w.RequestID)
	case WriteDelete:
		res, err = tx.ExecContext(ctx, `
			DELETE FROM swap_locks WHERE event_id = ? AND request_id = ?
		`, w.EventID, w.RequestID)
	default:
		return fmt.Errorf("lock write %s: unsupported kind %s", w.EventID, w.Kind)
	}
	return checkResult("swap_locks", w.EventID, w.Kind, res, err)
}

// checkResult turns a constraint violation or an unmatched condition into
// a PreconditionError.
func checkResult(table, id string, kind WriteKind, res sql.Result, err error) error {
	if err != nil {
		if isConstraintViolation(err) {
			return &PreconditionError{Table: table, ID: id, Reason: err.Error()}
		}
		return fmt.Errorf("%s %s %s: %w", kind, table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s %s: rows affected: %w", kind, table, id, err)
	}
	if n == 0 {
		return &PreconditionError{Table: table, ID: id, Reason: kind.String() + " matched no row"}
	}
	return nil
}
