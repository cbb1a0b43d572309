package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Journal operation names.
const (
	OpEventCreated  = "event.created"
	OpEventUpdated  = "event.updated"
	OpEventDeleted  = "event.deleted"
	OpSwapRequested = "swap.requested"
	OpSwapAccepted  = "swap.accepted"
	OpSwapRejected  = "swap.rejected"
)

// JournalEntry records one committed operation.
type JournalEntry struct {
	Seq        int64             `json:"seq"`
	Op         string            `json:"op"`
	ActorID    string            `json:"actorId"`
	SubjectID  string            `json:"subjectId"`
	Detail     map[string]string `json:"detail"`
	RecordedAt time.Time         `json:"recordedAt"`
}

func appendJournal(ctx context.Context, tx *sql.Tx, j JournalEntry) error {
	detail, err := marshalDetail(j.Detail)
	if err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO journal (op, actor_id, subject_id, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`, j.Op, j.ActorID, j.SubjectID, detail, toMillis(j.RecordedAt))
	if err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}

// ReadJournal returns entries with seq > afterSeq in commit order.
// limit <= 0 returns all remaining entries.
func (s *Store) ReadJournal(ctx context.Context, afterSeq int64, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, op, actor_id, subject_id, detail, recorded_at
		FROM journal
		WHERE seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []JournalEntry{}
	for rows.Next() {
		var (
			j        JournalEntry
			detail   string
			recorded int64
		)
		if err := rows.Scan(&j.Seq, &j.Op, &j.ActorID, &j.SubjectID, &detail, &recorded); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		j.Detail, err = unmarshalDetail(detail)
		if err != nil {
			return nil, fmt.Errorf("journal seq %d: %w", j.Seq, err)
		}
		j.RecordedAt = fromMillis(recorded)
		entries = append(entries, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}
