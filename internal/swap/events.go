package swap

import (
	"context"
	"time"

	"github.com/roach88/slotswap/internal/slot"
	"github.com/roach88/slotswap/internal/store"
)

// CreateEvent creates a slot owned by the caller. Status defaults to BUSY.
func (s *Service) CreateEvent(ctx context.Context, callerID string, in slot.NewEvent) (slot.Event, error) {
	in.StartTime = in.StartTime.Truncate(time.Millisecond)
	in.EndTime = in.EndTime.Truncate(time.Millisecond)
	e, err := slot.BuildEvent(callerID, in)
	if err != nil {
		return slot.Event{}, s.rejected("create_event", callerID, err)
	}

	now := s.clock.Now()
	e.ID = s.ids.Generate()
	e.Version = 1
	e.CreatedAt = now
	e.UpdatedAt = now

	err = s.commit(ctx, store.Batch{
		Events:  []store.EventWrite{{Kind: store.WriteInsert, Event: e}},
		Journal: eventJournal(store.OpEventCreated, callerID, e, now),
	})
	if err != nil {
		return slot.Event{}, s.rejected("create_event", callerID, err)
	}

	s.logger.Info("event created",
		"event", e.ID,
		"owner", e.OwnerID,
		"status", e.Status,
	)
	return e, nil
}

// UpdateEvent applies an owner patch to an event.
//
// The write is conditional on the version and status that were read, so a
// swap request locking the event between the read and the write turns this
// call into a Conflict rather than overwriting SWAP_PENDING.
func (s *Service) UpdateEvent(ctx context.Context, callerID, eventID string, p slot.EventPatch) (slot.Event, error) {
	if err := requireCaller(callerID); err != nil {
		return slot.Event{}, err
	}
	cur, err := s.getEvent(ctx, eventID)
	if err != nil {
		return slot.Event{}, s.rejected("update_event", callerID, err)
	}
	next, err := slot.ApplyPatch(callerID, cur, truncatePatch(p))
	if err != nil {
		return slot.Event{}, s.rejected("update_event", callerID, err)
	}
	if p.Empty() {
		return cur, nil
	}

	now := s.clock.Now()
	next.Version = cur.Version + 1
	next.UpdatedAt = now

	err = s.commit(ctx, store.Batch{
		Events: []store.EventWrite{{
			Kind:          store.WriteUpdate,
			Event:         next,
			ExpectVersion: cur.Version,
			ExpectStatus:  cur.Status,
		}},
		Journal: eventJournal(store.OpEventUpdated, callerID, next, now),
	})
	if err != nil {
		return slot.Event{}, s.rejected("update_event", callerID, err)
	}

	s.logger.Info("event updated",
		"event", next.ID,
		"version", next.Version,
		"status", next.Status,
	)
	return next, nil
}

// DeleteEvent removes an event owned by the caller. A SWAP_PENDING event
// cannot be deleted; the check is repeated atomically by the store.
func (s *Service) DeleteEvent(ctx context.Context, callerID, eventID string) error {
	if err := requireCaller(callerID); err != nil {
		return err
	}
	cur, err := s.getEvent(ctx, eventID)
	if err != nil {
		return s.rejected("delete_event", callerID, err)
	}
	if err := slot.CheckDelete(callerID, cur); err != nil {
		return s.rejected("delete_event", callerID, err)
	}

	now := s.clock.Now()
	err = s.commit(ctx, store.Batch{
		Events: []store.EventWrite{{
			Kind:          store.WriteDelete,
			Event:         cur,
			ExpectVersion: cur.Version,
			ExpectStatus:  cur.Status,
		}},
		Journal: eventJournal(store.OpEventDeleted, callerID, cur, now),
	})
	if err != nil {
		return s.rejected("delete_event", callerID, err)
	}

	s.logger.Info("event deleted", "event", cur.ID, "owner", cur.OwnerID)
	return nil
}

// GetEvent returns one event. Reads are not restricted to the owner.
func (s *Service) GetEvent(ctx context.Context, eventID string) (slot.Event, error) {
	return s.getEvent(ctx, eventID)
}

// truncatePatch drops sub-millisecond precision, which the store does not keep.
func truncatePatch(p slot.EventPatch) slot.EventPatch {
	if p.StartTime != nil {
		t := p.StartTime.Truncate(time.Millisecond)
		p.StartTime = &t
	}
	if p.EndTime != nil {
		t := p.EndTime.Truncate(time.Millisecond)
		p.EndTime = &t
	}
	return p
}

func eventJournal(op, actorID string, e slot.Event, at time.Time) *store.JournalEntry {
	return &store.JournalEntry{
		Op:        op,
		ActorID:   actorID,
		SubjectID: e.ID,
		Detail: map[string]string{
			"owner":     e.OwnerID,
			"title":     e.Title,
			"status":    string(e.Status),
			"startTime": e.StartTime.Format(time.RFC3339),
			"endTime":   e.EndTime.Format(time.RFC3339),
		},
		RecordedAt: at,
	}
}
