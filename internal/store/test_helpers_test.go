package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/slotswap/internal/slot"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvent creates an event with minimal required fields at version 1.
func createTestEvent(id, owner string, status slot.Status, startOffset time.Duration) slot.Event {
	start := t0.Add(startOffset)
	return slot.Event{
		ID:        id,
		OwnerID:   owner,
		Title:     "slot " + id,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Status:    status,
		Version:   1,
		CreatedAt: t0,
		UpdatedAt: t0,
	}
}

func createTestRequest(id, requester, requesterSlot, target, targetSlot string, created time.Time) slot.SwapRequest {
	return slot.SwapRequest{
		ID:              id,
		RequesterID:     requester,
		RequesterSlotID: requesterSlot,
		TargetUserID:    target,
		TargetSlotID:    targetSlot,
		Status:          slot.RequestPending,
		Version:         1,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

func insertEvents(t *testing.T, s *Store, events ...slot.Event) {
	t.Helper()
	var b Batch
	for _, e := range events {
		b.Events = append(b.Events, EventWrite{Kind: WriteInsert, Event: e})
	}
	require.NoError(t, s.Commit(context.Background(), b))
}

// lockBatch builds the batch that puts two swappable events into a new request.
func lockBatch(r slot.SwapRequest, a, b slot.Event) Batch {
	la, lb := a, b
	la.Status, la.Version = slot.StatusSwapPending, a.Version+1
	lb.Status, lb.Version = slot.StatusSwapPending, b.Version+1
	return Batch{
		Requests: []RequestWrite{{Kind: WriteInsert, Request: r}},
		Events: []EventWrite{
			{Kind: WriteUpdate, Event: la, ExpectVersion: a.Version, ExpectStatus: slot.StatusSwappable},
			{Kind: WriteUpdate, Event: lb, ExpectVersion: b.Version, ExpectStatus: slot.StatusSwappable},
		},
		Locks: []LockWrite{
			{Kind: WriteInsert, EventID: a.ID, RequestID: r.ID},
			{Kind: WriteInsert, EventID: b.ID, RequestID: r.ID},
		},
	}
}
