package swap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slotswap/internal/slot"
	"github.com/roach88/slotswap/internal/testutil"
)

func TestCreateEvent(t *testing.T) {
	f := newFixture(t)

	e, err := f.svc.CreateEvent(context.Background(), "u1", slot.NewEvent{
		Title:     "  Planning ",
		StartTime: slotStart,
		EndTime:   slotStart.Add(30 * time.Minute),
	})
	require.NoError(t, err)

	assert.Equal(t, "id-1", e.ID)
	assert.Equal(t, "Planning", e.Title)
	assert.Equal(t, slot.StatusBusy, e.Status, "defaults to BUSY")
	assert.Equal(t, int64(1), e.Version)
	assert.Equal(t, testutil.DefaultEpoch, e.CreatedAt)
	assert.Equal(t, e, f.event(t, e.ID))
}

func TestCreateEvent_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateEvent(ctx, "u1", slot.NewEvent{Title: "x", StartTime: slotStart, EndTime: slotStart})
	assert.ErrorIs(t, err, slot.ErrInvalidRange)

	_, err = f.svc.CreateEvent(ctx, "u1", slot.NewEvent{StartTime: slotStart, EndTime: slotStart.Add(time.Hour)})
	assert.ErrorIs(t, err, slot.ErrInvalidOperation)

	_, err = f.svc.CreateEvent(ctx, "", slot.NewEvent{Title: "x", StartTime: slotStart, EndTime: slotStart.Add(time.Hour)})
	assert.ErrorIs(t, err, slot.ErrUnauthenticated)

	mine, err := f.svc.ListMyEvents(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestUpdateEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.slotFor(t, "u1", slot.OwnerBusy, 0)

	title := "Retro"
	got, err := f.svc.UpdateEvent(ctx, "u1", e.ID, slot.EventPatch{Title: &title, Status: &slot.OwnerSwappable})
	require.NoError(t, err)
	assert.Equal(t, "Retro", got.Title)
	assert.Equal(t, slot.StatusSwappable, got.Status)
	assert.Equal(t, int64(2), got.Version)
	assert.True(t, got.UpdatedAt.After(e.UpdatedAt))
	assert.Equal(t, got, f.event(t, e.ID))
}

func TestUpdateEvent_EmptyPatchIsNoop(t *testing.T) {
	f := newFixture(t)
	e := f.slotFor(t, "u1", slot.OwnerBusy, 0)

	got, err := f.svc.UpdateEvent(context.Background(), "u1", e.ID, slot.EventPatch{})
	require.NoError(t, err)
	assert.Equal(t, e, got)
	assert.Equal(t, int64(1), f.event(t, e.ID).Version)

	_, err = f.svc.UpdateEvent(context.Background(), "u2", e.ID, slot.EventPatch{})
	assert.ErrorIs(t, err, slot.ErrForbidden, "ownership still checked")
}

func TestUpdateEvent_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.slotFor(t, "u1", slot.OwnerSwappable, 0)
	b := f.slotFor(t, "u2", slot.OwnerSwappable, time.Hour)
	busy := f.slotFor(t, "u1", slot.OwnerBusy, 2*time.Hour)
	_, err := f.svc.RequestSwap(ctx, "u1", a.ID, b.ID)
	require.NoError(t, err)

	title := "x"
	early := slotStart.Add(-time.Hour)

	_, err = f.svc.UpdateEvent(ctx, "u1", "missing", slot.EventPatch{Title: &title})
	assert.ErrorIs(t, err, slot.ErrNotFound)

	_, err = f.svc.UpdateEvent(ctx, "u2", a.ID, slot.EventPatch{Title: &title})
	assert.ErrorIs(t, err, slot.ErrForbidden, "forbidden before conflict")

	_, err = f.svc.UpdateEvent(ctx, "u1", a.ID, slot.EventPatch{Title: &title})
	assert.ErrorIs(t, err, slot.ErrConflict)

	_, err = f.svc.UpdateEvent(ctx, "u1", a.ID, slot.EventPatch{Status: &slot.OwnerBusy})
	assert.ErrorIs(t, err, slot.ErrConflict, "owner cannot unlock a pending slot")

	_, err = f.svc.UpdateEvent(ctx, "u1", busy.ID, slot.EventPatch{EndTime: &early})
	assert.ErrorIs(t, err, slot.ErrInvalidRange)

	_, err = f.svc.UpdateEvent(ctx, "", busy.ID, slot.EventPatch{Title: &title})
	assert.ErrorIs(t, err, slot.ErrUnauthenticated)

	assert.Equal(t, busy, f.event(t, busy.ID))
	f.requireConsistent(t)
}

func TestUpdateEvent_LosesToConcurrentLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.slotFor(t, "u1", slot.OwnerSwappable, 0)
	b := f.slotFor(t, "u2", slot.OwnerSwappable, time.Hour)

	hs := &hookStore{Store: f.st}
	svc := newService(hs, f.pub)
	// u1 asks for b while u2's update of b is between read and write.
	hs.beforeCommit = func() {
		_, err := f.svc.RequestSwap(ctx, "u1", a.ID, b.ID)
		require.NoError(t, err)
	}

	_, err := svc.UpdateEvent(ctx, "u2", b.ID, slot.EventPatch{Status: &slot.OwnerBusy})
	require.ErrorIs(t, err, slot.ErrConflict)

	assert.Equal(t, slot.StatusSwapPending, f.event(t, b.ID).Status, "lock not overwritten")
	f.requireConsistent(t)
}

func TestDeleteEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.slotFor(t, "u1", slot.OwnerSwappable, 0)
	b := f.slotFor(t, "u2", slot.OwnerSwappable, time.Hour)
	c := f.slotFor(t, "u1", slot.OwnerBusy, 2*time.Hour)
	_, err := f.svc.RequestSwap(ctx, "u1", a.ID, b.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteEvent(ctx, "u2", c.ID), slot.ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteEvent(ctx, "u1", a.ID), slot.ErrConflict)
	assert.ErrorIs(t, f.svc.DeleteEvent(ctx, "u1", "missing"), slot.ErrNotFound)

	require.NoError(t, f.svc.DeleteEvent(ctx, "u1", c.ID))
	_, err = f.svc.GetEvent(ctx, c.ID)
	assert.ErrorIs(t, err, slot.ErrNotFound)
	f.requireConsistent(t)
}

func TestDeleteEvent_LosesToConcurrentLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.slotFor(t, "u1", slot.OwnerSwappable, 0)
	b := f.slotFor(t, "u2", slot.OwnerSwappable, time.Hour)

	hs := &hookStore{Store: f.st}
	svc := newService(hs, f.pub)
	hs.beforeCommit = func() {
		_, err := f.svc.RequestSwap(ctx, "u1", a.ID, b.ID)
		require.NoError(t, err)
	}

	err := svc.DeleteEvent(ctx, "u2", b.ID)
	require.ErrorIs(t, err, slot.ErrConflict)
	assert.Equal(t, slot.StatusSwapPending, f.event(t, b.ID).Status)
	f.requireConsistent(t)
}

func TestDeletedSlotAfterResolutionKeepsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.slotFor(t, "u1", slot.OwnerSwappable, 0)
	b := f.slotFor(t, "u2", slot.OwnerSwappable, time.Hour)
	req, err := f.svc.RequestSwap(ctx, "u1", a.ID, b.ID)
	require.NoError(t, err)
	_, err = f.svc.RespondToSwap(ctx, "u2", req.ID, true)
	require.NoError(t, err)

	// b now belongs to u1.
	require.NoError(t, f.svc.DeleteEvent(ctx, "u1", b.ID))

	out, err := f.svc.ListOutgoing(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, slot.RequestAccepted, out[0].Status)
	assert.NotNil(t, out[0].RequesterSlot)
	assert.Nil(t, out[0].TargetSlot)
}
