package slot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func testEvent(id, owner string, status Status) Event {
	return Event{
		ID:        id,
		OwnerID:   owner,
		Title:     "Standup",
		StartTime: base,
		EndTime:   base.Add(time.Hour),
		Status:    status,
		Version:   1,
	}
}

func ptr[T any](v T) *T { return &v }

func TestBuildEvent(t *testing.T) {
	t.Run("defaults to busy", func(t *testing.T) {
		e, err := BuildEvent("u1", NewEvent{Title: "  Review ", StartTime: base, EndTime: base.Add(time.Hour)})
		require.NoError(t, err)
		assert.Equal(t, "u1", e.OwnerID)
		assert.Equal(t, "Review", e.Title)
		assert.Equal(t, StatusBusy, e.Status)
	})

	t.Run("swappable on request", func(t *testing.T) {
		e, err := BuildEvent("u1", NewEvent{Title: "Review", StartTime: base, EndTime: base.Add(time.Hour), Status: OwnerSwappable})
		require.NoError(t, err)
		assert.Equal(t, StatusSwappable, e.Status)
	})

	t.Run("title normalised to NFC", func(t *testing.T) {
		e, err := BuildEvent("u1", NewEvent{Title: "Cafe\u0301", StartTime: base, EndTime: base.Add(time.Hour)})
		require.NoError(t, err)
		assert.Equal(t, "Caf\u00e9", e.Title)
	})

	t.Run("empty title", func(t *testing.T) {
		_, err := BuildEvent("u1", NewEvent{Title: "   ", StartTime: base, EndTime: base.Add(time.Hour)})
		assert.ErrorIs(t, err, ErrInvalidOperation)
	})

	t.Run("end equals start", func(t *testing.T) {
		_, err := BuildEvent("u1", NewEvent{Title: "x", StartTime: base, EndTime: base})
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("end before start", func(t *testing.T) {
		_, err := BuildEvent("u1", NewEvent{Title: "x", StartTime: base, EndTime: base.Add(-time.Minute)})
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("missing owner", func(t *testing.T) {
		_, err := BuildEvent("", NewEvent{Title: "x", StartTime: base, EndTime: base.Add(time.Hour)})
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestApplyPatch(t *testing.T) {
	t.Run("toggle to swappable", func(t *testing.T) {
		got, err := ApplyPatch("u1", testEvent("e1", "u1", StatusBusy), EventPatch{Status: &OwnerSwappable})
		require.NoError(t, err)
		assert.Equal(t, StatusSwappable, got.Status)
	})

	t.Run("forbidden before conflict", func(t *testing.T) {
		_, err := ApplyPatch("u2", testEvent("e1", "u1", StatusSwapPending), EventPatch{Title: ptr("x")})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("pending is conflict", func(t *testing.T) {
		_, err := ApplyPatch("u1", testEvent("e1", "u1", StatusSwapPending), EventPatch{Title: ptr("x")})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("range checked against merged times", func(t *testing.T) {
		_, err := ApplyPatch("u1", testEvent("e1", "u1", StatusBusy), EventPatch{EndTime: ptr(base.Add(-time.Hour))})
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("moving both times", func(t *testing.T) {
		start := base.Add(24 * time.Hour)
		got, err := ApplyPatch("u1", testEvent("e1", "u1", StatusBusy), EventPatch{StartTime: &start, EndTime: ptr(start.Add(30 * time.Minute))})
		require.NoError(t, err)
		assert.Equal(t, start, got.StartTime)
	})

	t.Run("empty title rejected", func(t *testing.T) {
		_, err := ApplyPatch("u1", testEvent("e1", "u1", StatusBusy), EventPatch{Title: ptr(" ")})
		assert.ErrorIs(t, err, ErrInvalidOperation)
	})

	t.Run("does not touch owner or version", func(t *testing.T) {
		e := testEvent("e1", "u1", StatusBusy)
		got, err := ApplyPatch("u1", e, EventPatch{Title: ptr("Retro")})
		require.NoError(t, err)
		assert.Equal(t, "u1", got.OwnerID)
		assert.Equal(t, e.Version, got.Version)
		assert.Equal(t, "Retro", got.Title)
	})
}

func TestCheckDelete(t *testing.T) {
	assert.NoError(t, CheckDelete("u1", testEvent("e1", "u1", StatusSwappable)))
	assert.ErrorIs(t, CheckDelete("u2", testEvent("e1", "u1", StatusBusy)), ErrForbidden)
	assert.ErrorIs(t, CheckDelete("u1", testEvent("e1", "u1", StatusSwapPending)), ErrConflict)
}

func TestCheckOffer(t *testing.T) {
	mine := testEvent("a", "u1", StatusSwappable)
	theirs := testEvent("b", "u2", StatusSwappable)

	assert.NoError(t, CheckOffer("u1", mine, theirs))

	t.Run("not owner of offered slot", func(t *testing.T) {
		err := CheckOffer("u3", mine, theirs)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("forbidden regardless of status", func(t *testing.T) {
		busy := testEvent("a", "u1", StatusBusy)
		assert.ErrorIs(t, CheckOffer("u3", busy, theirs), ErrForbidden)
	})

	t.Run("own target", func(t *testing.T) {
		alsoMine := testEvent("c", "u1", StatusSwappable)
		assert.ErrorIs(t, CheckOffer("u1", mine, alsoMine), ErrInvalidOperation)
	})

	t.Run("same slot both sides", func(t *testing.T) {
		assert.ErrorIs(t, CheckOffer("u1", mine, mine), ErrInvalidOperation)
	})

	t.Run("busy target", func(t *testing.T) {
		assert.ErrorIs(t, CheckOffer("u1", mine, testEvent("b", "u2", StatusBusy)), ErrInvalidOperation)
	})

	t.Run("busy offered", func(t *testing.T) {
		assert.ErrorIs(t, CheckOffer("u1", testEvent("a", "u1", StatusBusy), theirs), ErrInvalidOperation)
	})

	t.Run("pending target is conflict", func(t *testing.T) {
		assert.ErrorIs(t, CheckOffer("u1", mine, testEvent("b", "u2", StatusSwapPending)), ErrConflict)
	})
}

func TestLockReleaseExchange(t *testing.T) {
	a, err := Lock(testEvent("a", "u1", StatusSwappable))
	require.NoError(t, err)
	assert.Equal(t, StatusSwapPending, a.Status)

	_, err = Lock(testEvent("x", "u1", StatusBusy))
	assert.ErrorIs(t, err, ErrInvalidOperation)

	b, err := Lock(testEvent("b", "u2", StatusSwappable))
	require.NoError(t, err)

	na, nb, err := Exchange(a, b)
	require.NoError(t, err)
	assert.Equal(t, "u2", na.OwnerID)
	assert.Equal(t, "u1", nb.OwnerID)
	assert.Equal(t, StatusBusy, na.Status)
	assert.Equal(t, StatusBusy, nb.Status)

	_, _, err = Exchange(na, nb)
	assert.Error(t, err, "exchange requires both slots pending")

	r, err := Release(a)
	require.NoError(t, err)
	assert.Equal(t, StatusSwappable, r.Status)
	assert.Equal(t, "u1", r.OwnerID)
}

func TestCheckResponder(t *testing.T) {
	req := SwapRequest{ID: "r1", RequesterID: "u1", TargetUserID: "u2", Status: RequestPending}

	assert.NoError(t, CheckResponder("u2", req))
	assert.ErrorIs(t, CheckResponder("u1", req), ErrForbidden)

	req.Status = RequestRejected
	assert.ErrorIs(t, CheckResponder("u2", req), ErrConflict)
	assert.ErrorIs(t, CheckResponder("u3", req), ErrForbidden, "forbidden wins over resolved")
}

func TestCheckPair(t *testing.T) {
	req := SwapRequest{ID: "r1", RequesterID: "u1", RequesterSlotID: "a", TargetUserID: "u2", TargetSlotID: "b", Status: RequestPending}
	a := testEvent("a", "u1", StatusSwapPending)
	b := testEvent("b", "u2", StatusSwapPending)

	assert.NoError(t, CheckPair(req, &a, &b))
	assert.ErrorIs(t, CheckPair(req, nil, &b), ErrConflict)
	assert.ErrorIs(t, CheckPair(req, &a, nil), ErrConflict)

	moved := b
	moved.OwnerID = "u3"
	assert.ErrorIs(t, CheckPair(req, &a, &moved), ErrConflict)

	unlocked := a
	unlocked.Status = StatusBusy
	assert.ErrorIs(t, CheckPair(req, &unlocked, &b), ErrConflict)
}

func TestCheckConsistency(t *testing.T) {
	pending := SwapRequest{ID: "r1", RequesterSlotID: "a", TargetSlotID: "b", Status: RequestPending}
	done := SwapRequest{ID: "r0", RequesterSlotID: "a", TargetSlotID: "c", Status: RequestAccepted}

	t.Run("consistent", func(t *testing.T) {
		events := []Event{
			testEvent("a", "u1", StatusSwapPending),
			testEvent("b", "u2", StatusSwapPending),
			testEvent("c", "u3", StatusSwappable),
		}
		assert.Empty(t, CheckConsistency(events, []SwapRequest{pending, done}))
	})

	t.Run("pending without request", func(t *testing.T) {
		v := CheckConsistency([]Event{testEvent("a", "u1", StatusSwapPending)}, nil)
		require.Len(t, v, 1)
		assert.Equal(t, "a", v[0].EventID)
	})

	t.Run("swappable with pending request", func(t *testing.T) {
		events := []Event{testEvent("a", "u1", StatusSwappable), testEvent("b", "u2", StatusSwapPending)}
		v := CheckConsistency(events, []SwapRequest{pending})
		require.Len(t, v, 1)
		assert.Equal(t, "a", v[0].EventID)
	})

	t.Run("double reference", func(t *testing.T) {
		second := SwapRequest{ID: "r2", RequesterSlotID: "c", TargetSlotID: "b", Status: RequestPending}
		events := []Event{
			testEvent("a", "u1", StatusSwapPending),
			testEvent("b", "u2", StatusSwapPending),
			testEvent("c", "u3", StatusSwapPending),
		}
		v := CheckConsistency(events, []SwapRequest{pending, second})
		require.Len(t, v, 1)
		assert.Equal(t, "b", v[0].EventID)
		assert.ElementsMatch(t, []string{"r1", "r2"}, v[0].RequestIDs)
	})

	t.Run("missing slot", func(t *testing.T) {
		v := CheckConsistency([]Event{testEvent("a", "u1", StatusSwapPending)}, []SwapRequest{pending})
		require.Len(t, v, 1)
		assert.Equal(t, "b", v[0].EventID)
	})
}
