package swap

import (
	"context"
	"strconv"

	"github.com/roach88/slotswap/internal/slot"
	"github.com/roach88/slotswap/internal/store"
)

// RequestSwap offers the requester's slot in exchange for another user's slot.
//
// On success a PENDING request exists and both slots are SWAP_PENDING and
// locked by it. The request insert, both slot transitions and both locks
// are one batch conditional on the versions read here, so of two racing
// calls on the same slot exactly one commits and the other gets a Conflict.
func (s *Service) RequestSwap(ctx context.Context, requesterID, mySlotID, theirSlotID string) (slot.SwapRequest, error) {
	if err := requireCaller(requesterID); err != nil {
		return slot.SwapRequest{}, err
	}

	offered, err := s.getEvent(ctx, mySlotID)
	if err != nil {
		return slot.SwapRequest{}, s.rejected("request_swap", requesterID, err)
	}
	target, err := s.getEvent(ctx, theirSlotID)
	if err != nil {
		return slot.SwapRequest{}, s.rejected("request_swap", requesterID, err)
	}
	if err := slot.CheckOffer(requesterID, offered, target); err != nil {
		return slot.SwapRequest{}, s.rejected("request_swap", requesterID, err)
	}

	now := s.clock.Now()
	req := slot.SwapRequest{
		ID:              s.ids.Generate(),
		RequesterID:     requesterID,
		RequesterSlotID: offered.ID,
		TargetUserID:    target.OwnerID,
		TargetSlotID:    target.ID,
		Status:          slot.RequestPending,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	b := store.Batch{
		Requests: []store.RequestWrite{{Kind: store.WriteInsert, Request: req}},
		Journal: &store.JournalEntry{
			Op:         store.OpSwapRequested,
			ActorID:    requesterID,
			SubjectID:  req.ID,
			Detail:     requestDetail(req),
			RecordedAt: now,
		},
	}
	for _, e := range []slot.Event{offered, target} {
		locked, err := slot.Lock(e)
		if err != nil {
			return slot.SwapRequest{}, s.rejected("request_swap", requesterID, err)
		}
		locked.Version = e.Version + 1
		locked.UpdatedAt = now
		b.Events = append(b.Events, store.EventWrite{
			Kind:          store.WriteUpdate,
			Event:         locked,
			ExpectVersion: e.Version,
			ExpectStatus:  slot.StatusSwappable,
		})
		b.Locks = append(b.Locks, store.LockWrite{Kind: store.WriteInsert, EventID: e.ID, RequestID: req.ID})
	}

	if err := s.commit(ctx, b); err != nil {
		return slot.SwapRequest{}, s.rejected("request_swap", requesterID, err)
	}

	s.logger.Info("swap requested",
		"request", req.ID,
		"requester", req.RequesterID,
		"requester_slot", req.RequesterSlotID,
		"target_user", req.TargetUserID,
		"target_slot", req.TargetSlotID,
	)
	s.publish(ctx, noticeFor(NoticeRequested, req))
	return req, nil
}

// RespondToSwap accepts or rejects a PENDING request. Only the target user
// may respond.
//
// Accept exchanges the owners of both slots and sets them BUSY; reject
// returns both to SWAPPABLE. Either way the request becomes terminal and
// both locks are dropped, in one batch conditional on the versions read
// here. A slot that is missing, no longer SWAP_PENDING, owned by someone
// else or locked by another request is a Conflict and nothing changes.
func (s *Service) RespondToSwap(ctx context.Context, responderID, requestID string, accept bool) (slot.SwapRequest, error) {
	if err := requireCaller(responderID); err != nil {
		return slot.SwapRequest{}, err
	}

	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return slot.SwapRequest{}, s.rejected("respond_swap", responderID, err)
	}
	if err := slot.CheckResponder(responderID, req); err != nil {
		return slot.SwapRequest{}, s.rejected("respond_swap", responderID, err)
	}

	a, err := s.findEvent(ctx, req.RequesterSlotID)
	if err != nil {
		return slot.SwapRequest{}, err
	}
	b, err := s.findEvent(ctx, req.TargetSlotID)
	if err != nil {
		return slot.SwapRequest{}, err
	}
	if err := slot.CheckPair(req, a, b); err != nil {
		return slot.SwapRequest{}, s.rejected("respond_swap", responderID, err)
	}
	for _, e := range []*slot.Event{a, b} {
		if err := s.checkHeldBy(ctx, e.ID, req.ID); err != nil {
			return slot.SwapRequest{}, s.rejected("respond_swap", responderID, err)
		}
	}

	var na, nb slot.Event
	status, op, notice := slot.RequestRejected, store.OpSwapRejected, NoticeRejected
	if accept {
		status, op, notice = slot.RequestAccepted, store.OpSwapAccepted, NoticeAccepted
		na, nb, err = slot.Exchange(*a, *b)
	} else {
		na, err = slot.Release(*a)
		if err == nil {
			nb, err = slot.Release(*b)
		}
	}
	if err != nil {
		return slot.SwapRequest{}, s.rejected("respond_swap", responderID, err)
	}

	now := s.clock.Now()
	done := req
	done.Status = status
	done.Version = req.Version + 1
	done.UpdatedAt = now

	na.Version, na.UpdatedAt = a.Version+1, now
	nb.Version, nb.UpdatedAt = b.Version+1, now

	detail := requestDetail(done)
	detail["accept"] = strconv.FormatBool(accept)

	err = s.commit(ctx, store.Batch{
		Requests: []store.RequestWrite{{
			Kind:          store.WriteUpdate,
			Request:       done,
			ExpectVersion: req.Version,
			ExpectStatus:  slot.RequestPending,
		}},
		Locks: []store.LockWrite{
			{Kind: store.WriteDelete, EventID: a.ID, RequestID: req.ID},
			{Kind: store.WriteDelete, EventID: b.ID, RequestID: req.ID},
		},
		Events: []store.EventWrite{
			{Kind: store.WriteUpdate, Event: na, ExpectVersion: a.Version, ExpectStatus: slot.StatusSwapPending},
			{Kind: store.WriteUpdate, Event: nb, ExpectVersion: b.Version, ExpectStatus: slot.StatusSwapPending},
		},
		Journal: &store.JournalEntry{
			Op:         op,
			ActorID:    responderID,
			SubjectID:  done.ID,
			Detail:     detail,
			RecordedAt: now,
		},
	})
	if err != nil {
		return slot.SwapRequest{}, s.rejected("respond_swap", responderID, err)
	}

	s.logger.Info("swap resolved",
		"request", done.ID,
		"status", done.Status,
		"requester_slot", na.ID,
		"requester_slot_owner", na.OwnerID,
		"target_slot", nb.ID,
		"target_slot_owner", nb.OwnerID,
	)
	s.publish(ctx, noticeFor(notice, done))
	return done, nil
}

// checkHeldBy verifies the swap_locks index points eventID at requestID.
func (s *Service) checkHeldBy(ctx context.Context, eventID, requestID string) error {
	holder, ok, err := s.store.LockHolder(ctx, eventID)
	if err != nil {
		return slot.Wrap(slot.CodeInternal, "load lock", err)
	}
	if !ok || holder != requestID {
		return slot.WithMetadata(slot.CodeConflict, "slot is not held by this request", map[string]string{
			"eventId":   eventID,
			"requestId": requestID,
			"holder":    holder,
		})
	}
	return nil
}

func requestDetail(r slot.SwapRequest) map[string]string {
	return map[string]string{
		"requester":     r.RequesterID,
		"requesterSlot": r.RequesterSlotID,
		"targetUser":    r.TargetUserID,
		"targetSlot":    r.TargetSlotID,
		"status":        string(r.Status),
	}
}
