package swap

import (
	"context"

	"github.com/roach88/slotswap/internal/slot"
	"github.com/roach88/slotswap/internal/store"
)

// ListSwappable returns other users' SWAPPABLE slots, earliest first.
func (s *Service) ListSwappable(ctx context.Context, callerID string) ([]slot.Event, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	return s.listEvents(ctx, store.EventFilter{ExcludeOwnerID: callerID, Status: slot.StatusSwappable})
}

// ListMySwappable returns the caller's SWAPPABLE slots, earliest first.
func (s *Service) ListMySwappable(ctx context.Context, callerID string) ([]slot.Event, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	return s.listEvents(ctx, store.EventFilter{OwnerID: callerID, Status: slot.StatusSwappable})
}

// ListMyEvents returns every slot the caller owns, earliest first.
func (s *Service) ListMyEvents(ctx context.Context, callerID string) ([]slot.Event, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	return s.listEvents(ctx, store.EventFilter{OwnerID: callerID})
}

// ListIncoming returns PENDING requests targeting the caller, newest first.
func (s *Service) ListIncoming(ctx context.Context, callerID string) ([]slot.RequestDetail, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	return s.listRequests(ctx, store.RequestFilter{TargetUserID: callerID, Status: slot.RequestPending})
}

// ListOutgoing returns every request the caller made, newest first.
func (s *Service) ListOutgoing(ctx context.Context, callerID string) ([]slot.RequestDetail, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	return s.listRequests(ctx, store.RequestFilter{RequesterID: callerID})
}

// GetSwapRequest returns one request.
func (s *Service) GetSwapRequest(ctx context.Context, requestID string) (slot.SwapRequest, error) {
	return s.getRequest(ctx, requestID)
}

// Journal returns committed operations after afterSeq in commit order.
func (s *Service) Journal(ctx context.Context, afterSeq int64, limit int) ([]store.JournalEntry, error) {
	entries, err := s.store.ReadJournal(ctx, afterSeq, limit)
	if err != nil {
		return nil, slot.Wrap(slot.CodeInternal, "read journal", err)
	}
	return entries, nil
}

func (s *Service) listEvents(ctx context.Context, f store.EventFilter) ([]slot.Event, error) {
	events, err := s.store.ListEvents(ctx, f)
	if err != nil {
		return nil, slot.Wrap(slot.CodeInternal, "list events", err)
	}
	return events, nil
}

func (s *Service) listRequests(ctx context.Context, f store.RequestFilter) ([]slot.RequestDetail, error) {
	requests, err := s.store.ListRequests(ctx, f)
	if err != nil {
		return nil, slot.Wrap(slot.CodeInternal, "list swap requests", err)
	}
	return requests, nil
}
