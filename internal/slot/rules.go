package slot

// BuildEvent validates owner input for a new Event. The returned Event has
// no id, version or timestamps; the caller assigns them.
func BuildEvent(ownerID string, in NewEvent) (Event, error) {
	if ownerID == "" {
		return Event{}, ErrUnauthenticated
	}
	title := NormalizeTitle(in.Title)
	if title == "" {
		return Event{}, Errorf(CodeInvalidOperation, "title is required")
	}
	if err := ValidateRange(in.StartTime, in.EndTime); err != nil {
		return Event{}, err
	}
	return Event{
		OwnerID:   ownerID,
		Title:     title,
		StartTime: in.StartTime.UTC(),
		EndTime:   in.EndTime.UTC(),
		Status:    in.Status.Status(),
	}, nil
}

// checkOwnerMutable holds the checks shared by owner update and delete,
// in contract order: Forbidden, then Conflict.
func checkOwnerMutable(callerID string, e Event) error {
	if e.OwnerID != callerID {
		return WithMetadata(CodeForbidden, "caller does not own this event", map[string]string{"eventId": e.ID})
	}
	if e.Status == StatusSwapPending {
		return statusError(e, CodeConflict, "event has a pending swap request")
	}
	return nil
}

// ApplyPatch validates an owner update and returns the patched Event.
// The version and timestamps are left for the caller to advance.
func ApplyPatch(callerID string, e Event, p EventPatch) (Event, error) {
	if err := checkOwnerMutable(callerID, e); err != nil {
		return Event{}, err
	}

	next := e
	if p.Title != nil {
		title := NormalizeTitle(*p.Title)
		if title == "" {
			return Event{}, Errorf(CodeInvalidOperation, "title must not be empty")
		}
		next.Title = title
	}
	if p.StartTime != nil {
		next.StartTime = p.StartTime.UTC()
	}
	if p.EndTime != nil {
		next.EndTime = p.EndTime.UTC()
	}
	if p.Status != nil {
		to := p.Status.Status()
		if err := ensureTransition(e, to, ActorOwner); err != nil {
			return Event{}, err
		}
		next.Status = to
	}
	if err := ValidateRange(next.StartTime, next.EndTime); err != nil {
		return Event{}, err
	}
	return next, nil
}

// CheckDelete validates an owner delete.
func CheckDelete(callerID string, e Event) error {
	return checkOwnerMutable(callerID, e)
}

// CheckOffer validates a swap proposal. Ownership is checked before any
// status so that a non-owner is always Forbidden.
//
// A slot already SWAP_PENDING is a Conflict (another swap holds it and may
// release it); a BUSY slot is an InvalidOperation.
func CheckOffer(requesterID string, offered, target Event) error {
	if offered.OwnerID != requesterID {
		return WithMetadata(CodeForbidden, "requester does not own the offered slot", map[string]string{"eventId": offered.ID})
	}
	if target.OwnerID == requesterID {
		return WithMetadata(CodeInvalidOperation, "cannot request a swap for your own slot", map[string]string{"eventId": target.ID})
	}
	for _, e := range []Event{offered, target} {
		switch e.Status {
		case StatusSwappable:
		case StatusSwapPending:
			return statusError(e, CodeConflict, "slot is already part of a pending swap")
		default:
			return statusError(e, CodeInvalidOperation, "slot must be %s", StatusSwappable)
		}
	}
	return nil
}

// Lock moves a SWAPPABLE Event into SWAP_PENDING.
func Lock(e Event) (Event, error) {
	if err := ensureTransition(e, StatusSwapPending, ActorCoordinator); err != nil {
		return Event{}, err
	}
	e.Status = StatusSwapPending
	return e, nil
}

// Release returns a SWAP_PENDING Event to SWAPPABLE after a rejection.
func Release(e Event) (Event, error) {
	if err := ensureTransition(e, StatusSwappable, ActorCoordinator); err != nil {
		return Event{}, err
	}
	e.Status = StatusSwappable
	return e, nil
}

// CheckResponder validates the caller and request state for a response.
// Ownership is checked before status.
func CheckResponder(responderID string, r SwapRequest) error {
	if r.TargetUserID != responderID {
		return WithMetadata(CodeForbidden, "only the target user may respond to this request", map[string]string{"requestId": r.ID})
	}
	if r.Status != RequestPending {
		return WithMetadata(CodeConflict, "request has already been "+string(r.Status), map[string]string{"requestId": r.ID})
	}
	return nil
}

// CheckPair verifies that both slots named by a PENDING request are still in
// the state the request left them: present, SWAP_PENDING, and owned by the
// recorded parties. Any drift is a Conflict.
func CheckPair(r SwapRequest, requesterSlot, targetSlot *Event) error {
	check := func(e *Event, id, owner string) error {
		if e == nil {
			return WithMetadata(CodeConflict, "slot no longer exists", map[string]string{"requestId": r.ID, "eventId": id})
		}
		if e.Status != StatusSwapPending {
			return statusError(*e, CodeConflict, "slot is no longer pending this swap")
		}
		if e.OwnerID != owner {
			return WithMetadata(CodeConflict, "slot changed owner since the request was made", map[string]string{"requestId": r.ID, "eventId": id})
		}
		return nil
	}
	if err := check(requesterSlot, r.RequesterSlotID, r.RequesterID); err != nil {
		return err
	}
	return check(targetSlot, r.TargetSlotID, r.TargetUserID)
}

// Exchange swaps the owners of two SWAP_PENDING Events and sets both BUSY.
func Exchange(a, b Event) (Event, Event, error) {
	if err := ensureTransition(a, StatusBusy, ActorCoordinator); err != nil {
		return Event{}, Event{}, err
	}
	if err := ensureTransition(b, StatusBusy, ActorCoordinator); err != nil {
		return Event{}, Event{}, err
	}
	a.OwnerID, b.OwnerID = b.OwnerID, a.OwnerID
	a.Status = StatusBusy
	b.Status = StatusBusy
	return a, b, nil
}
