package slot

import (
	"fmt"
	"strings"
)

// Status is the exchange status of an Event.
type Status string

const (
	StatusBusy        Status = "BUSY"
	StatusSwappable   Status = "SWAPPABLE"
	StatusSwapPending Status = "SWAP_PENDING"
)

// Valid reports whether s is one of the three Event statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusBusy, StatusSwappable, StatusSwapPending:
		return true
	}
	return false
}

// OwnerStatus is a status an owner may set directly. It can never hold
// SWAP_PENDING; ParseOwnerStatus is the only way to build one from input.
type OwnerStatus struct {
	s Status
}

var (
	OwnerBusy      = OwnerStatus{StatusBusy}
	OwnerSwappable = OwnerStatus{StatusSwappable}
)

// ParseOwnerStatus converts caller input into an OwnerStatus.
// Matching is case-insensitive. SWAP_PENDING is rejected.
func ParseOwnerStatus(raw string) (OwnerStatus, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusBusy:
		return OwnerBusy, nil
	case StatusSwappable:
		return OwnerSwappable, nil
	case StatusSwapPending:
		return OwnerStatus{}, Errorf(CodeInvalidOperation, "status %s is set only by a swap request", StatusSwapPending)
	default:
		return OwnerStatus{}, Errorf(CodeInvalidOperation, "unknown status %q", raw)
	}
}

// Status returns the underlying Status, BUSY for the zero value.
func (o OwnerStatus) Status() Status {
	if o.s == "" {
		return StatusBusy
	}
	return o.s
}

func (o OwnerStatus) String() string {
	return string(o.Status())
}

// RequestStatus is the lifecycle status of a SwapRequest.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestAccepted RequestStatus = "ACCEPTED"
	RequestRejected RequestStatus = "REJECTED"
)

// Terminal reports whether the request can no longer change.
func (s RequestStatus) Terminal() bool {
	return s == RequestAccepted || s == RequestRejected
}

// Actor identifies who drives a transition.
type Actor int

const (
	ActorOwner Actor = iota
	ActorCoordinator
)

func (a Actor) String() string {
	if a == ActorCoordinator {
		return "coordinator"
	}
	return "owner"
}

// transitions lists every legal (from, to) pair and the actor allowed to take it.
var transitions = map[Status]map[Status]Actor{
	StatusBusy: {
		StatusSwappable: ActorOwner,
	},
	StatusSwappable: {
		StatusBusy:        ActorOwner,
		StatusSwapPending: ActorCoordinator,
	},
	StatusSwapPending: {
		StatusBusy:      ActorCoordinator,
		StatusSwappable: ActorCoordinator,
	},
}

// CheckTransition validates a status change by actor.
// Staying in BUSY or SWAPPABLE is always legal for the owner.
func CheckTransition(from, to Status, actor Actor) error {
	if !from.Valid() || !to.Valid() {
		return Errorf(CodeInvalidOperation, "invalid status transition %s -> %s", from, to)
	}
	if from == to && from != StatusSwapPending && actor == ActorOwner {
		return nil
	}
	allowed, ok := transitions[from][to]
	if !ok {
		return Errorf(CodeInvalidOperation, "illegal status transition %s -> %s", from, to)
	}
	if allowed != actor {
		return Errorf(CodeInvalidOperation, "status transition %s -> %s is reserved for the %s", from, to, allowed)
	}
	return nil
}

// ensureTransition is CheckTransition with record context attached.
func ensureTransition(e Event, to Status, actor Actor) error {
	if err := CheckTransition(e.Status, to, actor); err != nil {
		de := err.(*Error)
		de.Metadata = map[string]string{"eventId": e.ID}
		return de
	}
	return nil
}

func statusError(e Event, code Code, format string, args ...any) error {
	return WithMetadata(code, fmt.Sprintf(format, args...), map[string]string{
		"eventId": e.ID,
		"status":  string(e.Status),
	})
}
