package slot

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Event is a calendar slot owned by one user.
type Event struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Status    Status    `json:"status"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SwapRequest is a proposed exchange of two Events.
// It holds Event ids only; Events never point back at it.
type SwapRequest struct {
	ID              string        `json:"id"`
	RequesterID     string        `json:"requesterId"`
	RequesterSlotID string        `json:"requesterSlotId"`
	TargetUserID    string        `json:"targetUserId"`
	TargetSlotID    string        `json:"targetSlotId"`
	Status          RequestStatus `json:"status"`
	Version         int64         `json:"version"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// References reports whether the request names eventID on either side.
func (r SwapRequest) References(eventID string) bool {
	return r.RequesterSlotID == eventID || r.TargetSlotID == eventID
}

// RequestDetail is a SwapRequest together with the slots it names.
// A slot is nil when it has since been deleted.
type RequestDetail struct {
	SwapRequest
	RequesterSlot *Event `json:"requesterSlot,omitempty"`
	TargetSlot    *Event `json:"targetSlot,omitempty"`
}

// NewEvent is the owner input for creating an Event.
type NewEvent struct {
	Title     string
	StartTime time.Time
	EndTime   time.Time
	Status    OwnerStatus // zero value means BUSY
}

// EventPatch is the owner input for updating an Event. Nil fields are left unchanged.
type EventPatch struct {
	Title     *string
	StartTime *time.Time
	EndTime   *time.Time
	Status    *OwnerStatus
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.StartTime == nil && p.EndTime == nil && p.Status == nil
}

// NormalizeTitle trims surrounding space and applies Unicode NFC so that
// visually identical titles compare equal.
func NormalizeTitle(title string) string {
	return norm.NFC.String(strings.TrimSpace(title))
}

// ValidateRange enforces end strictly after start.
func ValidateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return Errorf(CodeInvalidOperation, "start and end time are required")
	}
	if !end.After(start) {
		return WithMetadata(CodeInvalidRange, ErrInvalidRange.Message, map[string]string{
			"startTime": start.UTC().Format(time.RFC3339),
			"endTime":   end.UTC().Format(time.RFC3339),
		})
	}
	return nil
}
