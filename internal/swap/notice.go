package swap

import (
	"context"
	"time"

	"github.com/roach88/slotswap/internal/slot"
)

// Notice types, published after the corresponding commit.
const (
	NoticeRequested = "swap.requested"
	NoticeAccepted  = "swap.accepted"
	NoticeRejected  = "swap.rejected"
)

// Notice describes a committed swap lifecycle change.
type Notice struct {
	Type            string    `json:"type"`
	RequestID       string    `json:"requestId"`
	RequesterID     string    `json:"requesterId"`
	RequesterSlotID string    `json:"requesterSlotId"`
	TargetUserID    string    `json:"targetUserId"`
	TargetSlotID    string    `json:"targetSlotId"`
	At              time.Time `json:"at"`
}

// Publisher delivers notices to interested parties. Delivery is best
// effort: a Publish failure is logged and never undoes a commit.
type Publisher interface {
	Publish(ctx context.Context, n Notice) error
}

func noticeFor(typ string, r slot.SwapRequest) Notice {
	return Notice{
		Type:            typ,
		RequestID:       r.ID,
		RequesterID:     r.RequesterID,
		RequesterSlotID: r.RequesterSlotID,
		TargetUserID:    r.TargetUserID,
		TargetSlotID:    r.TargetSlotID,
		At:              r.UpdatedAt,
	}
}
