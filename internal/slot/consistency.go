package slot

import (
	"fmt"
	"sort"
)

// Violation describes one broken cross-entity invariant.
type Violation struct {
	EventID    string   `json:"eventId"`
	Status     Status   `json:"status,omitempty"`
	RequestIDs []string `json:"requestIds,omitempty"`
	Reason     string   `json:"reason"`
}

func (v Violation) String() string {
	return fmt.Sprintf("event %s (%s): %s %v", v.EventID, v.Status, v.Reason, v.RequestIDs)
}

// CheckConsistency evaluates the Event/SwapRequest invariants over one
// snapshot. Results are ordered by event id.
func CheckConsistency(events []Event, requests []SwapRequest) []Violation {
	pending := make(map[string][]string)
	for _, r := range requests {
		if r.Status != RequestPending {
			continue
		}
		pending[r.RequesterSlotID] = append(pending[r.RequesterSlotID], r.ID)
		if r.TargetSlotID != r.RequesterSlotID {
			pending[r.TargetSlotID] = append(pending[r.TargetSlotID], r.ID)
		}
	}

	known := make(map[string]bool, len(events))
	var out []Violation
	for _, e := range events {
		known[e.ID] = true
		refs := pending[e.ID]
		switch {
		case len(refs) > 1:
			out = append(out, Violation{EventID: e.ID, Status: e.Status, RequestIDs: refs, Reason: "referenced by more than one pending request"})
		case e.Status == StatusSwapPending && len(refs) == 0:
			out = append(out, Violation{EventID: e.ID, Status: e.Status, Reason: "swap pending without a pending request"})
		case e.Status != StatusSwapPending && len(refs) == 1:
			out = append(out, Violation{EventID: e.ID, Status: e.Status, RequestIDs: refs, Reason: "pending request references a slot that is not locked"})
		}
	}
	for id, refs := range pending {
		if !known[id] {
			out = append(out, Violation{EventID: id, RequestIDs: refs, Reason: "pending request references a missing slot"})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out
}
