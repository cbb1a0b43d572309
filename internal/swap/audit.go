package swap

import (
	"context"
	"sort"

	"github.com/roach88/slotswap/internal/slot"
)

// Report summarises an invariant audit.
type Report struct {
	Events     int              `json:"events"`
	Requests   int              `json:"requests"`
	Pending    int              `json:"pending"`
	Violations []slot.Violation `json:"violations"`
}

// OK reports whether no invariant is broken.
func (r Report) OK() bool {
	return len(r.Violations) == 0
}

// Audit checks the cross-record invariants over one consistent snapshot:
// the Event/SwapRequest rules from slot.CheckConsistency, plus agreement
// between the swap_locks index and SWAP_PENDING statuses.
func (s *Service) Audit(ctx context.Context) (Report, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return Report{}, slot.Wrap(slot.CodeInternal, "snapshot", err)
	}

	report := Report{
		Events:   len(snap.Events),
		Requests: len(snap.Requests),
	}
	pending := make(map[string]slot.SwapRequest)
	for _, r := range snap.Requests {
		if r.Status == slot.RequestPending {
			report.Pending++
			pending[r.ID] = r
		}
	}

	violations := slot.CheckConsistency(snap.Events, snap.Requests)

	statuses := make(map[string]slot.Status, len(snap.Events))
	for _, e := range snap.Events {
		statuses[e.ID] = e.Status
		holder, locked := snap.Locks[e.ID]
		if e.Status == slot.StatusSwapPending && !locked {
			violations = append(violations, slot.Violation{EventID: e.ID, Status: e.Status, Reason: "swap pending without a lock"})
		}
		if locked {
			if r, ok := pending[holder]; !ok || !r.References(e.ID) {
				violations = append(violations, slot.Violation{EventID: e.ID, Status: e.Status, RequestIDs: []string{holder}, Reason: "lock held by a request that is not pending on this slot"})
			}
		}
	}
	for eventID, holder := range snap.Locks {
		st, ok := statuses[eventID]
		if !ok || st != slot.StatusSwapPending {
			violations = append(violations, slot.Violation{EventID: eventID, Status: st, RequestIDs: []string{holder}, Reason: "lock on a slot that is not swap pending"})
		}
	}

	sort.SliceStable(violations, func(i, j int) bool { return violations[i].EventID < violations[j].EventID })
	if violations == nil {
		violations = []slot.Violation{}
	}
	report.Violations = violations

	if !report.OK() {
		s.logger.Warn("invariant audit failed", "violations", len(violations))
	}
	return report, nil
}
