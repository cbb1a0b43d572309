package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/roach88/slotswap/internal/slot"
	"github.com/roach88/slotswap/internal/store"
	"github.com/roach88/slotswap/internal/swap"
	"github.com/roach88/slotswap/internal/testutil"
)

// BaseTime is the instant that step offsets are relative to.
var BaseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// Harness executes one scenario against its own store.
type Harness struct {
	store    *store.Store
	svc      *swap.Service
	notices  *noticeLog
	events   map[string]string // ref -> event id
	requests map[string]string // ref -> request id
	refs     map[string]string // id -> ref
}

// noticeLog collects published notices between steps.
type noticeLog struct {
	mu      sync.Mutex
	pending []string
}

func (n *noticeLog) Publish(_ context.Context, notice swap.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = append(n.pending, notice.Type)
	return nil
}

func (n *noticeLog) take() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := strings.Join(n.pending, ",")
	n.pending = nil
	return out
}

// Run executes a scenario in a fresh in-memory store and returns the trace,
// the final state and any failed expectations.
//
// A returned error means the scenario could not be run at all; a scenario
// whose steps or assertions fail returns a Result with Pass false.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	notices := &noticeLog{}
	h := &Harness{
		store:   st,
		notices: notices,
		svc: swap.New(st,
			swap.WithClock(testutil.NewStepClock(testutil.DefaultEpoch, time.Second)),
			swap.WithIDGenerator(testutil.NewSequenceIDs("id")),
			swap.WithPublisher(notices),
			swap.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		),
		events:   map[string]string{},
		requests: map[string]string{},
		refs:     map[string]string{},
	}

	result := NewResult(scenario.Name)
	for i, step := range scenario.Steps {
		ts, err := h.execute(ctx, step)
		ts.Seq = i + 1
		ts.Notice = notices.take()
		result.Steps = append(result.Steps, ts)

		if ts.Outcome != step.Expected() {
			msg := fmt.Sprintf("step %d (%s %s): expected %s, got %s", ts.Seq, step.As, step.Op, step.Expected(), ts.Outcome)
			if err != nil {
				msg += ": " + err.Error()
			}
			result.AddError(msg)
		}
	}

	final, err := h.finalState(ctx)
	if err != nil {
		return nil, err
	}
	result.Final = final

	for _, msg := range h.evaluate(ctx, scenario.Assertions, final) {
		result.AddError(msg)
	}
	return result, nil
}

// execute performs one step. The returned error is the domain error, if
// any; its code is already in the trace outcome.
func (h *Harness) execute(ctx context.Context, step Step) (TraceStep, error) {
	ts := TraceStep{As: step.As, Op: step.Op}

	var err error
	switch step.Op {
	case OpCreateEvent:
		ts.Args = []string{step.Bind, deref(step.Start) + ".." + deref(step.End)}
		if step.Status != nil {
			ts.Args = append(ts.Args, *step.Status)
		}
		var in slot.NewEvent
		if in, err = h.newEvent(step); err == nil {
			var e slot.Event
			if e, err = h.svc.CreateEvent(ctx, step.As, in); err == nil {
				h.bind(step.Bind, e.ID, h.events)
				ts.Event = h.eventView(e)
			}
		}

	case OpUpdateEvent:
		ts.Args = append([]string{step.Event}, patchArgs(step)...)
		var p slot.EventPatch
		if p, err = patchFor(step); err == nil {
			var e slot.Event
			if e, err = h.svc.UpdateEvent(ctx, step.As, h.eventID(step.Event), p); err == nil {
				ts.Event = h.eventView(e)
			}
		}

	case OpDeleteEvent:
		ts.Args = []string{step.Event}
		err = h.svc.DeleteEvent(ctx, step.As, h.eventID(step.Event))

	case OpRequestSwap:
		ts.Args = []string{step.MySlot, step.TheirSlot}
		var r slot.SwapRequest
		if r, err = h.svc.RequestSwap(ctx, step.As, h.eventID(step.MySlot), h.eventID(step.TheirSlot)); err == nil {
			h.bind(step.Bind, r.ID, h.requests)
			ts.Request = h.requestView(r)
		}

	case OpRespondSwap:
		verdict := "reject"
		if step.Accept != nil && *step.Accept {
			verdict = "accept"
		}
		ts.Args = []string{step.Request, verdict}
		var r slot.SwapRequest
		if r, err = h.svc.RespondToSwap(ctx, step.As, h.requestID(step.Request), verdict == "accept"); err == nil {
			ts.Request = h.requestView(r)
		}

	default:
		err = slot.Errorf(slot.CodeInvalidOperation, "unknown op %q", step.Op)
	}

	ts.Outcome = OutcomeOK
	if err != nil {
		ts.Outcome = string(slot.CodeOf(err))
	}
	return ts, err
}

func (h *Harness) newEvent(step Step) (slot.NewEvent, error) {
	in := slot.NewEvent{Title: deref(step.Title)}
	var err error
	if in.StartTime, err = offsetTime(step.Start); err != nil {
		return slot.NewEvent{}, err
	}
	if in.EndTime, err = offsetTime(step.End); err != nil {
		return slot.NewEvent{}, err
	}
	if step.Status != nil {
		if in.Status, err = slot.ParseOwnerStatus(*step.Status); err != nil {
			return slot.NewEvent{}, err
		}
	}
	return in, nil
}

func patchFor(step Step) (slot.EventPatch, error) {
	p := slot.EventPatch{Title: step.Title}
	if step.Start != nil {
		t, err := offsetTime(step.Start)
		if err != nil {
			return slot.EventPatch{}, err
		}
		p.StartTime = &t
	}
	if step.End != nil {
		t, err := offsetTime(step.End)
		if err != nil {
			return slot.EventPatch{}, err
		}
		p.EndTime = &t
	}
	if step.Status != nil {
		status, err := slot.ParseOwnerStatus(*step.Status)
		if err != nil {
			return slot.EventPatch{}, err
		}
		p.Status = &status
	}
	return p, nil
}

func patchArgs(step Step) []string {
	var args []string
	if step.Title != nil {
		args = append(args, fmt.Sprintf("title=%q", *step.Title))
	}
	if step.Start != nil {
		args = append(args, "start="+*step.Start)
	}
	if step.End != nil {
		args = append(args, "end="+*step.End)
	}
	if step.Status != nil {
		args = append(args, "status="+*step.Status)
	}
	return args
}

func offsetTime(offset *string) (time.Time, error) {
	if offset == nil {
		return time.Time{}, nil
	}
	d, err := time.ParseDuration(*offset)
	if err != nil {
		return time.Time{}, slot.Wrap(slot.CodeInvalidOperation, "invalid offset "+*offset, err)
	}
	return BaseTime.Add(d), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *Harness) bind(ref, id string, into map[string]string) {
	if ref == "" {
		return
	}
	into[ref] = id
	h.refs[id] = ref
}

// eventID resolves a ref. A ref whose creating step failed resolves to an
// id that does not exist, so the step using it sees NOT_FOUND.
func (h *Harness) eventID(ref string) string {
	if id, ok := h.events[ref]; ok {
		return id
	}
	return "unbound:" + ref
}

func (h *Harness) requestID(ref string) string {
	if id, ok := h.requests[ref]; ok {
		return id
	}
	return "unbound:" + ref
}

// refOf names an id by its ref, falling back to the id itself.
func (h *Harness) refOf(id string) string {
	if ref, ok := h.refs[id]; ok {
		return ref
	}
	return id
}

func (h *Harness) eventView(e slot.Event) *EventView {
	return &EventView{
		Ref:     h.refs[e.ID],
		ID:      e.ID,
		Owner:   e.OwnerID,
		Status:  string(e.Status),
		Version: e.Version,
	}
}

func (h *Harness) requestView(r slot.SwapRequest) *RequestView {
	return &RequestView{
		Ref:          h.refs[r.ID],
		ID:           r.ID,
		Requester:    r.RequesterID,
		OfferedRef:   h.refOf(r.RequesterSlotID),
		Target:       r.TargetUserID,
		RequestedRef: h.refOf(r.TargetSlotID),
		Status:       string(r.Status),
		Version:      r.Version,
	}
}

func (h *Harness) finalState(ctx context.Context) (FinalState, error) {
	snap, err := h.store.Snapshot(ctx)
	if err != nil {
		return FinalState{}, fmt.Errorf("failed to read final state: %w", err)
	}
	journal, err := h.store.ReadJournal(ctx, 0, 0)
	if err != nil {
		return FinalState{}, fmt.Errorf("failed to read journal: %w", err)
	}
	report, err := h.svc.Audit(ctx)
	if err != nil {
		return FinalState{}, fmt.Errorf("failed to audit final state: %w", err)
	}

	final := FinalState{
		Events:     make([]EventView, 0, len(snap.Events)),
		Requests:   make([]RequestView, 0, len(snap.Requests)),
		Journal:    make([]JournalLine, 0, len(journal)),
		Violations: make([]string, 0, len(report.Violations)),
	}
	for _, e := range snap.Events {
		final.Events = append(final.Events, *h.eventView(e))
	}
	for _, r := range snap.Requests {
		final.Requests = append(final.Requests, *h.requestView(r))
	}
	for _, j := range journal {
		final.Journal = append(final.Journal, JournalLine{
			Seq:     j.Seq,
			Op:      j.Op,
			Actor:   j.ActorID,
			Subject: h.refOf(j.SubjectID),
		})
	}
	for _, v := range report.Violations {
		final.Violations = append(final.Violations, fmt.Sprintf("%s: %s", h.refOf(v.EventID), v.Reason))
	}
	return final, nil
}
