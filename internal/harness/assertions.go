package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// AssertionError describes a failed assertion.
type AssertionError struct {
	Index    int
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertions[%d] %s: expected %s, got %s", e.Index, e.Type, e.Expected, e.Actual)
}

// evaluate runs every assertion and returns the failure messages.
func (h *Harness) evaluate(ctx context.Context, assertions []Assertion, final FinalState) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertEvent:
			err = assertEvent(a, final)
		case AssertRequest:
			err = assertRequest(a, final)
		case AssertConsistent:
			if len(final.Violations) > 0 {
				err = &AssertionError{Type: a.Type, Expected: "no violations", Actual: strings.Join(final.Violations, "; ")}
			}
		case AssertJournalCount:
			err = assertJournalCount(a, final)
		case AssertJournalOrder:
			err = assertJournalOrder(a, final)
		case AssertSwappable:
			err = h.assertSwappable(ctx, a)
		default:
			err = &AssertionError{Type: a.Type, Expected: "a known assertion type", Actual: a.Type}
		}
		if err == nil {
			continue
		}
		var ae *AssertionError
		if errors.As(err, &ae) {
			ae.Index = i
		}
		failures = append(failures, err.Error())
	}
	return failures
}

func assertEvent(a Assertion, final FinalState) error {
	var found *EventView
	for i := range final.Events {
		if final.Events[i].Ref == a.Event {
			found = &final.Events[i]
			break
		}
	}
	if found == nil {
		if a.Status == "DELETED" {
			return nil
		}
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("event %s to exist", a.Event), Actual: "not found"}
	}
	if a.Status == "DELETED" {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("event %s to be deleted", a.Event), Actual: "present"}
	}
	if a.Owner != "" && found.Owner != a.Owner {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("event %s owner %s", a.Event, a.Owner), Actual: found.Owner}
	}
	if a.Status != "" && found.Status != a.Status {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("event %s status %s", a.Event, a.Status), Actual: found.Status}
	}
	if a.Version != 0 && found.Version != a.Version {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("event %s version %d", a.Event, a.Version), Actual: fmt.Sprint(found.Version)}
	}
	return nil
}

func assertRequest(a Assertion, final FinalState) error {
	for _, r := range final.Requests {
		if r.Ref != a.Request {
			continue
		}
		if r.Status != a.Status {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("request %s status %s", a.Request, a.Status), Actual: r.Status}
		}
		return nil
	}
	return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("request %s to exist", a.Request), Actual: "not found"}
}

func assertJournalCount(a Assertion, final FinalState) error {
	count := 0
	for _, j := range final.Journal {
		if j.Op == a.Op {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%d x %s", a.Count, a.Op), Actual: fmt.Sprint(count)}
	}
	return nil
}

// assertJournalOrder checks that ops appear in order. Other entries may
// appear between them.
func assertJournalOrder(a Assertion, final FinalState) error {
	next := 0
	for _, j := range final.Journal {
		if next < len(a.Ops) && j.Op == a.Ops[next] {
			next++
		}
	}
	if next < len(a.Ops) {
		ops := make([]string, len(final.Journal))
		for i, j := range final.Journal {
			ops[i] = j.Op
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: strings.Join(a.Ops, " < "),
			Actual:   strings.Join(ops, ", "),
		}
	}
	return nil
}

func (h *Harness) assertSwappable(ctx context.Context, a Assertion) error {
	events, err := h.svc.ListSwappable(ctx, a.As)
	if err != nil {
		return fmt.Errorf("list swappable for %s: %w", a.As, err)
	}
	got := make([]string, len(events))
	for i, e := range events {
		got[i] = h.refOf(e.ID)
	}
	if strings.Join(got, ",") != strings.Join(a.Slots, ",") {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("[%s] for %s", strings.Join(a.Slots, " "), a.As),
			Actual:   fmt.Sprintf("[%s]", strings.Join(got, " ")),
		}
	}
	return nil
}
