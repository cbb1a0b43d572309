package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Format renders the deterministic part of a result: the step trace and
// the final state. Errors are not included.
func Format(r *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario %s\n", r.Scenario)

	for _, s := range r.Steps {
		fmt.Fprintf(&b, "step %d %s %s", s.Seq, s.As, s.Op)
		for _, arg := range s.Args {
			if arg != "" {
				b.WriteString(" " + arg)
			}
		}
		fmt.Fprintf(&b, " => %s\n", s.Outcome)
		if s.Event != nil {
			b.WriteString("  " + formatEvent(*s.Event) + "\n")
		}
		if s.Request != nil {
			b.WriteString("  " + formatRequest(*s.Request) + "\n")
		}
		if s.Notice != "" {
			fmt.Fprintf(&b, "  notice %s\n", s.Notice)
		}
	}

	b.WriteString("final\n")
	for _, e := range r.Final.Events {
		b.WriteString("  " + formatEvent(e) + "\n")
	}
	for _, req := range r.Final.Requests {
		b.WriteString("  " + formatRequest(req) + "\n")
	}
	for _, j := range r.Final.Journal {
		fmt.Fprintf(&b, "  journal %d %s %s %s\n", j.Seq, j.Op, j.Actor, j.Subject)
	}
	if len(r.Final.Violations) == 0 {
		b.WriteString("violations none\n")
	}
	for _, v := range r.Final.Violations {
		fmt.Fprintf(&b, "violation %s\n", v)
	}
	return []byte(b.String())
}

func formatEvent(e EventView) string {
	return fmt.Sprintf("event %s %s owner=%s status=%s version=%d", orDash(e.Ref), e.ID, e.Owner, e.Status, e.Version)
}

func formatRequest(r RequestView) string {
	return fmt.Sprintf("request %s %s %s:%s -> %s:%s status=%s version=%d",
		orDash(r.Ref), r.ID, r.Requester, r.OfferedRef, r.Target, r.RequestedRef, r.Status, r.Version)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// RunWithGolden executes a scenario and compares its formatted trace with
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		t.Fatalf("run %s: %v", scenario.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Format(result))
	return result
}
