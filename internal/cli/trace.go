package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/slotswap/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	After   int64
	Limit   int
	Subject string // optional - filter to one event or request id
	Op      string // optional - filter to one operation
}

// TraceResult holds the trace output.
type TraceResult struct {
	Entries []store.JournalEntry `json:"entries"`
	Stats   TraceStats           `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Total   int            `json:"total"`
	ByOp    map[string]int `json:"by_op"`
	LastSeq int64          `json:"last_seq"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the operation journal",
		Long: `Print committed operations in commit order.

Every successful create, update, delete, request and response appends one
journal entry in the same transaction as its state change.

Examples:
  slotswap trace --db ./slotswap.db
  slotswap trace --subject <request-id>
  slotswap trace --op swap.accepted --format json
  slotswap trace --after 120 --limit 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.After, "after", 0, "only entries with seq greater than this")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum entries to read (0 = all)")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "filter to an event or request id")
	cmd.Flags().StringVar(&opts.Op, "op", "", "filter to an operation, e.g. swap.accepted")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	svc, _, closeFn, err := opts.openService()
	if err != nil {
		return err
	}
	defer closeFn()

	entries, err := svc.Journal(cmd.Context(), opts.After, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := TraceResult{
		Entries: []store.JournalEntry{},
		Stats:   TraceStats{ByOp: map[string]int{}},
	}
	for _, j := range entries {
		if opts.Subject != "" && j.SubjectID != opts.Subject {
			continue
		}
		if opts.Op != "" && j.Op != opts.Op {
			continue
		}
		result.Entries = append(result.Entries, j)
		result.Stats.ByOp[j.Op]++
		result.Stats.LastSeq = j.Seq
	}
	result.Stats.Total = len(result.Entries)

	return f.Success(result, traceText(result))
}

func traceText(result TraceResult) string {
	var b strings.Builder
	if len(result.Entries) == 0 {
		b.WriteString(dimColor.Sprint("no journal entries") + "\n")
		return b.String()
	}
	for _, j := range result.Entries {
		b.WriteString(journalLine(j))
	}

	ops := make([]string, 0, len(result.Stats.ByOp))
	for op := range result.Stats.ByOp {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = fmt.Sprintf("%s=%d", op, result.Stats.ByOp[op])
	}
	fmt.Fprintf(&b, "%d entries (%s)\n", result.Stats.Total, strings.Join(parts, " "))
	return b.String()
}
