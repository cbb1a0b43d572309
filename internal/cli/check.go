package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Audit stored slots and requests for consistency",
		Long: `Audit the database against the swap invariants.

Every SWAP_PENDING slot must be named by exactly one PENDING request, and
every PENDING request must hold both of its slots in SWAP_PENDING.

Exit codes:
  0 - No violations
  1 - One or more violations
  2 - Command error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, cmd)
		},
	}
}

func runCheck(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	svc, _, closeFn, err := opts.openService()
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := svc.Audit(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "audit failed", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d events, %d requests, %d pending\n", report.Events, report.Requests, report.Pending)
	if report.OK() {
		b.WriteString(okColor.Sprint("✓ consistent") + "\n")
	}
	for _, v := range report.Violations {
		b.WriteString(failColor.Sprint("✗ ") + v.String() + "\n")
	}
	if err := f.Success(report, b.String()); err != nil {
		return err
	}

	if !report.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invariant violations", len(report.Violations)))
	}
	return nil
}
