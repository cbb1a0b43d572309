package cli

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/slotswap/internal/calendar"
	"github.com/roach88/slotswap/internal/slot"
)

// EventOptions holds flags shared by the event subcommands.
type EventOptions struct {
	*RootOptions
	As     string
	Title  string
	Start  string
	End    string
	Status string
	Out    string
	Name   string
}

// NewEventCommand creates the event command group.
func NewEventCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "event",
		Short: "Manage your calendar slots",
		Long: `Create, edit, delete, list and export the calendar slots of one user.

Times are RFC 3339 timestamps. Status is BUSY or SWAPPABLE; SWAP_PENDING is
set only by swap requests.

Examples:
  slotswap event create --as alice --title "Standup" --start 2025-03-10T09:00:00Z --end 2025-03-10T10:00:00Z
  slotswap event update <id> --as alice --status SWAPPABLE
  slotswap event export --as alice --out alice.ics`,
	}
	cmd.PersistentFlags().StringVar(&opts.As, "as", "", "acting user id")

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return createEvent(opts, cmd)
		},
	}
	create.Flags().StringVar(&opts.Title, "title", "", "slot title")
	create.Flags().StringVar(&opts.Start, "start", "", "start time (RFC 3339)")
	create.Flags().StringVar(&opts.End, "end", "", "end time (RFC 3339)")
	create.Flags().StringVar(&opts.Status, "status", "", "initial status (BUSY|SWAPPABLE, default BUSY)")

	update := &cobra.Command{
		Use:   "update <event-id>",
		Short: "Edit a slot you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateEvent(opts, args[0], cmd)
		},
	}
	update.Flags().StringVar(&opts.Title, "title", "", "new title")
	update.Flags().StringVar(&opts.Start, "start", "", "new start time (RFC 3339)")
	update.Flags().StringVar(&opts.End, "end", "", "new end time (RFC 3339)")
	update.Flags().StringVar(&opts.Status, "status", "", "new status (BUSY|SWAPPABLE)")

	del := &cobra.Command{
		Use:   "delete <event-id>",
		Short: "Delete a slot you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteEvent(opts, args[0], cmd)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List your slots by start time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listEvents(opts, cmd)
		},
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Export your slots as iCalendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportEvents(opts, cmd)
		},
	}
	export.Flags().StringVarP(&opts.Out, "out", "o", "", "output file (default stdout)")
	export.Flags().StringVar(&opts.Name, "name", "", "calendar name")

	cmd.AddCommand(create, update, del, list, export)
	return cmd
}

func parseTimeFlag(name, raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, slot.Wrap(slot.CodeInvalidOperation, fmt.Sprintf("invalid --%s %q", name, raw), err)
	}
	return t, nil
}

func createEvent(opts *EventOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	in := slot.NewEvent{Title: opts.Title}
	var err error
	if in.StartTime, err = parseTimeFlag("start", opts.Start); err != nil {
		return f.Fail(err)
	}
	if in.EndTime, err = parseTimeFlag("end", opts.End); err != nil {
		return f.Fail(err)
	}
	if opts.Status != "" {
		if in.Status, err = slot.ParseOwnerStatus(opts.Status); err != nil {
			return f.Fail(err)
		}
	}

	svc, _, closeFn, err := opts.openService()
	if err != nil {
		return err
	}
	defer closeFn()

	e, err := svc.CreateEvent(cmd.Context(), opts.As, in)
	if err != nil {
		return f.Fail(err)
	}
	return f.Success(e, eventLine(e))
}

func updateEvent(opts *EventOptions, eventID string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	flags := cmd.Flags()

	var p slot.EventPatch
	if flags.Changed("title") {
		p.Title = &opts.Title
	}
	if flags.Changed("start") {
		t, err := parseTimeFlag("start", opts.Start)
		if err != nil {
			return f.Fail(err)
		}
		p.StartTime = &t
	}
	if flags.Changed("end") {
		t, err := parseTimeFlag("end", opts.End)
		if err != nil {
			return f.Fail(err)
		}
		p.EndTime = &t
	}
	if flags.Changed("status") {
		s, err := slot.ParseOwnerStatus(opts.Status)
		if err != nil {
			return f.Fail(err)
		}
		p.Status = &s
	}

	svc, _, closeFn, err := opts.openService()
	if err != nil {
		return err
	}
	defer closeFn()

	e, err := svc.UpdateEvent(cmd.Context(), opts.As, eventID, p)
	if err != nil {
		return f.Fail(err)
	}
	return f.Success(e, eventLine(e))
}

func deleteEvent(opts *EventOptions, eventID string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	svc, _, closeFn, err := opts.openService()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := svc.DeleteEvent(cmd.Context(), opts.As, eventID); err != nil {
		return f.Fail(err)
	}
	return f.Success(map[string]string{"message": "Event deleted successfully"}, fmt.Sprintf("deleted %s\n", eventID))
}

func listEvents(opts *EventOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	svc, _, closeFn, err := opts.openService()
	if err != nil {
		return err
	}
	defer closeFn()

	events, err := svc.ListMyEvents(cmd.Context(), opts.As)
	if err != nil {
		return f.Fail(err)
	}
	return f.Success(events, eventsText(events))
}

func exportEvents(opts *EventOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	svc, _, closeFn, err := opts.openService()
	if err != nil {
		return err
	}
	defer closeFn()

	events, err := svc.ListMyEvents(cmd.Context(), opts.As)
	if err != nil {
		return f.Fail(err)
	}

	var buf bytes.Buffer
	if err := calendar.Write(&buf, opts.Name, events, opts.clock().Now()); err != nil {
		return WrapExitError(ExitFailure, "failed to export calendar", err)
	}

	if opts.Out == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(opts.Out, buf.Bytes(), 0644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write calendar file", err)
	}
	f.VerboseLog("exported %d events to %s", len(events), opts.Out)
	return f.Success(map[string]any{"path": opts.Out, "events": len(events)},
		fmt.Sprintf("exported %d events to %s\n", len(events), opts.Out))
}
