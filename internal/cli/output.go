package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/roach88/slotswap/internal/slot"
	"github.com/roach88/slotswap/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Domain error, failed scenario, invariant violation
	ExitCommandError = 2 // Command error (bad flags, database cannot be opened, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // slot error code, e.g. "CONFLICT"
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

var (
	okColor      = color.New(color.FgGreen)
	failColor    = color.New(color.FgRed, color.Bold)
	pendingColor = color.New(color.FgYellow)
	dimColor     = color.New(color.FgCyan)
)

// Success outputs a successful result in the configured format.
// In text mode, text is printed instead of data.
func (f *OutputFormatter) Success(data any, text string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	_, err := fmt.Fprint(f.Writer, text)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	failColor.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Fail reports a domain error and returns it as an ExitFailure.
// Errors without a slot code are reported as INTERNAL.
func (f *OutputFormatter) Fail(err error) error {
	var details any
	var se *slot.Error
	if errors.As(err, &se) && len(se.Metadata) > 0 {
		details = se.Metadata
	}
	code := slot.CodeOf(err)
	if printErr := f.Error(string(code), err.Error(), details); printErr != nil {
		return WrapExitError(ExitCommandError, "failed to write output", printErr)
	}
	return WrapExitError(ExitFailure, string(code), err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func statusText(s slot.Status) string {
	switch s {
	case slot.StatusSwappable:
		return okColor.Sprint(s)
	case slot.StatusSwapPending:
		return pendingColor.Sprint(s)
	default:
		return string(s)
	}
}

func requestStatusText(s slot.RequestStatus) string {
	switch s {
	case slot.RequestAccepted:
		return okColor.Sprint(s)
	case slot.RequestRejected:
		return failColor.Sprint(s)
	default:
		return pendingColor.Sprint(s)
	}
}

func eventLine(e slot.Event) string {
	return fmt.Sprintf("%s  %s  %s..%s  %s  owner=%s v%d\n",
		e.ID, e.Title, formatTime(e.StartTime), formatTime(e.EndTime), statusText(e.Status), e.OwnerID, e.Version)
}

func eventsText(events []slot.Event) string {
	if len(events) == 0 {
		return dimColor.Sprint("no events") + "\n"
	}
	var b strings.Builder
	for _, e := range events {
		b.WriteString(eventLine(e))
	}
	return b.String()
}

func requestLine(r slot.SwapRequest) string {
	return fmt.Sprintf("%s  %s:%s -> %s:%s  %s v%d\n",
		r.ID, r.RequesterID, r.RequesterSlotID, r.TargetUserID, r.TargetSlotID, requestStatusText(r.Status), r.Version)
}

func requestsText(requests []slot.RequestDetail) string {
	if len(requests) == 0 {
		return dimColor.Sprint("no requests") + "\n"
	}
	var b strings.Builder
	for _, r := range requests {
		b.WriteString(requestLine(r.SwapRequest))
		if r.RequesterSlot != nil {
			b.WriteString("  offered:   " + eventLine(*r.RequesterSlot))
		}
		if r.TargetSlot != nil {
			b.WriteString("  requested: " + eventLine(*r.TargetSlot))
		}
	}
	return b.String()
}

func journalLine(j store.JournalEntry) string {
	return fmt.Sprintf("%d  %s  %s  %s  %s\n", j.Seq, formatTime(j.RecordedAt), j.Op, j.ActorID, j.SubjectID)
}
