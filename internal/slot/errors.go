package slot

import (
	"errors"
	"fmt"
)

// Code is a machine-readable failure category.
type Code string

const (
	// CodeNotFound indicates a referenced Event or SwapRequest is absent.
	CodeNotFound Code = "NOT_FOUND"

	// CodeForbidden indicates the caller lacks ownership of the target record.
	CodeForbidden Code = "FORBIDDEN"

	// CodeInvalidOperation indicates a request that can never succeed as stated
	// (self-swap, wrong status, missing field).
	CodeInvalidOperation Code = "INVALID_OPERATION"

	// CodeInvalidRange indicates endTime is not strictly after startTime.
	CodeInvalidRange Code = "INVALID_RANGE"

	// CodeConflict indicates a precondition was invalidated by a concurrent
	// state change. The only retryable code.
	CodeConflict Code = "CONFLICT"

	// CodeUnauthenticated indicates the identity collaborator rejected the caller.
	CodeUnauthenticated Code = "UNAUTHENTICATED"

	// CodeInternal indicates a storage or infrastructure failure.
	CodeInternal Code = "INTERNAL"
)

// Sentinels for errors.Is matching. Error.Is compares codes only.
var (
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "not found"}
	ErrForbidden        = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrInvalidOperation = &Error{Code: CodeInvalidOperation, Message: "invalid operation"}
	ErrInvalidRange     = &Error{Code: CodeInvalidRange, Message: "end time must be after start time"}
	ErrConflict         = &Error{Code: CodeConflict, Message: "conflict"}
	ErrUnauthenticated  = &Error{Code: CodeUnauthenticated, Message: "unauthenticated"}
	ErrInternal         = &Error{Code: CodeInternal, Message: "internal error"}
)

// Error is the domain error type.
type Error struct {
	Code     Code              // Machine-readable category
	Message  string            // Human-readable detail
	Metadata map[string]string // Record ids and similar context
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Retryable reports whether resubmitting the same request may succeed.
func (e *Error) Retryable() bool {
	return e.Code == CodeConflict
}

// Errorf creates a domain error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithMetadata creates a domain error carrying record context.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain.
// Returns CodeInternal for foreign errors and "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsRetryable reports whether err is a Conflict.
func IsRetryable(err error) bool {
	return CodeOf(err) == CodeConflict
}
