package error

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrorCategory classifies errors by who is expected to act on them.
type ErrorCategory int

const (
	// ErrCategoryUser represents errors caused by the query handed to the planner.
	// Examples: unknown table alias, unknown column, malformed loss weight.
	ErrCategoryUser ErrorCategory = iota

	// ErrCategoryInternal represents broken planner invariants.
	// Examples: a join attribute still dirty at join construction, no plan covering all tables.
	// These indicate a bug and are never retried.
	ErrCategoryInternal

	// ErrCategoryUnsupported represents operations the estimators do not model.
	// Example: LIKE against a numeric histogram.
	ErrCategoryUnsupported

	// ErrCategorySystem represents errors from the environment the planner runs in.
	// Examples: missing statistics, unreadable configuration file.
	ErrCategorySystem
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryUser:
		return "user"
	case ErrCategoryInternal:
		return "internal"
	case ErrCategoryUnsupported:
		return "unsupported"
	case ErrCategorySystem:
		return "system"
	default:
		return "unknown"
	}
}

// DBError represents a structured planning error with rich context information.
type DBError struct {
	// Code is a unique identifier for this error type (e.g., "UNKNOWN_COLUMN", "DIRTY_JOIN_ATTRIBUTE").
	Code string

	// Category classifies the error for appropriate handling strategy.
	Category ErrorCategory

	// Message is a human-readable description of what went wrong.
	Message string

	// Detail provides additional context about the specific error instance.
	// Example: "alias 'o' is not part of the query" where Message might be "unknown table".
	Detail string

	// Hint suggests how the caller might fix or work around this error.
	Hint string

	// Operation identifies the planning step that was running.
	// Examples: "GenerateAccessCandidates", "NewJoin", "Optimize".
	Operation string

	// Component identifies where the error originated.
	// Examples: "Histogram", "PlanCache", "ImputeOptimizer".
	Component string

	// Cause is the underlying error. Causes created with cockroachdb/errors
	// carry the stack trace of their origin.
	Cause error
}

// New creates a new DBError with the specified code, category, and message.
// A cause carrying the current stack is attached so FormatStack has a trace.
func New(category ErrorCategory, code, message string) *DBError {
	return &DBError{
		Code:     code,
		Category: category,
		Message:  message,
		Cause:    errors.WithStackDepth(errors.Newf("%s", code), 1),
	}
}

// Newf is New with a formatted message.
func Newf(category ErrorCategory, code, format string, args ...interface{}) *DBError {
	return &DBError{
		Code:     code,
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Cause:    errors.WithStackDepth(errors.Newf("%s", code), 1),
	}
}

// Wrap wraps an existing error with planner-specific context information.
// If the error is already a DBError, it enriches the existing error with
// operation and component context (only if not already set).
func Wrap(err error, code, operation, component string) *DBError {
	if err == nil {
		return nil
	}

	var dbErr *DBError
	if errors.As(err, &dbErr) {
		if dbErr.Operation == "" {
			dbErr.Operation = operation
		}
		if dbErr.Component == "" {
			dbErr.Component = component
		}
		return dbErr
	}

	return &DBError{
		Code:      code,
		Category:  ErrCategorySystem,
		Message:   err.Error(),
		Operation: operation,
		Component: component,
		Cause:     errors.WithStack(err),
	}
}

// WithDetail sets Detail and returns the receiver for chaining.
func (e *DBError) WithDetail(format string, args ...interface{}) *DBError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithHint sets Hint and returns the receiver for chaining.
func (e *DBError) WithHint(hint string) *DBError {
	e.Hint = hint
	return e
}

// At sets the operation and component and returns the receiver for chaining.
func (e *DBError) At(operation, component string) *DBError {
	e.Operation = operation
	e.Component = component
	return e
}

// Error implements the standard Go error interface
//
// The format follows the pattern:
// [ERROR_CODE] Message: Detail (operation: Operation, component: Component) caused by: underlying error
func (e *DBError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Detail != "" {
		b.WriteString(fmt.Sprintf(": %s", e.Detail))
	}

	if e.Operation != "" {
		b.WriteString(fmt.Sprintf(" (operation: %s", e.Operation))
		if e.Component != "" {
			b.WriteString(fmt.Sprintf(", component: %s", e.Component))
		}
		b.WriteString(")")
	}

	if e.Cause != nil && !e.ownCause() {
		b.WriteString(fmt.Sprintf(" caused by: %v", e.Cause))
	}

	return b.String()
}

// ownCause reports whether Cause is only the stack carrier made by New.
func (e *DBError) ownCause() bool {
	return e.Cause.Error() == e.Code
}

// Unwrap returns the underlying cause error, enabling error chain traversal
// with errors.Is and errors.As.
func (e *DBError) Unwrap() error {
	return e.Cause
}

// FormatStack returns a human-readable stack trace for debugging purposes.
func (e *DBError) FormatStack() string {
	if e.Cause == nil {
		return ""
	}
	return fmt.Sprintf("Stack trace:\n%+v", e.Cause)
}
