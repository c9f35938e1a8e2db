package error

import (
	"github.com/cockroachdb/errors"
)

const (
	CodeUnknownTable        = "UNKNOWN_TABLE"
	CodeUnknownColumn       = "UNKNOWN_COLUMN"
	CodeMissingStatistics   = "MISSING_STATISTICS"
	CodeDirtyJoinAttribute  = "DIRTY_JOIN_ATTRIBUTE"
	CodeNoCoveringPlan      = "NO_COVERING_PLAN"
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodeUnsupportedOperator = "UNSUPPORTED_OPERATOR"
	CodeInvalidConfig       = "INVALID_CONFIG"
	CodeCancelled           = "CANCELLED"
)

// UnknownTable reports an alias or table the query or catalog does not know.
func UnknownTable(name string) *DBError {
	return New(ErrCategoryUser, CodeUnknownTable, "unknown table").
		WithDetail("%q", name)
}

// UnknownColumn reports an attribute that no statistics schema contains.
func UnknownColumn(name string) *DBError {
	return New(ErrCategoryUser, CodeUnknownColumn, "unknown column").
		WithDetail("%q", name)
}

// MissingStatistics reports a table the statistics provider has nothing for.
func MissingStatistics(table string) *DBError {
	return New(ErrCategorySystem, CodeMissingStatistics, "no statistics for table").
		WithDetail("%q", table).
		WithHint("collect statistics for every table before planning")
}

// Unsupported reports an estimator that cannot handle the operator.
func Unsupported(format string, args ...interface{}) *DBError {
	return Newf(ErrCategoryUnsupported, CodeUnsupportedOperator, format, args...)
}

// InvalidArgument reports a call that breaks a planner precondition.
func InvalidArgument(format string, args ...interface{}) *DBError {
	return Newf(ErrCategoryInternal, CodeInvalidArgument, format, args...)
}

// AssertionFailed reports a broken planner invariant under the given code.
func AssertionFailed(code, format string, args ...interface{}) *DBError {
	return &DBError{
		Code:     code,
		Category: ErrCategoryInternal,
		Message:  "planner invariant violated",
		Cause:    errors.AssertionFailedWithDepthf(1, format, args...),
	}
}

// HasCode reports whether err wraps a DBError with the given code.
func HasCode(err error, code string) bool {
	var dbErr *DBError
	return errors.As(err, &dbErr) && dbErr.Code == code
}

// CategoryOf returns the category of the first DBError in the chain.
func CategoryOf(err error) (ErrorCategory, bool) {
	var dbErr *DBError
	if !errors.As(err, &dbErr) {
		return 0, false
	}
	return dbErr.Category, true
}

// IsUserError reports whether err was caused by the planned query.
func IsUserError(err error) bool {
	c, ok := CategoryOf(err)
	return ok && c == ErrCategoryUser
}

// IsInternal reports whether err signals a planner bug.
func IsInternal(err error) bool {
	c, ok := CategoryOf(err)
	return (ok && c == ErrCategoryInternal) || errors.HasAssertionFailure(err)
}
