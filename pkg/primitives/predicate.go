package primitives

import (
	"strings"

	dberror "imputedb/pkg/error"
)

// Predicate is a comparison operator used by filter and join predicates.
type Predicate int

const (
	Equals Predicate = iota
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
	NotEqual
	Like
)

func (p Predicate) String() string {
	switch p {
	case Equals:
		return "="

	case LessThan:
		return "<"

	case GreaterThan:
		return ">"

	case LessThanOrEqual:
		return "<="

	case GreaterThanOrEqual:
		return ">="

	case NotEqual:
		return "!="

	case Like:
		return "LIKE"

	default:
		return "UNKNOWN"
	}
}

// Flip returns the operator that holds when the operands are exchanged.
// Ordering comparisons are mirrored; symmetric operators are returned unchanged.
func (p Predicate) Flip() Predicate {
	switch p {
	case GreaterThan:
		return LessThan
	case LessThan:
		return GreaterThan
	case GreaterThanOrEqual:
		return LessThanOrEqual
	case LessThanOrEqual:
		return GreaterThanOrEqual
	default:
		return p
	}
}

// IsOrdering reports whether the operator compares by order rather than identity.
func (p Predicate) IsOrdering() bool {
	switch p {
	case LessThan, GreaterThan, LessThanOrEqual, GreaterThanOrEqual:
		return true
	default:
		return false
	}
}

// IsEquality reports whether rows are matched on identical values (= and LIKE).
func (p Predicate) IsEquality() bool {
	return p == Equals || p == Like
}

// ParsePredicate converts the textual form of an operator. Both "!=" and "<>"
// are accepted for inequality.
func ParsePredicate(s string) (Predicate, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "=", "==":
		return Equals, nil
	case "<":
		return LessThan, nil
	case ">":
		return GreaterThan, nil
	case "<=":
		return LessThanOrEqual, nil
	case ">=":
		return GreaterThanOrEqual, nil
	case "!=", "<>":
		return NotEqual, nil
	case "LIKE":
		return Like, nil
	default:
		return 0, dberror.Newf(dberror.ErrCategoryUser, dberror.CodeInvalidArgument, "unknown predicate %q", s)
	}
}
