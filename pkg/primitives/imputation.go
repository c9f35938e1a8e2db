package primitives

import (
	"strings"

	dberror "imputedb/pkg/error"
)

// ImputationPolicy selects how a plan repairs missing values before an
// operator that needs them.
type ImputationPolicy int

const (
	// ImputeNone requires the needed attributes to already be clean.
	ImputeNone ImputationPolicy = iota
	// ImputeDrop removes rows missing any required attribute.
	ImputeDrop
	// ImputeMinimal fills in only the required attributes.
	ImputeMinimal
	// ImputeMaximal fills in every dirty attribute.
	ImputeMaximal
)

// AllImputationPolicies lists the policies in the order candidates are tried.
var AllImputationPolicies = []ImputationPolicy{ImputeNone, ImputeDrop, ImputeMinimal, ImputeMaximal}

func (p ImputationPolicy) String() string {
	switch p {
	case ImputeNone:
		return "NONE"
	case ImputeDrop:
		return "DROP"
	case ImputeMinimal:
		return "MINIMAL"
	case ImputeMaximal:
		return "MAXIMAL"
	default:
		return "UNKNOWN"
	}
}

// Imputes reports whether the policy synthesizes values.
func (p ImputationPolicy) Imputes() bool {
	return p == ImputeMinimal || p == ImputeMaximal
}

// AggregateOp is an aggregate function applied to one column.
type AggregateOp int

const (
	AggCount AggregateOp = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

func (a AggregateOp) String() string {
	switch a {
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	default:
		return "UNKNOWN"
	}
}

// ParseAggregateOp converts an aggregate function name, case-insensitively.
func ParseAggregateOp(s string) (AggregateOp, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "COUNT":
		return AggCount, nil
	case "SUM":
		return AggSum, nil
	case "AVG":
		return AggAvg, nil
	case "MIN":
		return AggMin, nil
	case "MAX":
		return AggMax, nil
	default:
		return 0, dberror.Newf(dberror.ErrCategoryUser, dberror.CodeInvalidArgument, "unknown aggregate %q", s)
	}
}
