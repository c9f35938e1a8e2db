package plan

import (
	"fmt"

	"imputedb/pkg/primitives"
)

// PlanNode is a node of the executable plan handed to the execution layer.
// The optimizer builds these as opaque descriptors; subtrees are shared
// between candidate plans and must not be modified once attached.
type PlanNode interface {
	// GetCost returns the estimated total time of executing this node and its children
	GetCost() float64

	// GetCardinality returns the estimated number of rows this node will produce
	GetCardinality() float64

	// GetChildren returns the child plan nodes
	GetChildren() []PlanNode

	// GetNodeType returns the type of this node (for debugging/visualization)
	GetNodeType() string

	// String returns a human-readable representation of the plan
	String() string

	// SetCost sets the estimated cost (used by optimizer)
	SetCost(cost float64)

	// SetCardinality sets the estimated cardinality (used by optimizer)
	SetCardinality(card float64)
}

// BasePlanNode provides common functionality for all plan nodes
type BasePlanNode struct {
	Cost        float64
	Cardinality float64
}

func (b *BasePlanNode) GetCost() float64 {
	return b.Cost
}

func (b *BasePlanNode) GetCardinality() float64 {
	return b.Cardinality
}

func (b *BasePlanNode) SetCost(cost float64) {
	b.Cost = cost
}

func (b *BasePlanNode) SetCardinality(card float64) {
	b.Cardinality = card
}

// PredicateInfo represents a filter predicate: column op constant, or a
// comparison against NULL.
type PredicateInfo struct {
	Column    string               // Qualified column name being filtered
	Predicate primitives.Predicate // Predicate operator (=, <, >, LIKE, etc.)
	Value     int64                // Constant operand
	IsNull    bool                 // Compare against NULL instead of Value
}

func (p PredicateInfo) String() string {
	if p.IsNull {
		if p.Predicate == primitives.Equals {
			return fmt.Sprintf("%s IS NULL", p.Column)
		}
		return fmt.Sprintf("%s IS NOT NULL", p.Column)
	}
	return fmt.Sprintf("%s %s %d", p.Column, p.Predicate, p.Value)
}

// JoinMethod is the physical join algorithm.
type JoinMethod int

const (
	HashJoin JoinMethod = iota
	NestedLoopJoin
)

func (m JoinMethod) String() string {
	switch m {
	case HashJoin:
		return "hash"
	case NestedLoopJoin:
		return "nested loop"
	default:
		return "unknown"
	}
}

// JoinMethodFor picks the algorithm the cost model assumes for op.
func JoinMethodFor(op primitives.Predicate) JoinMethod {
	if op.IsEquality() {
		return HashJoin
	}
	return NestedLoopJoin
}
