package plan

import (
	"fmt"
	"strings"

	"imputedb/pkg/primitives"
)

// JoinNode represents an inner join of two relations on one predicate
type JoinNode struct {
	BasePlanNode
	LeftChild   PlanNode             // Outer input relation
	RightChild  PlanNode             // Inner input relation
	Method      JoinMethod           // Physical algorithm
	LeftColumn  string               // Qualified join column of the outer input
	RightColumn string               // Qualified join column of the inner input
	Predicate   primitives.Predicate // Join predicate operator
}

// NewJoinNode joins left and right on "leftColumn op rightColumn".
func NewJoinNode(left, right PlanNode, leftColumn, rightColumn string, op primitives.Predicate) *JoinNode {
	return &JoinNode{
		LeftChild:   left,
		RightChild:  right,
		Method:      JoinMethodFor(op),
		LeftColumn:  leftColumn,
		RightColumn: rightColumn,
		Predicate:   op,
	}
}

func (j *JoinNode) GetNodeType() string {
	return "Join"
}

func (j *JoinNode) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Join(%s, on=%s %s %s, cost=%.2f, rows=%.0f)\n",
		j.Method, j.LeftColumn, j.Predicate, j.RightColumn, j.Cost, j.Cardinality))
	sb.WriteString(indent(j.LeftChild.String(), 2))
	sb.WriteString("\n")
	sb.WriteString(indent(j.RightChild.String(), 2))
	return sb.String()
}

func (j *JoinNode) GetChildren() []PlanNode {
	return []PlanNode{j.LeftChild, j.RightChild}
}
