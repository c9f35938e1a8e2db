package imputed

import (
	"fmt"
	"math"

	dberror "imputedb/pkg/error"
	"imputedb/pkg/optimizer/statistics"
	"imputedb/pkg/plan"
	"imputedb/pkg/primitives"
)

// AggregateSpec is one aggregate, optionally grouped by one column.
type AggregateSpec struct {
	GroupBy *primitives.QualifiedName
	Op      primitives.AggregateOp
	Column  primitives.QualifiedName
}

// Attributes returns the columns the aggregate reads.
func (s AggregateSpec) Attributes() primitives.DirtySet {
	if s.GroupBy == nil {
		return primitives.NewDirtySet(s.Column)
	}
	return primitives.NewDirtySet(s.Column, *s.GroupBy)
}

func (s AggregateSpec) String() string {
	if s.GroupBy == nil {
		return fmt.Sprintf("%s(%s)", s.Op, s.Column)
	}
	return fmt.Sprintf("%s(%s) GROUP BY %s", s.Op, s.Column, *s.GroupBy)
}

// AggregateNode aggregates a candidate whose grouping and aggregated
// columns are clean. Its output carries only those columns, so nothing is
// dirty. The aggregation step itself is not priced: loss and time are those
// of the input.
type AggregateNode struct {
	sub      Node
	spec     AggregateSpec
	card     float64
	physical plan.PlanNode
}

// NewAggregate wraps sub. The columns the aggregate reads must be clean.
func NewAggregate(sub Node, spec AggregateSpec) (*AggregateNode, error) {
	attrs := spec.Attributes()
	if !attrs.Intersect(sub.DirtySet()).IsEmpty() {
		return nil, dberror.AssertionFailed(dberror.CodeInvalidArgument,
			"aggregate %s over dirty input %s", spec, sub.DirtySet())
	}

	stats := sub.TableStats()
	if stats == nil {
		return nil, dberror.InvalidArgument("cannot aggregate an aggregate")
	}
	if _, ok := stats.ColumnIndex(spec.Column); !ok {
		return nil, dberror.UnknownColumn(spec.Column.String()).At("NewAggregate", "AggregateNode")
	}

	card := 1.0
	groupBy := ""
	if spec.GroupBy != nil {
		g, ok := stats.ColumnIndex(*spec.GroupBy)
		if !ok {
			return nil, dberror.UnknownColumn(spec.GroupBy.String()).At("NewAggregate", "AggregateNode")
		}
		card = math.Min(sub.Cardinality(), stats.Histogram(g).DistinctEstimate())
		groupBy = spec.GroupBy.String()
	}

	physical := &plan.AggregateNode{
		Child:     sub.Physical(),
		GroupBy:   groupBy,
		Op:        spec.Op,
		AggColumn: spec.Column.String(),
	}
	physical.SetCost(sub.Time())
	physical.SetCardinality(card)

	return &AggregateNode{sub: sub, spec: spec, card: card, physical: physical}, nil
}

func (n *AggregateNode) Kind() Kind { return KindAggregate }
func (n *AggregateNode) DirtySet() primitives.DirtySet { return primitives.DirtySet{} }
func (n *AggregateNode) Cardinality() float64 { return n.card }
func (n *AggregateNode) TableStats() *statistics.TableStats { return nil }
func (n *AggregateNode) Penalty() Penalty { return n.sub.Penalty() }
func (n *AggregateNode) Time() float64 { return n.sub.Time() }
func (n *AggregateNode) Cost(lossWeight float64) float64 { return Cost(n, lossWeight) }
func (n *AggregateNode) Physical() plan.PlanNode { return n.physical }
func (n *AggregateNode) Children() []Node { return []Node{n.sub} }
func (n *AggregateNode) sealed() {}

// Spec returns the aggregate.
func (n *AggregateNode) Spec() AggregateSpec { return n.spec }

func (n *AggregateNode) String() string {
	return fmt.Sprintf("Aggregate(%s, rows=%.0f, loss=%.4f, time=%.2f)",
		n.spec, n.card, n.Penalty().Value(), n.Time())
}
