package imputed

import (
	"fmt"

	dberror "imputedb/pkg/error"
	"imputedb/pkg/optimizer/statistics"
	"imputedb/pkg/plan"
	"imputedb/pkg/primitives"
)

// JoinSpec is the predicate "Left Op Right" of an inner join together with
// whether each side's join column is its table's primary key.
type JoinSpec struct {
	Left     primitives.QualifiedName
	Right    primitives.QualifiedName
	Op       primitives.Predicate
	LeftKey  bool
	RightKey bool
}

// Swap exchanges the sides, mirroring ordering operators.
func (s JoinSpec) Swap() JoinSpec {
	return JoinSpec{
		Left:     s.Right,
		Right:    s.Left,
		Op:       s.Op.Flip(),
		LeftKey:  s.RightKey,
		RightKey: s.LeftKey,
	}
}

// Attributes returns both join columns.
func (s JoinSpec) Attributes() primitives.DirtySet {
	return primitives.NewDirtySet(s.Left, s.Right)
}

func (s JoinSpec) String() string {
	return fmt.Sprintf("%s %s %s", s.Left, s.Op, s.Right)
}

// JoinNode is an inner join of two candidates.
type JoinNode struct {
	left, right Node
	spec        JoinSpec
	est         Estimator
	dirty       primitives.DirtySet
	stats       *statistics.TableStats
	penalty     Penalty
	time        float64
	physical    plan.PlanNode
}

// NewJoin joins left and right. Both join attributes must already be clean
// on both sides; a dirty join attribute is a planner bug.
func NewJoin(left, right Node, spec JoinSpec, est Estimator) (*JoinNode, error) {
	attrs := spec.Attributes()
	if !attrs.Intersect(left.DirtySet()).IsEmpty() || !attrs.Intersect(right.DirtySet()).IsEmpty() {
		return nil, dberror.AssertionFailed(dberror.CodeDirtyJoinAttribute,
			"join %s over dirty inputs %s and %s", spec, left.DirtySet(), right.DirtySet())
	}

	ls, rs := left.TableStats(), right.TableStats()
	if ls == nil || rs == nil {
		return nil, dberror.InvalidArgument("cannot join over an aggregate")
	}
	if _, ok := ls.ColumnIndex(spec.Left); !ok {
		return nil, dberror.UnknownColumn(spec.Left.String()).At("NewJoin", "JoinNode")
	}
	if _, ok := rs.ColumnIndex(spec.Right); !ok {
		return nil, dberror.UnknownColumn(spec.Right.String()).At("NewJoin", "JoinNode")
	}

	cm := est.Costs
	lc, rc := left.Cardinality(), right.Cardinality()
	card := cm.JoinCardinality(spec.Op, lc, rc, spec.LeftKey, spec.RightKey)
	time := cm.JoinCost(spec.Op, left.Time(), right.Time(), lc, rc)

	physical := plan.NewJoinNode(left.Physical(), right.Physical(), spec.Left.String(), spec.Right.String(), spec.Op)
	physical.SetCost(time)
	physical.SetCardinality(card)

	return &JoinNode{
		left:     left,
		right:    right,
		spec:     spec,
		est:      est,
		dirty:    left.DirtySet().Union(right.DirtySet()),
		stats:    ls.AdjustToTotal(card).Merge(rs.AdjustToTotal(card)),
		penalty:  left.Penalty().Combine(right.Penalty()),
		time:     time,
		physical: physical,
	}, nil
}

// Swap builds the same join with inner and outer exchanged.
func (n *JoinNode) Swap() (*JoinNode, error) {
	return NewJoin(n.right, n.left, n.spec.Swap(), n.est)
}

func (n *JoinNode) Kind() Kind { return KindJoin }
func (n *JoinNode) DirtySet() primitives.DirtySet { return n.dirty }
func (n *JoinNode) Cardinality() float64 { return n.stats.TotalTuples() }
func (n *JoinNode) TableStats() *statistics.TableStats { return n.stats }
func (n *JoinNode) Penalty() Penalty { return n.penalty }
func (n *JoinNode) Time() float64 { return n.time }
func (n *JoinNode) Cost(lossWeight float64) float64 { return Cost(n, lossWeight) }
func (n *JoinNode) Physical() plan.PlanNode { return n.physical }
func (n *JoinNode) Children() []Node { return []Node{n.left, n.right} }
func (n *JoinNode) sealed() {}

// Spec returns the join predicate.
func (n *JoinNode) Spec() JoinSpec { return n.spec }

func (n *JoinNode) String() string {
	return fmt.Sprintf("Join(%s, rows=%.0f, dirty=%s, loss=%.4f, time=%.2f)",
		n.spec, n.Cardinality(), n.dirty, n.penalty.Value(), n.time)
}
