package imputed

import (
	"fmt"

	dberror "imputedb/pkg/error"
	"imputedb/pkg/optimizer/statistics"
	"imputedb/pkg/plan"
	"imputedb/pkg/primitives"
)

// ComposeNode repairs attributes of an existing candidate under one policy.
type ComposeNode struct {
	sub      Node
	policy   primitives.ImputationPolicy
	repaired primitives.DirtySet
	dirty    primitives.DirtySet
	stats    *statistics.TableStats
	penalty  Penalty
	time     float64
	physical plan.PlanNode
}

// NewCompose applies policy to sub so that required is clean afterwards.
// DROP and MINIMAL repair the required attributes that are dirty in sub;
// MAXIMAL repairs everything dirty in sub. NONE only checks that required
// is already clean and adds nothing.
//
// ErrInfeasibleImputation is returned for NONE over dirty required
// attributes and for repairs that would not change the dirty set.
func NewCompose(sub Node, policy primitives.ImputationPolicy, required primitives.DirtySet, est Estimator) (*ComposeNode, error) {
	stats := sub.TableStats()
	if stats == nil {
		return nil, dberror.InvalidArgument("cannot impute over a %s node", sub.Kind())
	}

	need := required.Intersect(sub.DirtySet())
	n := &ComposeNode{
		sub:      sub,
		policy:   policy,
		dirty:    sub.DirtySet(),
		stats:    stats,
		penalty:  sub.Penalty(),
		time:     sub.Time(),
		physical: sub.Physical(),
	}

	switch policy {
	case primitives.ImputeNone:
		if !need.IsEmpty() {
			return nil, ErrInfeasibleImputation
		}
		return n, nil
	case primitives.ImputeDrop, primitives.ImputeMinimal:
	case primitives.ImputeMaximal:
		need = sub.DirtySet()
	default:
		return nil, dberror.InvalidArgument("unknown imputation policy %d", int(policy))
	}
	if need.IsEmpty() {
		return nil, ErrInfeasibleImputation
	}

	cols, err := stats.ColumnIndexes(need)
	if err != nil {
		return nil, err
	}

	model := est.model()
	var loss, time float64
	if policy == primitives.ImputeDrop {
		loss = stats.EstimateTotalNull(cols)
	} else {
		loss = model.Loss(stats, cols, est.Costs)
		time = model.Time(stats, cols, est.Costs)
	}

	adjusted, err := stats.AdjustForImpute(policy, cols)
	if err != nil {
		return nil, err
	}

	n.repaired = need
	n.dirty = n.dirty.Difference(need)
	n.stats = adjusted
	n.penalty = n.penalty.Add(loss)
	n.time += time
	n.physical = repairPhysical(sub.Physical(), policy, need, stats, cols, model)
	n.physical.SetCost(n.time)
	n.physical.SetCardinality(adjusted.TotalTuples())
	return n, nil
}

func (n *ComposeNode) Kind() Kind { return KindCompose }
func (n *ComposeNode) DirtySet() primitives.DirtySet { return n.dirty }
func (n *ComposeNode) Cardinality() float64 { return n.stats.TotalTuples() }
func (n *ComposeNode) TableStats() *statistics.TableStats { return n.stats }
func (n *ComposeNode) Penalty() Penalty { return n.penalty }
func (n *ComposeNode) Time() float64 { return n.time }
func (n *ComposeNode) Cost(lossWeight float64) float64 { return Cost(n, lossWeight) }
func (n *ComposeNode) Physical() plan.PlanNode { return n.physical }
func (n *ComposeNode) Children() []Node { return []Node{n.sub} }
func (n *ComposeNode) sealed() {}

// Policy returns the applied policy.
func (n *ComposeNode) Policy() primitives.ImputationPolicy { return n.policy }

// Repaired returns the attributes this node dropped or imputed.
func (n *ComposeNode) Repaired() primitives.DirtySet { return n.repaired }

func (n *ComposeNode) String() string {
	return fmt.Sprintf("Impute(%s %s, dirty=%s, loss=%.4f, time=%.2f)",
		n.policy, n.repaired, n.dirty, n.penalty.Value(), n.time)
}
