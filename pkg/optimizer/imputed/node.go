package imputed

import (
	costmodel "imputedb/pkg/optimizer/cost_model"
	"imputedb/pkg/optimizer/statistics"
	"imputedb/pkg/plan"
	"imputedb/pkg/primitives"

	"github.com/cockroachdb/errors"
)

// ErrInfeasibleImputation is returned when a policy cannot apply: NONE over
// dirty required attributes, or a repair that would change nothing. Callers
// generating candidates skip it.
var ErrInfeasibleImputation = errors.New("infeasible imputation")

// Kind identifies the variant of a Node.
type Kind int

const (
	KindScan Kind = iota
	KindCompose
	KindJoin
	KindAggregate
)

func (k Kind) String() string {
	switch k {
	case KindScan:
		return "scan"
	case KindCompose:
		return "impute"
	case KindJoin:
		return "join"
	case KindAggregate:
		return "aggregate"
	default:
		return "unknown"
	}
}

// Node is a candidate plan. The set of implementations is closed: ScanNode,
// ComposeNode, JoinNode and AggregateNode. Nodes are immutable and may be
// shared as children of several candidates.
type Node interface {
	Kind() Kind

	// DirtySet is the set of output attributes that may still be missing.
	DirtySet() primitives.DirtySet

	// Cardinality is the estimated number of output rows.
	Cardinality() float64

	// TableStats describes the output relation. Aggregates return nil.
	TableStats() *statistics.TableStats

	// Penalty is the accumulated information loss.
	Penalty() Penalty

	// Time is the estimated execution cost.
	Time() float64

	// Cost blends loss and time: w*loss + (1-w)*time.
	Cost(lossWeight float64) float64

	// Physical is the executable plan this candidate stands for.
	Physical() plan.PlanNode

	// Children are the wrapped candidates.
	Children() []Node

	String() string

	sealed()
}

// Cost is the weighted cost shared by every node kind.
func Cost(n Node, lossWeight float64) float64 {
	return lossWeight*n.Penalty().Value() + (1-lossWeight)*n.Time()
}

// Estimator bundles the models nodes use to price themselves.
type Estimator struct {
	Costs costmodel.CostModel
	Model ImputationModel
}

// DefaultEstimator prices with the default cost model and random imputation.
func DefaultEstimator() Estimator {
	return Estimator{Costs: costmodel.DefaultCostModel(), Model: RandomModel{}}
}

func (e Estimator) model() ImputationModel {
	if e.Model == nil {
		return RandomModel{}
	}
	return e.Model
}

func names(d primitives.DirtySet) []string {
	out := make([]string, 0, d.Len())
	for _, q := range d.Names() {
		out = append(out, q.String())
	}
	return out
}

// repairPhysical wraps child in the operator a policy needs.
func repairPhysical(child plan.PlanNode, policy primitives.ImputationPolicy, repaired primitives.DirtySet,
	stats *statistics.TableStats, cols []int, model ImputationModel) plan.PlanNode {
	if policy == primitives.ImputeDrop {
		return &plan.DropNode{Child: child, Columns: names(repaired)}
	}
	return &plan.ImputeNode{
		Child:    child,
		Columns:  names(repaired),
		Strategy: model.Name(),
		Values:   model.Values(stats, cols),
	}
}
