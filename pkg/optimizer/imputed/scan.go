package imputed

import (
	"fmt"

	dberror "imputedb/pkg/error"
	"imputedb/pkg/optimizer/statistics"
	"imputedb/pkg/plan"
	"imputedb/pkg/primitives"
)

// Filter is a predicate "column op constant", or "column op NULL" when IsNull is set.
type Filter struct {
	Column primitives.QualifiedName
	Op     primitives.Predicate
	Value  int64
	IsNull bool
}

func (f Filter) info() plan.PredicateInfo {
	return plan.PredicateInfo{Column: f.Column.String(), Predicate: f.Op, Value: f.Value, IsNull: f.IsNull}
}

func (f Filter) String() string {
	return f.info().String()
}

// ScanNode is an access to one base table: a sequential scan, repaired under
// one imputation policy, then filtered.
type ScanNode struct {
	table    string
	alias    string
	policy   primitives.ImputationPolicy
	filters  []Filter
	repaired primitives.DirtySet
	dirty    primitives.DirtySet
	stats    *statistics.TableStats
	penalty  Penalty
	time     float64
	physical plan.PlanNode
}

// NewScan is a plain scan of table under alias.
func NewScan(table, alias string, base *statistics.TableStats, est Estimator) *ScanNode {
	stats := base.Qualify(alias)
	scan := plan.NewScanNode(table, alias)
	scan.SetCost(est.Costs.ScanCost(stats))
	scan.SetCardinality(stats.TotalTuples())

	return &ScanNode{
		table:    table,
		alias:    alias,
		policy:   primitives.ImputeNone,
		dirty:    stats.DirtyColumns(),
		stats:    stats,
		penalty:  EmptyPenalty,
		time:     scan.GetCost(),
		physical: scan,
	}
}

// NewAccess builds the access to table under alias that applies policy and
// then filters. The attributes the filters read that are dirty in the table
// are the required ones:
//
//   - NONE needs them to be empty.
//   - DROP removes rows missing any of them; its loss is the number of values dropped.
//   - MINIMAL imputes just them; MAXIMAL imputes every dirty attribute.
//
// ErrInfeasibleImputation is returned when the policy cannot apply. An
// unknown filter column or an unsupported filter operator is an error.
func NewAccess(table, alias string, base *statistics.TableStats, policy primitives.ImputationPolicy,
	filters []Filter, est Estimator) (*ScanNode, error) {
	n := NewScan(table, alias, base, est)
	n.policy = policy
	n.filters = append([]Filter(nil), filters...)

	readCols := make([]primitives.QualifiedName, 0, len(filters))
	for _, f := range filters {
		if _, ok := n.stats.ColumnIndex(f.Column); !ok {
			return nil, dberror.UnknownColumn(f.Column.String()).At("NewAccess", "ScanNode")
		}
		readCols = append(readCols, f.Column)
	}
	required := primitives.NewDirtySet(readCols...).Intersect(n.dirty)

	switch policy {
	case primitives.ImputeNone:
		if !required.IsEmpty() {
			return nil, ErrInfeasibleImputation
		}

	case primitives.ImputeDrop, primitives.ImputeMinimal, primitives.ImputeMaximal:
		repaired := required
		if policy == primitives.ImputeMaximal {
			repaired = n.dirty
		}
		if repaired.IsEmpty() {
			return nil, ErrInfeasibleImputation
		}
		if err := n.repair(policy, repaired, est); err != nil {
			return nil, err
		}

	default:
		return nil, dberror.InvalidArgument("unknown imputation policy %d", int(policy))
	}

	if len(filters) == 0 {
		return n, nil
	}

	preds := make([]plan.PredicateInfo, 0, len(filters))
	for _, f := range filters {
		col, _ := n.stats.ColumnIndex(f.Column)

		var (
			sel float64
			err error
		)
		if f.IsNull {
			sel, err = n.stats.EstimateSelectivityNull(col, f.Op)
		} else {
			sel, err = n.stats.EstimateSelectivity(col, f.Op, f.Value)
		}
		if err != nil {
			return nil, dberror.Wrap(err, dberror.CodeUnsupportedOperator, "NewAccess", "ScanNode")
		}

		n.time += est.Costs.FilterCost(n.stats.TotalTuples())
		n.stats = n.stats.AdjustForSelectivity(sel)
		preds = append(preds, f.info())
	}

	filter := &plan.FilterNode{Child: n.physical, Predicates: preds}
	filter.SetCost(n.time)
	filter.SetCardinality(n.stats.TotalTuples())
	n.physical = filter
	return n, nil
}

// repair applies a DROP, MINIMAL or MAXIMAL step to the scanned table.
func (n *ScanNode) repair(policy primitives.ImputationPolicy, repaired primitives.DirtySet, est Estimator) error {
	cols, err := n.stats.ColumnIndexes(repaired)
	if err != nil {
		return err
	}

	model := est.model()
	var loss float64
	if policy == primitives.ImputeDrop {
		loss = n.stats.EstimateTotalNull(cols)
	} else {
		loss = model.Loss(n.stats, cols, est.Costs)
		n.time += model.Time(n.stats, cols, est.Costs)
	}

	adjusted, err := n.stats.AdjustForImpute(policy, cols)
	if err != nil {
		return err
	}

	physical := repairPhysical(n.physical, policy, repaired, n.stats, cols, model)
	physical.SetCost(n.time)
	physical.SetCardinality(adjusted.TotalTuples())

	n.physical = physical
	n.stats = adjusted
	n.repaired = repaired
	n.dirty = n.dirty.Difference(repaired)
	n.penalty = NewPenalty(loss)
	return nil
}

func (n *ScanNode) Kind() Kind { return KindScan }
func (n *ScanNode) DirtySet() primitives.DirtySet { return n.dirty }
func (n *ScanNode) Cardinality() float64 { return n.stats.TotalTuples() }
func (n *ScanNode) TableStats() *statistics.TableStats { return n.stats }
func (n *ScanNode) Penalty() Penalty { return n.penalty }
func (n *ScanNode) Time() float64 { return n.time }
func (n *ScanNode) Cost(lossWeight float64) float64 { return Cost(n, lossWeight) }
func (n *ScanNode) Physical() plan.PlanNode { return n.physical }
func (n *ScanNode) Children() []Node { return nil }
func (n *ScanNode) sealed() {}

// Table returns the scanned table name.
func (n *ScanNode) Table() string { return n.table }

// Alias returns the alias the table is bound to.
func (n *ScanNode) Alias() string { return n.alias }

// Policy returns the imputation policy applied at the scan.
func (n *ScanNode) Policy() primitives.ImputationPolicy { return n.policy }

// Repaired returns the attributes dropped or imputed at the scan.
func (n *ScanNode) Repaired() primitives.DirtySet { return n.repaired }

// Filters returns the filters applied after the repair.
func (n *ScanNode) Filters() []Filter { return append([]Filter(nil), n.filters...) }

func (n *ScanNode) String() string {
	return fmt.Sprintf("Scan(%s AS %s, policy=%s, filters=%d, dirty=%s, loss=%.4f, time=%.2f)",
		n.table, n.alias, n.policy, len(n.filters), n.dirty, n.penalty.Value(), n.time)
}
