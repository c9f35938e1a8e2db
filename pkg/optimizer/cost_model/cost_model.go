package costmodel

import (
	"math"

	dberror "imputedb/pkg/error"
	"imputedb/pkg/optimizer/statistics"
	"imputedb/pkg/primitives"
)

// CostModel estimates execution time and imputation loss for plan nodes.
// Times are in abstract units where reading a page costs IOCostPerPage.
type CostModel struct {
	IOCostPerPage      float64 `toml:"io_cost_per_page" yaml:"io_cost_per_page"`
	TuplesPerPage      float64 `toml:"tuples_per_page" yaml:"tuples_per_page"`
	CPUCostPerTuple    float64 `toml:"cpu_cost_per_tuple" yaml:"cpu_cost_per_tuple"`
	ImputeCostPerValue float64 `toml:"impute_cost_per_value" yaml:"impute_cost_per_value"`
	LossFactor         float64 `toml:"loss_factor" yaml:"loss_factor"`
	JoinSelectivity    float64 `toml:"join_selectivity" yaml:"join_selectivity"`
}

// DefaultCostModel returns the model with the package defaults.
func DefaultCostModel() CostModel {
	return CostModel{
		IOCostPerPage:      IoCostPerPage,
		TuplesPerPage:      DefaultTuplesPerPage,
		CPUCostPerTuple:    CPUCostPerTuple,
		ImputeCostPerValue: ImputeCostPerValue,
		LossFactor:         LossFactor,
		JoinSelectivity:    JoinSelectivity,
	}
}

// Validate rejects parameters that would make costs negative or undefined.
func (cm CostModel) Validate() error {
	switch {
	case cm.IOCostPerPage < 0, cm.CPUCostPerTuple < 0, cm.ImputeCostPerValue < 0:
		return dberror.Newf(dberror.ErrCategoryUser, dberror.CodeInvalidConfig, "cost parameters must not be negative")
	case cm.TuplesPerPage <= 0:
		return dberror.Newf(dberror.ErrCategoryUser, dberror.CodeInvalidConfig, "tuples_per_page must be positive, got %g", cm.TuplesPerPage)
	case cm.LossFactor < 1:
		return dberror.Newf(dberror.ErrCategoryUser, dberror.CodeInvalidConfig, "loss_factor must be at least 1, got %g", cm.LossFactor)
	case cm.JoinSelectivity <= 0 || cm.JoinSelectivity > 1:
		return dberror.Newf(dberror.ErrCategoryUser, dberror.CodeInvalidConfig, "join_selectivity must be in (0, 1], got %g", cm.JoinSelectivity)
	}
	return nil
}

// ScanCost is the cost of reading every page of a table sequentially.
func (cm CostModel) ScanCost(ts *statistics.TableStats) float64 {
	return ts.EstimateScanCost(cm.IOCostPerPage, cm.TuplesPerPage)
}

// FilterCost is the cost of evaluating one predicate over card tuples.
func (cm CostModel) FilterCost(card float64) float64 {
	return card * cm.CPUCostPerTuple
}

// ImputeCost is the cost of filling in columns values for card tuples.
func (cm CostModel) ImputeCost(card float64, columns int) float64 {
	return card * float64(columns) * cm.CPUCostPerTuple * cm.ImputeCostPerValue
}

// DiscountedLoss scales the number of imputed values down as the amount of
// data the imputation learns from grows.
func (cm CostModel) DiscountedLoss(nulls, totalData float64) float64 {
	return nulls * math.Pow(cm.LossFactor, -totalData)
}

// JoinCardinality applies Selinger's rules. An = join on a key returns the
// other side's cardinality (the smaller one when both sides are keys). A
// pattern can match many key values, so LIKE joins and keyless = joins keep
// JoinSelectivity of the cross product. Inequality joins keep all of it.
func (cm CostModel) JoinCardinality(op primitives.Predicate, left, right float64, leftKey, rightKey bool) float64 {
	if op == primitives.Equals {
		switch {
		case leftKey && rightKey:
			return math.Min(left, right)
		case leftKey:
			return right
		case rightKey:
			return left
		}
	}
	if op.IsEquality() {
		return left * right * cm.JoinSelectivity
	}
	return left * right
}

// JoinCost estimates the time of joining two inputs whose own times are
// leftTime and rightTime. Equality joins hash; ordering and inequality joins
// run a nested loop that re-reads the right input for every left tuple.
func (cm CostModel) JoinCost(op primitives.Predicate, leftTime, rightTime, leftCard, rightCard float64) float64 {
	if op.IsEquality() {
		return leftTime + rightTime + (leftCard+rightCard)*cm.CPUCostPerTuple
	}
	return leftTime + leftCard*rightTime + leftCard*rightCard*cm.CPUCostPerTuple
}
