package imputed

import (
	dberror "imputedb/pkg/error"
	costmodel "imputedb/pkg/optimizer/cost_model"
	"imputedb/pkg/optimizer/statistics"
)

// ImputationModel prices filling in the missing values of some columns.
type ImputationModel interface {
	Name() string

	// Loss estimates the information lost by imputing cols of ts.
	Loss(ts *statistics.TableStats, cols []int, cm costmodel.CostModel) float64

	// Time estimates the cost of imputing cols of ts.
	Time(ts *statistics.TableStats, cols []int, cm costmodel.CostModel) float64

	// Values returns a constant replacement per column, or nil when the
	// model does not substitute constants.
	Values(ts *statistics.TableStats, cols []int) map[string]float64
}

// RandomModel draws replacements from the observed values. Its loss falls
// geometrically with the amount of data it learns from.
type RandomModel struct{}

func (RandomModel) Name() string { return "random" }

func (RandomModel) Loss(ts *statistics.TableStats, cols []int, cm costmodel.CostModel) float64 {
	totalData := ts.TotalTuples() * float64(ts.Width())
	return cm.DiscountedLoss(ts.EstimateTotalNull(cols), totalData)
}

func (RandomModel) Time(ts *statistics.TableStats, cols []int, cm costmodel.CostModel) float64 {
	return cm.ImputeCost(ts.TotalTuples(), len(cols))
}

func (RandomModel) Values(*statistics.TableStats, []int) map[string]float64 {
	return nil
}

// MeanModel replaces every missing value with the column mean. Its loss is
// the variance it erases: each column's variance weighted by the fraction of
// the column being replaced.
type MeanModel struct{}

func (MeanModel) Name() string { return "mean" }

func (MeanModel) Loss(ts *statistics.TableStats, cols []int, _ costmodel.CostModel) float64 {
	total := ts.TotalTuples()
	if total == 0 {
		return 0
	}

	var loss float64
	for _, c := range cols {
		loss += ts.EstimateVariance(c) * ts.NullCount(c) / total
	}
	return loss
}

func (MeanModel) Time(ts *statistics.TableStats, cols []int, cm costmodel.CostModel) float64 {
	return cm.ImputeCost(ts.TotalTuples(), len(cols))
}

func (MeanModel) Values(ts *statistics.TableStats, cols []int) map[string]float64 {
	out := make(map[string]float64, len(cols))
	for _, c := range cols {
		out[ts.Column(c).String()] = ts.EstimateMean(c)
	}
	return out
}

// ModelByName resolves a configured model name.
func ModelByName(name string) (ImputationModel, error) {
	switch name {
	case "", "random":
		return RandomModel{}, nil
	case "mean":
		return MeanModel{}, nil
	default:
		return nil, dberror.Newf(dberror.ErrCategoryUser, dberror.CodeInvalidConfig, "unknown imputation model %q", name)
	}
}
