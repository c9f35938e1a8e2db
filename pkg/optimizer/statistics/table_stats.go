package statistics

import (
	"fmt"
	"math"
	"strings"

	dberror "imputedb/pkg/error"
	"imputedb/pkg/primitives"

	"github.com/olekukonko/tablewriter"
)

// TableStats holds one histogram per column of a relation. The histogram
// of column i also carries that column's null count. The total row count is
// taken from column 0, the reference column.
//
// TableStats is a value object: every Adjust* method and Merge return a new
// instance and never modify the receiver or its histograms.
type TableStats struct {
	columns []primitives.QualifiedName
	hists   []*Histogram
	total   float64
}

// NewTableStats builds statistics for the given columns.
func NewTableStats(columns []primitives.QualifiedName, hists []*Histogram) (*TableStats, error) {
	if len(columns) == 0 {
		return nil, dberror.InvalidArgument("table statistics need at least one column")
	}
	if len(columns) != len(hists) {
		return nil, dberror.InvalidArgument("%d columns but %d histograms", len(columns), len(hists))
	}
	for i, h := range hists {
		if h == nil {
			return nil, dberror.InvalidArgument("column %s has no histogram", columns[i])
		}
	}
	return newTableStats(append([]primitives.QualifiedName(nil), columns...), append([]*Histogram(nil), hists...)), nil
}

func newTableStats(columns []primitives.QualifiedName, hists []*Histogram) *TableStats {
	return &TableStats{
		columns: columns,
		hists:   hists,
		total:   hists[0].NonMissing() + hists[0].Missing(),
	}
}

// Width returns the number of columns.
func (ts *TableStats) Width() int {
	return len(ts.columns)
}

// Columns returns the column names in schema order.
func (ts *TableStats) Columns() []primitives.QualifiedName {
	return append([]primitives.QualifiedName(nil), ts.columns...)
}

// Column returns the name of column i.
func (ts *TableStats) Column(i int) primitives.QualifiedName {
	return ts.columns[i]
}

// ColumnIndex finds a column by its qualified name.
func (ts *TableStats) ColumnIndex(q primitives.QualifiedName) (int, bool) {
	for i, c := range ts.columns {
		if c == q {
			return i, true
		}
	}
	return -1, false
}

// ColumnIndexes resolves every member of a dirty set.
func (ts *TableStats) ColumnIndexes(d primitives.DirtySet) ([]int, error) {
	idx := make([]int, 0, d.Len())
	for _, q := range d.Names() {
		i, ok := ts.ColumnIndex(q)
		if !ok {
			return nil, dberror.UnknownColumn(q.String())
		}
		idx = append(idx, i)
	}
	return idx, nil
}

// Histogram returns the histogram of column i.
func (ts *TableStats) Histogram(i int) *Histogram {
	return ts.hists[i]
}

// NullCount returns the number of missing values in column i.
func (ts *TableStats) NullCount(i int) float64 {
	return ts.hists[i].Missing()
}

// TotalTuples returns the estimated number of rows.
func (ts *TableStats) TotalTuples() float64 {
	return ts.total
}

// Qualify binds every column to alias. Histograms are shared.
func (ts *TableStats) Qualify(alias string) *TableStats {
	cols := make([]primitives.QualifiedName, len(ts.columns))
	for i, c := range ts.columns {
		cols[i] = c.WithAlias(alias)
	}
	return &TableStats{columns: cols, hists: ts.hists, total: ts.total}
}

// DirtyColumns returns the columns with at least one missing value.
func (ts *TableStats) DirtyColumns() primitives.DirtySet {
	var dirty []primitives.QualifiedName
	for i, h := range ts.hists {
		if h.Missing() > 0 {
			dirty = append(dirty, ts.columns[i])
		}
	}
	return primitives.NewDirtySet(dirty...)
}

// EstimateScanCost charges ioCostPerPage for every page a sequential scan reads.
func (ts *TableStats) EstimateScanCost(ioCostPerPage, tuplesPerPage float64) float64 {
	if tuplesPerPage <= 0 {
		tuplesPerPage = 1
	}
	return ts.total / tuplesPerPage * ioCostPerPage
}

// EstimateSelectivity estimates the fraction of rows where "column op v" holds.
func (ts *TableStats) EstimateSelectivity(col int, op primitives.Predicate, v int64) (float64, error) {
	if err := ts.checkColumn(col); err != nil {
		return 0, err
	}
	return ts.hists[col].EstimateSelectivity(op, v)
}

// EstimateSelectivityNull estimates the fraction of rows where "column op NULL" holds.
func (ts *TableStats) EstimateSelectivityNull(col int, op primitives.Predicate) (float64, error) {
	if err := ts.checkColumn(col); err != nil {
		return 0, err
	}
	return ts.hists[col].EstimateSelectivityNull(op), nil
}

// EstimateTableCardinality returns the row count left after a filter of the
// given selectivity.
func (ts *TableStats) EstimateTableCardinality(selectivity float64) float64 {
	return ts.total * selectivity
}

// EstimateTotalNull sums the null counts of the given columns.
func (ts *TableStats) EstimateTotalNull(cols []int) float64 {
	var acc float64
	for _, c := range cols {
		acc += ts.hists[c].Missing()
	}
	return acc
}

// EstimateTotalNullAll sums the null counts of every column.
func (ts *TableStats) EstimateTotalNullAll() float64 {
	var acc float64
	for _, h := range ts.hists {
		acc += h.Missing()
	}
	return acc
}

func (ts *TableStats) EstimateMean(col int) float64 {
	return ts.hists[col].Mean()
}

func (ts *TableStats) EstimateVariance(col int) float64 {
	return ts.hists[col].Variance()
}

// AdjustForImpute returns the statistics after repairing the given columns.
//
// DROP removes the rows missing any of them: the new total is the smallest
// non-null count among the columns, and every column, affected or not, is
// rescaled to it. MINIMAL and MAXIMAL fold each column's nulls into its own
// histogram and leave the total unchanged.
func (ts *TableStats) AdjustForImpute(policy primitives.ImputationPolicy, cols []int) (*TableStats, error) {
	for _, c := range cols {
		if err := ts.checkColumn(c); err != nil {
			return nil, err
		}
	}
	if len(cols) == 0 {
		return ts, nil
	}

	switch policy {
	case primitives.ImputeNone:
		return ts, nil

	case primitives.ImputeDrop:
		hists := append([]*Histogram(nil), ts.hists...)
		remaining := math.Inf(1)
		for _, c := range cols {
			remaining = math.Min(remaining, hists[c].NonMissing())
			hists[c] = hists[c].WithMissing(0)
		}
		return newTableStats(ts.columns, hists).AdjustToTotal(remaining), nil

	case primitives.ImputeMinimal, primitives.ImputeMaximal:
		hists := append([]*Histogram(nil), ts.hists...)
		for _, c := range cols {
			hists[c] = hists[c].Redistribute(hists[c].Missing()).WithMissing(0)
		}
		return newTableStats(ts.columns, hists), nil

	default:
		return nil, dberror.InvalidArgument("unknown imputation policy %d", int(policy))
	}
}

// AdjustForSelectivity scales every histogram and null count by selectivity.
// Null counts stay integral.
func (ts *TableStats) AdjustForSelectivity(selectivity float64) *TableStats {
	hists := make([]*Histogram, len(ts.hists))
	for i, h := range ts.hists {
		hists[i] = h.ScaleBy(selectivity).WithMissing(math.Floor(h.Missing() * selectivity))
	}
	return newTableStats(ts.columns, hists)
}

// AdjustToTotal rescales every column to target rows. Each column keeps its
// null fraction; the null share is rounded down and the rest goes to the
// histogram, so the total is exact.
func (ts *TableStats) AdjustToTotal(target float64) *TableStats {
	if target < 0 {
		target = 0
	}

	hists := make([]*Histogram, len(ts.hists))
	for i, h := range ts.hists {
		nulls := 0.0
		if denom := h.NonMissing() + h.Missing(); denom > 0 {
			nulls = math.Floor(h.Missing() / denom * target)
		}
		hists[i] = h.ScaleTo(target - nulls).WithMissing(nulls)
	}
	return newTableStats(ts.columns, hists)
}

// Merge concatenates the columns of ts and other. Both sides are expected
// to already describe the same number of rows.
func (ts *TableStats) Merge(other *TableStats) *TableStats {
	cols := make([]primitives.QualifiedName, 0, len(ts.columns)+len(other.columns))
	cols = append(append(cols, ts.columns...), other.columns...)
	hists := make([]*Histogram, 0, len(ts.hists)+len(other.hists))
	hists = append(append(hists, ts.hists...), other.hists...)
	return newTableStats(cols, hists)
}

func (ts *TableStats) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("TableStats(rows=%.2f)\n", ts.total))

	tw := tablewriter.NewWriter(&sb)
	tw.SetHeader([]string{"column", "min", "max", "values", "nulls", "mean"})
	tw.SetBorder(false)
	for i, h := range ts.hists {
		tw.Append([]string{
			ts.columns[i].String(),
			fmt.Sprintf("%d", h.Min()),
			fmt.Sprintf("%d", h.Max()),
			fmt.Sprintf("%.2f", h.NonMissing()),
			fmt.Sprintf("%.2f", h.Missing()),
			fmt.Sprintf("%.2f", h.Mean()),
		})
	}
	tw.Render()
	return sb.String()
}

func (ts *TableStats) checkColumn(col int) error {
	if col < 0 || col >= len(ts.hists) {
		return dberror.InvalidArgument("column index %d out of range [0, %d)", col, len(ts.hists))
	}
	return nil
}
