package statistics

import (
	"testing"

	dberror "imputedb/pkg/error"
	"imputedb/pkg/primitives"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dirtyTable has 10,300 rows; column v misses 100 of them.
func dirtyTable(t *testing.T) *TableStats {
	t.Helper()
	ts, err := TableDefinition{
		Name:        "readings",
		Buckets:     10,
		Cardinality: 10300,
		Columns: []ColumnDefinition{
			{Name: "id", Min: 1, Max: 10300},
			{Name: "v", Min: 0, Max: 99, Nulls: 100},
			{Name: "w", Min: 0, Max: 9},
		},
	}.Build()
	require.NoError(t, err)
	return ts
}

func shares(h *Histogram) []float64 {
	n := h.NonMissing()
	out := make([]float64, 0, h.NumBuckets())
	for _, b := range h.Buckets() {
		out = append(out, b.Count/n)
	}
	return out
}

func TestTableStats_Basics(t *testing.T) {
	ts := dirtyTable(t)

	assert.Equal(t, 3, ts.Width())
	assert.InDelta(t, 10300, ts.TotalTuples(), 1e-6)
	assert.InDelta(t, 100, ts.EstimateTotalNull([]int{1}), 1e-9)
	assert.InDelta(t, 100, ts.EstimateTotalNullAll(), 1e-9)
	assert.InDelta(t, 103000, ts.EstimateScanCost(1000, 100), 1e-6)
	assert.InDelta(t, 5150, ts.EstimateTableCardinality(0.5), 1e-6)
	assert.Equal(t, "{v}", ts.DirtyColumns().Key())
}

func TestTableStats_Qualify(t *testing.T) {
	ts := dirtyTable(t).Qualify("r")

	i, ok := ts.ColumnIndex(primitives.NewQualifiedName("r", "v"))
	require.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = ts.ColumnIndex(primitives.NewQualifiedName("", "v"))
	assert.False(t, ok)
	assert.Equal(t, "{r.v}", ts.DirtyColumns().Key())

	_, err := ts.ColumnIndexes(primitives.NewDirtySet(primitives.NewQualifiedName("r", "zz")))
	assert.True(t, dberror.HasCode(err, dberror.CodeUnknownColumn))
}

func TestAdjustForImpute_Drop(t *testing.T) {
	ts := dirtyTable(t)

	dropped, err := ts.AdjustForImpute(primitives.ImputeDrop, []int{1})
	require.NoError(t, err)

	assert.InDelta(t, 10200, dropped.TotalTuples(), 1)
	assert.Zero(t, dropped.NullCount(1))
	assert.True(t, dropped.DirtyColumns().IsEmpty())
	// the other columns keep their shape
	assert.InDeltaSlice(t, shares(ts.Histogram(0)), shares(dropped.Histogram(0)), 1e-9)
	assert.InDeltaSlice(t, shares(ts.Histogram(2)), shares(dropped.Histogram(2)), 1e-9)
	// receiver untouched
	assert.InDelta(t, 10300, ts.TotalTuples(), 1e-6)
	assert.InDelta(t, 100, ts.NullCount(1), 1e-9)
}

func TestAdjustForImpute_Impute(t *testing.T) {
	ts := dirtyTable(t)

	for _, policy := range []primitives.ImputationPolicy{primitives.ImputeMinimal, primitives.ImputeMaximal} {
		t.Run(policy.String(), func(t *testing.T) {
			imputed, err := ts.AdjustForImpute(policy, []int{1})
			require.NoError(t, err)

			assert.InDelta(t, 10300, imputed.TotalTuples(), 1e-6)
			assert.Zero(t, imputed.NullCount(1))
			assert.InDelta(t, 10300, imputed.Histogram(1).NonMissing(), 1e-6)
			assert.InDeltaSlice(t, shares(ts.Histogram(1)), shares(imputed.Histogram(1)), 1e-9)
		})
	}
}

func TestAdjustForImpute_Errors(t *testing.T) {
	ts := dirtyTable(t)

	_, err := ts.AdjustForImpute(primitives.ImputeDrop, []int{7})
	assert.Error(t, err)

	same, err := ts.AdjustForImpute(primitives.ImputeMinimal, nil)
	require.NoError(t, err)
	assert.Same(t, ts, same)
}

func TestAdjustForSelectivity(t *testing.T) {
	ts := dirtyTable(t)
	half := ts.AdjustForSelectivity(0.5)

	assert.InDelta(t, 5150, half.TotalTuples(), 1e-6)
	assert.InDelta(t, 50, half.NullCount(1), 1e-9)
	assert.InDelta(t, 5100, half.Histogram(1).NonMissing(), 1e-6)
	assert.InDeltaSlice(t, shares(ts.Histogram(1)), shares(half.Histogram(1)), 1e-9)
}

func TestAdjustToTotal(t *testing.T) {
	ts := dirtyTable(t)

	for _, target := range []float64{1, 500, 10300, 99999} {
		adjusted := ts.AdjustToTotal(target)
		assert.InDelta(t, target, adjusted.TotalTuples(), 1)
		for c := 0; c < adjusted.Width(); c++ {
			h := adjusted.Histogram(c)
			assert.InDelta(t, target, h.NonMissing()+h.Missing(), 1e-6)
		}
	}

	// v keeps roughly its null fraction, rounded down
	assert.InDelta(t, 4, ts.AdjustToTotal(500).NullCount(1), 1e-9)
}

func TestMerge(t *testing.T) {
	left := dirtyTable(t).Qualify("l")
	right, err := Collect([]string{"k"}, [][]*int64{{ptr(1)}, {ptr(2)}, {nil}}, 10)
	require.NoError(t, err)
	right = right.Qualify("r")

	merged := left.Merge(right)
	require.Equal(t, 4, merged.Width())
	assert.Equal(t, primitives.NewQualifiedName("r", "k"), merged.Column(3))
	assert.InDelta(t, left.TotalTuples(), merged.TotalTuples(), 1e-9)

	for c := 0; c < left.Width(); c++ {
		want, err := left.EstimateSelectivity(c, primitives.LessThan, 50)
		require.NoError(t, err)
		got, err := merged.EstimateSelectivity(c, primitives.LessThan, 50)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-12)
	}
	want, err := right.EstimateSelectivity(0, primitives.Equals, 1)
	require.NoError(t, err)
	got, err := merged.EstimateSelectivity(3, primitives.Equals, 1)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)
}

func TestCollect(t *testing.T) {
	rows := [][]*int64{
		{ptr(1), ptr(10)},
		{ptr(2), nil},
		{ptr(3), ptr(30)},
		{nil, nil},
	}
	ts, err := Collect([]string{"a", "b"}, rows, 10)
	require.NoError(t, err)

	assert.InDelta(t, 4, ts.TotalTuples(), 1e-9)
	assert.InDelta(t, 1, ts.NullCount(0), 1e-9)
	assert.InDelta(t, 2, ts.NullCount(1), 1e-9)
	assert.Equal(t, int64(10), ts.Histogram(1).Min())
	assert.Equal(t, int64(30), ts.Histogram(1).Max())

	// row 2 is missing b: one dirty row at a=2
	missing, err := ts.Histogram(0).EstimateMissing(primitives.Equals, 2, false)
	require.NoError(t, err)
	assert.InDelta(t, 1, missing, 1e-9)

	_, err = Collect([]string{"a"}, [][]*int64{{ptr(1), ptr(2)}}, 10)
	assert.Error(t, err)
}

func TestEstimateSelectivity_BadColumn(t *testing.T) {
	ts := dirtyTable(t)
	_, err := ts.EstimateSelectivity(9, primitives.Equals, 1)
	assert.True(t, dberror.HasCode(err, dberror.CodeInvalidArgument))
}

func TestLoadDefinitions(t *testing.T) {
	p, err := LoadDefinitions([]byte(`
tables:
  - name: orders
    primary_key: id
    buckets: 10
    columns:
      - {name: id}
      - {name: amount}
    rows:
      - [1, 100]
      - [2, null]
  - name: customers
    cardinality: 50
    columns:
      - {name: id, min: 1, max: 50}
      - {name: age, min: 18, max: 90, nulls: 5}
`))
	require.NoError(t, err)
	assert.Equal(t, 2, p.Tables())

	orders, err := p.TableStats("orders")
	require.NoError(t, err)
	assert.InDelta(t, 2, orders.TotalTuples(), 1e-9)
	assert.InDelta(t, 1, orders.NullCount(1), 1e-9)

	key, ok := p.PrimaryKey("orders")
	assert.True(t, ok)
	assert.Equal(t, "id", key)
	_, ok = p.PrimaryKey("customers")
	assert.False(t, ok)

	customers, err := p.TableStats("customers")
	require.NoError(t, err)
	assert.InDelta(t, 50, customers.TotalTuples(), 1e-9)
	assert.InDelta(t, 5, customers.NullCount(1), 1e-9)

	_, err = p.TableStats("nope")
	assert.True(t, dberror.HasCode(err, dberror.CodeMissingStatistics))
}

func ptr(v int64) *int64 {
	return &v
}
