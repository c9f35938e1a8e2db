package optimizer

import (
	"context"
	"fmt"
	"testing"

	dberror "imputedb/pkg/error"
	"imputedb/pkg/optimizer/imputed"
	"imputedb/pkg/optimizer/statistics"
	"imputedb/pkg/plan"
	"imputedb/pkg/primitives"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qn(alias, attr string) primitives.QualifiedName {
	return primitives.NewQualifiedName(alias, attr)
}

func col(name string, min, max, nulls int64) statistics.ColumnDefinition {
	return statistics.ColumnDefinition{Name: name, Min: min, Max: max, Nulls: nulls}
}

// testProvider serves the readings, a, b and c tables of testdata/optimize.
func testProvider(t testing.TB) *statistics.MapProvider {
	t.Helper()
	p := statistics.NewMapProvider()
	for _, td := range []statistics.TableDefinition{
		{Name: "readings", PrimaryKey: "id", Cardinality: 10300,
			Columns: []statistics.ColumnDefinition{col("id", 1, 10300, 0), col("v", 0, 99, 100), col("w", 0, 9, 0)}},
		{Name: "a", PrimaryKey: "id", Cardinality: 100,
			Columns: []statistics.ColumnDefinition{col("id", 1, 100, 0), col("x", 0, 9, 10)}},
		{Name: "b", PrimaryKey: "id", Cardinality: 1000,
			Columns: []statistics.ColumnDefinition{col("id", 1, 1000, 0), col("a_id", 1, 100, 0), col("y", 0, 99, 50)}},
		{Name: "c", PrimaryKey: "id", Cardinality: 200,
			Columns: []statistics.ColumnDefinition{col("id", 1, 200, 0), col("a_id", 1, 100, 20)}},
	} {
		ts, err := td.Build()
		require.NoError(t, err)
		p.Put(td.Name, ts)
		p.SetPrimaryKey(td.Name, td.PrimaryKey)
	}
	return p
}

func newOptimizer(t testing.TB, modify func(*Config)) *ImputeOptimizer {
	t.Helper()
	cfg := DefaultConfig()
	if modify != nil {
		modify(&cfg)
	}
	opt, err := NewImputeOptimizer(testProvider(t), cfg)
	require.NoError(t, err)
	return opt
}

func joinAB() Query {
	return Query{
		Tables: []TableRef{{Alias: "a", Table: "a"}, {Alias: "b", Table: "b"}},
		Joins:  []JoinPredicate{{Left: qn("a", "id"), Right: qn("b", "a_id"), Op: primitives.Equals}},
		Select: []primitives.QualifiedName{qn("a", "id"), qn("b", "id")},
	}
}

func countAX() Query {
	return Query{
		Tables:    []TableRef{{Alias: "a", Table: "a"}},
		Aggregate: &AggregateClause{Op: primitives.AggCount, Column: qn("a", "x")},
	}
}

func TestOptimizeJoin(t *testing.T) {
	opt := newOptimizer(t, nil)

	res, err := opt.Optimize(joinAB())
	require.NoError(t, err)

	join, ok := res.Plan.(*imputed.JoinNode)
	require.True(t, ok, "got %s", res.Plan)
	assert.Equal(t, qn("a", "id"), join.Spec().Left)
	assert.True(t, join.Spec().LeftKey)
	assert.False(t, join.Spec().RightKey)
	assert.Equal(t, 1000.0, res.Plan.Cardinality())
	assert.True(t, res.DirtySet.Equal(primitives.NewDirtySet(qn("a", "x"), qn("b", "y"))))
	assert.NotNil(t, res.Stats)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.Graph.GetRelationCount())

	project, ok := res.Physical.(*plan.ProjectNode)
	require.True(t, ok)
	assert.Equal(t, []string{"a.id", "b.id"}, project.Columns)
	assert.Equal(t, "Join", project.Child.GetNodeType())

	for _, slot := range res.Cache.Snapshot() {
		assert.Len(t, slot.Plans, 1, "slot %s", slot.Key)
	}
	assert.Len(t, res.Cache.BestPlans([]string{"b", "a"}), 4)
}

func TestOptimizeRepairsJoinColumn(t *testing.T) {
	opt := newOptimizer(t, nil)

	res, err := opt.Optimize(Query{
		Tables: []TableRef{{Alias: "a", Table: "a"}, {Alias: "c", Table: "c"}},
		Joins:  []JoinPredicate{{Left: qn("a", "id"), Right: qn("c", "a_id"), Op: primitives.Equals}},
		Select: []primitives.QualifiedName{qn("a", "id")},
	})
	require.NoError(t, err)

	// No plan in the cache may join over the dirty c.a_id.
	for _, e := range res.Cache.BestPlans([]string{"a", "c"}) {
		assert.False(t, e.Plan.DirtySet().Contains(qn("c", "a_id")))
	}

	right := res.Plan.Children()[1]
	compose, ok := right.(*imputed.ComposeNode)
	require.True(t, ok, "got %s", right)
	assert.Equal(t, primitives.ImputeDrop, compose.Policy())
}

func TestOptimizeOrderBy(t *testing.T) {
	opt := newOptimizer(t, nil)

	q := joinAB()
	q.OrderBy = &OrderByClause{Column: qn("b", "id"), Ascending: false}
	res, err := opt.Optimize(q)
	require.NoError(t, err)

	project := res.Physical.(*plan.ProjectNode)
	sort, ok := project.Child.(*plan.SortNode)
	require.True(t, ok)
	assert.Equal(t, "b.id", sort.SortKey)
	assert.False(t, sort.Ascending)
	assert.Equal(t, res.Plan.Physical(), sort.Child)
	assert.Equal(t, res.Plan.Cardinality(), sort.GetCardinality())
}

func TestOptimizeSelectAll(t *testing.T) {
	opt := newOptimizer(t, nil)

	res, err := opt.Optimize(Query{Tables: []TableRef{{Alias: "r", Table: "readings"}}, LossWeight: 0.9})
	require.NoError(t, err)

	project := res.Physical.(*plan.ProjectNode)
	assert.Equal(t, []string{"r.id", "r.v", "r.w"}, project.Columns)
}

func TestOptimizeAggregate(t *testing.T) {
	opt := newOptimizer(t, nil)

	res, err := opt.Optimize(countAX())
	require.NoError(t, err)

	agg, ok := res.Plan.(*imputed.AggregateNode)
	require.True(t, ok)
	assert.Equal(t, 1.0, agg.Cardinality())
	assert.True(t, res.DirtySet.IsEmpty())
	assert.Nil(t, res.Stats)

	project := res.Physical.(*plan.ProjectNode)
	assert.Equal(t, []string{"COUNT(a.x)"}, project.Columns)
	assert.Equal(t, "Aggregate", project.Child.GetNodeType())
}

func TestOptimizeGroupedAggregate(t *testing.T) {
	opt := newOptimizer(t, nil)

	group := qn("b", "a_id")
	q := joinAB()
	q.Select = nil
	q.GroupBy = &group
	q.Aggregate = &AggregateClause{Op: primitives.AggAvg, Column: qn("b", "y")}

	res, err := opt.Optimize(q)
	require.NoError(t, err)

	agg := res.Plan.(*imputed.AggregateNode)
	assert.Equal(t, &group, agg.Spec().GroupBy)
	assert.False(t, agg.Children()[0].DirtySet().Contains(qn("b", "y")))
	assert.Greater(t, agg.Cardinality(), 1.0)
	assert.LessOrEqual(t, agg.Cardinality(), agg.Children()[0].Cardinality())

	project := res.Physical.(*plan.ProjectNode)
	assert.Equal(t, []string{"b.a_id", "AVG(b.y)"}, project.Columns)
}

func TestOptimizeImputeAtBase(t *testing.T) {
	opt := newOptimizer(t, func(c *Config) { c.ImputeAtBase = true })

	res, err := opt.Optimize(Query{
		Tables:  []TableRef{{Alias: "r", Table: "readings"}},
		Filters: []imputed.Filter{{Column: qn("r", "v"), Op: primitives.GreaterThan, Value: 50}},
	})
	require.NoError(t, err)

	scan, ok := res.Plan.(*imputed.ScanNode)
	require.True(t, ok)
	assert.Equal(t, primitives.ImputeMaximal, scan.Policy())
	assert.Len(t, res.Cache.Snapshot(), 1)
}

func TestOptimizeLossBound(t *testing.T) {
	tests := []struct {
		bound  float64
		policy primitives.ImputationPolicy
	}{
		{bound: 20, policy: primitives.ImputeDrop},
		{bound: 1, policy: primitives.ImputeMinimal},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("bound=%g", tt.bound), func(t *testing.T) {
			opt := newOptimizer(t, func(c *Config) { c.LossBound = tt.bound })
			res, err := opt.Optimize(countAX())
			require.NoError(t, err)

			compose, ok := res.Plan.Children()[0].(*imputed.ComposeNode)
			require.True(t, ok)
			assert.Equal(t, tt.policy, compose.Policy())
		})
	}
}

func TestOptimizeApproximateSwitch(t *testing.T) {
	q := Query{
		Tables:  []TableRef{{Alias: "r", Table: "readings"}},
		Filters: []imputed.Filter{{Column: qn("r", "v"), Op: primitives.GreaterThan, Value: 50}},
	}

	res, err := newOptimizer(t, nil).Optimize(q)
	require.NoError(t, err)
	assert.False(t, res.Cache.Approximate())

	res, err = newOptimizer(t, func(c *Config) { c.ApproximateTableThreshold = 1 }).Optimize(q)
	require.NoError(t, err)
	assert.True(t, res.Cache.Approximate())

	res, err = newOptimizer(t, func(c *Config) { c.Approximate = true }).Optimize(joinAB())
	require.NoError(t, err)
	assert.True(t, res.Cache.Approximate())
}

func TestOptimizeSinglePolicy(t *testing.T) {
	opt := newOptimizer(t, func(c *Config) { c.CachePolicy = "single" })

	res, err := opt.Optimize(countAX())
	require.NoError(t, err)
	for _, slot := range res.Cache.Snapshot() {
		assert.Len(t, slot.Plans, 1)
	}
	assert.Equal(t, "single", res.Cache.Policy().Name())
}

func TestOptimizeErrors(t *testing.T) {
	tests := []struct {
		name   string
		query  Query
		code   string
		isUser bool
	}{
		{
			name:   "loss weight out of range",
			query:  Query{Tables: []TableRef{{Alias: "a", Table: "a"}}, LossWeight: 1.5},
			code:   dberror.CodeInvalidArgument,
			isUser: true,
		},
		{
			name:   "no tables",
			query:  Query{},
			code:   dberror.CodeInvalidArgument,
			isUser: true,
		},
		{
			name:   "duplicate alias",
			query:  Query{Tables: []TableRef{{Alias: "a", Table: "a"}, {Alias: "a", Table: "b"}}},
			code:   dberror.CodeInvalidArgument,
			isUser: true,
		},
		{
			name: "unknown column",
			query: Query{
				Tables:  []TableRef{{Alias: "a", Table: "a"}},
				Filters: []imputed.Filter{{Column: qn("a", "nope"), Op: primitives.Equals, Value: 1}},
			},
			code:   dberror.CodeUnknownColumn,
			isUser: true,
		},
		{
			name: "unknown join alias",
			query: Query{
				Tables: []TableRef{{Alias: "a", Table: "a"}},
				Joins:  []JoinPredicate{{Left: qn("a", "id"), Right: qn("q", "id"), Op: primitives.Equals}},
			},
			code:   dberror.CodeUnknownTable,
			isUser: true,
		},
		{
			name: "self join",
			query: Query{
				Tables: []TableRef{{Alias: "a", Table: "a"}},
				Joins:  []JoinPredicate{{Left: qn("a", "id"), Right: qn("a", "x"), Op: primitives.Equals}},
			},
			code:   dberror.CodeInvalidArgument,
			isUser: true,
		},
		{
			name: "group by without aggregate",
			query: Query{
				Tables:  []TableRef{{Alias: "a", Table: "a"}},
				GroupBy: &primitives.QualifiedName{Alias: "a", Attr: "x"},
			},
			code:   dberror.CodeInvalidArgument,
			isUser: true,
		},
		{
			name:  "missing statistics",
			query: Query{Tables: []TableRef{{Alias: "z", Table: "nosuch"}}},
			code:  dberror.CodeMissingStatistics,
		},
		{
			name:  "disconnected tables",
			query: Query{Tables: []TableRef{{Alias: "a", Table: "a"}, {Alias: "b", Table: "b"}}},
			code:  dberror.CodeNoCoveringPlan,
		},
	}

	opt := newOptimizer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := opt.Optimize(tt.query)
			require.Error(t, err)
			assert.True(t, dberror.HasCode(err, tt.code), "got %v", err)
			assert.Equal(t, tt.isUser, dberror.IsUserError(err))
		})
	}

	t.Run("disconnected tables are internal", func(t *testing.T) {
		_, err := opt.Optimize(Query{Tables: []TableRef{{Alias: "a", Table: "a"}, {Alias: "b", Table: "b"}}})
		assert.True(t, dberror.IsInternal(err))
	})
}

func TestNewImputeOptimizer(t *testing.T) {
	_, err := NewImputeOptimizer(nil, DefaultConfig())
	assert.True(t, dberror.HasCode(err, dberror.CodeInvalidArgument))

	cfg := DefaultConfig()
	cfg.CachePolicy = "dotted"
	_, err = NewImputeOptimizer(testProvider(t), cfg)
	assert.True(t, dberror.HasCode(err, dberror.CodeInvalidConfig))

	opt, err := NewImputeOptimizer(testProvider(t), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "pareto", opt.Config().CachePolicy)
}

func TestPlanAll(t *testing.T) {
	queries := []Query{joinAB(), countAX(), {Tables: []TableRef{{Alias: "r", Table: "readings"}}}}

	results, err := PlanAll(context.Background(), testProvider(t), DefaultConfig(), queries)
	require.NoError(t, err)
	require.Len(t, results, len(queries))

	assert.Equal(t, imputed.KindJoin, results[0].Plan.Kind())
	assert.Equal(t, imputed.KindAggregate, results[1].Plan.Kind())
	assert.Equal(t, imputed.KindScan, results[2].Plan.Kind())
	assert.NotEqual(t, results[0].RunID, results[1].RunID)
}

func TestPlanAllFailure(t *testing.T) {
	queries := []Query{joinAB(), {Tables: []TableRef{{Alias: "z", Table: "nosuch"}}}}

	_, err := PlanAll(context.Background(), testProvider(t), DefaultConfig(), queries)
	require.Error(t, err)
	assert.True(t, dberror.HasCode(err, dberror.CodeMissingStatistics))
}

func TestPlanAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := PlanAll(ctx, testProvider(t), DefaultConfig(), []Query{joinAB()})
	require.Error(t, err)
	assert.True(t, dberror.HasCode(err, dberror.CodeCancelled))
}

// chainQuery joins n copies of b, each to the next on a_id = id.
func chainQuery(n int) Query {
	var q Query
	for i := 0; i < n; i++ {
		q.Tables = append(q.Tables, TableRef{Alias: fmt.Sprintf("t%d", i), Table: "b"})
		if i > 0 {
			q.Joins = append(q.Joins, JoinPredicate{
				Left:  qn(fmt.Sprintf("t%d", i-1), "a_id"),
				Right: qn(fmt.Sprintf("t%d", i), "id"),
				Op:    primitives.Equals,
			})
		}
	}
	q.Select = []primitives.QualifiedName{qn("t0", "id")}
	q.LossWeight = 0.5
	return q
}

func TestOptimizeChain(t *testing.T) {
	res, err := newOptimizer(t, nil).Optimize(chainQuery(4))
	require.NoError(t, err)
	assert.Equal(t, 3, CountRelations(res.Cache.BestPlans(res.Graph.Aliases())[0].Joins))
}

func BenchmarkOptimizeChain(b *testing.B) {
	for _, n := range []int{2, 4, 6} {
		q := chainQuery(n)
		b.Run(fmt.Sprintf("tables=%d", n), func(b *testing.B) {
			opt := newOptimizer(b, nil)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := opt.Optimize(q); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
