package plan

import (
	"strings"
	"testing"

	"imputedb/pkg/primitives"

	"github.com/stretchr/testify/assert"
)

func samplePlan() PlanNode {
	orders := NewScanNode("orders", "o")
	orders.SetCost(2515)
	orders.SetCardinality(10300)

	imputed := &ImputeNode{Child: orders, Columns: []string{"o.amount"}, Strategy: "mean", Values: map[string]float64{"o.amount": 42}}
	customers := NewScanNode("customers", "c")

	join := NewJoinNode(imputed, customers, "o.cid", "c.id", primitives.Equals)
	join.SetCardinality(10300)
	return &SortNode{Child: join, SortKey: "o.amount", Ascending: true}
}

func TestPlanString(t *testing.T) {
	s := samplePlan().String()

	assert.True(t, strings.HasPrefix(s, "Sort(o.amount ASC"))
	assert.Contains(t, s, "Join(hash, on=o.cid = c.id")
	assert.Contains(t, s, "Impute(mean, o.amount, o.amount:=42.00")
	assert.Contains(t, s, "Scan(orders AS o, cost=2515.00, rows=10300)")
	assert.Contains(t, s, "\n    Scan(customers AS c")
}

func TestJoinMethodFor(t *testing.T) {
	assert.Equal(t, HashJoin, JoinMethodFor(primitives.Equals))
	assert.Equal(t, HashJoin, JoinMethodFor(primitives.Like))
	assert.Equal(t, NestedLoopJoin, JoinMethodFor(primitives.LessThan))
	assert.Equal(t, NestedLoopJoin, JoinMethodFor(primitives.NotEqual))
}

func TestPredicateInfo_String(t *testing.T) {
	assert.Equal(t, "t.a >= 5", PredicateInfo{Column: "t.a", Predicate: primitives.GreaterThanOrEqual, Value: 5}.String())
	assert.Equal(t, "t.a IS NULL", PredicateInfo{Column: "t.a", Predicate: primitives.Equals, IsNull: true}.String())
	assert.Equal(t, "t.a IS NOT NULL", PredicateInfo{Column: "t.a", Predicate: primitives.NotEqual, IsNull: true}.String())
}

func TestVisualize(t *testing.T) {
	out := NewPlanVisualizer().Visualize(samplePlan())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	assert.Equal(t, []string{
		"Sort [cost=0.00, rows=0]",
		"└── Join [cost=0.00, rows=10300]",
		"    ├── Impute [cost=0.00, rows=0]",
		"    │   └── Scan [cost=2515.00, rows=10300]",
		"    └── Scan [cost=0.00, rows=0]",
	}, lines)
}

func TestWalk(t *testing.T) {
	var types []string
	Walk(samplePlan(), func(n PlanNode) bool {
		types = append(types, n.GetNodeType())
		return n.GetNodeType() != "Impute"
	})
	assert.Equal(t, []string{"Sort", "Join", "Impute", "Scan"}, types)
	assert.Equal(t, 0.0, GetPlanCost(nil))
}
