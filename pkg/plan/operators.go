package plan

import (
	"fmt"
	"sort"
	"strings"

	"imputedb/pkg/primitives"
)

// FilterNode represents a selection (WHERE clause filter)
type FilterNode struct {
	BasePlanNode
	Child      PlanNode        // Input relation
	Predicates []PredicateInfo // Conjunction of filter predicates
}

func (f *FilterNode) GetNodeType() string {
	return "Filter"
}

func (f *FilterNode) String() string {
	preds := make([]string, len(f.Predicates))
	for i, p := range f.Predicates {
		preds[i] = p.String()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Filter(%s, cost=%.2f, rows=%.0f)\n",
		strings.Join(preds, " AND "), f.Cost, f.Cardinality))
	sb.WriteString(indent(f.Child.String(), 2))
	return sb.String()
}

func (f *FilterNode) GetChildren() []PlanNode {
	return []PlanNode{f.Child}
}

// DropNode removes the rows missing any of Columns
type DropNode struct {
	BasePlanNode
	Child   PlanNode // Input relation
	Columns []string // Qualified columns that must be present
}

func (d *DropNode) GetNodeType() string {
	return "Drop"
}

func (d *DropNode) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Drop(%s, cost=%.2f, rows=%.0f)\n",
		strings.Join(d.Columns, ", "), d.Cost, d.Cardinality))
	sb.WriteString(indent(d.Child.String(), 2))
	return sb.String()
}

func (d *DropNode) GetChildren() []PlanNode {
	return []PlanNode{d.Child}
}

// ImputeNode fills in the missing values of Columns
type ImputeNode struct {
	BasePlanNode
	Child    PlanNode           // Input relation
	Columns  []string           // Qualified columns to repair
	Strategy string             // Imputation model name ("random", "mean")
	Values   map[string]float64 // Replacement value per column, for models that use a constant
}

func (i *ImputeNode) GetNodeType() string {
	return "Impute"
}

func (i *ImputeNode) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Impute(%s, %s", i.Strategy, strings.Join(i.Columns, ", ")))
	if len(i.Values) > 0 {
		keys := make([]string, 0, len(i.Values))
		for k := range i.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf(", %s:=%.2f", k, i.Values[k]))
		}
	}
	sb.WriteString(fmt.Sprintf(", cost=%.2f, rows=%.0f)\n", i.Cost, i.Cardinality))
	sb.WriteString(indent(i.Child.String(), 2))
	return sb.String()
}

func (i *ImputeNode) GetChildren() []PlanNode {
	return []PlanNode{i.Child}
}

// ProjectNode represents a projection (SELECT column list)
type ProjectNode struct {
	BasePlanNode
	Child   PlanNode // Input relation
	Columns []string // Projection columns
}

func (p *ProjectNode) GetNodeType() string {
	return "Project"
}

func (p *ProjectNode) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Project(%s, cost=%.2f, rows=%.0f)\n",
		strings.Join(p.Columns, ", "), p.Cost, p.Cardinality))
	sb.WriteString(indent(p.Child.String(), 2))
	return sb.String()
}

func (p *ProjectNode) GetChildren() []PlanNode {
	return []PlanNode{p.Child}
}

// AggregateNode represents a single aggregate, optionally grouped by one column
type AggregateNode struct {
	BasePlanNode
	Child     PlanNode               // Input relation
	GroupBy   string                 // Grouping column, empty for a scalar aggregate
	Op        primitives.AggregateOp // Aggregate function
	AggColumn string                 // Aggregated column
}

func (a *AggregateNode) GetNodeType() string {
	return "Aggregate"
}

func (a *AggregateNode) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Aggregate(%s(%s)", a.Op, a.AggColumn))
	if a.GroupBy != "" {
		sb.WriteString(fmt.Sprintf(" GROUP BY %s", a.GroupBy))
	}
	sb.WriteString(fmt.Sprintf(", cost=%.2f, rows=%.0f)\n", a.Cost, a.Cardinality))
	sb.WriteString(indent(a.Child.String(), 2))
	return sb.String()
}

func (a *AggregateNode) GetChildren() []PlanNode {
	return []PlanNode{a.Child}
}

// SortNode represents a sort operation (ORDER BY)
type SortNode struct {
	BasePlanNode
	Child     PlanNode // Input relation
	SortKey   string   // Sort column
	Ascending bool     // True for ASC, false for DESC
}

func (s *SortNode) GetNodeType() string {
	return "Sort"
}

func (s *SortNode) String() string {
	order := "DESC"
	if s.Ascending {
		order = "ASC"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Sort(%s %s, cost=%.2f, rows=%.0f)\n",
		s.SortKey, order, s.Cost, s.Cardinality))
	sb.WriteString(indent(s.Child.String(), 2))
	return sb.String()
}

func (s *SortNode) GetChildren() []PlanNode {
	return []PlanNode{s.Child}
}
