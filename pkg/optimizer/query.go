package optimizer

import (
	"fmt"
	"strings"

	dberror "imputedb/pkg/error"
	"imputedb/pkg/optimizer/imputed"
	"imputedb/pkg/optimizer/statistics"
	"imputedb/pkg/primitives"
)

// Query is the logical description of a SELECT handed to the optimizer.
// Joins are listed in left-deep order; the optimizer is free to reorder them.
type Query struct {
	Tables    []TableRef
	Filters   []imputed.Filter
	Joins     []JoinPredicate
	GroupBy   *primitives.QualifiedName
	Aggregate *AggregateClause
	OrderBy   *OrderByClause

	// Select lists the output columns. Empty selects every column.
	Select []primitives.QualifiedName

	// LossWeight in [0,1] blends loss and time into one cost.
	LossWeight float64
}

// TableRef binds a catalog table to an alias.
type TableRef struct {
	Alias string
	Table string
}

// JoinPredicate represents a join condition "Left Op Right" between two aliases
type JoinPredicate struct {
	Left  primitives.QualifiedName
	Right primitives.QualifiedName
	Op    primitives.Predicate
}

func (j JoinPredicate) String() string {
	return fmt.Sprintf("%s %s %s", j.Left, j.Op, j.Right)
}

// AggregateClause is the single aggregate of a query.
type AggregateClause struct {
	Op     primitives.AggregateOp
	Column primitives.QualifiedName
}

// OrderByClause sorts the output on one column.
type OrderByClause struct {
	Column    primitives.QualifiedName
	Ascending bool
}

// Relation represents a base relation (table) in the join graph
type Relation struct {
	ID         int                    // Position in the query's table list
	Alias      string                 // Table alias
	TableName  string                 // Catalog table name
	Stats      *statistics.TableStats // Statistics qualified by Alias
	Base       *statistics.TableStats // Statistics as the provider returned them
	PrimaryKey string                 // Unqualified key column, empty if none
	Filters    []imputed.Filter       // Filters on this relation only
}

// JoinGraph represents a query's relations and the join predicates between them.
// Join i is bit i of a join set.
type JoinGraph struct {
	Relations []*Relation
	Joins     []JoinPredicate

	byAlias map[string]*Relation
}

// maxJoins is the width of the join-set bitmask.
const maxJoins = 64

// NewJoinGraph resolves every table, filter and join of q against provider.
// Unknown aliases and columns fail here, before any planning starts.
func NewJoinGraph(q Query, provider statistics.Provider) (*JoinGraph, error) {
	if len(q.Tables) == 0 {
		return nil, dberror.Newf(dberror.ErrCategoryUser, dberror.CodeInvalidArgument, "query has no tables")
	}
	if len(q.Joins) > maxJoins {
		return nil, dberror.Unsupported("%d joins exceed the limit of %d", len(q.Joins), maxJoins)
	}

	jg := &JoinGraph{
		Joins:   append([]JoinPredicate(nil), q.Joins...),
		byAlias: make(map[string]*Relation, len(q.Tables)),
	}

	for i, ref := range q.Tables {
		if _, dup := jg.byAlias[ref.Alias]; dup {
			return nil, dberror.Newf(dberror.ErrCategoryUser, dberror.CodeInvalidArgument,
				"alias %q is used twice", ref.Alias)
		}
		base, err := provider.TableStats(ref.Table)
		if err != nil {
			return nil, err
		}
		key, _ := provider.PrimaryKey(ref.Table)

		rel := &Relation{
			ID:         i,
			Alias:      ref.Alias,
			TableName:  ref.Table,
			Stats:      base.Qualify(ref.Alias),
			Base:       base,
			PrimaryKey: key,
		}
		jg.Relations = append(jg.Relations, rel)
		jg.byAlias[ref.Alias] = rel
	}

	for _, f := range q.Filters {
		rel, err := jg.resolve(f.Column)
		if err != nil {
			return nil, err
		}
		rel.Filters = append(rel.Filters, f)
	}

	for _, j := range q.Joins {
		if _, err := jg.resolve(j.Left); err != nil {
			return nil, err
		}
		if _, err := jg.resolve(j.Right); err != nil {
			return nil, err
		}
		if j.Left.Alias == j.Right.Alias {
			return nil, dberror.Newf(dberror.ErrCategoryUser, dberror.CodeInvalidArgument,
				"join %s compares a table with itself", j)
		}
	}
	return jg, nil
}

// resolve checks that q names an existing column of a known alias.
func (jg *JoinGraph) resolve(q primitives.QualifiedName) (*Relation, error) {
	rel, ok := jg.byAlias[q.Alias]
	if !ok {
		return nil, dberror.UnknownTable(q.Alias).At("resolve", "JoinGraph")
	}
	if _, ok := rel.Stats.ColumnIndex(q); !ok {
		return nil, dberror.UnknownColumn(q.String()).At("resolve", "JoinGraph")
	}
	return rel, nil
}

// Relation returns the relation bound to alias.
func (jg *JoinGraph) Relation(alias string) (*Relation, bool) {
	rel, ok := jg.byAlias[alias]
	return rel, ok
}

// Aliases returns every alias in query order.
func (jg *JoinGraph) Aliases() []string {
	out := make([]string, len(jg.Relations))
	for i, rel := range jg.Relations {
		out[i] = rel.Alias
	}
	return out
}

// AliasesOf returns the aliases the joins in joinSet touch.
func (jg *JoinGraph) AliasesOf(joinSet uint64) map[string]bool {
	out := make(map[string]bool)
	for i, j := range jg.Joins {
		if joinSet&(1<<uint(i)) != 0 {
			out[j.Left.Alias] = true
			out[j.Right.Alias] = true
		}
	}
	return out
}

// Spec turns join i into a node-level join spec with key flags filled in.
func (jg *JoinGraph) Spec(i int) imputed.JoinSpec {
	j := jg.Joins[i]
	return imputed.JoinSpec{
		Left:     j.Left,
		Right:    j.Right,
		Op:       j.Op,
		LeftKey:  jg.byAlias[j.Left.Alias].PrimaryKey == j.Left.Attr,
		RightKey: jg.byAlias[j.Right.Alias].PrimaryKey == j.Right.Attr,
	}
}

// GetRelationCount returns the number of relations in the graph
func (jg *JoinGraph) GetRelationCount() int {
	return len(jg.Relations)
}

// CountRelations counts the number of members in a bitmask
func CountRelations(set uint64) int {
	count := 0
	for set != 0 {
		count++
		set &= set - 1 // Clear the lowest set bit
	}
	return count
}

// String returns a string representation of the join graph
func (jg *JoinGraph) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("JoinGraph with %d relations:\n", len(jg.Relations)))
	for _, rel := range jg.Relations {
		sb.WriteString(fmt.Sprintf("  R%d: %s AS %s (dirty: %s)\n", rel.ID, rel.TableName, rel.Alias, rel.Stats.DirtyColumns()))
		for _, f := range rel.Filters {
			sb.WriteString(fmt.Sprintf("    Filter: %s\n", f))
		}
	}
	sb.WriteString(fmt.Sprintf("Join predicates (%d):\n", len(jg.Joins)))
	for i, j := range jg.Joins {
		sb.WriteString(fmt.Sprintf("  J%d: %s\n", i, j))
	}
	return sb.String()
}
