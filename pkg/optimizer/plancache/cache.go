// Package plancache stores candidate plans keyed by the tables they cover
// and the attributes they leave dirty.
//
// A cache is built for one optimizer run and is not safe for concurrent use.
// Which plans survive an insert is decided by a Policy: Single keeps the
// cheapest plan per key, Pareto keeps the loss/time frontier.
package plancache

import (
	"slices"
	"strings"

	dberror "imputedb/pkg/error"
	"imputedb/pkg/optimizer/imputed"
	"imputedb/pkg/primitives"
)

// Plan is what the cache stores. imputed.Node satisfies it.
type Plan interface {
	DirtySet() primitives.DirtySet
	Penalty() imputed.Penalty
	Time() float64
}

// Key identifies one slot of the cache.
type Key struct {
	Tables string
	Dirty  string
}

func (k Key) String() string {
	return "[" + k.Tables + "] " + k.Dirty
}

// TablesKey canonicalises a set of table aliases.
func TablesKey(tables []string) string {
	sorted := slices.Clone(tables)
	slices.Sort(sorted)
	return strings.Join(slices.Compact(sorted), ",")
}

// Entry is one cached plan.
type Entry[P Plan] struct {
	Tables []string
	// Joins is the bitmask of join predicates the plan already applies.
	Joins uint64
	Plan  P

	point Point
	seq   int
}

// Loss is the plan's averaged penalty.
func (e *Entry[P]) Loss() float64 { return e.point.Loss }

// Time is the plan's estimated execution cost.
func (e *Entry[P]) Time() float64 { return e.point.Time }

// Cost blends loss and time.
func (e *Entry[P]) Cost(lossWeight float64) float64 { return e.point.Cost(lossWeight) }

// Cache maps (tables, dirty set) to the plans the policy keeps for it.
type Cache[P Plan] struct {
	policy      Policy
	approximate bool

	slots    map[Key][]*Entry[P]
	keys     []Key            // insertion order
	byTables map[string][]Key // table set -> its keys in insertion order
	seq      int
}

// New creates an empty cache governed by policy.
func New[P Plan](policy Policy) *Cache[P] {
	return &Cache[P]{
		policy:   policy,
		slots:    make(map[Key][]*Entry[P]),
		byTables: make(map[string][]Key),
	}
}

// Policy returns the policy the cache was built with.
func (c *Cache[P]) Policy() Policy {
	return c.policy
}

// SetApproximate toggles the approximate admission of the Pareto policy.
func (c *Cache[P]) SetApproximate(on bool) {
	c.approximate = on
}

// Approximate reports whether approximate admission is on.
func (c *Cache[P]) Approximate() bool {
	return c.approximate
}

// Add offers a plan that applies no joins.
func (c *Cache[P]) Add(tables []string, plan P) bool {
	return c.AddWithJoins(tables, 0, plan)
}

// AddWithJoins offers a plan for the given tables and reports whether the
// policy kept it.
func (c *Cache[P]) AddWithJoins(tables []string, joins uint64, plan P) bool {
	tk := TablesKey(tables)
	key := Key{Tables: tk, Dirty: plan.DirtySet().Key()}

	c.seq++
	entry := &Entry[P]{
		Tables: strings.Split(tk, ","),
		Joins:  joins,
		Plan:   plan,
		point:  Point{Loss: plan.Penalty().Value(), Time: plan.Time()},
		seq:    c.seq,
	}

	existing, ok := c.slots[key]
	if !ok || len(existing) == 0 {
		if !ok {
			c.keys = append(c.keys, key)
			c.byTables[tk] = append(c.byTables[tk], key)
		}
		c.slots[key] = []*Entry[P]{entry}
		return true
	}

	points := make([]Point, len(existing))
	for i, e := range existing {
		points[i] = e.point
	}
	keep, admitted := c.policy.Admit(points, entry.point, c.approximate)

	next := make([]*Entry[P], 0, len(existing)+1)
	for i, e := range existing {
		if keep[i] {
			next = append(next, e)
		}
	}
	if admitted {
		next = append(next, entry)
		slices.SortStableFunc(next, compareEntries[P])
	}
	c.slots[key] = next
	return admitted
}

func compareEntries[P Plan](a, b *Entry[P]) int {
	switch {
	case a.point.Loss < b.point.Loss:
		return -1
	case a.point.Loss > b.point.Loss:
		return 1
	case a.point.Time < b.point.Time:
		return -1
	case a.point.Time > b.point.Time:
		return 1
	}
	return a.seq - b.seq
}

// BestPlans returns every plan kept for the table set, across dirty sets.
func (c *Cache[P]) BestPlans(tables []string) []*Entry[P] {
	var out []*Entry[P]
	for _, key := range c.byTables[TablesKey(tables)] {
		out = append(out, c.slots[key]...)
	}
	return out
}

// PlansFor returns the plans kept under one exact key.
func (c *Cache[P]) PlansFor(tables []string, dirty primitives.DirtySet) []*Entry[P] {
	key := Key{Tables: TablesKey(tables), Dirty: dirty.Key()}
	return slices.Clone(c.slots[key])
}

// Best returns the plan with the lowest weighted cost for the table set.
// Ties go to the plan listed first by BestPlans.
func (c *Cache[P]) Best(lossWeight float64, tables []string) (*Entry[P], bool) {
	var best *Entry[P]
	for _, e := range c.BestPlans(tables) {
		if best == nil || e.Cost(lossWeight) < best.Cost(lossWeight) {
			best = e
		}
	}
	return best, best != nil
}

// FinalPlan picks, among the plans for the table set, the fastest one whose
// loss is within lossBound of the smallest loss available. Only Pareto
// caches keep enough plans for this to be meaningful.
func (c *Cache[P]) FinalPlan(lossBound float64, tables []string) (*Entry[P], error) {
	if _, ok := c.policy.(Pareto); !ok {
		return nil, dberror.Unsupported("final plan selection needs the pareto policy, cache uses %s", c.policy.Name())
	}

	plans := c.BestPlans(tables)
	if len(plans) == 0 {
		return nil, dberror.AssertionFailed(dberror.CodeNoCoveringPlan, "no plan covers %s", TablesKey(tables))
	}

	minLoss := plans[0].Loss()
	for _, e := range plans[1:] {
		minLoss = min(minLoss, e.Loss())
	}

	var best *Entry[P]
	for _, e := range plans {
		if e.Loss()-minLoss > lossBound {
			continue
		}
		if best == nil || e.Time() < best.Time() {
			best = e
		}
	}
	return best, nil
}

// Len returns the number of plans kept.
func (c *Cache[P]) Len() int {
	n := 0
	for _, plans := range c.slots {
		n += len(plans)
	}
	return n
}

// Slot is one key with its plans, as exported by Snapshot.
type Slot[P Plan] struct {
	Key   Key
	Plans []*Entry[P]
}

// Snapshot lists every non-empty slot in insertion order.
func (c *Cache[P]) Snapshot() []Slot[P] {
	out := make([]Slot[P], 0, len(c.keys))
	for _, key := range c.keys {
		if plans := c.slots[key]; len(plans) > 0 {
			out = append(out, Slot[P]{Key: key, Plans: slices.Clone(plans)})
		}
	}
	return out
}
