package optimizer

import (
	"log/slog"
	"slices"

	dberror "imputedb/pkg/error"
	"imputedb/pkg/logging"
	"imputedb/pkg/optimizer/imputed"
	"imputedb/pkg/optimizer/plancache"
	"imputedb/pkg/optimizer/statistics"
	"imputedb/pkg/plan"
	"imputedb/pkg/primitives"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// ImputeOptimizer chooses join order and imputation placement together.
//
// Plans are built bottom-up over join subsets, Selinger style. Every access
// and every join is tried under each way of dropping or imputing the
// attributes it needs, and the cache keeps, per (tables, dirty set), the
// plans worth extending. The optimizer itself is stateless between calls and
// safe for concurrent use as long as the provider is.
type ImputeOptimizer struct {
	provider statistics.Provider
	config   Config
	est      imputed.Estimator
}

// Result is the outcome of planning one query.
type Result struct {
	// Plan is the chosen candidate.
	Plan imputed.Node

	// Physical is the executable plan, with ordering and projection on top.
	Physical plan.PlanNode

	// DirtySet lists the output attributes that may still be missing.
	DirtySet primitives.DirtySet

	// Stats describes the output relation. Nil for aggregates.
	Stats *statistics.TableStats

	// Cache holds every candidate kept while planning, for inspection.
	Cache *plancache.Cache[imputed.Node]

	Graph *JoinGraph
	RunID string
}

// NewImputeOptimizer creates an optimizer reading statistics from provider.
func NewImputeOptimizer(provider statistics.Provider, cfg Config) (*ImputeOptimizer, error) {
	if provider == nil {
		return nil, dberror.InvalidArgument("statistics provider is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	est, err := cfg.estimator()
	if err != nil {
		return nil, err
	}
	return &ImputeOptimizer{provider: provider, config: cfg, est: est}, nil
}

// Config returns the configuration the optimizer runs with.
func (o *ImputeOptimizer) Config() Config {
	return o.config
}

// optimizerRun is the state of planning one query.
type optimizerRun struct {
	opt    *ImputeOptimizer
	query  Query
	graph  *JoinGraph
	cache  *plancache.Cache[imputed.Node]
	policy plancache.Policy
	global primitives.DirtySet
	log    *slog.Logger
}

// Optimize plans q. Unknown tables or columns and missing statistics fail
// before planning starts; a query whose tables cannot all be joined fails
// with a NoCoveringPlan error.
func (o *ImputeOptimizer) Optimize(q Query) (*Result, error) {
	runID := uuid.NewString()
	log := logging.WithRun(runID)

	res, err := o.optimize(q, runID, log)
	if err != nil {
		logging.WithError(err).Debug("planning failed", "run_id", runID)
		return nil, err
	}
	return res, nil
}

func (o *ImputeOptimizer) optimize(q Query, runID string, log *slog.Logger) (*Result, error) {
	if q.LossWeight < 0 || q.LossWeight > 1 {
		return nil, dberror.Newf(dberror.ErrCategoryUser, dberror.CodeInvalidArgument,
			"loss weight must be in [0, 1], got %g", q.LossWeight)
	}

	graph, err := NewJoinGraph(q, o.provider)
	if err != nil {
		return nil, err
	}

	policy, _ := plancache.PolicyByName(o.config.CachePolicy, q.LossWeight)
	r := &optimizerRun{
		opt:    o,
		query:  q,
		graph:  graph,
		cache:  plancache.New[imputed.Node](policy),
		policy: policy,
		log:    log,
	}

	if r.global, err = r.requiredAttributes(); err != nil {
		return nil, err
	}
	imputedTables := len(r.global.Aliases())
	if o.config.Approximate || imputedTables >= o.config.ApproximateTableThreshold {
		r.cache.SetApproximate(true)
	}
	log.Debug("planning query",
		"tables", graph.GetRelationCount(),
		"joins", len(graph.Joins),
		"required", r.global.Len(),
		"approximate", r.cache.Approximate())

	if err := r.optimizeAccess(); err != nil {
		return nil, err
	}
	if err := r.optimizeJoins(); err != nil {
		return nil, err
	}

	chosen, err := r.selectFinal()
	if err != nil {
		return nil, err
	}

	log.Info("plan selected",
		"kind", chosen.Kind().String(),
		"loss", chosen.Penalty().Value(),
		"time", chosen.Time(),
		"rows", chosen.Cardinality(),
		"dirty", chosen.DirtySet().String(),
		"cached", r.cache.Len())

	return &Result{
		Plan:     chosen,
		Physical: r.wrapOutput(chosen),
		DirtySet: chosen.DirtySet(),
		Stats:    chosen.TableStats(),
		Cache:    r.cache,
		Graph:    graph,
		RunID:    runID,
	}, nil
}

// requiredAttributes collects every attribute the query reads: filter and
// join columns, the select list (every column when empty), ordering,
// grouping and aggregated columns. Each is checked to exist.
func (r *optimizerRun) requiredAttributes() (primitives.DirtySet, error) {
	q := r.query
	var attrs []primitives.QualifiedName

	for _, f := range q.Filters {
		attrs = append(attrs, f.Column)
	}
	for _, j := range q.Joins {
		attrs = append(attrs, j.Left, j.Right)
	}
	if len(q.Select) == 0 && q.Aggregate == nil {
		for _, rel := range r.graph.Relations {
			attrs = append(attrs, rel.Stats.Columns()...)
		}
	}

	named := slices.Clone(q.Select)
	if q.OrderBy != nil {
		named = append(named, q.OrderBy.Column)
	}
	if q.GroupBy != nil {
		named = append(named, *q.GroupBy)
	}
	if q.Aggregate != nil {
		named = append(named, q.Aggregate.Column)
	}
	for _, name := range named {
		if _, err := r.graph.resolve(name); err != nil {
			return primitives.DirtySet{}, err
		}
	}
	if q.GroupBy != nil && q.Aggregate == nil {
		return primitives.DirtySet{}, dberror.Newf(dberror.ErrCategoryUser, dberror.CodeInvalidArgument,
			"GROUP BY %s without an aggregate", *q.GroupBy)
	}

	return primitives.NewDirtySet(append(attrs, named...)...), nil
}

// optimizeAccess seeds the cache with the access candidates of every table.
func (r *optimizerRun) optimizeAccess() error {
	est := r.opt.est
	for _, rel := range r.graph.Relations {
		policies := primitives.AllImputationPolicies
		if r.opt.config.ImputeAtBase {
			policies = []primitives.ImputationPolicy{primitives.ImputeNone}
			if !rel.Stats.DirtyColumns().IsEmpty() {
				policies = []primitives.ImputationPolicy{primitives.ImputeMaximal}
			}
		}

		candidates, err := imputed.GenerateAccessCandidates(rel.TableName, rel.Alias, rel.Base,
			rel.Filters, policies, r.query.LossWeight, est)
		if err != nil {
			return err
		}
		for _, c := range candidates {
			r.cache.Add([]string{rel.Alias}, c)
		}
	}
	return nil
}

// optimizeJoins fills the cache for join subsets of increasing size. Every
// subset of size k is complete before any subset of size k+1 is started.
func (r *optimizerRun) optimizeJoins() error {
	n := len(r.graph.Joins)
	for size := 1; size <= n; size++ {
		it := NewSubsetIterator(n, size)
		subsets := 0
		for set, ok := it.Next(); ok; set, ok = it.Next() {
			subsets++
			for j := 0; j < n; j++ {
				if set&(1<<uint(j)) == 0 {
					continue
				}
				if err := r.computePlan(j, set); err != nil {
					return err
				}
			}
		}
		r.log.Debug("join level done", "size", size, "subsets", subsets, "cached", r.cache.Len())
	}
	return nil
}

// computePlan extends the plans for joinSet without join j by join j.
// The side already joined stays on the left; the newly added table goes on
// the right. When joinSet is just j, both sides are base tables and the
// swapped orientation is cached too.
func (r *optimizerRun) computePlan(j int, joinSet uint64) error {
	bit := uint64(1) << uint(j)
	rest := joinSet &^ bit
	spec := r.graph.Spec(j)
	simple := rest == 0

	var leftTables []string
	if simple {
		leftTables = []string{spec.Left.Alias}
	} else {
		joined := r.graph.AliasesOf(rest)
		hasLeft, hasRight := joined[spec.Left.Alias], joined[spec.Right.Alias]
		if hasLeft == hasRight {
			reason := "disconnected"
			if hasLeft {
				reason = "cycle"
			}
			r.log.Debug("join skipped",
				"join", r.graph.Joins[j].String(),
				"reason", reason,
				"rest", CountRelations(rest))
			return nil
		}
		if hasRight {
			spec = spec.Swap()
		}
		for alias := range joined {
			leftTables = append(leftTables, alias)
		}
	}
	rightTables := []string{spec.Right.Alias}
	allTables := append(slices.Clone(leftTables), spec.Right.Alias)
	required := primitives.NewDirtySet(spec.Left, spec.Right)

	var rights []imputed.Node
	for _, rp := range r.cache.BestPlans(rightTables) {
		choices, err := r.imputeChoices(rp.Plan, required)
		if err != nil {
			return err
		}
		rights = append(rights, choices...)
	}

	for _, lp := range r.cache.BestPlans(leftTables) {
		if lp.Joins&bit != 0 {
			continue
		}
		joins := lp.Joins | bit

		lefts, err := r.imputeChoices(lp.Plan, required)
		if err != nil {
			return err
		}
		for _, left := range lefts {
			for _, right := range rights {
				joined, err := imputed.NewJoin(left, right, spec, r.opt.est)
				if err != nil {
					return err
				}
				r.cache.AddWithJoins(allTables, joins, joined)

				if simple {
					swapped, err := joined.Swap()
					if err != nil {
						return err
					}
					r.cache.AddWithJoins(allTables, joins, swapped)
				}
			}
		}
	}
	return nil
}

// imputeChoices lists the ways to make local clean on n.
//
// must is the part of local that is dirty in n. When it is empty n itself
// qualifies; otherwise must is imputed or dropped. may widens must with the
// query's other dirty attributes so that repairing them early, while the
// relation is small, is also considered. Finally every dirty attribute may
// be imputed at once.
func (r *optimizerRun) imputeChoices(n imputed.Node, local primitives.DirtySet) ([]imputed.Node, error) {
	dirty := n.DirtySet()
	must := local.Intersect(dirty)
	may := r.global.Intersect(dirty).Union(must)

	var out []imputed.Node
	add := func(policy primitives.ImputationPolicy, attrs primitives.DirtySet) error {
		c, err := imputed.NewCompose(n, policy, attrs, r.opt.est)
		if errors.Is(err, imputed.ErrInfeasibleImputation) {
			return nil
		}
		if err != nil {
			return err
		}
		out = append(out, c)
		return nil
	}

	steps := []struct {
		when   bool
		policy primitives.ImputationPolicy
		attrs  primitives.DirtySet
	}{
		{!must.IsEmpty(), primitives.ImputeMinimal, must},
		{!must.IsEmpty(), primitives.ImputeDrop, must},
		{!may.IsEmpty() && !may.Equal(must), primitives.ImputeMinimal, may},
		{!may.IsEmpty() && !may.Equal(must), primitives.ImputeDrop, may},
		{!dirty.IsEmpty() && !dirty.Equal(may), primitives.ImputeMaximal, dirty},
	}

	if must.IsEmpty() {
		out = append(out, n)
	}
	for _, s := range steps {
		if !s.when {
			continue
		}
		if err := add(s.policy, s.attrs); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// selectFinal picks the plan to run among those covering every table.
func (r *optimizerRun) selectFinal() (imputed.Node, error) {
	q := r.query
	all := r.graph.Aliases()

	plans := r.cache.BestPlans(all)
	if len(plans) == 0 {
		return nil, dberror.AssertionFailed(dberror.CodeNoCoveringPlan,
			"no plan covers tables %s", plancache.TablesKey(all)).
			WithHint("every table must be connected to the others by a join predicate")
	}

	final := plancache.New[imputed.Node](r.policy)
	for _, p := range plans {
		switch {
		case q.Aggregate != nil:
			spec := imputed.AggregateSpec{GroupBy: q.GroupBy, Op: q.Aggregate.Op, Column: q.Aggregate.Column}
			choices, err := r.imputeChoices(p.Plan, spec.Attributes())
			if err != nil {
				return nil, err
			}
			for _, c := range choices {
				agg, err := imputed.NewAggregate(c, spec)
				if err != nil {
					return nil, err
				}
				final.Add(all, agg)
			}

		case r.opt.config.CleanOutput:
			choices, err := r.imputeChoices(p.Plan, r.outputAttributes())
			if err != nil {
				return nil, err
			}
			for _, c := range choices {
				final.Add(all, c)
			}

		default:
			final.Add(all, p.Plan)
		}
	}

	if _, pareto := r.policy.(plancache.Pareto); pareto && r.opt.config.LossBound >= 0 {
		e, err := final.FinalPlan(r.opt.config.LossBound, all)
		if err != nil {
			return nil, err
		}
		return e.Plan, nil
	}

	e, ok := final.Best(q.LossWeight, all)
	if !ok {
		return nil, dberror.AssertionFailed(dberror.CodeNoCoveringPlan,
			"no final plan for tables %s", plancache.TablesKey(all))
	}
	return e.Plan, nil
}

// outputAttributes are the columns the query returns or sorts on.
func (r *optimizerRun) outputAttributes() primitives.DirtySet {
	attrs := slices.Clone(r.query.Select)
	if len(attrs) == 0 {
		for _, rel := range r.graph.Relations {
			attrs = append(attrs, rel.Stats.Columns()...)
		}
	}
	if r.query.OrderBy != nil {
		attrs = append(attrs, r.query.OrderBy.Column)
	}
	return primitives.NewDirtySet(attrs...)
}

// wrapOutput puts ordering and projection on top of the chosen plan.
func (r *optimizerRun) wrapOutput(n imputed.Node) plan.PlanNode {
	q := r.query
	out := n.Physical()

	if q.OrderBy != nil {
		sort := &plan.SortNode{Child: out, SortKey: q.OrderBy.Column.String(), Ascending: q.OrderBy.Ascending}
		sort.SetCost(out.GetCost())
		sort.SetCardinality(n.Cardinality())
		out = sort
	}

	var columns []string
	switch {
	case len(q.Select) > 0:
		for _, c := range q.Select {
			columns = append(columns, c.String())
		}
	case q.Aggregate != nil:
		if q.GroupBy != nil {
			columns = append(columns, q.GroupBy.String())
		}
		columns = append(columns, q.Aggregate.Op.String()+"("+q.Aggregate.Column.String()+")")
	default:
		for _, c := range n.TableStats().Columns() {
			columns = append(columns, c.String())
		}
	}

	project := &plan.ProjectNode{Child: out, Columns: columns}
	project.SetCost(out.GetCost())
	project.SetCardinality(n.Cardinality())
	return project
}
