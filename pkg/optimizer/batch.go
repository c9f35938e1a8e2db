package optimizer

import (
	"context"
	"runtime"

	dberror "imputedb/pkg/error"
	"imputedb/pkg/logging"
	"imputedb/pkg/optimizer/statistics"

	"golang.org/x/sync/errgroup"
)

// PlanAll plans independent queries concurrently. Each query gets its own
// cache; the provider is only read. Results are in query order. The first
// failure cancels the queries not yet started and is returned.
func PlanAll(ctx context.Context, provider statistics.Provider, cfg Config, queries []Query) ([]*Result, error) {
	opt, err := NewImputeOptimizer(provider, cfg)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, q := range queries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return dberror.Wrap(err, dberror.CodeCancelled, "PlanAll", "optimizer")
			}
			res, err := opt.Optimize(q)
			if err != nil {
				return err
			}
			results[i] = res
			logging.WithQuery(len(q.Tables), len(q.Joins)).Debug("batch query planned", "index", i, "run_id", res.RunID)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	logging.WithComponent("optimizer").Info("batch planned", "queries", len(queries))
	return results, nil
}
