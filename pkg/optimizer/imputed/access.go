package imputed

import (
	"imputedb/pkg/logging"
	"imputedb/pkg/optimizer/statistics"
	"imputedb/pkg/primitives"

	"github.com/cockroachdb/errors"
)

// GenerateAccessCandidates tries each policy for one base table and keeps,
// per resulting dirty set, the access with the lowest weighted cost. Ties
// keep the earlier policy. Candidates come back in the order their dirty
// sets first appeared.
func GenerateAccessCandidates(table, alias string, base *statistics.TableStats, filters []Filter,
	policies []primitives.ImputationPolicy, lossWeight float64, est Estimator) ([]*ScanNode, error) {
	var (
		order []string
		best  = make(map[string]*ScanNode)
	)

	for _, policy := range policies {
		n, err := NewAccess(table, alias, base, policy, filters, est)
		if errors.Is(err, ErrInfeasibleImputation) {
			continue
		}
		if err != nil {
			return nil, err
		}

		key := n.DirtySet().Key()
		current, ok := best[key]
		switch {
		case !ok:
			order = append(order, key)
			best[key] = n
		case n.Cost(lossWeight) < current.Cost(lossWeight):
			best[key] = n
		}
	}

	out := make([]*ScanNode, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}

	logging.WithTable(table).Debug("access candidates",
		"alias", alias, "filters", len(filters), "candidates", len(out))
	return out, nil
}
