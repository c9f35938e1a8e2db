package plancache

import "math"

// Point is the pair a plan is ranked by.
type Point struct {
	Loss float64
	Time float64
}

// Cost blends loss and time with the given loss weight.
func (p Point) Cost(lossWeight float64) float64 {
	return lossWeight*p.Loss + (1-lossWeight)*p.Time
}

// Dominates reports whether p is at least as good as o on both axes.
func (p Point) Dominates(o Point) bool {
	return p.Loss <= o.Loss && p.Time <= o.Time
}

// Close reports whether p lies within 5% of o's loss and within half of o's
// time either way.
func (p Point) Close(o Point) bool {
	return math.Abs(p.Loss-o.Loss) <= approxLossTolerance*math.Abs(o.Loss) &&
		p.Time >= approxTimeLow*o.Time && p.Time <= approxTimeHigh*o.Time
}

const (
	approxLossTolerance = 0.05
	approxTimeLow       = 0.5
	approxTimeHigh      = 1.5
)

// Policy decides which plans survive for one cache key.
type Policy interface {
	Name() string

	// Admit is called with the plans already kept for a key and a new
	// candidate for it. It returns which existing plans to keep and whether
	// the candidate joins them. existing is never empty.
	Admit(existing []Point, candidate Point, approximate bool) (keep []bool, admitted bool)
}

// Single keeps one plan per key: the one with the lowest weighted cost.
type Single struct {
	LossWeight float64
}

func (Single) Name() string { return "single" }

// Admit replaces the kept plan only on a strictly lower cost.
func (s Single) Admit(existing []Point, candidate Point, _ bool) ([]bool, bool) {
	if candidate.Cost(s.LossWeight) < existing[0].Cost(s.LossWeight) {
		return make([]bool, len(existing)), true
	}
	return allKept(len(existing)), false
}

// Pareto keeps every plan that no other kept plan dominates on loss and time.
type Pareto struct{}

func (Pareto) Name() string { return "pareto" }

// Admit rejects a dominated candidate and evicts the plans the candidate
// dominates. In approximate mode a candidate close to a kept plan is
// rejected and the kept set is left as it was.
func (Pareto) Admit(existing []Point, candidate Point, approximate bool) ([]bool, bool) {
	keep := allKept(len(existing))
	for _, e := range existing {
		if e.Dominates(candidate) {
			return keep, false
		}
	}
	if approximate {
		for _, e := range existing {
			if candidate.Close(e) {
				return keep, false
			}
		}
	}
	for i, e := range existing {
		keep[i] = !candidate.Dominates(e)
	}
	return keep, true
}

func allKept(n int) []bool {
	keep := make([]bool, n)
	for i := range keep {
		keep[i] = true
	}
	return keep
}

// PolicyByName resolves a configured policy.
func PolicyByName(name string, lossWeight float64) (Policy, bool) {
	switch name {
	case "", "pareto":
		return Pareto{}, true
	case "single":
		return Single{LossWeight: lossWeight}, true
	default:
		return nil, false
	}
}
