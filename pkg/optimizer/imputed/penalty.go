package imputed

import "fmt"

// Penalty accumulates information loss as a running average. Combining the
// penalties of two sub-plans averages them instead of adding them, so deep
// plans are not punished for their depth alone.
type Penalty struct {
	sum   float64
	count int
}

// EmptyPenalty is the penalty of a plan that lost nothing.
var EmptyPenalty = Penalty{}

// NewPenalty starts an accumulator with one observed loss.
func NewPenalty(loss float64) Penalty {
	return Penalty{sum: loss, count: 1}
}

// Add records one more loss.
func (p Penalty) Add(loss float64) Penalty {
	return Penalty{sum: p.sum + loss, count: p.count + 1}
}

// Combine merges two accumulators.
func (p Penalty) Combine(other Penalty) Penalty {
	return Penalty{sum: p.sum + other.sum, count: p.count + other.count}
}

// Value is the average loss, or zero when nothing was recorded.
func (p Penalty) Value() float64 {
	if p.count == 0 {
		return 0
	}
	return p.sum / float64(p.count)
}

func (p Penalty) Sum() float64 { return p.sum }
func (p Penalty) Count() int { return p.count }

func (p Penalty) String() string {
	return fmt.Sprintf("%.4f (%d)", p.Value(), p.count)
}
