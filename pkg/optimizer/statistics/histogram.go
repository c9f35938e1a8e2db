package statistics

import (
	"fmt"
	"math"
	"strings"

	dberror "imputedb/pkg/error"
	"imputedb/pkg/primitives"

	"github.com/olekukonko/tablewriter"
)

// Histogram summarizes one integer column with equal-width buckets over
// [min, max]. Alongside the per-bucket value counts it tracks how many rows
// have the column missing and, optionally, how much missingness in other
// columns co-occurs with each bucket.
//
// AddValue and friends mutate the histogram and are meant for collection
// only. Every other operation leaves the receiver untouched and returns a
// new instance, so a collected histogram can be shared freely.
type Histogram struct {
	min, max int64
	width    uint64 // values per bucket; the last may be narrower, 0 means 2^64
	counts   []float64
	missing  float64

	// missingFields[b] counts missing fields in other columns of rows whose
	// value falls in bucket b; missingTuples[b] counts such rows with at
	// least one missing field.
	missingFields []float64
	missingTuples []float64
}

// Bucket is a read-only view of one histogram bucket.
type Bucket struct {
	Low, High int64
	Count     float64
}

// NewHistogram creates an empty histogram with at most bucketCount buckets
// covering [min, max]. Narrow ranges get one bucket per value.
func NewHistogram(bucketCount int, min, max int64) (*Histogram, error) {
	if bucketCount <= 0 {
		return nil, dberror.InvalidArgument("histogram needs at least one bucket, got %d", bucketCount)
	}
	if max < min {
		return nil, dberror.InvalidArgument("histogram range [%d, %d] is empty", min, max)
	}

	// last is the offset of max from min; the range holds last+1 values,
	// which is 2^64 for the full int64 range.
	last := uint64(max) - uint64(min)
	n := uint64(bucketCount)
	if last < n-1 {
		n = last + 1
	}
	width := last/n + 1
	// wide buckets may cover the range with fewer than n
	if width != 0 {
		n = last/width + 1
	}

	return &Histogram{
		min:           min,
		max:           max,
		width:         width,
		counts:        make([]float64, n),
		missingFields: make([]float64, n),
		missingTuples: make([]float64, n),
	}, nil
}

// AddValue records one non-missing value. Values outside [min, max] are
// clamped to the nearest edge bucket.
func (h *Histogram) AddValue(v int64) {
	h.counts[h.bucketOf(v)]++
}

// AddValueWithMissing records a value whose row has missingOthers missing
// fields in other columns.
func (h *Histogram) AddValueWithMissing(v int64, missingOthers int) {
	b := h.bucketOf(v)
	h.counts[b]++
	if missingOthers > 0 {
		h.missingFields[b] += float64(missingOthers)
		h.missingTuples[b]++
	}
}

// AddMissing records one row where the column is missing.
func (h *Histogram) AddMissing() {
	h.missing++
}

func (h *Histogram) Min() int64 { return h.min }
func (h *Histogram) Max() int64 { return h.max }

// NumBuckets returns the number of buckets.
func (h *Histogram) NumBuckets() int { return len(h.counts) }

// NonMissing returns the number of recorded values.
func (h *Histogram) NonMissing() float64 {
	return sum(h.counts)
}

// Missing returns the number of rows with the column missing.
func (h *Histogram) Missing() float64 {
	return h.missing
}

// Total returns NonMissing + Missing.
func (h *Histogram) Total() float64 {
	return h.NonMissing() + h.missing
}

// Buckets returns a copy of the bucket boundaries and counts.
func (h *Histogram) Buckets() []Bucket {
	out := make([]Bucket, len(h.counts))
	for b := range h.counts {
		lo, hi := h.bounds(b)
		out[b] = Bucket{Low: lo, High: hi, Count: h.counts[b]}
	}
	return out
}

// EstimateSelectivity returns the fraction of rows, missing ones included,
// satisfying "column op v". A v outside [min, max] gives the operator's
// limit, and NotEqual is the complement of Equals.
func (h *Histogram) EstimateSelectivity(op primitives.Predicate, v int64) (float64, error) {
	total := h.Total()
	if total == 0 {
		if op == primitives.Like {
			return 0, dberror.Unsupported("LIKE is not supported on integer histograms")
		}
		return 0, nil
	}

	if v < h.min || v > h.max {
		return outOfRange(op, v < h.min)
	}
	if op == primitives.NotEqual {
		eq, err := h.EstimateSelectivity(primitives.Equals, v)
		if err != nil {
			return 0, err
		}
		return clamp01(1 - eq), nil
	}

	matched, err := h.matching(op, v, h.counts, h.NonMissing())
	if err != nil {
		return 0, err
	}
	return clamp01(matched / total), nil
}

// outOfRange returns the selectivity of "column op v" for v outside
// [min, max]. No recorded value can equal v.
func outOfRange(op primitives.Predicate, below bool) (float64, error) {
	switch op {
	case primitives.Equals:
		return 0, nil
	case primitives.NotEqual:
		return 1, nil
	case primitives.GreaterThan, primitives.GreaterThanOrEqual:
		if below {
			return 1, nil
		}
		return 0, nil
	case primitives.LessThan, primitives.LessThanOrEqual:
		if below {
			return 0, nil
		}
		return 1, nil
	case primitives.Like:
		return 0, dberror.Unsupported("LIKE is not supported on integer histograms")
	default:
		return 0, dberror.InvalidArgument("unknown operator %d", int(op))
	}
}

// EstimateSelectivityNull returns the fraction of rows satisfying
// "column IS NULL" (Equals) or "column IS NOT NULL" (NotEqual). Other
// operators never match a missing value.
func (h *Histogram) EstimateSelectivityNull(op primitives.Predicate) float64 {
	total := h.Total()
	if total == 0 {
		return 0
	}

	switch op {
	case primitives.Equals:
		return h.missing / total
	case primitives.NotEqual:
		return h.NonMissing() / total
	default:
		return 0
	}
}

// EstimateMissing estimates how much missingness in other columns falls on
// rows satisfying "column op v". With granular set the result counts missing
// fields, otherwise rows with at least one missing field.
func (h *Histogram) EstimateMissing(op primitives.Predicate, v int64, granular bool) (float64, error) {
	arr := h.missingTuples
	if granular {
		arr = h.missingFields
	}
	return h.matching(op, v, arr, sum(arr))
}

// Mean returns the average value, using bucket midpoints.
func (h *Histogram) Mean() float64 {
	n := h.NonMissing()
	if n == 0 {
		return 0
	}

	var acc float64
	for b, c := range h.counts {
		acc += h.midpoint(b) * c
	}
	return acc / n
}

// Variance returns the population variance, using bucket midpoints.
func (h *Histogram) Variance() float64 {
	n := h.NonMissing()
	if n == 0 {
		return 0
	}

	mean := h.Mean()
	var acc float64
	for b, c := range h.counts {
		d := h.midpoint(b) - mean
		acc += c * d * d
	}
	return acc / n
}

// DistinctEstimate bounds the number of distinct values: a bucket holds at
// most as many distinct values as it is wide.
func (h *Histogram) DistinctEstimate() float64 {
	var acc float64
	for b, c := range h.counts {
		acc += math.Min(c, h.bucketWidth(b))
	}
	return acc
}

// ScaleBy multiplies every bucket by factor. The missing count is left alone.
func (h *Histogram) ScaleBy(factor float64) *Histogram {
	out := h.clone()
	for b := range out.counts {
		out.counts[b] *= factor
		out.missingFields[b] *= factor
		out.missingTuples[b] *= factor
	}
	return out
}

// Redistribute adds extra values spread over the buckets in proportion to
// their current share. An empty histogram spreads them by bucket width.
func (h *Histogram) Redistribute(extra float64) *Histogram {
	out := h.clone()
	n := h.NonMissing()
	for b := range out.counts {
		out.counts[b] += extra * h.share(b, n)
	}
	return out
}

// ScaleTo resizes the buckets so their total is exactly target, keeping
// their relative proportions.
func (h *Histogram) ScaleTo(target float64) *Histogram {
	if target < 0 {
		target = 0
	}

	out := h.clone()
	n := h.NonMissing()
	factor := 0.0
	if n > 0 {
		factor = target / n
	}
	for b := range out.counts {
		out.counts[b] = target * h.share(b, n)
		out.missingFields[b] *= factor
		out.missingTuples[b] *= factor
	}
	return out
}

// WithMissing returns a copy with the missing count replaced.
func (h *Histogram) WithMissing(missing float64) *Histogram {
	out := h.clone()
	out.missing = math.Max(missing, 0)
	return out
}

func (h *Histogram) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Histogram[%d..%d] width=%d missing=%.2f\n", h.min, h.max, h.width, h.missing))

	tw := tablewriter.NewWriter(&sb)
	tw.SetHeader([]string{"low", "high", "count"})
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	tw.SetBorder(false)
	for _, b := range h.Buckets() {
		tw.Append([]string{
			fmt.Sprintf("%d", b.Low),
			fmt.Sprintf("%d", b.High),
			fmt.Sprintf("%.2f", b.Count),
		})
	}
	tw.Render()
	return sb.String()
}

// matching returns how much of arr falls on values satisfying "op v".
// arrTotal is sum(arr). Out-of-range values resolve to the operator's limit
// without reading any bucket.
func (h *Histogram) matching(op primitives.Predicate, v int64, arr []float64, arrTotal float64) (float64, error) {
	below, above := v < h.min, v > h.max

	switch op {
	case primitives.Equals, primitives.NotEqual:
		eq := 0.0
		if !below && !above {
			b := h.bucketOf(v)
			eq = arr[b] / h.bucketWidth(b)
		}
		if op == primitives.Equals {
			return eq, nil
		}
		return arrTotal - eq, nil

	case primitives.GreaterThan, primitives.GreaterThanOrEqual:
		if below {
			return arrTotal, nil
		}
		if above {
			return 0, nil
		}
		b := h.bucketOf(v)
		_, hi := h.bounds(b)
		inside := float64(uint64(hi) - uint64(v))
		if op == primitives.GreaterThanOrEqual {
			inside++
		}
		acc := arr[b] / h.bucketWidth(b) * inside
		for i := b + 1; i < len(arr); i++ {
			acc += arr[i]
		}
		return acc, nil

	case primitives.LessThan, primitives.LessThanOrEqual:
		if below {
			return 0, nil
		}
		if above {
			return arrTotal, nil
		}
		b := h.bucketOf(v)
		lo, _ := h.bounds(b)
		inside := float64(uint64(v) - uint64(lo))
		if op == primitives.LessThanOrEqual {
			inside++
		}
		acc := arr[b] / h.bucketWidth(b) * inside
		for i := 0; i < b; i++ {
			acc += arr[i]
		}
		return acc, nil

	case primitives.Like:
		return 0, dberror.Unsupported("LIKE is not supported on integer histograms")

	default:
		return 0, dberror.InvalidArgument("unknown operator %d", int(op))
	}
}

func (h *Histogram) bucketOf(v int64) int {
	if v <= h.min {
		return 0
	}
	if v >= h.max {
		return len(h.counts) - 1
	}
	if h.width == 0 {
		return 0
	}
	return int((uint64(v) - uint64(h.min)) / h.width)
}

// bounds returns the inclusive value range of bucket b. Offsets from min
// are computed in uint64 so that ranges wider than int64 can hold work.
func (h *Histogram) bounds(b int) (int64, int64) {
	last := uint64(h.max) - uint64(h.min)
	lo := uint64(b) * h.width
	hi := lo + h.width - 1
	if hi > last || hi < lo {
		hi = last
	}
	return int64(uint64(h.min) + lo), int64(uint64(h.min) + hi)
}

// bucketWidth returns the number of values bucket b covers, as a float64
// since a single bucket over all of int64 covers 2^64.
func (h *Histogram) bucketWidth(b int) float64 {
	lo, hi := h.bounds(b)
	return float64(uint64(hi)-uint64(lo)) + 1
}

func (h *Histogram) midpoint(b int) float64 {
	lo, hi := h.bounds(b)
	return (float64(lo) + float64(hi)) / 2
}

// share is bucket b's fraction of n, or of the value range when n is zero.
func (h *Histogram) share(b int, n float64) float64 {
	if n > 0 {
		return h.counts[b] / n
	}
	return h.bucketWidth(b) / (float64(uint64(h.max)-uint64(h.min)) + 1)
}

func (h *Histogram) clone() *Histogram {
	return &Histogram{
		min:           h.min,
		max:           h.max,
		width:         h.width,
		counts:        append([]float64(nil), h.counts...),
		missing:       h.missing,
		missingFields: append([]float64(nil), h.missingFields...),
		missingTuples: append([]float64(nil), h.missingTuples...),
	}
}

func sum(xs []float64) float64 {
	var acc float64
	for _, x := range xs {
		acc += x
	}
	return acc
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
