package statistics

import (
	dberror "imputedb/pkg/error"
	"imputedb/pkg/primitives"
)

// DefaultBuckets is the histogram resolution used when none is given.
const DefaultBuckets = 100

// Collect computes statistics over rows in two passes: the first finds each
// column's range, the second fills the histograms. A nil cell is a missing
// value. Every row must have one cell per column.
func Collect(columns []string, rows [][]*int64, bucketCount int) (*TableStats, error) {
	if len(columns) == 0 {
		return nil, dberror.InvalidArgument("cannot collect statistics without columns")
	}
	if bucketCount <= 0 {
		bucketCount = DefaultBuckets
	}

	mins := make([]int64, len(columns))
	maxs := make([]int64, len(columns))
	seen := make([]bool, len(columns))
	for r, row := range rows {
		if len(row) != len(columns) {
			return nil, dberror.InvalidArgument("row %d has %d cells, want %d", r, len(row), len(columns))
		}
		for c, cell := range row {
			if cell == nil {
				continue
			}
			if !seen[c] || *cell < mins[c] {
				mins[c] = *cell
			}
			if !seen[c] || *cell > maxs[c] {
				maxs[c] = *cell
			}
			seen[c] = true
		}
	}

	hists := make([]*Histogram, len(columns))
	for c := range columns {
		h, err := NewHistogram(bucketCount, mins[c], maxs[c])
		if err != nil {
			return nil, err
		}
		hists[c] = h
	}

	for _, row := range rows {
		missing := 0
		for _, cell := range row {
			if cell == nil {
				missing++
			}
		}
		for c, cell := range row {
			if cell == nil {
				hists[c].AddMissing()
				continue
			}
			hists[c].AddValueWithMissing(*cell, missing)
		}
	}

	names := make([]primitives.QualifiedName, len(columns))
	for i, c := range columns {
		names[i] = primitives.NewQualifiedName("", c)
	}
	return newTableStats(names, hists), nil
}
