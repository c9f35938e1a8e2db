// Package planreport renders optimizer results and plan caches for humans:
// aligned tables, Graphviz DOT, YAML snapshots and a styled terminal summary.
package planreport

import (
	"io"

	dberror "imputedb/pkg/error"
	"imputedb/pkg/optimizer/imputed"
	"imputedb/pkg/optimizer/plancache"

	"gopkg.in/yaml.v3"
)

// CacheSnapshot is the exported form of a plan cache.
type CacheSnapshot struct {
	Policy      string         `yaml:"policy"`
	Approximate bool           `yaml:"approximate"`
	Slots       []SlotSnapshot `yaml:"slots"`
}

// SlotSnapshot is one (tables, dirty set) key with its plans, best first.
type SlotSnapshot struct {
	Tables string         `yaml:"tables"`
	Dirty  string         `yaml:"dirty"`
	Plans  []PlanSnapshot `yaml:"plans"`
}

// PlanSnapshot summarises one cached plan.
type PlanSnapshot struct {
	Kind  string  `yaml:"kind"`
	Loss  float64 `yaml:"loss"`
	Time  float64 `yaml:"time"`
	Rows  float64 `yaml:"rows"`
	Joins int     `yaml:"joins"`
	Plan  string  `yaml:"plan"`
}

// NewCacheSnapshot copies the contents of c in insertion order.
func NewCacheSnapshot(c *plancache.Cache[imputed.Node]) CacheSnapshot {
	snap := CacheSnapshot{
		Policy:      c.Policy().Name(),
		Approximate: c.Approximate(),
	}
	for _, slot := range c.Snapshot() {
		s := SlotSnapshot{Tables: slot.Key.Tables, Dirty: slot.Key.Dirty}
		for _, e := range slot.Plans {
			s.Plans = append(s.Plans, PlanSnapshot{
				Kind:  e.Plan.Kind().String(),
				Loss:  e.Loss(),
				Time:  e.Time(),
				Rows:  e.Plan.Cardinality(),
				Joins: popcount(e.Joins),
				Plan:  e.Plan.String(),
			})
		}
		snap.Slots = append(snap.Slots, s)
	}
	return snap
}

// WriteYAML encodes the snapshot of c to w.
func WriteYAML(w io.Writer, c *plancache.Cache[imputed.Node]) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewCacheSnapshot(c)); err != nil {
		return dberror.Wrap(err, dberror.CodeInvalidArgument, "WriteYAML", "planreport")
	}
	return enc.Close()
}

// ReadYAML decodes a snapshot written by WriteYAML.
func ReadYAML(r io.Reader) (CacheSnapshot, error) {
	var snap CacheSnapshot
	if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
		return CacheSnapshot{}, dberror.Wrap(err, dberror.CodeInvalidArgument, "ReadYAML", "planreport")
	}
	return snap, nil
}

func popcount(x uint64) int {
	n := 0
	for ; x != 0; x &= x - 1 {
		n++
	}
	return n
}
