package primitives

import (
	"slices"
	"strings"
)

// DirtySet is an immutable, sorted set of attributes that may still hold
// missing values. The zero value is the empty set.
type DirtySet struct {
	names []QualifiedName
}

// NewDirtySet builds a set from names in any order; duplicates collapse.
func NewDirtySet(names ...QualifiedName) DirtySet {
	if len(names) == 0 {
		return DirtySet{}
	}
	sorted := slices.Clone(names)
	slices.SortFunc(sorted, QualifiedName.Compare)
	sorted = slices.CompactFunc(sorted, func(a, b QualifiedName) bool { return a == b })
	return DirtySet{names: sorted}
}

// Names returns a copy of the members in canonical order.
func (d DirtySet) Names() []QualifiedName {
	return slices.Clone(d.names)
}

func (d DirtySet) Len() int {
	return len(d.names)
}

func (d DirtySet) IsEmpty() bool {
	return len(d.names) == 0
}

func (d DirtySet) Contains(q QualifiedName) bool {
	_, found := slices.BinarySearchFunc(d.names, q, QualifiedName.Compare)
	return found
}

// Union returns d ∪ other.
func (d DirtySet) Union(other DirtySet) DirtySet {
	if other.IsEmpty() {
		return d
	}
	if d.IsEmpty() {
		return other
	}
	return NewDirtySet(append(slices.Clone(d.names), other.names...)...)
}

// Intersect returns d ∩ other.
func (d DirtySet) Intersect(other DirtySet) DirtySet {
	var out []QualifiedName
	for _, n := range d.names {
		if other.Contains(n) {
			out = append(out, n)
		}
	}
	return DirtySet{names: out}
}

// Difference returns d \ other.
func (d DirtySet) Difference(other DirtySet) DirtySet {
	var out []QualifiedName
	for _, n := range d.names {
		if !other.Contains(n) {
			out = append(out, n)
		}
	}
	return DirtySet{names: out}
}

// SubsetOf reports whether every member of d is in other.
func (d DirtySet) SubsetOf(other DirtySet) bool {
	for _, n := range d.names {
		if !other.Contains(n) {
			return false
		}
	}
	return true
}

// Equal compares membership.
func (d DirtySet) Equal(other DirtySet) bool {
	return slices.Equal(d.names, other.names)
}

// Aliases returns the distinct table aliases of the members, sorted.
func (d DirtySet) Aliases() []string {
	var out []string
	for _, n := range d.names {
		if len(out) == 0 || out[len(out)-1] != n.Alias {
			out = append(out, n.Alias)
		}
	}
	return out
}

// Key is the canonical string form, usable as a map key. Equal sets have equal keys.
func (d DirtySet) Key() string {
	if len(d.names) == 0 {
		return "{}"
	}
	parts := make([]string, len(d.names))
	for i, n := range d.names {
		parts[i] = n.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func (d DirtySet) String() string {
	return d.Key()
}
