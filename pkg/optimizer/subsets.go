package optimizer

// SubsetIterator enumerates the k-element subsets of {0, ..., n-1} as
// bitmasks, in lexicographic order of their reversed member lists
// (Knuth, TAOCP 7.2.1.3, Algorithm L). It is finite and restartable.
type SubsetIterator struct {
	n, k int
	c    []int // c[1..k] are the members; c[k+1], c[k+2] are sentinels
	done bool
}

// NewSubsetIterator creates an iterator over the subsets of size k of n
// elements. n must not exceed 64.
func NewSubsetIterator(n, k int) *SubsetIterator {
	it := &SubsetIterator{n: n, k: k}
	it.Reset()
	return it
}

// Reset restarts the enumeration. A k outside [0, n] yields no subsets.
func (it *SubsetIterator) Reset() {
	it.done = it.k < 0 || it.k > it.n || it.n > maxJoins
	if it.done {
		it.c = nil
		return
	}
	it.c = make([]int, it.k+3)
	for j := 1; j <= it.k; j++ {
		it.c[j] = j - 1
	}
	it.c[it.k+1] = it.n
	it.c[it.k+2] = 0
}

// Next returns the next subset, or false once every subset was produced.
func (it *SubsetIterator) Next() (uint64, bool) {
	if it.done {
		return 0, false
	}

	var set uint64
	for j := 1; j <= it.k; j++ {
		set |= 1 << uint(it.c[j])
	}

	j := 1
	for it.c[j]+1 == it.c[j+1] {
		it.c[j] = j - 1
		j++
	}
	if j > it.k {
		it.done = true
	} else {
		it.c[j]++
	}
	return set, true
}

// Subsets collects every k-subset of n elements.
func Subsets(n, k int) []uint64 {
	var out []uint64
	it := NewSubsetIterator(n, k)
	for set, ok := it.Next(); ok; set, ok = it.Next() {
		out = append(out, set)
	}
	return out
}
