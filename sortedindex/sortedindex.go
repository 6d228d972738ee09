// Package sortedindex implements C2, the page-blocked sorted index used for
// both clustered (borrowed pointer into the primary column) and
// unclustered (owned keys[]/positions[]) secondary structures described in
// spec.md §3 and §4.1.
package sortedindex

import (
	"sort"

	"github.com/rpcpool/coldb/errs"
)

// PageKeys is the page-blocked search granularity: spec.md calls it "a
// fixed constant ≈1024 keys" and names cache-line locality, not
// correctness, as the reason a hand-rolled search is used instead of a
// single sort.Search call over the whole array.
const PageKeys = 1024

// Index is a sorted secondary structure over a column's i32 values.
//
// A clustered Index borrows the owning column's base array directly: it
// never copies keys and never accepts inserts (the base array itself is
// kept sorted by the insert coordinator). An unclustered Index owns its
// own keys/positions arrays, sorted by (key, position).
type Index struct {
	clustered bool

	// clustered view: borrowed pointer into the column's base array.
	base *[]int32

	// unclustered view: owned, parallel, sorted by (key, position).
	keys      []int32
	positions []uint32
}

// NewClustered returns an Index borrowing base. base must already be (and
// must remain) sorted by the insert coordinator.
func NewClustered(base *[]int32) *Index {
	return &Index{clustered: true, base: base}
}

// NewUnclustered returns an empty, owned, unclustered Index.
func NewUnclustered() *Index {
	return &Index{clustered: false}
}

// Clustered reports whether this index borrows the base array.
func (ix *Index) Clustered() bool { return ix.clustered }

// Len returns the number of entries currently indexed.
func (ix *Index) Len() int {
	if ix.clustered {
		return len(*ix.base)
	}
	return len(ix.keys)
}

// pageSearch performs a page-blocked binary search for the first index i in
// keys[lo:hi] such that keys[i] >= target, narrowing to a page-sized window
// via endpoint comparisons before falling back to an in-page binary search.
// This is the "outer recursion narrows to a page-sized window" algorithm
// from spec.md §4.1.
func pageSearch(keys []int32, target int32) int {
	n := len(keys)
	if n == 0 {
		return 0
	}
	lo, hi := 0, n
	for hi-lo > PageKeys {
		mid := lo + (hi-lo)/2
		// snap mid down to a page boundary so each probe narrows the
		// window to whole pages, not arbitrary sub-ranges.
		mid -= mid % PageKeys
		if mid <= lo {
			mid = lo + PageKeys
		}
		if mid >= hi {
			break
		}
		if keys[mid] < target {
			lo = mid
		} else {
			hi = mid
		}
	}
	// in-page binary search over keys[lo:hi], returning first key >= target.
	return lo + sort.Search(hi-lo, func(i int) bool {
		return keys[lo+i] >= target
	})
}

// GetRange returns all positions whose key lies in [lo, hi) in
// position-ascending order. Never returns more than the actual matches; an
// out-of-range query returns an empty (never nil-panicking) slice.
func (ix *Index) GetRange(lo, hi int32) []uint32 {
	if ix.clustered {
		base := *ix.base
		i := pageSearch(base, lo)
		j := pageSearch(base, hi)
		if j < i {
			j = i
		}
		out := make([]uint32, 0, j-i)
		for p := i; p < j; p++ {
			out = append(out, uint32(p))
		}
		return out
	}

	i := pageSearch(ix.keys, lo)
	j := pageSearch(ix.keys, hi)
	if j < i {
		j = i
	}
	out := make([]uint32, j-i)
	copy(out, ix.positions[i:j])
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// FindInsertPosition returns the position a new row with the given key
// should be inserted at to keep the clustered base array sorted: the first
// position whose key is strictly greater than key, i.e. after any existing
// equal keys, matching btree.Tree.FindInsertPosition's tie-break so the two
// clustered index kinds agree on where a duplicate key lands.
func (ix *Index) FindInsertPosition(key int32) uint32 {
	keys := ix.keys
	if ix.clustered {
		keys = *ix.base
	}
	return uint32(sort.Search(len(keys), func(i int) bool { return keys[i] > key }))
}

// Insert adds (key, pos) to an unclustered index, keeping it sorted by
// (key, position) and shifting stored positions >= pos up by one to
// reflect the base array insertion at pos. It is disallowed on a clustered
// index.
func (ix *Index) Insert(key int32, pos uint32) errs.Status {
	if ix.clustered {
		return errs.Wrap(errs.KindInvariantViolation, "insert on clustered sorted index is disallowed")
	}
	for i, p := range ix.positions {
		if p >= pos {
			ix.positions[i] = p + 1
		}
	}
	at := sort.Search(len(ix.keys), func(i int) bool {
		if ix.keys[i] != key {
			return ix.keys[i] > key
		}
		return ix.positions[i] > pos
	})
	ix.keys = append(ix.keys, 0)
	ix.positions = append(ix.positions, 0)
	copy(ix.keys[at+1:], ix.keys[at:len(ix.keys)-1])
	copy(ix.positions[at+1:], ix.positions[at:len(ix.positions)-1])
	ix.keys[at] = key
	ix.positions[at] = pos
	return errs.OK()
}

// BuildUnclustered constructs an unclustered Index directly from parallel
// keys/positions slices in one sort, rather than one Insert call per entry.
// Used by the persist package to rebuild an index from a loaded column
// without paying the O(n^2) cost of replaying per-row shifted inserts.
func BuildUnclustered(keys []int32, positions []uint32) *Index {
	type kv struct {
		key int32
		pos uint32
	}
	pairs := make([]kv, len(keys))
	for i := range keys {
		pairs[i] = kv{keys[i], positions[i]}
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].key != pairs[b].key {
			return pairs[a].key < pairs[b].key
		}
		return pairs[a].pos < pairs[b].pos
	})
	ix := &Index{keys: make([]int32, len(pairs)), positions: make([]uint32, len(pairs))}
	for i, p := range pairs {
		ix.keys[i] = p.key
		ix.positions[i] = p.pos
	}
	return ix
}

// Keys returns the unclustered index's owned keys slice, for testing and
// persistence; panics if called on a clustered index.
func (ix *Index) Keys() []int32 {
	if ix.clustered {
		panic("sortedindex: Keys() called on clustered index")
	}
	return ix.keys
}

// Positions returns the unclustered index's owned positions slice.
func (ix *Index) Positions() []uint32 {
	if ix.clustered {
		panic("sortedindex: Positions() called on clustered index")
	}
	return ix.positions
}
