// Package exthash implements C4, the extendible hash table used by hash
// joins: a directory of 2^globalDepth bucket references over a set of
// buckets, each sized to fit roughly one page and supporting duplicate
// keys. Directory doubling and bucket splitting follow spec.md §4.3.
//
// The hash function is the exact integer-mixing function pinned by
// spec.md §4.3 rather than the xxHash used elsewhere in this module
// (engine/join's radix partitioning, persist's column checksums): the
// spec calls out that InvariantViolation on a pathological collision
// cluster "surfaces only on a broken hash", so the mixing function's exact
// bit pattern is part of the contract under test, not an implementation
// detail free to vary.
package exthash

import "github.com/rpcpool/coldb/errs"

// BucketEntries is the number of entries per bucket, chosen so a bucket
// fits in one 4KiB page: a (key int32, value int32) pair is 8 bytes, so
// 4096/8 = 512 entries per page.
const BucketEntries = 512

// maxSplitRetries bounds the number of consecutive directory-doubling /
// bucket-split rounds a single Put may trigger before it is treated as a
// fatal, unresolvable collision cluster.
const maxSplitRetries = 10

// Hash mixes an int32 key into a 32-bit hash using the fixed integer
// mixing function from spec.md §4.3: deterministic within a process,
// independent of map iteration order or any other non-determinism.
func Hash(key int32) uint32 {
	x := uint32(key)
	x ^= x >> 16
	x *= 0x45d9f3b
	x ^= x >> 16
	x *= 0x45d9f3b
	x ^= x >> 16
	return x
}

type entry struct {
	key   int32
	value int32
}

type bucket struct {
	localDepth uint
	entries    []entry
}

// Table is an extendible hash table mapping int32 keys to int32 values,
// allowing duplicate keys.
type Table struct {
	globalDepth uint
	directory   []*bucket
}

// New returns an empty table with a single bucket and global depth 0.
func New() *Table {
	b := &bucket{localDepth: 0}
	return &Table{globalDepth: 0, directory: []*bucket{b}}
}

func (t *Table) slot(key int32) uint32 {
	mask := uint32(1)<<t.globalDepth - 1
	return Hash(key) & mask
}

// Put inserts (key, value), doubling the directory and splitting buckets
// as needed.
func (t *Table) Put(key, value int32) errs.Status {
	for retries := 0; ; retries++ {
		if retries > maxSplitRetries {
			return errs.Wrap(errs.KindInvariantViolation, "extendible hash: too many splits inserting key %d (broken hash?)", key)
		}
		idx := t.slot(key)
		b := t.directory[idx]
		if len(b.entries) < BucketEntries {
			b.entries = append(b.entries, entry{key: key, value: value})
			return errs.OK()
		}
		if b.localDepth == t.globalDepth {
			t.growDirectory()
		}
		t.splitBucket(idx)
		// retry: directory/bucket state changed, recompute slot next loop
	}
}

// growDirectory doubles the directory size, duplicating each existing
// slot's bucket reference into the newly revealed high-bit slot so that
// directory slots agreeing on the low (old) global_depth bits still point
// to the same bucket.
func (t *Table) growDirectory() {
	old := t.directory
	t.directory = make([]*bucket, len(old)*2)
	copy(t.directory, old)
	copy(t.directory[len(old):], old)
	t.globalDepth++
}

// splitBucket splits the bucket currently referenced at directory index
// idx: allocates a new bucket, bumps both buckets' local depth by one,
// and redistributes entries by the newly revealed bit.
func (t *Table) splitBucket(idx uint32) {
	oldBucket := t.directory[idx]
	newDepth := oldBucket.localDepth + 1
	newBit := uint32(1) << (newDepth - 1)

	// Signature: the low (localDepth) bits shared by every directory slot
	// that currently points at oldBucket.
	signature := idx & (newBit - 1)

	newBucket := &bucket{localDepth: newDepth}
	oldBucket.localDepth = newDepth

	for i := range t.directory {
		if t.directory[i] == oldBucket && uint32(i)&(newBit-1) == signature && uint32(i)&newBit != 0 {
			t.directory[i] = newBucket
		}
	}

	kept := oldBucket.entries[:0]
	var moved []entry
	for _, e := range oldBucket.entries {
		if Hash(e.key)&newBit != 0 {
			moved = append(moved, e)
		} else {
			kept = append(kept, e)
		}
	}
	oldBucket.entries = kept
	newBucket.entries = moved
}

// Get returns every stored value whose key equals key, in insertion order.
func (t *Table) Get(key int32) []int32 {
	b := t.directory[t.slot(key)]
	var out []int32
	for _, e := range b.entries {
		if e.key == key {
			out = append(out, e.value)
		}
	}
	return out
}

// GlobalDepth returns the current directory depth, exposed for invariant
// testing.
func (t *Table) GlobalDepth() uint { return t.globalDepth }

// CheckInvariants verifies the structural invariants from spec.md §4.3:
// directory size is 2^globalDepth, every directory slot whose low
// local_depth bits match a bucket's signature refers to that bucket and
// only that bucket, and local_depth <= global_depth everywhere.
func (t *Table) CheckInvariants() errs.Status {
	if len(t.directory) != 1<<t.globalDepth {
		return errs.Wrap(errs.KindInvariantViolation, "directory size %d != 2^%d", len(t.directory), t.globalDepth)
	}
	seen := map[*bucket]bool{}
	for i, b := range t.directory {
		if b.localDepth > t.globalDepth {
			return errs.Wrap(errs.KindInvariantViolation, "bucket at slot %d has local depth %d > global depth %d", i, b.localDepth, t.globalDepth)
		}
		if seen[b] {
			continue
		}
		seen[b] = true
		mask := uint32(1)<<b.localDepth - 1
		signature := uint32(i) & mask
		for j, other := range t.directory {
			if uint32(j)&mask == signature && other != b {
				return errs.Wrap(errs.KindInvariantViolation, "slot %d shares signature with bucket at slot %d but points elsewhere", j, i)
			}
		}
	}
	return errs.OK()
}
