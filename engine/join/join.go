// Package join implements C10: a partitioned hash join and a page-blocked
// nested-loop join, both producing aligned (left, right) position pairs,
// per spec.md §4.7.
package join

import (
	"context"
	"runtime"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/rpcpool/coldb/errs"
	"github.com/rpcpool/coldb/exthash"
)

// Pair is one matched (left position, right position) row produced by a
// join. Output order is unspecified; callers that need a canonical order
// must sort explicitly.
type Pair struct {
	Left  uint32
	Right uint32
}

// partitionCount is the number of radix partitions a hash join splits each
// side into, sized so each partition's build side comfortably fits in an
// exthash.Table built fresh per partition.
const partitionCount = 256

// partitionHash is xxhash rather than exthash.Hash: partitioning only needs
// to spread keys evenly across buckets, not the exact bit pattern
// exthash.Hash fixes for the extendible hash table's directory slots.
func partitionHash(key int32) uint64 {
	var buf [4]byte
	buf[0] = byte(key)
	buf[1] = byte(key >> 8)
	buf[2] = byte(key >> 16)
	buf[3] = byte(key >> 24)
	return xxhash.Sum64(buf[:])
}

type keyPos struct {
	key int32
	pos uint32
}

// HashJoin performs an equi-join on leftKeys[i] == rightKeys[j], returning
// every matching (i, j) position pair. Work is split into partitionCount
// radix partitions processed concurrently via an errgroup, at most
// runtime.GOMAXPROCS partitions at a time: each partition
// builds the smaller side into its own exthash.Table, probes with the
// other side, and discards the table once probing completes.
func HashJoin(ctx context.Context, leftKeys, rightKeys []int32) ([]Pair, errs.Status) {
	leftParts := partition(leftKeys)
	rightParts := partition(rightKeys)

	results := make([][]Pair, partitionCount)
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for p := 0; p < partitionCount; p++ {
		p := p
		g.Go(func() error {
			results[p] = joinPartition(leftParts[p], rightParts[p])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errs.Wrap(errs.KindExecutionError, "hash join: %v", err)
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	out := make([]Pair, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	return out, errs.OK()
}

func partition(keys []int32) [][]keyPos {
	parts := make([][]keyPos, partitionCount)
	for pos, k := range keys {
		p := partitionHash(k) % partitionCount
		parts[p] = append(parts[p], keyPos{key: k, pos: uint32(pos)})
	}
	return parts
}

// joinPartition builds the smaller of the two partition-local sides into a
// fresh exthash.Table, keyed on the join key with the row position as the
// stored value, then probes every row of the larger side against it. The
// table is local to this call and is freed (garbage collected) as soon as
// probing finishes.
func joinPartition(left, right []keyPos) []Pair {
	if len(left) == 0 || len(right) == 0 {
		return nil
	}

	buildLeft := len(left) <= len(right)
	build, probe := left, right
	if !buildLeft {
		build, probe = right, left
	}

	table := exthash.New()
	for _, kp := range build {
		table.Put(kp.key, int32(kp.pos))
	}

	var out []Pair
	for _, kp := range probe {
		for _, buildPos := range table.Get(kp.key) {
			if buildLeft {
				out = append(out, Pair{Left: uint32(buildPos), Right: kp.pos})
			} else {
				out = append(out, Pair{Left: kp.pos, Right: uint32(buildPos)})
			}
		}
	}
	return out
}

// nestedLoopPageSize bounds the inner loop's working set so a nested-loop
// join scans the right side in page-sized chunks rather than one giant
// pass, improving cache locality the same way sortedindex's page-blocked
// search does.
const nestedLoopPageSize = 1024

// NestedLoopJoin performs an equi-join by comparing every left key against
// every right key in page-blocked chunks of the right side. It makes no
// assumption about key order or distribution and is the fallback join
// strategy when neither side is amenable to partitioning (e.g. very small
// inputs where hash-table setup cost would dominate).
func NestedLoopJoin(leftKeys, rightKeys []int32) []Pair {
	var out []Pair
	for start := 0; start < len(rightKeys); start += nestedLoopPageSize {
		end := start + nestedLoopPageSize
		if end > len(rightKeys) {
			end = len(rightKeys)
		}
		page := rightKeys[start:end]
		for li, lk := range leftKeys {
			for ri, rk := range page {
				if lk == rk {
					out = append(out, Pair{Left: uint32(li), Right: uint32(start + ri)})
				}
			}
		}
	}
	return out
}
