// Package selection implements C7: scan, index-accelerated, and
// shared-scan selection, producing PositionIndex results per spec.md §4.4.
//
// Range bounds are carried as int64 so that an open (null) upper bound can
// be represented as exactly math.MaxInt32+1 — an exclusive bound that
// still includes the int32 maximum value itself, which a plain int32 bound
// could never express.
package selection

import (
	"math"

	"github.com/rpcpool/coldb/catalog"
	"github.com/rpcpool/coldb/errs"
	"github.com/rpcpool/coldb/result"
	"github.com/rpcpool/coldb/session"
)

// NoLowerBound and NoUpperBound are the resolved bounds for a null (open)
// endpoint, per spec.md §4.4 ("ranges with an open endpoint map to the
// respective integer min/max").
const (
	NoLowerBound = math.MinInt32
	NoUpperBound = math.MaxInt32 + 1
)

// ResolveBounds turns nullable parsed bounds into concrete [lo, hi) ints.
func ResolveBounds(lo, hi *int32) (int64, int64) {
	loVal := int64(NoLowerBound)
	hiVal := int64(NoUpperBound)
	if lo != nil {
		loVal = int64(*lo)
	}
	if hi != nil {
		hiVal = int64(*hi)
	}
	return loVal, hiVal
}

// SelectColumn returns every position p with lo <= column[p] < hi. It uses
// the column's secondary index when present, otherwise falls back to a
// single linear scan.
func SelectColumn(col *catalog.Column, lo, hi int64) ([]uint32, errs.Status) {
	switch col.Kind {
	case catalog.IndexBTree:
		return col.BTree.Range(clampLo(lo), clampHi(hi)), errs.OK()
	case catalog.IndexSorted:
		return col.Sorted.GetRange(clampLo(lo), clampHi(hi)), errs.OK()
	default:
		return scanColumn(col.Data, lo, hi), errs.OK()
	}
}

// clampLo/clampHi saturate an int64 bound to the int32 range the
// underlying indexes operate on.
func clampLo(v int64) int32 {
	if v < math.MinInt32 {
		return math.MinInt32
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(v)
}

func clampHi(v int64) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}

func scanColumn(data []int32, lo, hi int64) []uint32 {
	out := make([]uint32, 0, len(data))
	for i, v := range data {
		vv := int64(v)
		if vv >= lo && vv < hi {
			out = append(out, uint32(i))
		}
	}
	return out[:len(out):len(out)]
}

// SelectPositional implements the result-column filter variant: given a
// prior (positions, values) pair of identical length, returns the subset
// of positions whose paired value falls in [lo, hi).
func SelectPositional(positions, values result.Value, lo, hi int64) (result.Value, errs.Status) {
	if positions.Type != result.PositionIndex || values.Type != result.Int32 {
		return result.Value{}, errs.Wrap(errs.KindQueryUnsupported, "select: positional filter requires (PositionIndex, Int32)")
	}
	if positions.Len() != values.Len() {
		return result.Value{}, errs.Wrap(errs.KindQueryUnsupported, "select: positional inputs must have identical length")
	}
	ps := positions.Positions()
	vs := values.Int32s()
	out := make([]uint32, 0, len(ps))
	for i, v := range vs {
		vv := int64(v)
		if vv >= lo && vv < hi {
			out = append(out, ps[i])
		}
	}
	return result.NewPositions(out), errs.OK()
}

// RunBatch executes a session's queued shared-scan selects in a single
// pass over the common base column, per spec.md §4.4's shared-scan
// batching algorithm, and returns each comparator's resulting positions
// keyed by handle name. If two scans share a handle, the later one's
// positions are the ones returned.
func RunBatch(scans []session.PendingScan) (map[string]result.Value, errs.Status) {
	if len(scans) == 0 {
		return map[string]result.Value{}, errs.OK()
	}
	col := scans[0].Column

	globalLo := int64(math.MaxInt64)
	globalHi := int64(math.MinInt64)
	for _, s := range scans {
		if int64(s.Lo) < globalLo {
			globalLo = int64(s.Lo)
		}
		if int64(s.Hi) > globalHi {
			globalHi = int64(s.Hi)
		}
	}

	buffers := make([][]uint32, len(scans))
	for i := range buffers {
		buffers[i] = make([]uint32, 0, len(col.Data))
	}

	for pos, v := range col.Data {
		vv := int64(v)
		if vv < globalLo || vv >= globalHi {
			continue
		}
		for i, s := range scans {
			if vv >= int64(s.Lo) && vv < int64(s.Hi) {
				buffers[i] = append(buffers[i], uint32(pos))
			}
		}
	}

	out := make(map[string]result.Value, len(scans))
	for i, s := range scans {
		out[s.Handle] = result.NewPositions(buffers[i])
	}
	return out, errs.OK()
}
