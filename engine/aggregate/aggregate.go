// Package aggregate implements C9: sum, avg, min/max (scalar and
// position-indexed), and elementwise add/sub, per spec.md §4.6.
package aggregate

import (
	"github.com/rpcpool/coldb/errs"
	"github.com/rpcpool/coldb/result"
)

// Sum totals an Int32 operand into a single-element Int64 result. An empty
// input produces an empty result, not a zero-valued scalar.
func Sum(v result.Value) (result.Value, errs.Status) {
	vs := v.Int32s()
	if len(vs) == 0 {
		return result.NewInt64(nil), errs.OK()
	}
	var total int64
	for _, x := range vs {
		total += int64(x)
	}
	return result.NewInt64([]int64{total}), errs.OK()
}

// Avg averages an Int32 operand into a single-element F64 result. An empty
// input produces an empty result: averaging zero rows must never divide by
// zero or produce NaN.
func Avg(v result.Value) (result.Value, errs.Status) {
	vs := v.Int32s()
	if len(vs) == 0 {
		return result.NewF64(nil), errs.OK()
	}
	var total float64
	for _, x := range vs {
		total += float64(x)
	}
	return result.NewF64([]float64{total / float64(len(vs))}), errs.OK()
}

// Min returns the smallest element of an Int32 operand as a single-element
// Int32 result. An empty input produces an empty result.
func Min(v result.Value) (result.Value, errs.Status) {
	vs := v.Int32s()
	if len(vs) == 0 {
		return result.NewInt32(nil), errs.OK()
	}
	m := vs[0]
	for _, x := range vs[1:] {
		if x < m {
			m = x
		}
	}
	return result.NewInt32([]int32{m}), errs.OK()
}

// Max returns the largest element of an Int32 operand as a single-element
// Int32 result. An empty input produces an empty result.
func Max(v result.Value) (result.Value, errs.Status) {
	vs := v.Int32s()
	if len(vs) == 0 {
		return result.NewInt32(nil), errs.OK()
	}
	m := vs[0]
	for _, x := range vs[1:] {
		if x > m {
			m = x
		}
	}
	return result.NewInt32([]int32{m}), errs.OK()
}

// MinIndexed returns every (position, value) tuple that attains the
// smallest value, in first-seen order. The running accumulator is seeded
// from index 0 and the scan proceeds from index 1 onward: an equal value
// appends to the accumulator, a strictly smaller value resets it, matching
// the original col_bound_and_index's num_results-reset behavior.
func MinIndexed(positions, values result.Value) (result.Value, result.Value, errs.Status) {
	ps := positions.Positions()
	vs := values.Int32s()
	if len(vs) != len(ps) {
		return result.Value{}, result.Value{}, errs.Wrap(errs.KindQueryUnsupported, "min: positions and values must have identical length")
	}
	if len(vs) == 0 {
		return result.NewInt32(nil), result.NewPositions(nil), errs.OK()
	}
	bestVal := vs[0]
	bestVals := []int32{vs[0]}
	bestPos := []uint32{ps[0]}
	for i := 1; i < len(vs); i++ {
		switch {
		case vs[i] < bestVal:
			bestVal = vs[i]
			bestVals = []int32{vs[i]}
			bestPos = []uint32{ps[i]}
		case vs[i] == bestVal:
			bestVals = append(bestVals, vs[i])
			bestPos = append(bestPos, ps[i])
		}
	}
	return result.NewInt32(bestVals), result.NewPositions(bestPos), errs.OK()
}

// MaxIndexed is the max-seeking counterpart of MinIndexed: the accumulator
// is reset only on a strictly larger value and appended to on a tie.
func MaxIndexed(positions, values result.Value) (result.Value, result.Value, errs.Status) {
	ps := positions.Positions()
	vs := values.Int32s()
	if len(vs) != len(ps) {
		return result.Value{}, result.Value{}, errs.Wrap(errs.KindQueryUnsupported, "max: positions and values must have identical length")
	}
	if len(vs) == 0 {
		return result.NewInt32(nil), result.NewPositions(nil), errs.OK()
	}
	bestVal := vs[0]
	bestVals := []int32{vs[0]}
	bestPos := []uint32{ps[0]}
	for i := 1; i < len(vs); i++ {
		switch {
		case vs[i] > bestVal:
			bestVal = vs[i]
			bestVals = []int32{vs[i]}
			bestPos = []uint32{ps[i]}
		case vs[i] == bestVal:
			bestVals = append(bestVals, vs[i])
			bestPos = append(bestPos, ps[i])
		}
	}
	return result.NewInt32(bestVals), result.NewPositions(bestPos), errs.OK()
}

// Add computes the elementwise sum of two equal-length numeric operands.
// The result is F64 if either input is F64, otherwise Int64.
func Add(a, b result.Value) (result.Value, errs.Status) {
	return elementwise(a, b, func(x, y float64) float64 { return x + y }, func(x, y int64) int64 { return x + y })
}

// Sub computes the elementwise difference of two equal-length numeric
// operands. The result is F64 if either input is F64, otherwise Int64.
func Sub(a, b result.Value) (result.Value, errs.Status) {
	return elementwise(a, b, func(x, y float64) float64 { return x - y }, func(x, y int64) int64 { return x - y })
}

func elementwise(a, b result.Value, ffn func(x, y float64) float64, ifn func(x, y int64) int64) (result.Value, errs.Status) {
	if a.Len() != b.Len() {
		return result.Value{}, errs.Wrap(errs.KindQueryUnsupported, "elementwise op requires operands of identical length")
	}
	if a.Type == result.F64 || b.Type == result.F64 {
		af := toFloat64s(a)
		bf := toFloat64s(b)
		out := make([]float64, len(af))
		for i := range out {
			out[i] = ffn(af[i], bf[i])
		}
		return result.NewF64(out), errs.OK()
	}
	ai := toInt64s(a)
	bi := toInt64s(b)
	out := make([]int64, len(ai))
	for i := range out {
		out[i] = ifn(ai[i], bi[i])
	}
	return result.NewInt64(out), errs.OK()
}

func toFloat64s(v result.Value) []float64 {
	switch v.Type {
	case result.F64:
		return v.F64s()
	case result.Int64:
		src := v.Int64s()
		out := make([]float64, len(src))
		for i, x := range src {
			out[i] = float64(x)
		}
		return out
	case result.Int32:
		src := v.Int32s()
		out := make([]float64, len(src))
		for i, x := range src {
			out[i] = float64(x)
		}
		return out
	default:
		panic("aggregate: non-numeric operand in elementwise op")
	}
}

func toInt64s(v result.Value) []int64 {
	switch v.Type {
	case result.Int64:
		return v.Int64s()
	case result.Int32:
		src := v.Int32s()
		out := make([]int64, len(src))
		for i, x := range src {
			out[i] = int64(x)
		}
		return out
	default:
		panic("aggregate: non-integral operand in integer elementwise op")
	}
}
