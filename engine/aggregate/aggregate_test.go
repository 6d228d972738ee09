package aggregate_test

import (
	"testing"

	"github.com/rpcpool/coldb/engine/aggregate"
	"github.com/rpcpool/coldb/errs"
	"github.com/rpcpool/coldb/result"
	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	v, st := aggregate.Sum(result.NewInt32([]int32{1, 2, 3, 4}))
	require.True(t, st.Kind.IsOK())
	require.Equal(t, []int64{10}, v.Int64s())
}

func TestSumEmpty(t *testing.T) {
	v, st := aggregate.Sum(result.NewInt32(nil))
	require.True(t, st.Kind.IsOK())
	require.Equal(t, 0, v.Len())
}

func TestAvg(t *testing.T) {
	v, st := aggregate.Avg(result.NewInt32([]int32{1, 2, 3, 4}))
	require.True(t, st.Kind.IsOK())
	require.InDelta(t, 2.5, v.F64s()[0], 1e-9)
}

func TestAvgEmptyNeverDividesByZero(t *testing.T) {
	v, st := aggregate.Avg(result.NewInt32(nil))
	require.True(t, st.Kind.IsOK())
	require.Equal(t, 0, v.Len())
}

func TestMinMax(t *testing.T) {
	v := result.NewInt32([]int32{5, -1, 9, 3})
	mn, st := aggregate.Min(v)
	require.True(t, st.Kind.IsOK())
	require.Equal(t, int32(-1), mn.Int32s()[0])

	mx, st := aggregate.Max(v)
	require.True(t, st.Kind.IsOK())
	require.Equal(t, int32(9), mx.Int32s()[0])
}

func TestMinIndexedReturnsEveryTiedArgmin(t *testing.T) {
	values := result.NewInt32([]int32{3, 1, 1, 5})
	positions := result.NewPositions([]uint32{10, 11, 12, 13})
	val, pos, st := aggregate.MinIndexed(positions, values)
	require.True(t, st.Kind.IsOK())
	require.Equal(t, []int32{1, 1}, val.Int32s())
	require.Equal(t, []uint32{11, 12}, pos.Positions())
}

func TestMinIndexedResetsOnStrictlyBetterValue(t *testing.T) {
	values := result.NewInt32([]int32{1, 1, 0, 5})
	positions := result.NewPositions([]uint32{10, 11, 12, 13})
	val, pos, st := aggregate.MinIndexed(positions, values)
	require.True(t, st.Kind.IsOK())
	require.Equal(t, []int32{0}, val.Int32s())
	require.Equal(t, []uint32{12}, pos.Positions())
}

func TestMaxIndexedReturnsEveryTiedArgmax(t *testing.T) {
	values := result.NewInt32([]int32{3, 9, 9, 5})
	positions := result.NewPositions([]uint32{10, 11, 12, 13})
	val, pos, st := aggregate.MaxIndexed(positions, values)
	require.True(t, st.Kind.IsOK())
	require.Equal(t, []int32{9, 9}, val.Int32s())
	require.Equal(t, []uint32{11, 12}, pos.Positions())
}

func TestMaxIndexedResetsOnStrictlyBetterValue(t *testing.T) {
	values := result.NewInt32([]int32{9, 9, 10, 5})
	positions := result.NewPositions([]uint32{10, 11, 12, 13})
	val, pos, st := aggregate.MaxIndexed(positions, values)
	require.True(t, st.Kind.IsOK())
	require.Equal(t, []int32{10}, val.Int32s())
	require.Equal(t, []uint32{12}, pos.Positions())
}

func TestAddIsInt64UnlessEitherSideIsF64(t *testing.T) {
	a := result.NewInt32([]int32{1, 2, 3})
	b := result.NewInt32([]int32{10, 20, 30})
	sum, st := aggregate.Add(a, b)
	require.True(t, st.Kind.IsOK())
	require.Equal(t, result.Int64, sum.Type)
	require.Equal(t, []int64{11, 22, 33}, sum.Int64s())

	c := result.NewF64([]float64{0.5, 0.5, 0.5})
	sum2, st := aggregate.Add(a, c)
	require.True(t, st.Kind.IsOK())
	require.Equal(t, result.F64, sum2.Type)
	require.InDeltaSlice(t, []float64{1.5, 2.5, 3.5}, sum2.F64s(), 1e-9)
}

func TestSubMismatchedLengthIsQueryUnsupported(t *testing.T) {
	a := result.NewInt32([]int32{1, 2, 3})
	b := result.NewInt32([]int32{1, 2})
	_, st := aggregate.Sub(a, b)
	require.Equal(t, errs.KindQueryUnsupported, st.Kind)
}
