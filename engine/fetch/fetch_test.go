package fetch_test

import (
	"sort"
	"testing"

	"github.com/rpcpool/coldb/catalog"
	"github.com/rpcpool/coldb/engine/fetch"
	"github.com/rpcpool/coldb/engine/selection"
	"github.com/rpcpool/coldb/errs"
	"github.com/rpcpool/coldb/result"
	"github.com/stretchr/testify/require"
)

func buildColumn(n int) *catalog.Column {
	data := make([]int32, n)
	for i := range data {
		data[i] = int32(i % 50)
	}
	return &catalog.Column{Name: "a", Data: data}
}

func TestFetchGathersValues(t *testing.T) {
	col := buildColumn(10)
	positions := result.NewPositions([]uint32{0, 3, 9})
	v, st := fetch.Fetch(col, positions)
	require.True(t, st.Kind.IsOK())
	require.Equal(t, []int32{0, 3, 9}, v.Int32s())
}

func TestFetchOutOfRangeIsInvariantViolation(t *testing.T) {
	col := buildColumn(5)
	positions := result.NewPositions([]uint32{0, 5})
	_, st := fetch.Fetch(col, positions)
	require.Equal(t, errs.KindInvariantViolation, st.Kind)
}

func TestFetchSelectRoundTrip(t *testing.T) {
	col := buildColumn(1000)
	positions, st := selection.SelectColumn(col, 10, 20)
	require.True(t, st.Kind.IsOK())

	v, st := fetch.Fetch(col, result.NewPositions(positions))
	require.True(t, st.Kind.IsOK())

	got := append([]int32(nil), v.Int32s()...)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })

	want := make([]int32, 0)
	for _, x := range col.Data {
		if x >= 10 && x < 20 {
			want = append(want, x)
		}
	}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	require.Equal(t, want, got)
}
