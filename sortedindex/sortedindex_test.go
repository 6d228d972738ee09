package sortedindex_test

import (
	"sort"
	"testing"

	"github.com/rpcpool/coldb/errs"
	"github.com/rpcpool/coldb/sortedindex"
	"github.com/stretchr/testify/require"
)

func TestClusteredGetRange(t *testing.T) {
	base := []int32{1, 3, 3, 5, 7, 9}
	ix := sortedindex.NewClustered(&base)

	require.Equal(t, []uint32{1, 2, 3}, ix.GetRange(2, 6))
	require.Empty(t, ix.GetRange(100, 200))
	require.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, ix.GetRange(0, 10))
}

func TestClusteredInsertDisallowed(t *testing.T) {
	base := []int32{1, 2, 3}
	ix := sortedindex.NewClustered(&base)
	st := ix.Insert(5, 0)
	require.Equal(t, errs.KindInvariantViolation, st.Kind)
}

func TestUnclusteredInsertAndRange(t *testing.T) {
	ix := sortedindex.NewUnclustered()
	// base column built as 10,20,30 then insert 15 at position 3 (append).
	require.True(t, ix.Insert(10, 0).Kind.IsOK())
	require.True(t, ix.Insert(20, 1).Kind.IsOK())
	require.True(t, ix.Insert(30, 2).Kind.IsOK())
	require.True(t, ix.Insert(15, 3).Kind.IsOK())

	require.Equal(t, []int32{10, 15, 20, 30}, ix.Keys())
	require.ElementsMatch(t, []uint32{0, 1, 2, 3}, ix.Positions())

	require.Equal(t, []uint32{3}, ix.GetRange(15, 16))
	require.Equal(t, []uint32{0, 3}, ix.GetRange(0, 20))
}

func TestUnclusteredShiftsPositionsOnInsert(t *testing.T) {
	ix := sortedindex.NewUnclustered()
	require.True(t, ix.Insert(5, 0).Kind.IsOK())
	require.True(t, ix.Insert(10, 1).Kind.IsOK())
	// Insert a new row physically at position 1, pushing the old row at
	// position 1 (key=10) down to position 2.
	require.True(t, ix.Insert(7, 1).Kind.IsOK())

	require.Equal(t, []int32{5, 7, 10}, ix.Keys())
	want := map[int32]uint32{5: 0, 7: 1, 10: 2}
	for i, k := range ix.Keys() {
		require.Equal(t, want[k], ix.Positions()[i])
	}
}

func TestPagedSearchMatchesLinearScanAcrossPageBoundary(t *testing.T) {
	n := sortedindex.PageKeys*3 + 17
	base := make([]int32, n)
	for i := range base {
		base[i] = int32(i) * 2
	}
	ix := sortedindex.NewClustered(&base)

	lo, hi := int32(100), int32(5000)
	got := ix.GetRange(lo, hi)

	var want []uint32
	for i, v := range base {
		if v >= lo && v < hi {
			want = append(want, uint32(i))
		}
	}
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	require.Equal(t, want, got)
}
