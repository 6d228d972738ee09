package selection_test

import (
	"sort"
	"testing"

	"github.com/rpcpool/coldb/btree"
	"github.com/rpcpool/coldb/catalog"
	"github.com/rpcpool/coldb/engine/selection"
	"github.com/rpcpool/coldb/session"
	"github.com/stretchr/testify/require"
)

func buildColumn(n int) *catalog.Column {
	data := make([]int32, n)
	for i := range data {
		data[i] = int32(i % 1000)
	}
	return &catalog.Column{Name: "a", Data: data}
}

func TestScanSelect(t *testing.T) {
	col := buildColumn(100)
	ps, st := selection.SelectColumn(col, 10, 20)
	require.True(t, st.Kind.IsOK())
	require.Len(t, ps, 10)
}

func TestIndexedSelectionMatchesScan(t *testing.T) {
	n := 10000
	col := buildColumn(n)

	btreeCol := &catalog.Column{Name: "a", Data: append([]int32(nil), col.Data...), Kind: catalog.IndexBTree}
	btreeCol.BTree = btree.New(btree.DefaultDegree, false)
	for pos, v := range btreeCol.Data {
		btreeCol.BTree.Insert(v, uint32(pos), false)
	}

	scanPositions, _ := selection.SelectColumn(col, 500, 600)
	idxPositions, _ := selection.SelectColumn(btreeCol, 500, 600)

	sort.Slice(scanPositions, func(i, j int) bool { return scanPositions[i] < scanPositions[j] })
	sort.Slice(idxPositions, func(i, j int) bool { return idxPositions[i] < idxPositions[j] })
	require.Equal(t, scanPositions, idxPositions)
}

func TestSharedScanMatchesIndividualSelects(t *testing.T) {
	col := buildColumn(1000)
	ranges := [][2]int32{{0, 10}, {5, 15}, {20, 30}}
	handles := []string{"p0", "p1", "p2"}

	ctx := session.New()
	require.True(t, ctx.OpenBatch().Kind.IsOK())
	for i, r := range ranges {
		require.True(t, ctx.QueueScan(handles[i], col, r[0], r[1]).Kind.IsOK())
	}
	scans, st := ctx.DrainBatch()
	require.True(t, st.Kind.IsOK())

	batched, st := selection.RunBatch(scans)
	require.True(t, st.Kind.IsOK())

	for i, r := range ranges {
		individual, _ := selection.SelectColumn(col, int64(r[0]), int64(r[1]))
		got := batched[handles[i]].Positions()
		sort.Slice(individual, func(a, b int) bool { return individual[a] < individual[b] })
		sort.Slice(got, func(a, b int) bool { return got[a] < got[b] })
		require.Equal(t, individual, got)
	}
}
