package insert_test

import (
	"testing"

	"github.com/rpcpool/coldb/catalog"
	"github.com/rpcpool/coldb/engine/insert"
	"github.com/rpcpool/coldb/errs"
	"github.com/stretchr/testify/require"
)

func newTable(t *testing.T, primaryKind catalog.IndexKind) (*catalog.Catalog, *catalog.Table) {
	t.Helper()
	c := catalog.New()
	require.True(t, c.CreateDB("d").Kind.IsOK())
	require.True(t, c.CreateTable("d", "t", 2).Kind.IsOK())
	require.True(t, c.CreateColumn("d", "t", "id", primaryKind, true).Kind.IsOK())
	require.True(t, c.CreateColumn("d", "t", "val", catalog.IndexNone, false).Kind.IsOK())
	tb, st := c.LookupTable("d", "t")
	require.True(t, st.Kind.IsOK())
	return c, tb
}

func TestAppendPathWithNoPrimary(t *testing.T) {
	c := catalog.New()
	require.True(t, c.CreateDB("d").Kind.IsOK())
	require.True(t, c.CreateTable("d", "t", 1).Kind.IsOK())
	require.True(t, c.CreateColumn("d", "t", "a", catalog.IndexNone, false).Kind.IsOK())
	tb, _ := c.LookupTable("d", "t")

	require.True(t, insert.Row(tb, []int32{1}).Kind.IsOK())
	require.True(t, insert.Row(tb, []int32{2}).Kind.IsOK())
	require.Equal(t, []int32{1, 2}, tb.Columns[0].Data)
}

func TestWrongArityIsQueryUnsupported(t *testing.T) {
	_, tb := newTable(t, catalog.IndexBTree)
	st := insert.Row(tb, []int32{1})
	require.Equal(t, errs.KindQueryUnsupported, st.Kind)
}

func TestClusteredBTreeInsertKeepsRowsSortedAndAligned(t *testing.T) {
	_, tb := newTable(t, catalog.IndexBTree)
	rows := [][2]int32{{5, 50}, {1, 10}, {3, 30}, {2, 20}, {4, 40}}
	for _, r := range rows {
		require.True(t, insert.Row(tb, []int32{r[0], r[1]}).Kind.IsOK())
	}

	idCol := tb.Columns[0]
	valCol := tb.Columns[1]
	require.Equal(t, []int32{1, 2, 3, 4, 5}, idCol.Data)
	require.Equal(t, []int32{10, 20, 30, 40, 50}, valCol.Data)

	positions := idCol.BTree.Range(0, 100)
	require.Len(t, positions, 5)
}

func TestClusteredSortedInsertKeepsRowsSorted(t *testing.T) {
	_, tb := newTable(t, catalog.IndexSorted)
	rows := [][2]int32{{30, 3}, {10, 1}, {20, 2}}
	for _, r := range rows {
		require.True(t, insert.Row(tb, []int32{r[0], r[1]}).Kind.IsOK())
	}
	require.Equal(t, []int32{10, 20, 30}, tb.Columns[0].Data)
	require.Equal(t, []int32{1, 2, 3}, tb.Columns[1].Data)
}

func TestNonPrimaryIndexedColumnStaysConsistentAfterMidInsert(t *testing.T) {
	c := catalog.New()
	require.True(t, c.CreateDB("d").Kind.IsOK())
	require.True(t, c.CreateTable("d", "t", 2).Kind.IsOK())
	require.True(t, c.CreateColumn("d", "t", "id", catalog.IndexBTree, true).Kind.IsOK())
	require.True(t, c.CreateColumn("d", "t", "val", catalog.IndexSorted, false).Kind.IsOK())
	tb, _ := c.LookupTable("d", "t")

	require.True(t, insert.Row(tb, []int32{10, 100}).Kind.IsOK())
	require.True(t, insert.Row(tb, []int32{30, 300}).Kind.IsOK())
	require.True(t, insert.Row(tb, []int32{20, 200}).Kind.IsOK()) // lands in the middle

	valCol := tb.Columns[1]
	require.Equal(t, []int32{100, 200, 300}, valCol.Data)

	positions := valCol.Sorted.GetRange(200, 201)
	require.Equal(t, []uint32{1}, positions)
}
