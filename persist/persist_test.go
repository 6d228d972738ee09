package persist_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpcpool/coldb/catalog"
	"github.com/rpcpool/coldb/engine/insert"
	"github.com/rpcpool/coldb/persist"
)

func buildCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New()
	require.True(t, cat.CreateDB("d").Kind.IsOK())
	require.True(t, cat.CreateTable("d", "t", 3).Kind.IsOK())
	require.True(t, cat.CreateColumn("d", "t", "pk", catalog.IndexBTree, true).Kind.IsOK())
	require.True(t, cat.CreateColumn("d", "t", "sorted_col", catalog.IndexSorted, false).Kind.IsOK())
	require.True(t, cat.CreateColumn("d", "t", "plain_col", catalog.IndexNone, false).Kind.IsOK())

	tb, st := cat.LookupTable("d", "t")
	require.True(t, st.Kind.IsOK())

	rows := [][3]int32{{5, 50, 500}, {1, 10, 100}, {3, 30, 300}, {2, 20, 200}}
	for _, r := range rows {
		require.True(t, insert.Row(tb, r[:]).Kind.IsOK())
	}
	return cat
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cat := buildCatalog(t)

	require.NoError(t, persist.Save(cat, dir))

	loaded, err := persist.Load(dir)
	require.NoError(t, err)

	tb, st := loaded.LookupTable("d", "t")
	require.True(t, st.Kind.IsOK())
	require.Equal(t, 4, tb.N)

	pk, ok := tb.Column("pk")
	require.True(t, ok)
	require.Equal(t, []int32{1, 2, 3, 5}, pk.Data)

	sortedCol, ok := tb.Column("sorted_col")
	require.True(t, ok)
	require.ElementsMatch(t, []int32{10, 20, 30, 50}, append([]int32{}, sortedCol.Data...))
	require.NotNil(t, sortedCol.Sorted)

	positions := sortedCol.Sorted.GetRange(0, 1000)
	require.Len(t, positions, 4)

	plain, ok := tb.Column("plain_col")
	require.True(t, ok)
	require.Len(t, plain.Data, 4)
}

func TestLoadEmptyDirReturnsFreshCatalog(t *testing.T) {
	dir := t.TempDir()
	cat, err := persist.Load(dir)
	require.NoError(t, err)
	_, st := cat.LookupDB("anything")
	require.False(t, st.Kind.IsOK())
}
