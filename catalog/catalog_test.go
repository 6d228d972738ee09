package catalog_test

import (
	"testing"

	"github.com/rpcpool/coldb/catalog"
	"github.com/rpcpool/coldb/errs"
	"github.com/stretchr/testify/require"
)

func TestCreateDBTableColumn(t *testing.T) {
	cat := catalog.New()
	require.True(t, cat.CreateDB("x").Kind.IsOK())
	require.Equal(t, errs.KindObjectAlreadyExist, cat.CreateDB("x").Kind)

	require.True(t, cat.CreateTable("x", "t", 2).Kind.IsOK())
	require.True(t, cat.CreateColumn("x", "t", "a", catalog.IndexNone, false).Kind.IsOK())
	require.True(t, cat.CreateColumn("x", "t", "b", catalog.IndexNone, false).Kind.IsOK())
	require.Equal(t, errs.KindObjectAlreadyExist, cat.CreateColumn("x", "t", "a", catalog.IndexNone, false).Kind)

	col, st := cat.Lookup("x", "t", "a")
	require.True(t, st.Kind.IsOK())
	require.Equal(t, "a", col.Name)
}

func TestOnlyOnePrimaryColumnPerTable(t *testing.T) {
	cat := catalog.New()
	require.True(t, cat.CreateDB("x").Kind.IsOK())
	require.True(t, cat.CreateTable("x", "t", 2).Kind.IsOK())
	require.True(t, cat.CreateColumn("x", "t", "a", catalog.IndexBTree, true).Kind.IsOK())

	st := cat.CreateColumn("x", "t", "b", catalog.IndexBTree, true)
	require.Equal(t, errs.KindQueryUnsupported, st.Kind)
}

func TestAddIndexBackfillsFromExistingData(t *testing.T) {
	cat := catalog.New()
	require.True(t, cat.CreateDB("x").Kind.IsOK())
	require.True(t, cat.CreateTable("x", "t", 1).Kind.IsOK())
	require.True(t, cat.CreateColumn("x", "t", "a", catalog.IndexNone, false).Kind.IsOK())

	col, _ := cat.Lookup("x", "t", "a")
	col.Data = []int32{10, 20, 30, 5}

	require.True(t, cat.AddIndex("x", "t", "a", catalog.IndexBTree, false).Kind.IsOK())
	got := col.BTree.Range(0, 25)
	require.ElementsMatch(t, []uint32{0, 1, 3}, got)

	require.Equal(t, errs.KindIndexAlreadyExists, cat.AddIndex("x", "t", "a", catalog.IndexSorted, false).Kind)
}
