package persist_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpcpool/coldb/catalog"
	"github.com/rpcpool/coldb/persist"
)

func TestLoadFileAppendsRows(t *testing.T) {
	cat := catalog.New()
	require.True(t, cat.CreateDB("d").Kind.IsOK())
	require.True(t, cat.CreateTable("d", "t", 2).Kind.IsOK())
	require.True(t, cat.CreateColumn("d", "t", "a", catalog.IndexNone, false).Kind.IsOK())
	require.True(t, cat.CreateColumn("d", "t", "b", catalog.IndexNone, false).Kind.IsOK())

	path := filepath.Join(t.TempDir(), "rows.csv")
	require.NoError(t, os.WriteFile(path, []byte("d.t.a,d.t.b\n1,2\n3,4\n"), 0o644))

	st := persist.LoadFile(cat, path)
	require.True(t, st.Kind.IsOK(), st.Err())

	tb, st := cat.LookupTable("d", "t")
	require.True(t, st.Kind.IsOK())
	require.Equal(t, 2, tb.N)

	a, _ := tb.Column("a")
	b, _ := tb.Column("b")
	require.Equal(t, []int32{1, 3}, a.Data)
	require.Equal(t, []int32{2, 4}, b.Data)
}

func TestLoadFileMissingPath(t *testing.T) {
	cat := catalog.New()
	st := persist.LoadFile(cat, "/nonexistent/path.csv")
	require.Equal(t, "FILE_NOT_FOUND", string(st.Kind))
}
