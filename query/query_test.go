package query_test

import (
	"testing"

	"github.com/rpcpool/coldb/catalog"
	"github.com/rpcpool/coldb/errs"
	"github.com/rpcpool/coldb/query"
	"github.com/stretchr/testify/require"
)

func TestParseCreateDB(t *testing.T) {
	op, st := query.Parse(`create(db,"x")`)
	require.True(t, st.Kind.IsOK())
	require.Equal(t, query.CreateDB, op.Kind)
	require.Equal(t, []string{"x"}, op.Args)
}

func TestParseCreateColumnWithIndex(t *testing.T) {
	op, st := query.Parse(`create(col,"a","x.t",btree,clustered)`)
	require.True(t, st.Kind.IsOK())
	require.Equal(t, query.CreateColumn, op.Kind)
	require.Equal(t, catalog.IndexBTree, op.IndexKind)
	require.True(t, op.Clustered)
}

func TestParseInsert(t *testing.T) {
	op, st := query.Parse(`relational_insert(x.t,10,100)`)
	require.True(t, st.Kind.IsOK())
	require.Equal(t, query.Insert, op.Kind)
	require.Equal(t, []int32{10, 100}, op.InsertValues)
}

func TestParseSelectWithHandleAndNullBound(t *testing.T) {
	op, st := query.Parse(`p=select(x.t.a,15,null)`)
	require.True(t, st.Kind.IsOK())
	require.Equal(t, query.Select, op.Kind)
	require.Equal(t, "p", op.Handle)
	require.NotNil(t, op.Lo)
	require.Equal(t, int32(15), *op.Lo)
	require.Nil(t, op.Hi)
}

func TestParsePrintMultiHandle(t *testing.T) {
	op, st := query.Parse(`print(va,vb)`)
	require.True(t, st.Kind.IsOK())
	require.Equal(t, query.Print, op.Kind)
	require.Equal(t, []string{"va", "vb"}, op.Args)
}

func TestParseUnknownCommand(t *testing.T) {
	_, st := query.Parse(`frobnicate(1,2)`)
	require.Equal(t, errs.KindUnknownCommand, st.Kind)
}

func TestParseShutdown(t *testing.T) {
	op, st := query.Parse(`shutdown`)
	require.True(t, st.Kind.IsOK())
	require.Equal(t, query.Shutdown, op.Kind)
}
