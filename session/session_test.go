package session_test

import (
	"testing"

	"github.com/rpcpool/coldb/catalog"
	"github.com/rpcpool/coldb/errs"
	"github.com/rpcpool/coldb/result"
	"github.com/rpcpool/coldb/session"
	"github.com/stretchr/testify/require"
)

func TestBindAndOverwrite(t *testing.T) {
	ctx := session.New()
	ctx.Bind("h1", session.Derived(result.NewInt32([]int32{1, 2})))
	gc, ok := ctx.Get("h1")
	require.True(t, ok)
	require.False(t, gc.IsBase())
	require.Equal(t, 2, gc.AsDerived().Len())

	ctx.Bind("h1", session.Derived(result.NewInt32([]int32{9})))
	gc2, _ := ctx.Get("h1")
	require.Equal(t, 1, gc2.AsDerived().Len())
}

func TestBatchRejectsMixedColumns(t *testing.T) {
	ctx := session.New()
	colA := &catalog.Column{Name: "a"}
	colB := &catalog.Column{Name: "b"}

	require.True(t, ctx.OpenBatch().Kind.IsOK())
	require.True(t, ctx.QueueScan("h1", colA, 0, 10).Kind.IsOK())
	require.True(t, ctx.QueueScan("h2", colA, 5, 15).Kind.IsOK())

	st := ctx.QueueScan("h3", colB, 0, 1)
	require.Equal(t, errs.KindInvariantViolation, st.Kind)
}

func TestDrainBatchReturnsQueuedScans(t *testing.T) {
	ctx := session.New()
	col := &catalog.Column{Name: "a"}
	require.True(t, ctx.OpenBatch().Kind.IsOK())
	require.True(t, ctx.QueueScan("h1", col, 0, 10).Kind.IsOK())
	scans, st := ctx.DrainBatch()
	require.True(t, st.Kind.IsOK())
	require.Len(t, scans, 1)
	require.False(t, ctx.BatchOpen())
}
