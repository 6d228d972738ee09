package exthash_test

import (
	"sort"
	"testing"

	"github.com/rpcpool/coldb/exthash"
	"github.com/stretchr/testify/require"
)

func TestHashIsDeterministic(t *testing.T) {
	require.Equal(t, exthash.Hash(42), exthash.Hash(42))
	require.NotEqual(t, exthash.Hash(1), exthash.Hash(2))
}

func TestPutGetRoundTrip(t *testing.T) {
	tbl := exthash.New()
	for i := int32(0); i < 5000; i++ {
		require.True(t, tbl.Put(i%100, i).Kind.IsOK())
	}
	vals := tbl.Get(7)
	require.NotEmpty(t, vals)
	for _, v := range vals {
		require.Equal(t, int32(7), v%100)
	}
}

func TestDuplicateKeysPreserveInsertionOrder(t *testing.T) {
	tbl := exthash.New()
	require.True(t, tbl.Put(3, 10).Kind.IsOK())
	require.True(t, tbl.Put(3, 20).Kind.IsOK())
	require.True(t, tbl.Put(3, 30).Kind.IsOK())
	require.Equal(t, []int32{10, 20, 30}, tbl.Get(3))
}

func TestDirectoryGrowsAndInvariantsHold(t *testing.T) {
	tbl := exthash.New()
	for i := int32(0); i < 20000; i++ {
		require.True(t, tbl.Put(i, i*2).Kind.IsOK())
	}
	require.True(t, tbl.GlobalDepth() > 0)
	st := tbl.CheckInvariants()
	require.True(t, st.Kind.IsOK(), st.Err())

	got := tbl.Get(12345)
	require.Equal(t, []int32{24690}, got)
}

func TestAllInsertedKeysRetrievable(t *testing.T) {
	tbl := exthash.New()
	keys := make([]int32, 3000)
	for i := range keys {
		keys[i] = int32(i)
		require.True(t, tbl.Put(keys[i], keys[i]).Kind.IsOK())
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		require.Equal(t, []int32{k}, tbl.Get(k))
	}
}
