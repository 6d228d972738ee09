package errs_test

import (
	"testing"

	"github.com/rpcpool/coldb/errs"
	"github.com/stretchr/testify/require"
)

func TestKindIsOK(t *testing.T) {
	require.True(t, errs.KindOkDone.IsOK())
	require.True(t, errs.KindOkWaitForResponse.IsOK())
	require.True(t, errs.KindShutdownServer.IsOK())
	require.False(t, errs.KindObjectNotFound.IsOK())
	require.False(t, errs.KindInvariantViolation.IsOK())
}

func TestStatusErr(t *testing.T) {
	require.NoError(t, errs.OK().Err())

	s := errs.Wrap(errs.KindObjectNotFound, "column %q", "a")
	require.Error(t, s.Err())
	require.Contains(t, s.Err().Error(), "a")
	require.Contains(t, s.Err().Error(), string(errs.KindObjectNotFound))
}
