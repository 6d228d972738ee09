package transport_test

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/rpcpool/coldb/errs"
	"github.com/rpcpool/coldb/transport"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := transport.Message{Status: transport.StatusOkDone, Payload: []byte("200\n")}
	require.NoError(t, transport.WriteMessage(&buf, msg))

	got, err := transport.ReadMessage(bufio.NewReader(&buf))
	require.NoError(t, err)
	require.Equal(t, msg, got)
}

func TestEmptyPayloadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := transport.Message{Status: transport.StatusOkDone}
	require.NoError(t, transport.WriteMessage(&buf, msg))

	got, err := transport.ReadMessage(bufio.NewReader(&buf))
	require.NoError(t, err)
	require.Equal(t, 0, len(got.Payload))
}

func TestFromKindMapsErrorKinds(t *testing.T) {
	require.Equal(t, transport.StatusObjectNotFound, transport.FromKind(errs.KindObjectNotFound))
	require.Equal(t, transport.StatusIndexAlreadyExists, transport.FromKind(errs.KindIndexAlreadyExists))
	require.Equal(t, transport.StatusShutdownServer, transport.FromKind(errs.KindShutdownServer))
}

func TestStatusReplyCarriesMessage(t *testing.T) {
	st := errs.Wrap(errs.KindObjectNotFound, "table %q not found", "t")
	msg := transport.StatusReply(st)
	require.Equal(t, transport.StatusObjectNotFound, msg.Status)
	require.Equal(t, `table "t" not found`, string(msg.Payload))
}
