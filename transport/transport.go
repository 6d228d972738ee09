// Package transport implements the wire framing described in spec.md §6:
// a fixed header of {status uint32, length int32} followed by length bytes
// of UTF-8 payload, carried over a Unix domain stream socket. Framing is
// plain encoding/binary over net.Conn: there is no ecosystem codec in the
// pack for a from-scratch fixed-header wire format, so this one component
// stays on the standard library (see DESIGN.md).
package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/rpcpool/coldb/errs"
)

// StatusCode mirrors errs.Kind on the wire as the fixed-width status word
// from spec.md §6.
type StatusCode uint32

const (
	StatusOkDone StatusCode = iota
	StatusOkWaitForResponse
	StatusShutdownServer
	StatusUnknownCommand
	StatusIncorrectFormat
	StatusIncorrectFileFormat
	StatusFileNotFound
	StatusQueryUnsupported
	StatusObjectAlreadyExists
	StatusObjectNotFound
	StatusIndexAlreadyExists
	StatusMemAllocFailed
	StatusExecutionError
)

// FromKind maps an errs.Kind to its wire status code.
func FromKind(k errs.Kind) StatusCode {
	switch k {
	case errs.KindOkDone:
		return StatusOkDone
	case errs.KindOkWaitForResponse:
		return StatusOkWaitForResponse
	case errs.KindShutdownServer:
		return StatusShutdownServer
	case errs.KindUnknownCommand:
		return StatusUnknownCommand
	case errs.KindIncorrectFormat:
		return StatusIncorrectFormat
	case errs.KindIncorrectFileFmt:
		return StatusIncorrectFileFormat
	case errs.KindFileNotFound:
		return StatusFileNotFound
	case errs.KindQueryUnsupported:
		return StatusQueryUnsupported
	case errs.KindObjectAlreadyExist:
		return StatusObjectAlreadyExists
	case errs.KindObjectNotFound:
		return StatusObjectNotFound
	case errs.KindIndexAlreadyExists:
		return StatusIndexAlreadyExists
	case errs.KindMemAllocFailed:
		return StatusMemAllocFailed
	default:
		return StatusExecutionError
	}
}

// Message is one framed wire message.
type Message struct {
	Status  StatusCode
	Payload []byte
}

// WriteMessage writes one framed message: a big-endian {status, length}
// header followed by the raw payload bytes.
func WriteMessage(w io.Writer, msg Message) error {
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(msg.Status))
	binary.BigEndian.PutUint32(header[4:8], uint32(len(msg.Payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("transport: write header: %w", err)
	}
	if len(msg.Payload) > 0 {
		if _, err := w.Write(msg.Payload); err != nil {
			return fmt.Errorf("transport: write payload: %w", err)
		}
	}
	return nil
}

// ReadMessage reads one framed message from r.
func ReadMessage(r *bufio.Reader) (Message, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, err
	}
	status := StatusCode(binary.BigEndian.Uint32(header[0:4]))
	length := int32(binary.BigEndian.Uint32(header[4:8]))
	if length < 0 {
		return Message{}, fmt.Errorf("transport: negative payload length %d", length)
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Message{}, fmt.Errorf("transport: read payload: %w", err)
		}
	}
	return Message{Status: status, Payload: payload}, nil
}

// StatusReply builds a single-message reply carrying st's kind and message.
func StatusReply(st errs.Status) Message {
	return Message{Status: FromKind(st.Kind), Payload: []byte(st.Message)}
}
