// Package errs defines the single status/error-kind enum shared by every
// engine in coldb. A Kind is both a sentinel error value and a wire status
// code, following the errorType pattern used by the teacher's offsetstore
// package (github.com/rpcpool/yellowstone-faithful/gsfa/offsetstore).
package errs

import "fmt"

// Kind is the single error taxonomy described by the spec: every engine
// call returns its result together with a Status carrying a Kind, and the
// "successful" kinds OkDone /
// OkWaitForResponse / ShutdownServer flow through the same status word as
// actual failures.
type Kind string

// Error implements the error interface so a Kind can be returned and
// compared directly, e.g. `errors.Is(err, errs.KindObjectNotFound)`.
func (k Kind) Error() string {
	return string(k)
}

const (
	KindOkDone             Kind = "OK_DONE"
	KindOkWaitForResponse  Kind = "OK_WAIT_FOR_RESPONSE"
	KindShutdownServer     Kind = "SHUTDOWN_SERVER"
	KindUnknownCommand     Kind = "UNKNOWN_COMMAND"
	KindIncorrectFormat    Kind = "INCORRECT_FORMAT"
	KindIncorrectFileFmt   Kind = "INCORRECT_FILE_FORMAT"
	KindFileNotFound       Kind = "FILE_NOT_FOUND"
	KindQueryUnsupported   Kind = "QUERY_UNSUPPORTED"
	KindObjectAlreadyExist Kind = "OBJECT_ALREADY_EXISTS"
	KindObjectNotFound     Kind = "OBJECT_NOT_FOUND"
	KindIndexAlreadyExists Kind = "INDEX_ALREADY_EXISTS"
	KindMemAllocFailed     Kind = "MEM_ALLOC_FAILED"
	KindExecutionError     Kind = "EXECUTION_ERROR"
	KindInvariantViolation Kind = "INVARIANT_VIOLATION"
)

// IsOK reports whether k represents a non-error outcome.
func (k Kind) IsOK() bool {
	switch k {
	case KindOkDone, KindOkWaitForResponse, KindShutdownServer:
		return true
	default:
		return false
	}
}

// Status is a carried (Kind, message) pair. Every engine call returns a
// Status to its caller rather than recovering locally, per the
// propagation policy: errors are surfaced up to the executor, which
// short-circuits the remainder of the operator and emits Status as the
// response payload.
type Status struct {
	Kind    Kind
	Message string
}

// OK builds a successful status with no message.
func OK() Status { return Status{Kind: KindOkDone} }

// Wrap builds a failing status from a Kind and a formatted message.
func Wrap(kind Kind, format string, args ...any) Status {
	return Status{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Err returns nil for an OK status, or the Kind as an error otherwise, so
// callers that only care about Go error semantics can use the familiar
// `if err := ...; err != nil` idiom.
func (s Status) Err() error {
	if s.Kind.IsOK() {
		return nil
	}
	if s.Message == "" {
		return s.Kind
	}
	return fmt.Errorf("%w: %s", s.Kind, s.Message)
}
