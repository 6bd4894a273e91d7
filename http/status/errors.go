package status

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
)

// Kind classifies an error by how the engine must react to it.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindMalformedStartLine
	KindMalformedHeader
	KindFramingConflict
	KindLimitExceeded
	KindBodyLengthMismatch
	KindTransportError
	KindTimeout
	KindCancelled
	KindInvariantViolation
)

func (k Kind) String() string {
	switch k {
	case KindMalformedStartLine:
		return "MalformedStartLine"
	case KindMalformedHeader:
		return "MalformedHeader"
	case KindFramingConflict:
		return "FramingConflict"
	case KindLimitExceeded:
		return "LimitExceeded"
	case KindBodyLengthMismatch:
		return "BodyLengthMismatch"
	case KindTransportError:
		return "TransportError"
	case KindTimeout:
		return "Timeout"
	case KindCancelled:
		return "Cancelled"
	case KindInvariantViolation:
		return "InvariantViolation"
	default:
		return "Unknown"
	}
}

// Protocol reports whether errors of the kind mean the peer has sent something that
// leaves the connection state undefined. Such connections are never reused.
func (k Kind) Protocol() bool {
	switch k {
	case KindMalformedStartLine, KindMalformedHeader, KindFramingConflict,
		KindLimitExceeded, KindBodyLengthMismatch:
		return true
	default:
		return false
	}
}

// HTTPError is an error carrying both its Kind and the status code the server responds
// with, if it gets a chance to.
type HTTPError struct {
	Kind    Kind
	Code    Code
	Message string
}

func NewError(kind Kind, code Code, message string) error {
	return HTTPError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

// Is matches any HTTPError of the same kind, so errors.Is(err, ErrLimitExceeded) holds
// for every more specific limit error as well. Errors of unknown kind match by the code.
func (h HTTPError) Is(target error) bool {
	t, ok := target.(HTTPError)
	if !ok || t.Kind != h.Kind {
		return false
	}

	return h.Kind != KindUnknown || t.Code == h.Code
}

var (
	ErrMalformedStartLine = NewError(KindMalformedStartLine, BadRequest, "malformed start line")
	ErrMalformedHeader    = NewError(KindMalformedHeader, BadRequest, "malformed header field")
	ErrFramingConflict    = NewError(KindFramingConflict, BadRequest, "both Content-Length and chunked Transfer-Encoding are set")
	ErrLimitExceeded      = NewError(KindLimitExceeded, RequestEntityTooLarge, "limit exceeded")
	ErrBodyLengthMismatch = NewError(KindBodyLengthMismatch, BadRequest, "body length doesn't match the declared one")
	ErrTransport          = NewError(KindTransportError, CloseConnection, "transport error")
	ErrTimeout            = NewError(KindTimeout, RequestTimeout, "timed out")
	ErrCancelled          = NewError(KindCancelled, CloseConnection, "cancelled")
	ErrInvariantViolation = NewError(KindInvariantViolation, InternalServerError, "invariant violation")

	ErrBadMethod               = NewError(KindMalformedStartLine, BadRequest, "invalid request method")
	ErrBadTarget               = NewError(KindMalformedStartLine, BadRequest, "invalid request target")
	ErrBadStatusCode           = NewError(KindMalformedStartLine, BadRequest, "invalid response status code")
	ErrHTTPVersionNotSupported = NewError(KindMalformedStartLine, HTTPVersionNotSupported, "HTTP version not supported")
	ErrBareCR                  = NewError(KindMalformedHeader, BadRequest, "CR not followed by LF")
	ErrObsFold                 = NewError(KindMalformedHeader, BadRequest, "obsolete line folding is not allowed")
	ErrBadContentLength        = NewError(KindMalformedHeader, BadRequest, "invalid Content-Length value")
	ErrBadEncoding             = NewError(KindMalformedHeader, BadRequest, "bad transfer encoding")
	ErrBadChunk                = NewError(KindMalformedHeader, BadRequest, "malformed chunk-encoded data")
	ErrHeaderFieldsTooLarge    = NewError(KindLimitExceeded, RequestHeaderFieldsTooLarge, "too large headers section")
	ErrTooManyHeaders          = NewError(KindLimitExceeded, RequestHeaderFieldsTooLarge, "too many headers")
	ErrChunkTooLarge           = NewError(KindLimitExceeded, RequestEntityTooLarge, "chunk exceeds the size limit")
	ErrBodyTooLarge            = NewError(KindLimitExceeded, RequestEntityTooLarge, "body is too large")
	ErrUnexpectedEOF           = NewError(KindBodyLengthMismatch, BadRequest, "connection closed before the message was complete")
	ErrUnsupportedEncoding     = NewError(KindMalformedHeader, UnsupportedMediaType, "content encoding is not supported")
	ErrIdleTimeout             = NewError(KindTimeout, RequestTimeout, "connection was idle for too long")
	ErrSessionClosed           = NewError(KindTransportError, CloseConnection, "session is closed")

	ErrNotFound            = NewError(KindUnknown, NotFound, "not found")
	ErrMethodNotAllowed    = NewError(KindUnknown, MethodNotAllowed, "method not allowed")
	ErrUnsupportedMedia    = NewError(KindUnknown, UnsupportedMediaType, "unsupported media type")
	ErrInternalServerError = NewError(KindUnknown, InternalServerError, "internal server error")
)

// CloseConnection isn't a real status code. It marks errors after which there's nobody
// left to respond to.
const CloseConnection Code = 1

// KindOf extracts the Kind of the error. Non-HTTPError errors are classified as
// transport, timeout or cancellation errors where applicable.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var herr HTTPError
	if errors.As(err, &herr) {
		return herr.Kind
	}

	switch {
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	return KindTransportError
}

// CodeOf returns the status code the error is answered with. Errors not carrying one
// are answered with 500 Internal Server Error.
func CodeOf(err error) Code {
	var herr HTTPError
	if errors.As(err, &herr) && herr.Code != CloseConnection {
		return herr.Code
	}

	return InternalServerError
}

// WrapTransport classifies an I/O error into the taxonomy, keeping the original error
// reachable via errors.Is. io.EOF is passed through untouched.
func WrapTransport(err error) error {
	if err == nil || err == io.EOF {
		return err
	}

	var herr HTTPError
	if errors.As(err, &herr) {
		return err
	}

	switch KindOf(err) {
	case KindTimeout:
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case KindCancelled:
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	default:
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
}
