package http1

import (
	"fmt"
	"io"
	"iter"
	"strconv"

	"github.com/indigo-web/tandem/http"
	"github.com/indigo-web/tandem/http/method"
	"github.com/indigo-web/tandem/http/proto"
	"github.com/indigo-web/tandem/http/status"
	"github.com/indigo-web/tandem/internal/strutil"
	"github.com/indigo-web/tandem/kv"
	"golang.org/x/net/http/httpguts"
)

// Serializer renders messages into wire bytes. A single instance must not be used by
// multiple goroutines, as the rendering buffer is reused.
type Serializer struct {
	buff []byte
}

func NewSerializer(buff []byte) *Serializer {
	return &Serializer{buff: buff}
}

// Request returns the lazy sequence of the request's wire bytes: the head first, and then
// the framed body piece by piece. Every piece is valid until the next one is requested.
// The sequence can be ranged over only once, as it consumes the body.
func (s *Serializer) Request(request *http.Request) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		body := orNoBody(request.Body)

		if !method.Valid(request.Method) {
			yield(nil, invariant("invalid request method %q", request.Method))
			return
		}

		if !validTarget(strutil.S2B(request.Target)) {
			yield(nil, invariant("invalid request target %q", request.Target))
			return
		}

		s.buff = append(s.buff[:0], request.Method...)
		s.sp()
		s.buff = append(s.buff, request.Target...)
		s.sp()
		s.appendProtocol(request.Protocol)
		s.crlf()

		if body.Framing == http.UntilClose {
			yield(nil, invariant("until-close bodies can't be sent"))
			return
		}

		framing := requestFraming(request.Method, request.Protocol, body)
		if err := s.appendHeaders(request.Headers, body, framing); err != nil {
			yield(nil, err)
			return
		}

		if !yield(s.buff, nil) {
			return
		}

		s.body(body, framing, yield)
	}
}

// Response works the same way Request does. The method is the one of the request the
// response answers. Responses to HEAD don't carry any body bytes, even though their
// headers describe the body.
func (s *Serializer) Response(response *http.Response, m method.Method) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		body := orNoBody(response.Body)

		if !status.Valid(response.Code) {
			yield(nil, invariant("invalid status code %d", response.Code))
			return
		}

		if body.Framing == http.UntilClose {
			yield(nil, invariant("until-close bodies can't be sent"))
			return
		}

		s.buff = s.buff[:0]
		s.appendProtocol(response.Protocol)
		s.sp()
		s.buff = strconv.AppendUint(s.buff, uint64(response.Code), 10)
		s.sp()
		reason := response.Reason
		if len(reason) == 0 {
			reason = status.Text(response.Code)
		}

		s.buff = append(s.buff, reason...)
		s.crlf()

		framing := responseFraming(response.Code, response.Protocol, body)
		if err := s.appendHeaders(response.Headers, body, framing); err != nil {
			yield(nil, err)
			return
		}

		if !yield(s.buff, nil) {
			return
		}

		if m == method.HEAD || status.Bodiless(response.Code) {
			return
		}

		s.body(body, framing, yield)
	}
}

// wireFraming describes how the body is actually put on the wire. It might differ from
// the body framing: e.g. HTTP/1.0 doesn't know chunked coding.
type wireFraming uint8

const (
	wireNone wireFraming = iota
	// wireZero is an empty body, explicitly marked with Content-Length: 0
	wireZero
	wireFixed
	wireChunked
	wireRaw
)

func requestFraming(m method.Method, protocol proto.Protocol, body *http.Body) wireFraming {
	if body.Framing == http.Empty {
		switch m {
		case method.POST, method.PUT, method.PATCH:
			return wireZero
		default:
			return wireNone
		}
	}

	return bodyFraming(protocol, body)
}

func responseFraming(code status.Code, protocol proto.Protocol, body *http.Body) wireFraming {
	switch {
	case status.Bodiless(code):
		return wireNone
	case body.Framing == http.Empty:
		// must be declared explicitly, otherwise the client reads until the connection
		// is closed
		return wireZero
	default:
		return bodyFraming(protocol, body)
	}
}

func bodyFraming(protocol proto.Protocol, body *http.Body) wireFraming {
	switch body.Framing {
	case http.Fixed:
		return wireFixed
	case http.Chunked:
		if protocol == proto.HTTP10 {
			return wireRaw
		}

		return wireChunked
	default:
		return wireNone
	}
}

// ClosesConnection reports whether the response can be delimited only by closing the
// connection.
func ClosesConnection(response *http.Response, m method.Method) bool {
	body := orNoBody(response.Body)
	return m != method.HEAD && responseFraming(response.Code, response.Protocol, body) == wireRaw
}

func (s *Serializer) appendHeaders(headers *kv.Storage, body *http.Body, framing wireFraming) error {
	var hasLength, hasEncoding bool

	for _, header := range headers.Expose() {
		if !httpguts.ValidHeaderFieldName(header.Key) || !httpguts.ValidHeaderFieldValue(header.Value) {
			return invariant("invalid header field %q", header.Key)
		}

		switch {
		case strutil.CmpFold(header.Key, "Content-Length"):
			if framing != wireFixed && framing != wireZero && framing != wireNone {
				return invariant("Content-Length is set for a %s body", body.Framing)
			}

			length, ok := parseUint(header.Value)
			if !ok || (framing == wireFixed && length != body.Length) || (framing == wireZero && length != 0) {
				return invariant("Content-Length %q contradicts the body length %d", header.Value, body.Length)
			}

			hasLength = true
		case strutil.CmpFold(header.Key, "Transfer-Encoding"):
			if framing != wireChunked {
				return invariant("Transfer-Encoding is set for a %s body", body.Framing)
			}

			hasEncoding = true
		}

		s.buff = append(s.buff, header.Key...)
		s.colonsp()
		s.buff = append(s.buff, header.Value...)
		s.crlf()
	}

	switch framing {
	case wireZero:
		if !hasLength {
			s.appendContentLength(0)
		}
	case wireFixed:
		if !hasLength {
			s.appendContentLength(body.Length)
		}
	case wireChunked:
		if !hasEncoding {
			s.appendKnownHeader("Transfer-Encoding: ", "chunked")
		}
	}

	s.crlf()
	return nil
}

func (s *Serializer) body(body *http.Body, framing wireFraming, yield func([]byte, error) bool) {
	switch framing {
	case wireFixed:
		s.fixed(body, yield)
	case wireChunked:
		s.chunked(body, yield)
	case wireRaw:
		s.raw(body, yield)
	}
}

func (s *Serializer) fixed(body *http.Body, yield func([]byte, error) bool) {
	var written int64

	for {
		data, err := body.Fetch()
		if len(data) > 0 {
			if written += int64(len(data)); written > body.Length {
				yield(nil, invariant("fixed body is longer than declared %d bytes", body.Length))
				return
			}

			if !yield(data, nil) {
				return
			}
		}

		switch err {
		case nil:
		case io.EOF:
			if written != body.Length {
				yield(nil, invariant("fixed body is %d bytes, %d declared", written, body.Length))
			}

			return
		default:
			yield(nil, err)
			return
		}
	}
}

func (s *Serializer) chunked(body *http.Body, yield func([]byte, error) bool) {
	for {
		data, err := body.Fetch()
		if len(data) > 0 {
			s.buff = strconv.AppendUint(s.buff[:0], uint64(len(data)), 16)
			s.crlf()
			s.buff = append(s.buff, data...)
			s.crlf()

			if !yield(s.buff, nil) {
				return
			}
		}

		switch err {
		case nil:
		case io.EOF:
			s.buff = append(s.buff[:0], '0')
			s.crlf()

			for _, trailer := range body.Trailers.Expose() {
				if !httpguts.ValidHeaderFieldName(trailer.Key) || !httpguts.ValidHeaderFieldValue(trailer.Value) {
					yield(nil, invariant("invalid trailer field %q", trailer.Key))
					return
				}

				s.buff = append(s.buff, trailer.Key...)
				s.colonsp()
				s.buff = append(s.buff, trailer.Value...)
				s.crlf()
			}

			s.crlf()
			yield(s.buff, nil)
			return
		default:
			yield(nil, err)
			return
		}
	}
}

func (s *Serializer) raw(body *http.Body, yield func([]byte, error) bool) {
	for {
		data, err := body.Fetch()
		if len(data) > 0 && !yield(data, nil) {
			return
		}

		switch err {
		case nil:
		case io.EOF:
			return
		default:
			yield(nil, err)
			return
		}
	}
}

func orNoBody(body *http.Body) *http.Body {
	if body == nil {
		return http.NoBody()
	}

	return body
}

func invariant(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{status.ErrInvariantViolation}, args...)...)
}

// appendKnownHeader differs from appending a kv.Pair only by the fact that the key is
// known to already have a colon and a space included.
func (s *Serializer) appendKnownHeader(key, value string) {
	s.buff = append(s.buff, key...)
	s.buff = append(s.buff, value...)
	s.crlf()
}

func (s *Serializer) appendContentLength(value int64) {
	s.buff = append(s.buff, "Content-Length: "...)
	s.buff = strconv.AppendInt(s.buff, value, 10)
	s.crlf()
}

func (s *Serializer) appendProtocol(protocol proto.Protocol) {
	if protocol == proto.Unknown {
		// in case the request method or path were malformed, parser had no chance of reaching
		// the protocol and thereby resulting in the unknown one.
		protocol = proto.HTTP11
	}

	s.buff = append(s.buff, protocol.String()...)
}

func (s *Serializer) sp() {
	s.buff = append(s.buff, ' ')
}

func (s *Serializer) colonsp() {
	s.buff = append(s.buff, ':', ' ')
}

const crlf = "\r\n"

func (s *Serializer) crlf() {
	s.buff = append(s.buff, crlf...)
}
