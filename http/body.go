package http

import (
	"bytes"
	"io"

	"github.com/indigo-web/tandem/internal/strutil"
	"github.com/indigo-web/tandem/kv"
	json "github.com/json-iterator/go"
)

// Framing is the way the end of a body is determined.
type Framing uint8

const (
	// Empty bodies carry no bytes at all.
	Empty Framing = iota
	// Fixed bodies are exactly Length bytes long and are sent with Content-Length.
	Fixed
	// Chunked bodies are sent using the chunked transfer coding.
	Chunked
	// UntilClose bodies end when the connection is closed. They're only ever read by
	// the client, never sent.
	UntilClose
)

func (f Framing) String() string {
	switch f {
	case Empty:
		return "empty"
	case Fixed:
		return "fixed"
	case Chunked:
		return "chunked"
	case UntilClose:
		return "until-close"
	default:
		return "unknown"
	}
}

// Body is a message body of a single framing mode.
type Body struct {
	Framing Framing
	// Length is the declared length of a Fixed body. For other framings it's -1.
	Length int64
	// Source produces the body bytes. For received messages it is bound to the
	// connection, so the body must be read before the next message is.
	Source Fetcher
	// Trailers are the trailer fields of a chunked body. They're available only after
	// the body was read till the end.
	Trailers *kv.Storage
	pending  []byte
	buff     []byte
	err      error
	drained  bool
}

// NoBody returns an empty body.
func NoBody() *Body {
	return &Body{Framing: Empty, Length: -1}
}

// BytesBody returns a fixed body containing b WITHOUT COPYING.
func BytesBody(b []byte) *Body {
	if len(b) == 0 {
		return NoBody()
	}

	return FixedBody(BytesFetcher(b), int64(len(b)))
}

// StringBody returns a fixed body containing the string.
func StringBody(str string) *Body {
	return BytesBody(strutil.S2B(str))
}

// FixedBody returns a body of known length. The source must produce exactly length
// bytes, otherwise sending it fails.
func FixedBody(source Fetcher, length int64) *Body {
	return &Body{
		Framing: Fixed,
		Length:  length,
		Source:  source,
	}
}

// ChunkedBody returns a body of unknown length, sent chunk by chunk as the source
// produces them.
func ChunkedBody(source Fetcher) *Body {
	return &Body{
		Framing: Chunked,
		Length:  -1,
		Source:  source,
	}
}

// ReaderBody reads the body from r by pieces of bufferSize. Negative length means the
// length is unknown and the body is sent chunked.
func ReaderBody(r io.Reader, length int64, bufferSize int) *Body {
	source := ReaderFetcher(r, bufferSize)
	if length < 0 {
		return ChunkedBody(source)
	}

	if length == 0 {
		return NoBody()
	}

	return FixedBody(source, length)
}

// WithTrailer adds a trailer field. Trailers are sent only with chunked bodies.
func (b *Body) WithTrailer(key, value string) *Body {
	if b.Trailers == nil {
		b.Trailers = kv.New()
	}

	b.Trailers.Add(key, value)
	return b
}

// Fetch returns the next piece of the body. It returns io.EOF when the body is over.
func (b *Body) Fetch() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}

	if len(b.pending) > 0 {
		data := b.pending
		b.pending = nil
		return data, nil
	}

	if b.Framing == Empty || b.Source == nil {
		b.drained = true
		b.err = io.EOF
		return nil, io.EOF
	}

	data, err := b.Source.Fetch()
	if err != nil {
		b.err = err
		b.drained = err == io.EOF
	}

	return data, err
}

// Read implements the io.Reader interface.
func (b *Body) Read(p []byte) (n int, err error) {
	for len(b.pending) == 0 {
		var data []byte
		if data, err = b.Fetch(); err != nil && len(data) == 0 {
			return 0, err
		}

		b.pending = data
		if err != nil {
			break
		}
	}

	n = copy(p, b.pending)
	b.pending = b.pending[n:]
	if len(b.pending) == 0 && b.err != nil {
		err = b.err
	}

	return n, err
}

// Bytes reads the whole body. The result is cached, so it can be called repeatedly.
func (b *Body) Bytes() ([]byte, error) {
	if b.buff != nil {
		return b.buff, nil
	}

	if b.err != nil && b.err != io.EOF {
		return nil, b.err
	}

	var buff bytes.Buffer
	if b.Framing == Fixed && b.Length > 0 {
		buff.Grow(int(b.Length))
	}

	for {
		data, err := b.Fetch()
		buff.Write(data)

		switch err {
		case nil:
		case io.EOF:
			b.buff = buff.Bytes()
			if b.buff == nil {
				b.buff = []byte{}
			}

			return b.buff, nil
		default:
			return nil, err
		}
	}
}

// String returns the whole body as a string.
func (b *Body) String() (string, error) {
	data, err := b.Bytes()
	return strutil.B2S(data), err
}

// JSON reads the whole body and unmarshalls it into the model.
func (b *Body) JSON(model any) error {
	data, err := b.Bytes()
	if err != nil {
		return err
	}

	iterator := json.ConfigDefault.BorrowIterator(data)
	iterator.ReadVal(model)
	err = iterator.Error
	json.ConfigDefault.ReturnIterator(iterator)

	return err
}

// Discard reads the rest of the body without storing it.
func (b *Body) Discard() error {
	for {
		_, err := b.Fetch()
		switch err {
		case nil:
		case io.EOF:
			return nil
		default:
			return err
		}
	}
}

// Drained reports whether the body was read till the end.
func (b *Body) Drained() bool {
	return b.drained
}

// Close releases the source, if it holds anything to be released (e.g. a file).
func (b *Body) Close() error {
	if c, ok := b.Source.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

// Reset binds the body to a new source, dropping all the read state.
func (b *Body) Reset(framing Framing, length int64, source Fetcher) {
	*b = Body{
		Framing:  framing,
		Length:   length,
		Source:   source,
		Trailers: b.Trailers,
	}

	if b.Trailers != nil {
		b.Trailers.Clear()
	}
}
