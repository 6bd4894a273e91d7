package codec

import (
	"io"

	"github.com/indigo-web/tandem/http"
)

// coding is a Codec producing streams from the factory.
type coding struct {
	token     string
	newStream func() Instance
}

func (c coding) Token() string { return c.token }
func (c coding) New() Instance { return c.newStream() }

var _ Codec = coding{}

type (
	resetWriteCloser interface {
		io.WriteCloser
		Reset(dst io.Writer)
	}

	// rebinder points the decoder to the new compressed source. Decoders mostly read the
	// stream header right away.
	rebinder = func(dec io.Reader, src io.Reader) error
)

// stream pairs an encoder with a decoder of the same coding.
type stream struct {
	enc    resetWriteCloser
	sink   io.Closer
	dec    io.Reader
	rebind rebinder
	src    fetchReader
	bound  bool
	out    []byte
}

var _ Instance = new(stream)

func newStream(enc resetWriteCloser, dec io.Reader, rebind rebinder) *stream {
	if rebind == nil {
		rebind = resetReader
	}

	return &stream{
		enc:    enc,
		dec:    dec,
		rebind: rebind,
	}
}

func (s *stream) ResetCompressor(w io.Writer) {
	s.enc.Reset(w)
	s.sink, _ = w.(io.Closer)
}

func (s *stream) Write(p []byte) (int, error) {
	return s.enc.Write(p)
}

// Close flushes the encoder and closes the underlying writer, if it's closable.
func (s *stream) Close() error {
	if err := s.enc.Close(); err != nil || s.sink == nil {
		return err
	}

	return s.sink.Close()
}

func (s *stream) ResetDecompressor(source http.Fetcher, bufferSize int) {
	if cap(s.out) < bufferSize {
		s.out = make([]byte, bufferSize)
	}

	s.out = s.out[:bufferSize]
	s.src = fetchReader{fetcher: source}
	s.bound = false
}

func (s *stream) Fetch() ([]byte, error) {
	if !s.bound {
		// binding is postponed until the data is actually wanted, as it already reads
		err := s.rebind(s.dec, &s.src)
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}

		if err != nil {
			return nil, err
		}

		s.bound = true
	}

	n, err := s.dec.Read(s.out)
	return s.out[:n], err
}

func resetReader(dec io.Reader, src io.Reader) error {
	if r, ok := dec.(interface{ Reset(io.Reader) error }); ok {
		return r.Reset(src)
	}

	return nil
}

// fetchReader is an io.Reader on top of a Fetcher.
type fetchReader struct {
	fetcher http.Fetcher
	pending []byte
	err     error
}

func (f *fetchReader) Read(b []byte) (n int, err error) {
	for len(f.pending) == 0 {
		if f.err != nil {
			return 0, f.err
		}

		f.pending, f.err = f.fetcher.Fetch()
	}

	n = copy(b, f.pending)
	f.pending = f.pending[n:]
	if len(f.pending) == 0 {
		err = f.err
	}

	return n, err
}
