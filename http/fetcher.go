package http

import (
	"io"
)

// Fetcher is the source of a message body. Fetch returns the next piece of data; the
// piece is valid until the next call. io.EOF marks the end and may come along with the
// last piece of data. Empty pieces without an error are allowed and mean nothing.
type Fetcher interface {
	Fetch() ([]byte, error)
}

type bytesFetcher struct {
	data []byte
}

// BytesFetcher returns the whole data at once.
func BytesFetcher(data []byte) Fetcher {
	return &bytesFetcher{data: data}
}

func (b *bytesFetcher) Fetch() ([]byte, error) {
	data := b.data
	b.data = nil

	return data, io.EOF
}

type chunksFetcher struct {
	chunks [][]byte
}

// Chunks returns the pieces one by one, each as a separate chunk when sent chunked.
func Chunks(chunks ...[]byte) Fetcher {
	return &chunksFetcher{chunks: chunks}
}

func (c *chunksFetcher) Fetch() ([]byte, error) {
	if len(c.chunks) == 0 {
		return nil, io.EOF
	}

	chunk := c.chunks[0]
	c.chunks = c.chunks[1:]

	return chunk, nil
}

type readerFetcher struct {
	r    io.Reader
	buff []byte
}

// ReaderFetcher reads the reader by pieces of at most bufferSize bytes. If the reader
// is an io.Closer, it's closed together with the body.
func ReaderFetcher(r io.Reader, bufferSize int) Fetcher {
	return &readerFetcher{
		r:    r,
		buff: make([]byte, bufferSize),
	}
}

func (r *readerFetcher) Fetch() ([]byte, error) {
	n, err := r.r.Read(r.buff)
	return r.buff[:n], err
}

func (r *readerFetcher) Close() error {
	if c, ok := r.r.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

// fetcherReader turns a Fetcher back into an io.Reader.
type fetcherReader struct {
	source  Fetcher
	pending []byte
	err     error
}

func (f *fetcherReader) Read(p []byte) (n int, err error) {
	for len(f.pending) == 0 && f.err == nil {
		f.pending, f.err = f.source.Fetch()
	}

	n = copy(p, f.pending)
	f.pending = f.pending[n:]

	if len(f.pending) == 0 {
		err = f.err
	}

	return n, err
}

// Reader adapts the fetcher to the io.Reader interface.
func Reader(source Fetcher) io.Reader {
	return &fetcherReader{source: source}
}
