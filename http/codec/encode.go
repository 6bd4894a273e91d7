package codec

import (
	"bytes"
	"io"

	"github.com/indigo-web/tandem/http"
)

type encoder struct {
	source http.Fetcher
	c      Compressor
	out    bytes.Buffer
	done   bool
}

// Encode returns a Fetcher producing the compressed source. As compressors buffer
// internally, a single piece of output may be produced from several pieces of input.
func Encode(c Compressor, source http.Fetcher) http.Fetcher {
	e := &encoder{source: source, c: c}
	c.ResetCompressor(&e.out)

	return e
}

func (e *encoder) Fetch() ([]byte, error) {
	if e.done {
		return nil, io.EOF
	}

	e.out.Reset()

	for e.out.Len() == 0 {
		data, err := e.source.Fetch()
		if len(data) > 0 {
			if _, werr := e.c.Write(data); werr != nil {
				return nil, werr
			}
		}

		switch err {
		case nil:
		case io.EOF:
			e.done = true
			if err = e.c.Close(); err != nil {
				return nil, err
			}

			return e.out.Bytes(), io.EOF
		default:
			return nil, err
		}
	}

	return e.out.Bytes(), nil
}

func (e *encoder) Close() error {
	if c, ok := e.source.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
