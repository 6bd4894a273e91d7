package codec

import (
	"io"

	"github.com/indigo-web/tandem/http"
)

type Codec interface {
	// Token returns a coding token associated with the codec itself.
	Token() string
	// New returns an independent instance. Instances aren't safe for concurrent use,
	// so each connection holds its own.
	New() Instance
}

type Instance interface {
	Compressor
	Decompressor
}

type Compressor interface {
	io.WriteCloser
	ResetCompressor(w io.Writer)
}

type Decompressor interface {
	http.Fetcher
	// ResetDecompressor binds the instance to the compressed source. Nothing is read
	// until the first Fetch.
	ResetDecompressor(source http.Fetcher, bufferSize int)
}

// Default returns all the codecs available out of the box, in the order of preference.
func Default() []Codec {
	return []Codec{NewGZIP(), NewDeflate(), NewZSTD()}
}
