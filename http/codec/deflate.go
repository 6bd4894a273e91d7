package codec

import (
	"io"

	"github.com/klauspost/compress/flate"
)

// NewDeflate returns the codec of the "deflate" token. The token is commonly sent as a
// raw deflate stream rather than the zlib format RFC 9110 implies, therefore raw
// deflate it is.
func NewDeflate() Codec {
	return coding{
		token: "deflate",
		newStream: func() Instance {
			enc, err := flate.NewWriter(nil, flate.DefaultCompression)
			if err != nil {
				panic(err)
			}

			return newStream(enc, flate.NewReader(nil), func(dec io.Reader, src io.Reader) error {
				return dec.(flate.Resetter).Reset(src, nil)
			})
		},
	}
}
