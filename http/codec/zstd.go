package codec

import (
	"github.com/klauspost/compress/zstd"
)

// NewZSTD returns the zstd codec. Both halves run single-threaded, as every connection
// holds its own instance.
func NewZSTD() Codec {
	return coding{
		token: "zstd",
		newStream: func() Instance {
			enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
			if err != nil {
				panic(err)
			}

			dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
			if err != nil {
				panic(err)
			}

			return newStream(enc, dec, nil)
		},
	}
}
