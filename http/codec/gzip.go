package codec

import (
	"github.com/klauspost/compress/gzip"
)

func NewGZIP() Codec {
	return coding{
		token: "gzip",
		newStream: func() Instance {
			return newStream(gzip.NewWriter(nil), new(gzip.Reader), nil)
		},
	}
}
