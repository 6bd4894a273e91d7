package codec

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/indigo-web/tandem/http"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

func gzipped(text string) []byte {
	buff := bytes.NewBuffer(nil)
	c := gzip.NewWriter(buff)
	_, err := c.Write([]byte(text))
	if err != nil {
		panic("unexpected error during gzipping")
	}
	if c.Close() != nil {
		panic("unexpected error during closing gzip writer")
	}

	return buff.Bytes()
}

func scatter(b []byte, step int) (pieces [][]byte) {
	for i := 0; i < len(b); i += step {
		pieces = append(pieces, b[i:min(i+step, len(b))])
	}

	return pieces
}

func fetchAll(source http.Fetcher) (string, error) {
	builder := strings.Builder{}

	for {
		data, err := source.Fetch()
		builder.Write(data)
		switch err {
		case nil:
		case io.EOF:
			return builder.String(), nil
		default:
			return "", err
		}
	}
}

func decompress(c Codec, pieces ...[]byte) (string, error) {
	dc := c.New()
	dc.ResetDecompressor(http.Chunks(pieces...), 64)
	return fetchAll(dc)
}

func TestGZIP(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		text, err := decompress(NewGZIP(), gzipped("Hello, world!"))
		require.NoError(t, err)
		require.Equal(t, "Hello, world!", text)
	})

	t.Run("scattered", func(t *testing.T) {
		text := strings.Repeat("Hello, world! Lorem ipsum! ", 100)
		result, err := decompress(NewGZIP(), scatter(gzipped(text), 2)...)
		require.NoError(t, err)
		require.Equal(t, text, result)
	})

	t.Run("empty stream", func(t *testing.T) {
		text, err := decompress(NewGZIP())
		require.NoError(t, err)
		require.Empty(t, text)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := decompress(NewGZIP(), []byte("definitely not gzip"))
		require.Error(t, err)
	})
}

func TestRoundTrip(t *testing.T) {
	text := strings.Repeat("Pack my box with five dozen liquor jugs. ", 200)

	for _, c := range Default() {
		t.Run(c.Token(), func(t *testing.T) {
			inst := c.New()
			// run twice to make sure instances are reusable
			for range 2 {
				compressed, err := fetchAll(Encode(inst, http.Chunks(scatter([]byte(text), 1000)...)))
				require.NoError(t, err)
				require.Less(t, len(compressed), len(text))

				result, err := decompress(c, scatter([]byte(compressed), 7)...)
				require.NoError(t, err)
				require.Equal(t, text, result)
			}
		})
	}
}

func TestNegotiate(t *testing.T) {
	codecs := Default()

	t.Run("preference order", func(t *testing.T) {
		c := Negotiate([]string{"zstd, deflate"}, codecs)
		require.NotNil(t, c)
		require.Equal(t, "deflate", c.Token())
	})

	t.Run("multiple values", func(t *testing.T) {
		c := Negotiate([]string{"br", "ZSTD;q=0.5"}, codecs)
		require.NotNil(t, c)
		require.Equal(t, "zstd", c.Token())
	})

	t.Run("zero quality", func(t *testing.T) {
		require.Nil(t, Negotiate([]string{"gzip;q=0, deflate; q=0.0, zstd;q=0.000"}, codecs))
	})

	t.Run("wildcard", func(t *testing.T) {
		c := Negotiate([]string{"gzip;q=0, *"}, codecs)
		require.NotNil(t, c)
		require.Equal(t, "deflate", c.Token())
	})

	t.Run("nothing", func(t *testing.T) {
		require.Nil(t, Negotiate(nil, codecs))
		require.Nil(t, Negotiate([]string{"identity"}, codecs))
	})
}

func TestAcceptEncoding(t *testing.T) {
	require.Equal(t, "identity", AcceptEncoding(nil))
	require.Equal(t, "gzip", AcceptEncoding([]Codec{NewGZIP()}))
	require.Equal(t, "gzip, deflate, zstd", AcceptEncoding(Default()))
	require.NotNil(t, Find(Default(), "GZIP"))
	require.Nil(t, Find(Default(), "br"))
}
