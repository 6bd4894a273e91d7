package http

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type failingFetcher struct{}

func (failingFetcher) Fetch() ([]byte, error) {
	return []byte("part"), errors.New("connection reset")
}

func TestBody(t *testing.T) {
	t.Run("bytes", func(t *testing.T) {
		body := StringBody("Hello, world!")
		require.Equal(t, Fixed, body.Framing)
		require.EqualValues(t, 13, body.Length)
		require.False(t, body.Drained())

		text, err := body.String()
		require.NoError(t, err)
		require.Equal(t, "Hello, world!", text)
		require.True(t, body.Drained())

		// cached
		text, err = body.String()
		require.NoError(t, err)
		require.Equal(t, "Hello, world!", text)
	})

	t.Run("empty", func(t *testing.T) {
		body := BytesBody(nil)
		require.Equal(t, Empty, body.Framing)
		data, err := body.Bytes()
		require.NoError(t, err)
		require.Empty(t, data)
		require.True(t, body.Drained())
	})

	t.Run("chunks", func(t *testing.T) {
		body := ChunkedBody(Chunks([]byte("Hel"), nil, []byte("lo")))
		var pieces []string

		for {
			data, err := body.Fetch()
			if len(data) > 0 {
				pieces = append(pieces, string(data))
			}

			if err == io.EOF {
				break
			}

			require.NoError(t, err)
		}

		require.Equal(t, []string{"Hel", "lo"}, pieces)
		require.True(t, body.Drained())
	})

	t.Run("read", func(t *testing.T) {
		body := ChunkedBody(Chunks([]byte("Hello, "), []byte("world!")))
		data, err := io.ReadAll(body)
		require.NoError(t, err)
		require.Equal(t, "Hello, world!", string(data))
	})

	t.Run("reader", func(t *testing.T) {
		body := ReaderBody(strings.NewReader(strings.Repeat("a", 10)), 10, 3)
		require.Equal(t, Fixed, body.Framing)
		data, err := body.Bytes()
		require.NoError(t, err)
		require.Equal(t, strings.Repeat("a", 10), string(data))

		require.Equal(t, Chunked, ReaderBody(strings.NewReader(""), -1, 3).Framing)
		require.Equal(t, Empty, ReaderBody(strings.NewReader(""), 0, 3).Framing)
	})

	t.Run("error sticks", func(t *testing.T) {
		body := ChunkedBody(failingFetcher{})
		_, err := body.Bytes()
		require.EqualError(t, err, "connection reset")
		_, err = body.Fetch()
		require.EqualError(t, err, "connection reset")
		require.False(t, body.Drained())
	})

	t.Run("discard", func(t *testing.T) {
		body := ChunkedBody(Chunks([]byte("a"), []byte("b")))
		require.NoError(t, body.Discard())
		require.True(t, body.Drained())
	})

	t.Run("json", func(t *testing.T) {
		var model struct {
			Name string `json:"name"`
			Age  int    `json:"age"`
		}

		body := StringBody(`{"name": "Pavlo", "age": 19}`)
		require.NoError(t, body.JSON(&model))
		require.Equal(t, "Pavlo", model.Name)
		require.Equal(t, 19, model.Age)
	})

	t.Run("reset", func(t *testing.T) {
		body := ChunkedBody(Chunks([]byte("x"))).WithTrailer("Checksum", "abc")
		require.NoError(t, body.Discard())
		body.Reset(Fixed, 3, BytesFetcher([]byte("xyz")))
		require.False(t, body.Drained())
		require.Zero(t, body.Trailers.Len())
		text, err := body.String()
		require.NoError(t, err)
		require.Equal(t, "xyz", text)
	})
}

func TestReader(t *testing.T) {
	r := Reader(Chunks([]byte("ab"), nil, []byte("cd")))
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "abcd", string(data))
}
