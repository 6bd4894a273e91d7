package session

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/indigo-web/tandem/config"
	"github.com/indigo-web/tandem/http"
	"github.com/indigo-web/tandem/http/codec"
	"github.com/indigo-web/tandem/http/method"
	"github.com/indigo-web/tandem/http/status"
	"github.com/indigo-web/tandem/transport"
	"github.com/indigo-web/tandem/transport/dummy"
	"github.com/stretchr/testify/require"
)

func newClient(conn *dummy.Conn) *Client {
	return NewClient(config.Default(), codec.Default(), transport.Plain(conn))
}

func get(target string) *http.Request {
	request := http.NewRequest(nil)
	request.Method = method.GET
	request.Target = target
	request.Headers.Add("Host", "localhost")

	return request
}

func readBody(t *testing.T, response *http.Response) string {
	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	return string(body)
}

func TestClient(t *testing.T) {
	t.Run("reuse", func(t *testing.T) {
		conn := dummy.NewConn(pieces("HTTP/1.1 200 OK\r\nServer: test\r\nContent-Length: 5\r\n\r\nhello")...).Hold()
		c := newClient(conn)

		first, err := c.RoundTrip(context.Background(), get("/first"))
		require.NoError(t, err)
		require.Equal(t, status.OK, first.Code)
		require.Equal(t, ReadingBody, c.State())
		require.Equal(t, "hello", readBody(t, first))
		require.Equal(t, Idle, c.State())
		require.True(t, c.Alive())

		conn.Feed(pieces("HTTP/1.1 404 Not Found\r\nServer: other\r\nContent-Length: 4\r\n\r\n", "nope")...)
		second, err := c.RoundTrip(context.Background(), get("/second"))
		require.NoError(t, err)
		require.Equal(t, status.NotFound, second.Code)
		require.EqualValues(t, "Not Found", second.Reason)
		require.Equal(t, "nope", readBody(t, second))

		// headers of the previous response outlive the exchange
		require.Equal(t, "test", first.Headers.Value("server"))
		require.Equal(t, "other", second.Headers.Value("server"))
		require.Equal(t,
			"GET /first HTTP/1.1\r\nHost: localhost\r\n\r\n"+
				"GET /second HTTP/1.1\r\nHost: localhost\r\n\r\n",
			conn.Written(),
		)
	})

	t.Run("previous body closed", func(t *testing.T) {
		conn := dummy.NewConn(pieces("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nfirst")...).Hold()
		c := newClient(conn)

		first, err := c.RoundTrip(context.Background(), get("/a"))
		require.NoError(t, err)
		require.Equal(t, "first", readBody(t, first))

		conn.Feed(pieces("HTTP/1.1 200 OK\r\nContent-Length: 6\r\n\r\n", "second")...)
		second, err := c.RoundTrip(context.Background(), get("/b"))
		require.NoError(t, err)

		// the first exchange is over, so its body must not affect the current one
		require.NoError(t, first.Body.Close())
		require.Equal(t, ReadingBody, c.State())
		require.Equal(t, "second", readBody(t, second))
		require.Equal(t, Idle, c.State())
		require.False(t, conn.Closed())

		data, err := first.Body.Fetch()
		require.Empty(t, data)
		require.Equal(t, io.EOF, err)
	})

	t.Run("chunked", func(t *testing.T) {
		conn := dummy.NewConn(pieces(
			"HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n",
			"5\r\nhello\r\n", "6\r\n, worl\r\n1\r\nd\r\n0\r\nX-Checksum: 42\r\n\r\n",
		)...).Hold()
		c := newClient(conn)

		response, err := c.RoundTrip(context.Background(), get("/"))
		require.NoError(t, err)
		require.Equal(t, "hello, world", readBody(t, response))
		require.Equal(t, "42", response.Body.Trailers.Value("x-checksum"))
		require.Equal(t, Idle, c.State())
	})

	t.Run("interim responses", func(t *testing.T) {
		conn := dummy.NewConn(pieces("HTTP/1.1 100 Continue\r\n\r\nHTTP/1.1 103 Early Hints\r\nLink: </style.css>\r\n\r\nHTTP/1.1 204 No Content\r\n\r\n")...).Hold()
		c := newClient(conn)

		response, err := c.RoundTrip(context.Background(), get("/"))
		require.NoError(t, err)
		require.Equal(t, status.NoContent, response.Code)
		require.False(t, response.Headers.Has("link"))
		require.Equal(t, Idle, c.State())
	})

	t.Run("HEAD", func(t *testing.T) {
		conn := dummy.NewConn(pieces("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\n")...).Hold()
		c := newClient(conn)
		request := get("/")
		request.Method = method.HEAD

		response, err := c.RoundTrip(context.Background(), request)
		require.NoError(t, err)
		require.Equal(t, "5", response.Headers.Value("content-length"))
		require.Empty(t, readBody(t, response))
		require.Equal(t, Idle, c.State())
	})

	t.Run("until close", func(t *testing.T) {
		conn := dummy.NewConn(pieces("HTTP/1.0 200 OK\r\n\r\n", "streamed ", "data")...)
		c := newClient(conn)

		response, err := c.RoundTrip(context.Background(), get("/"))
		require.NoError(t, err)
		require.Equal(t, http.UntilClose, response.Body.Framing)
		require.Equal(t, "streamed data", readBody(t, response))
		require.Equal(t, Closed, c.State())
		require.True(t, conn.Closed())
	})

	t.Run("Connection: close", func(t *testing.T) {
		conn := dummy.NewConn(pieces("HTTP/1.1 200 OK\r\nConnection: close\r\nContent-Length: 2\r\n\r\nok")...).Hold()
		c := newClient(conn)

		response, err := c.RoundTrip(context.Background(), get("/"))
		require.NoError(t, err)
		require.Equal(t, "ok", readBody(t, response))
		require.Equal(t, Closed, c.State())
	})

	t.Run("gzip", func(t *testing.T) {
		payload := gzipped(t, "Hello, world!")
		conn := dummy.NewConn(pieces(
			fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Encoding: gzip\r\nContent-Length: %d\r\n\r\n", len(payload)),
			payload,
		)...).Hold()
		c := newClient(conn)

		response, err := c.RoundTrip(context.Background(), get("/"))
		require.NoError(t, err)
		require.False(t, response.Headers.Has("content-encoding"))
		require.False(t, response.Headers.Has("content-length"))
		require.Equal(t, "Hello, world!", readBody(t, response))
		require.Equal(t, Idle, c.State())
	})

	t.Run("body closed early", func(t *testing.T) {
		conn := dummy.NewConn(pieces("HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\nhello")...).Hold()
		c := newClient(conn)

		response, err := c.RoundTrip(context.Background(), get("/"))
		require.NoError(t, err)
		require.NoError(t, response.Body.Close())
		require.Equal(t, Closed, c.State())

		_, err = c.RoundTrip(context.Background(), get("/"))
		require.ErrorIs(t, err, status.ErrSessionClosed)
	})

	t.Run("truncated body", func(t *testing.T) {
		conn := dummy.NewConn(pieces("HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\nhello")...)
		c := newClient(conn)

		response, err := c.RoundTrip(context.Background(), get("/"))
		require.NoError(t, err)
		_, err = io.ReadAll(response.Body)
		require.ErrorIs(t, err, status.ErrUnexpectedEOF)
		require.Equal(t, Closed, c.State())
	})

	t.Run("malformed response", func(t *testing.T) {
		conn := dummy.NewConn(pieces("HTTP/1.1 2OO OK\r\n\r\n")...).Hold()
		c := newClient(conn)

		_, err := c.RoundTrip(context.Background(), get("/"))
		require.ErrorIs(t, err, status.ErrBadStatusCode)
		require.Equal(t, Closed, c.State())
	})

	t.Run("closed before response", func(t *testing.T) {
		conn := dummy.NewConn()
		c := newClient(conn)

		_, err := c.RoundTrip(context.Background(), get("/"))
		require.ErrorIs(t, err, status.ErrUnexpectedEOF)
		require.False(t, c.Alive())
	})

	t.Run("cancel", func(t *testing.T) {
		conn := dummy.NewConn().Hold()
		c := newClient(conn)
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err := c.RoundTrip(ctx, get("/"))
		require.ErrorIs(t, err, status.ErrCancelled)
		require.Equal(t, Closed, c.State())
		require.True(t, conn.Closed())
	})

	t.Run("cancelled beforehand", func(t *testing.T) {
		conn := dummy.NewConn().Hold()
		c := newClient(conn)
		var calls []State
		c.OnIdle = func(client *Client) {
			calls = append(calls, client.State())
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.RoundTrip(ctx, get("/"))
		require.ErrorIs(t, err, status.ErrCancelled)
		require.Equal(t, []State{Closed}, calls)
		require.True(t, conn.Closed())
		require.Empty(t, conn.Written())
	})

	t.Run("deadline", func(t *testing.T) {
		conn := dummy.NewConn().Hold()
		c := newClient(conn)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := c.RoundTrip(ctx, get("/"))
		require.ErrorIs(t, err, status.ErrTimeout)
	})

	t.Run("on idle", func(t *testing.T) {
		conn := dummy.NewConn(pieces("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok")...).Hold()
		c := newClient(conn)
		var calls []State
		c.OnIdle = func(client *Client) {
			calls = append(calls, client.State())
		}

		response, err := c.RoundTrip(context.Background(), get("/"))
		require.NoError(t, err)
		require.Empty(t, calls)
		require.Equal(t, "ok", readBody(t, response))
		require.Equal(t, []State{Idle}, calls)
	})
}
