package session

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/tandem/config"
	"github.com/indigo-web/tandem/http"
	"github.com/indigo-web/tandem/http/codec"
	"github.com/indigo-web/tandem/http/status"
	"github.com/indigo-web/tandem/internal/codecutil"
	"github.com/indigo-web/tandem/internal/protocol/http1"
	"github.com/indigo-web/tandem/internal/strutil"
	"github.com/indigo-web/tandem/internal/timer"
	"github.com/indigo-web/tandem/kv"
	"github.com/indigo-web/tandem/transport"
)

// probeTimeout bounds the check of whether an idle connection was closed by the peer.
const probeTimeout = time.Millisecond

// Client runs request-response exchanges over a single connection, one at a time. The
// response body is read straight from the connection, so the next exchange is possible
// only after it's fully read or closed.
type Client struct {
	id         string
	cfg        *config.Config
	log        *slog.Logger
	conn       transport.Conn
	parser     *http1.Parser
	reader     *reader
	source     bodySource
	body       *responseBody
	serializer *http1.Serializer
	codecs     codecutil.Cache
	state      State
	// OnIdle is called every time an exchange is over, whatever its outcome is. The
	// state tells whether the session can be reused.
	OnIdle func(*Client)
}

func NewClient(cfg *config.Config, codecs []codec.Codec, conn transport.Conn) *Client {
	id := uniuri.NewLen(10)
	parser := http1.NewResponseParser(cfg, http.NewResponse())
	c := &Client{
		id:         id,
		cfg:        cfg,
		log:        cfg.Log().With("conn", id, "remote", conn.Remote().String()),
		conn:       conn,
		parser:     parser,
		reader:     newReader(conn, parser, cfg.NET.ReadBufferSize, cfg.NET.IdleTimeout),
		serializer: http1.NewSerializer(make([]byte, 0, cfg.NET.WriteBufferSize)),
		codecs:     codecutil.NewCache(codecs),
	}
	c.source.r = c.reader
	c.body = &responseBody{c: c, done: true}

	return c
}

// ID returns the random identifier of the connection.
func (c *Client) ID() string {
	return c.id
}

// State returns the current state of the session.
func (c *Client) State() State {
	return c.state
}

// Secure reports whether the connection is encrypted.
func (c *Client) Secure() bool {
	return c.conn.IsSecure()
}

// AcceptEncoding returns the value advertising the codings the session can decode.
func (c *Client) AcceptEncoding() string {
	return c.codecs.AcceptEncoding()
}

// Alive reports whether the session is idle and the peer hasn't closed the connection
// meanwhile. It might block for a millisecond.
func (c *Client) Alive() bool {
	if c.state != Idle || c.reader.Buffered() || c.reader.eof {
		return false
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(probeTimeout)); err != nil {
		return false
	}

	n, err := c.conn.Read(c.reader.staging.Spare(1))
	c.reader.staging.Commit(n)

	return n == 0 && status.KindOf(err) == status.KindTimeout
}

// RoundTrip sends the request and returns the response as soon as its headers are
// received. The body must be read till the end or closed, otherwise the session stays
// busy. Cancelling ctx aborts the exchange, including reading the body, and closes the
// connection.
func (c *Client) RoundTrip(ctx context.Context, request *http.Request) (*http.Response, error) {
	if c.state != Idle {
		return nil, status.ErrSessionClosed
	}

	// every exchange gets its own body, so the bodies of the previous ones can't
	// affect it anymore
	c.body = &responseBody{c: c, ctx: ctx}
	if err := ctx.Err(); err != nil {
		return nil, c.fail(err)
	}

	c.body.stop = context.AfterFunc(ctx, func() {
		_ = c.conn.Close()
	})

	if err := c.send(request); err != nil {
		return nil, c.fail(err)
	}

	response, err := c.receive(request)
	if err != nil {
		return nil, c.fail(err)
	}

	return response, nil
}

func (c *Client) send(request *http.Request) error {
	c.state = WritingHeaders
	if request.Body != nil {
		defer request.Body.Close()
	}

	for piece, err := range c.serializer.Request(request) {
		if err != nil {
			return err
		}

		if err = c.conn.SetWriteDeadline(timer.Deadline(c.cfg.NET.WriteTimeout)); err != nil {
			return status.WrapTransport(err)
		}

		if _, err = c.conn.Write(piece); err != nil {
			return err
		}

		c.state = WritingBody
	}

	return nil
}

func (c *Client) receive(request *http.Request) (*http.Response, error) {
	c.state = ReadingHeaders
	response := http.NewResponse()
	response.Body.Source = c.body
	c.parser.Bind(response)
	c.parser.Expect(request.Method)

	for {
		c.parser.Reset()
		c.source.reset()

		event, err := c.reader.Next()
		switch {
		case err == io.EOF:
			return nil, status.ErrUnexpectedEOF
		case err != nil:
			return nil, err
		case event.Kind == http1.Error:
			return nil, event.Err
		}

		if response.Code >= 200 || response.Code == 101 {
			break
		}

		// interim responses are skipped. They never have a body, so the next event
		// completes them
		c.log.Debug("interim response received", "code", response.Code)
		if _, err = c.reader.Next(); err != nil {
			return nil, err
		}

		response.Headers.Clear()
	}

	// the parser memory is reused by the next exchange, while the response may outlive it
	detach(response.Headers)
	response.Reason = status.Status(strings.Clone(string(response.Reason)))

	c.state = ReadingBody
	c.body.keepAlive = request.KeepAlive() && response.KeepAlive() &&
		response.Body.Framing != http.UntilClose && response.Code != 101
	c.body.trailers = response.Body

	if err := c.decode(response); err != nil {
		return nil, err
	}

	if response.Body.Framing == http.Empty {
		if _, err := c.body.Fetch(); err != io.EOF {
			return nil, err
		}
	}

	return response, nil
}

func (c *Client) decode(response *http.Response) error {
	coding := response.Headers.Value("Content-Encoding")
	if len(coding) == 0 || strutil.CmpFold(coding, "identity") || response.Body.Framing == http.Empty {
		return nil
	}

	instance := c.codecs.Get(coding)
	if instance == nil {
		// can't decode it, so let the caller deal with it
		return nil
	}

	instance.ResetDecompressor(&c.source, c.cfg.NET.ReadBufferSize)
	c.body.source = instance
	response.Headers.Delete("Content-Encoding").Delete("Content-Length")
	response.Body.Length = -1

	return nil
}

// finish ends the exchange.
func (c *Client) finish(reusable bool) {
	if c.body.stop != nil {
		c.body.stop()
		c.body.stop = nil
	}

	c.body.source = nil
	c.body.done = true

	if reusable {
		c.state = Idle
	} else {
		c.state = Closing
		_ = c.conn.Close()
		c.state = Closed
	}

	if c.OnIdle != nil {
		c.OnIdle(c)
	}
}

func (c *Client) fail(err error) error {
	ctx := c.body.ctx
	c.finish(false)

	if ctx != nil && ctx.Err() != nil {
		return status.WrapTransport(ctx.Err())
	}

	c.log.Debug("exchange failed", "error", err)
	return err
}

// Close closes the connection. Must not be called while an exchange is in progress.
func (c *Client) Close() error {
	c.state = Closed
	return c.conn.Close()
}

// responseBody is the source of the response body of a single exchange, tracking its
// end.
type responseBody struct {
	c         *Client
	ctx       context.Context
	stop      func() bool
	source    http.Fetcher
	trailers  *http.Body
	keepAlive bool
	// done is set once the exchange is over. The body is inert since then
	done bool
	err  error
}

func (r *responseBody) Fetch() ([]byte, error) {
	if r.done || r.c.state != ReadingBody {
		if r.err != nil {
			return nil, r.err
		}

		return nil, io.EOF
	}

	source := r.source
	if source == nil {
		source = &r.c.source
	}

	data, err := source.Fetch()
	switch err {
	case nil:
		return data, nil
	case io.EOF:
		if !r.c.parser.Done() {
			// the decoder is over, but the raw body might be not
			if derr := r.c.source.discard(); derr != nil {
				r.err = r.c.fail(derr)
				return data, r.err
			}
		}

		detach(r.trailers.Trailers)
		r.c.finish(r.keepAlive)
		return data, io.EOF
	default:
		r.err = r.c.fail(err)
		return data, r.err
	}
}

// Close drops the rest of the body, closing the connection. Closing the body of an
// exchange that is already over does nothing.
func (r *responseBody) Close() error {
	if !r.done && r.c.state == ReadingBody {
		r.c.finish(false)
	}

	return nil
}

func detach(storage *kv.Storage) {
	for i, pair := range storage.Expose() {
		storage.Expose()[i] = kv.Pair{Key: strings.Clone(pair.Key), Value: strings.Clone(pair.Value)}
	}
}
