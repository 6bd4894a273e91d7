package client

import (
	"context"
	"crypto/tls"

	"github.com/indigo-web/tandem/config"
	"github.com/indigo-web/tandem/http"
	"github.com/indigo-web/tandem/http/codec"
	"github.com/indigo-web/tandem/http/method"
)

// Client sends requests over pooled connections. It's safe for concurrent use, as
// long as every request and response is used by a single goroutine.
type Client struct {
	cfg    *config.Config
	codecs []codec.Codec
	tls    *tls.Config
	dial   DialFunc
	pool   *Pool
}

type Option func(*Client)

// WithTLS sets the config for https endpoints, e.g. to trust custom roots.
func WithTLS(cfg *tls.Config) Option {
	return func(c *Client) {
		c.tls = cfg
	}
}

// WithCodecs replaces the content codings the client advertises and decodes.
func WithCodecs(codecs ...codec.Codec) Option {
	return func(c *Client) {
		c.codecs = codecs
	}
}

// WithDialer replaces the function connections are established by.
func WithDialer(dial DialFunc) Option {
	return func(c *Client) {
		c.dial = dial
	}
}

// New returns a client. Nil cfg stands for config.Default().
func New(cfg *config.Config, opts ...Option) *Client {
	if cfg == nil {
		cfg = config.Default()
	}

	c := &Client{
		cfg:    cfg,
		codecs: codec.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.pool = NewPool(cfg, c.codecs, c.tls, c.dial)
	return c
}

// Do sends the request to the endpoint. Host, User-Agent and Accept-Encoding headers
// are added unless already present. The response body must be read till the end or
// closed; otherwise the connection is never reused. Cancelling ctx aborts the exchange
// and yields an error matching status.ErrCancelled or status.ErrTimeout. Requests are
// never retried.
func (c *Client) Do(ctx context.Context, endpoint Endpoint, request *http.Request) (*http.Response, error) {
	s, err := c.pool.Acquire(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	if !request.Headers.Has("Host") {
		request.Headers.Add("Host", endpoint.HostHeader())
	}

	if !request.Headers.Has("User-Agent") && len(c.cfg.HTTP.UserAgent) > 0 {
		request.Headers.Add("User-Agent", c.cfg.HTTP.UserAgent)
	}

	if !request.Headers.Has("Accept-Encoding") {
		if value := s.AcceptEncoding(); len(value) > 0 {
			request.Headers.Add("Accept-Encoding", value)
		}
	}

	return s.RoundTrip(ctx, request)
}

// Get requests the absolute http or https URL.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	return c.send(ctx, method.GET, url, nil)
}

// Post sends the body to the absolute http or https URL.
func (c *Client) Post(ctx context.Context, url, contentType string, body *http.Body) (*http.Response, error) {
	return c.send(ctx, method.POST, url, func(request *http.Request) {
		request.Headers.Add("Content-Type", contentType)
		request.Body = body
	})
}

func (c *Client) send(
	ctx context.Context, m method.Method, url string, prepare func(*http.Request),
) (*http.Response, error) {
	endpoint, target, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	request := http.NewRequest(nil)
	request.Method = m
	request.Target = target
	request.Ctx = ctx
	if prepare != nil {
		prepare(request)
	}

	return c.Do(ctx, endpoint, request)
}

// Pool returns the connection pool of the client.
func (c *Client) Pool() *Pool {
	return c.pool
}

// Close closes all the idle connections.
func (c *Client) Close() error {
	return c.pool.Close()
}
