package http

import (
	"context"
	"net"
	"net/url"
	"strings"

	"github.com/indigo-web/tandem/http/method"
	"github.com/indigo-web/tandem/http/mime"
	"github.com/indigo-web/tandem/http/proto"
	"github.com/indigo-web/tandem/http/status"
	"github.com/indigo-web/tandem/kv"
	"golang.org/x/net/http/httpguts"
)

type (
	Headers = *kv.Storage
	Header  = kv.Pair
	Params  = *kv.Storage
)

// Request represents HTTP request
type Request struct {
	// Method is the request method token. It's validated, yet might be any extension
	// method.
	Method method.Method
	// Target is the raw request target exactly as it came. It isn't decoded.
	Target string
	// Protocol is the protocol version used for the request.
	Protocol proto.Protocol
	// Headers holds non-normalized header pairs, even though lookup is case-insensitive.
	// On the server, the strings are valid only until the handler returns.
	Headers Headers
	// Params are dynamic routing segments.
	Params Params
	// Body is a dedicated entity providing access to the message body.
	Body *Body
	// Remote holds the remote address. Please note that this is generally not a good parameter to identify
	// a user, because there might be proxies in the middle.
	Remote net.Addr
	// Ctx is cancelled when the connection is closed.
	Ctx context.Context
	// Env contains a fixed set of contextual values, filled by the server.
	Env      Environment
	response *Response
}

type Environment struct {
	// Secure reports whether the request came over TLS.
	Secure bool
	// ConnID identifies the connection the request came through. It's the same id the
	// connection is logged with.
	ConnID string
	// Error contains an error, if occurred. It's set only for requests passed to the error
	// handler.
	Error error
	// AllowedMethods is used to pass a string containing all the allowed methods for a
	// specific endpoint. Has non-zero-value only when 405 Method Not Allowed raises
	AllowedMethods string
}

// NewRequest returns a request bound to the response builder, which is returned by
// Respond. This is how the server allocates its requests once per connection.
func NewRequest(response *Response) *Request {
	return &Request{
		Protocol: proto.HTTP11,
		Headers:  kv.NewPrealloc(16),
		Params:   kv.New(),
		Body:     NoBody(),
		Ctx:      context.Background(),
		response: response,
	}
}

// Respond returns Response object.
//
// WARNING: this method clears the response builder under the hood. As it is passed
// by reference, it'll be cleared EVERYWHERE along a handler
func (r *Request) Respond() *Response {
	if r.response == nil {
		r.response = NewResponse()
	}

	return r.response.Clear()
}

// Path returns the target without the query.
func (r *Request) Path() string {
	path, _, _ := strings.Cut(r.Target, "?")
	return path
}

// Query parses the query part of the target.
func (r *Request) Query() (url.Values, error) {
	_, query, _ := strings.Cut(r.Target, "?")
	return url.ParseQuery(query)
}

// JSON unmarshalls the body into the model. Content-Type must be either empty or
// application/json.
func (r *Request) JSON(model any) error {
	if !mime.Complies(mime.JSON, r.Headers.Value("Content-Type")) {
		return status.ErrUnsupportedMedia
	}

	return r.Body.JSON(model)
}

// KeepAlive reports whether the client is willing to reuse the connection after this
// request.
func (r *Request) KeepAlive() bool {
	return persistent(r.Protocol, r.Headers)
}

// WithHeader adds header values. Existing values of the key are kept.
func (r *Request) WithHeader(key string, values ...string) *Request {
	for _, value := range values {
		r.Headers.Add(key, value)
	}

	return r
}

// WithBody sets the request body.
func (r *Request) WithBody(body *Body) *Request {
	r.Body = body
	return r
}

// Reset the request
func (r *Request) Reset() {
	r.Method = ""
	r.Target = ""
	r.Protocol = proto.HTTP11
	r.Headers.Clear()
	r.Params.Clear()
	r.Env = Environment{}
}

// persistent tells whether the message allows the connection to persist after it.
func persistent(protocol proto.Protocol, headers Headers) bool {
	connection := headers.Values("Connection")
	if httpguts.HeaderValuesContainsToken(connection, "close") {
		return false
	}

	if protocol.KeepAliveByDefault() {
		return true
	}

	return protocol == proto.HTTP10 && httpguts.HeaderValuesContainsToken(connection, "keep-alive")
}
