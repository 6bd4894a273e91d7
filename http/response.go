package http

import (
	"io"
	"os"

	"github.com/indigo-web/tandem/http/mime"
	"github.com/indigo-web/tandem/http/proto"
	"github.com/indigo-web/tandem/http/status"
	"github.com/indigo-web/tandem/kv"
	json "github.com/json-iterator/go"
)

const (
	// why 7? I don't know. There's no theory behind this number nor researches.
	// It can be adjusted to 10 as well, but why you would ever need to do this?
	preallocRespHeaders = 7
	// fileChunkSize is the size of pieces files are sent by.
	fileChunkSize = 64 * 1024
)

const (
	MIMEJSON      = mime.JSON
	MIMEPlainText = mime.Plain + mime.UTF8
	MIMETextHTML  = mime.HTML + mime.UTF8
	MIMEOctets    = mime.OctetStream
)

// Response is both the response builder used by handlers and the response received by
// the client.
type Response struct {
	Protocol proto.Protocol
	Code     status.Code
	// Reason is the status text. It's advisory: nothing depends on it. If empty, the
	// default text of the code is sent.
	Reason  status.Status
	Headers Headers
	Body    *Body
	coding  string
}

// NewResponse returns a new instance of the Response object with status code set to 200 OK.
// NOTE: it's recommended to use Request.Respond() method inside of handlers, if there's no
// clear reason otherwise
func NewResponse() *Response {
	return &Response{
		Protocol: proto.HTTP11,
		Code:     status.OK,
		Headers:  kv.NewPrealloc(preallocRespHeaders),
		Body:     NoBody(),
	}
}

// WithCode sets a Response code.
func (r *Response) WithCode(code status.Code) *Response {
	r.Code = code
	return r
}

// WithReason sets a custom status text. This text does not matter at all, and usually
// totally ignored by client, so there is actually no reasons to use this except some
// rare cases when you need to represent a Response status text somewhere
func (r *Response) WithReason(reason status.Status) *Response {
	r.Reason = reason
	return r
}

// WithHeader adds header values to a key. In case it already exists the values will
// be appended.
func (r *Response) WithHeader(key string, values ...string) *Response {
	for _, value := range values {
		r.Headers.Add(key, value)
	}

	return r
}

// WithContentType sets the Content-Type header, replacing the old value.
func (r *Response) WithContentType(value string) *Response {
	r.Headers.Set("Content-Type", value)
	return r
}

// WithString sets the response's body to the passed string
func (r *Response) WithString(body string) *Response {
	r.Body = StringBody(body)
	return r
}

// WithBytes sets the response's body to passed slice WITHOUT COPYING. Changing
// the passed slice later will affect the response by itself
func (r *Response) WithBytes(body []byte) *Response {
	r.Body = BytesBody(body)
	return r
}

// WithBody sets the response's body.
func (r *Response) WithBody(body *Body) *Response {
	r.Body = body
	return r
}

// WithReader streams the body from the reader. If size < 0, then Transfer-Encoding:
// chunked will be used
func (r *Response) WithReader(reader io.Reader, size int64) *Response {
	r.Body = ReaderBody(reader, size, fileChunkSize)
	return r
}

// TryFile tries to open a file for reading and returns a new Response with attachment.
func (r *Response) TryFile(path string) (*Response, error) {
	fd, err := os.Open(path)
	if err != nil {
		// if we can't open it, it doesn't exist
		return r, status.ErrNotFound
	}

	stat, err := fd.Stat()
	if err != nil {
		_ = fd.Close()
		// ...and if we can't get stats on it, it exists, however something in system went wrong
		return r, status.ErrInternalServerError
	}

	if stat.IsDir() {
		_ = fd.Close()
		return r, status.ErrNotFound
	}

	if !r.Headers.Has("Content-Type") {
		r.WithContentType(mime.ByPath(path))
	}

	return r.WithReader(fd, stat.Size()), nil
}

// File does the same as TryFile does, except returned error is being implicitly wrapped
// by WithError
func (r *Response) File(path string) *Response {
	resp, err := r.TryFile(path)
	if err != nil {
		return r.WithError(err)
	}

	return resp
}

// TryJSON receives a model (must be a pointer to the structure) and returns a new Response
// object and an error
func (r *Response) TryJSON(model any) (*Response, error) {
	data, err := json.ConfigDefault.Marshal(model)
	if err != nil {
		return r, err
	}

	return r.WithContentType(MIMEJSON).WithBytes(data), nil
}

// WithJSON does the same as TryJSON does, except returned error is being implicitly wrapped
// by WithError
func (r *Response) WithJSON(model any) *Response {
	resp, err := r.TryJSON(model)
	if err != nil {
		return r.WithError(err)
	}

	return resp
}

// WithError returns a response builder with an error set. If passed err is nil, nothing will happen.
// If an instance of status.HTTPError is passed, its code is used and its message becomes the body.
// Other errors result in 500 Internal Server Error without disclosing the error text.
func (r *Response) WithError(err error) *Response {
	if err == nil {
		return r
	}

	code := status.CodeOf(err)
	if code == status.InternalServerError {
		return r.WithCode(code).WithBody(NoBody())
	}

	return r.
		WithCode(code).
		WithContentType(MIMEPlainText).
		WithString(err.Error())
}

// Compress marks the response to be sent compressed with the coding of the token. The
// coding must be known to the server, otherwise the response is sent as is.
func (r *Response) Compress(token string) *Response {
	r.coding = token
	return r
}

// Coding returns the token passed to Compress.
func (r *Response) Coding() string {
	return r.coding
}

// KeepAlive reports whether the server allows reusing the connection after the response.
func (r *Response) KeepAlive() bool {
	return persistent(r.Protocol, r.Headers)
}

// Clear discards everything was done with Response object before
func (r *Response) Clear() *Response {
	r.Protocol = proto.HTTP11
	r.Code = status.OK
	r.Reason = ""
	r.Headers.Clear()
	r.Body = NoBody()
	r.coding = ""

	return r
}

// Respond is a predicate to request.Respond(). May be used as a dummy handler
func Respond(request *Request) *Response {
	return request.Respond()
}

// Code is a predicate to request.Respond().WithCode(...)
func Code(request *Request, code status.Code) *Response {
	return request.Respond().WithCode(code)
}

// String is a predicate to request.Respond().WithString(...)
func String(request *Request, str string) *Response {
	return request.Respond().WithString(str)
}

// Bytes is a predicate to request.Respond().WithBytes(...)
func Bytes(request *Request, b []byte) *Response {
	return request.Respond().WithBytes(b)
}

// File is a predicate to request.Respond().File(...)
func File(request *Request, path string) *Response {
	return request.Respond().File(path)
}

// JSON is a predicate to request.Respond().WithJSON(...)
func JSON(request *Request, model any) *Response {
	return request.Respond().WithJSON(model)
}

// Error is a predicate to request.Respond().WithError(...)
func Error(request *Request, err error) *Response {
	return request.Respond().WithError(err)
}
