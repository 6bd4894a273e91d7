package http1

import (
	"bytes"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/indigo-web/tandem/config"
	"github.com/indigo-web/tandem/http"
	"github.com/indigo-web/tandem/http/method"
	"github.com/indigo-web/tandem/http/proto"
	"github.com/indigo-web/tandem/http/status"
	"github.com/indigo-web/tandem/internal/buffer"
	"github.com/indigo-web/tandem/internal/strutil"
	"github.com/indigo-web/tandem/kv"
	"golang.org/x/net/http/httpguts"
)

// EventKind is the kind of progress made by a single Feed call.
type EventKind uint8

const (
	// NeedMoreData means the whole input was consumed and nothing is ready yet.
	NeedMoreData EventKind = iota
	// HeadersComplete means the start line and the headers are parsed and the framing
	// of the body is known.
	HeadersComplete
	// BodyChunk carries a piece of the body in Event.Chunk.
	BodyChunk
	// MessageComplete means the message is parsed entirely.
	MessageComplete
	// Error means the input is malformed. The error is in Event.Err, and the parser
	// refuses any further input.
	Error
)

func (e EventKind) String() string {
	switch e {
	case NeedMoreData:
		return "NeedMoreData"
	case HeadersComplete:
		return "HeadersComplete"
	case BodyChunk:
		return "BodyChunk"
	case MessageComplete:
		return "MessageComplete"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

type Event struct {
	Kind EventKind
	// Chunk is a subslice of the fed data, so it's valid as long as the data is.
	Chunk []byte
	Err   error
}

type parserState uint8

const (
	eStartLine parserState = iota
	eHeaderLine
	// eBodyNone is also the state right after the last body byte was parsed
	eBodyNone
	eBodyFixed
	eBodyChunked
	eBodyUntilClose
	eDone
	eFailed
)

type role uint8

const (
	roleRequest role = iota
	roleResponse
)

// Parser is a resumable HTTP/1.x message parser. Data may be split arbitrarily across
// Feed calls: the sequence of events and the parsed message don't depend on it. Head
// lines are copied into the internal buffer, so header strings stay valid until Reset,
// even though the fed data is reused.
type Parser struct {
	state         parserState
	role          role
	cfg           *config.Config
	head          *buffer.Buffer
	headSize      int
	headersNumber int
	request       *http.Request
	response      *http.Response
	expect        method.Method
	remaining     int64
	bodySize      int64
	chunked       chunkedParser
	err           error
}

func newParser(cfg *config.Config, r role) *Parser {
	p := &Parser{
		role: r,
		cfg:  cfg,
		head: buffer.New(cfg.Headers.MaxSize/4, cfg.Headers.MaxSize),
	}
	p.chunked = newChunkedParser(p)

	return p
}

// NewRequestParser returns a parser filling the request.
func NewRequestParser(cfg *config.Config, request *http.Request) *Parser {
	p := newParser(cfg, roleRequest)
	p.request = request

	return p
}

// NewResponseParser returns a parser filling the response.
func NewResponseParser(cfg *config.Config, response *http.Response) *Parser {
	p := newParser(cfg, roleResponse)
	p.response = response
	p.expect = method.GET

	return p
}

// Bind makes the parser fill another response from now on.
func (p *Parser) Bind(response *http.Response) {
	p.response = response
}

func (p *Parser) headers() *kv.Storage {
	if p.role == roleRequest {
		return p.request.Headers
	}

	return p.response.Headers
}

func (p *Parser) body() *http.Body {
	var body **http.Body
	if p.role == roleRequest {
		body = &p.request.Body
	} else {
		body = &p.response.Body
	}

	if *body == nil {
		*body = http.NoBody()
	}

	return *body
}

// Expect sets the method of the request the next response answers. Responses to HEAD
// never have a body, whatever their headers say.
func (p *Parser) Expect(m method.Method) {
	p.expect = m
}

// Feed advances the parser and returns the event along with the unconsumed rest of
// the data. The caller feeds the rest back until NeedMoreData is returned.
func (p *Parser) Feed(data []byte) (Event, []byte) {
	switch p.state {
	case eStartLine, eHeaderLine:
		return p.parseHead(data)
	case eBodyNone:
		p.state = eDone
		return Event{Kind: MessageComplete}, data
	case eBodyFixed:
		return p.parseFixed(data)
	case eBodyChunked:
		return p.parseChunked(data)
	case eBodyUntilClose:
		if len(data) == 0 {
			return Event{Kind: NeedMoreData}, nil
		}

		if err := p.countBody(len(data)); err != nil {
			return p.fail(err)
		}

		return Event{Kind: BodyChunk, Chunk: data}, nil
	case eDone:
		return Event{Kind: MessageComplete}, data
	case eFailed:
		return Event{Kind: Error, Err: p.err}, nil
	default:
		panic("unreachable code")
	}
}

// Finish tells the parser the stream is over. It completes until-close bodies and fails
// on messages cut in the middle with status.ErrUnexpectedEOF. It's not an error if the
// stream ends between messages.
func (p *Parser) Finish() error {
	switch p.state {
	case eStartLine:
		if p.headSize == 0 {
			return nil
		}
	case eBodyNone, eBodyUntilClose, eDone:
		p.state = eDone
		return nil
	case eFailed:
		return p.err
	}

	_, _ = p.fail(status.ErrUnexpectedEOF)
	return p.err
}

// Reset prepares the parser for the next message. The header strings of the previous
// message become invalid.
func (p *Parser) Reset() {
	p.state = eStartLine
	p.head.Clear()
	p.headSize = 0
	p.headersNumber = 0
	p.remaining = 0
	p.bodySize = 0
	p.chunked.reset()
	p.err = nil
}

// Done reports whether the current message is complete.
func (p *Parser) Done() bool {
	return p.state == eDone
}

// Idle reports whether nothing of the next message was received yet.
func (p *Parser) Idle() bool {
	return p.state == eStartLine && p.headSize == 0
}

// Err returns the error the parser failed with.
func (p *Parser) Err() error {
	return p.err
}

func (p *Parser) fail(err error) (Event, []byte) {
	p.state = eFailed
	p.err = err

	return Event{Kind: Error, Err: err}, nil
}

// appendHead copies a piece of the current head line into the buffer, enforcing the
// limit before anything is stored.
func (p *Parser) appendHead(data []byte) error {
	if p.headSize += len(data); p.headSize > p.cfg.Headers.MaxSize {
		return status.ErrHeaderFieldsTooLarge
	}

	if !p.head.Append(data) {
		return status.ErrHeaderFieldsTooLarge
	}

	return nil
}

// line extracts the complete line, if any. The line is stored in the head buffer, with
// the line terminator stripped.
func (p *Parser) line(data []byte) (line, rest []byte, err error) {
	lf := bytes.IndexByte(data, '\n')
	if lf == -1 {
		return nil, nil, p.appendHead(data)
	}

	if err = p.appendHead(data[:lf]); err != nil {
		return nil, nil, err
	}

	// the LF itself counts, too
	p.headSize++
	line = p.head.Finish()
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}

	if bytes.IndexByte(line, '\r') != -1 {
		return nil, nil, status.ErrBareCR
	}

	return line, data[lf+1:], nil
}

func (p *Parser) parseHead(data []byte) (Event, []byte) {
	for {
		line, rest, err := p.line(data)
		switch {
		case err != nil:
			return p.fail(err)
		case rest == nil:
			return Event{Kind: NeedMoreData}, nil
		}

		data = rest

		if p.state == eStartLine {
			if len(line) == 0 {
				// empty lines preceding the start line are ignored
				continue
			}

			if err = p.parseStartLine(line); err != nil {
				return p.fail(err)
			}

			p.state = eHeaderLine
			continue
		}

		if len(line) == 0 {
			if err = p.headersComplete(); err != nil {
				return p.fail(err)
			}

			return Event{Kind: HeadersComplete}, data
		}

		key, value, err := parseField(line)
		if err != nil {
			return p.fail(err)
		}

		if p.headersNumber++; p.headersNumber > p.cfg.Headers.MaxNumber {
			return p.fail(status.ErrTooManyHeaders)
		}

		p.headers().Add(key, value)
	}
}

func (p *Parser) parseStartLine(line []byte) error {
	if p.role == roleRequest {
		return p.parseRequestLine(line)
	}

	return p.parseStatusLine(line)
}

func (p *Parser) parseRequestLine(line []byte) error {
	rawMethod, rest, found := bytes.Cut(line, []byte{' '})
	if !found {
		return status.ErrMalformedStartLine
	}

	target, version, found := bytes.Cut(rest, []byte{' '})
	if !found {
		return status.ErrMalformedStartLine
	}

	p.request.Method = method.Method(strutil.B2S(rawMethod))
	if !method.Valid(p.request.Method) {
		return status.ErrBadMethod
	}

	if !validTarget(target) {
		return status.ErrBadTarget
	}

	p.request.Target = strutil.B2S(target)
	protocol, err := parseProtocol(version)
	if err != nil {
		return err
	}

	p.request.Protocol = protocol
	return nil
}

func (p *Parser) parseStatusLine(line []byte) error {
	version, rest, found := bytes.Cut(line, []byte{' '})
	if !found {
		return status.ErrMalformedStartLine
	}

	protocol, err := parseProtocol(version)
	if err != nil {
		return err
	}

	rawCode, reason, _ := bytes.Cut(rest, []byte{' '})
	if len(rawCode) != 3 {
		return status.ErrBadStatusCode
	}

	code, err := strconv.ParseUint(strutil.B2S(rawCode), 10, 16)
	if err != nil || !status.Valid(status.Code(code)) {
		return status.ErrBadStatusCode
	}

	p.response.Protocol = protocol
	p.response.Code = status.Code(code)
	p.response.Reason = status.Status(strutil.B2S(reason))

	return nil
}

func parseProtocol(version []byte) (proto.Protocol, error) {
	protocol := proto.FromBytes(version)
	if protocol != proto.Unknown {
		return protocol, nil
	}

	// only a well-formed version of another protocol revision is unsupported, anything
	// else is garbage
	if len(version) == len("HTTP/x.y") && bytes.HasPrefix(version, []byte("HTTP/")) &&
		isDigit(version[5]) && version[6] == '.' && isDigit(version[7]) {
		return proto.Unknown, status.ErrHTTPVersionNotSupported
	}

	return proto.Unknown, status.ErrMalformedStartLine
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// validTarget rejects empty targets and ones containing control characters. Anything
// else is passed to the application as is.
func validTarget(target []byte) bool {
	if len(target) == 0 {
		return false
	}

	for _, c := range target {
		if c <= ' ' || c == 0x7f {
			return false
		}
	}

	return true
}

// parseField splits the field line into the name and the value, validating both.
func parseField(line []byte) (key, value string, err error) {
	if line[0] == ' ' || line[0] == '\t' {
		return "", "", status.ErrObsFold
	}

	colon := bytes.IndexByte(line, ':')
	if colon == -1 {
		return "", "", status.ErrMalformedHeader
	}

	// the name is a token, therefore whitespaces before the colon are rejected here, too
	key = strutil.B2S(line[:colon])
	if !httpguts.ValidHeaderFieldName(key) {
		return "", "", status.ErrMalformedHeader
	}

	value = strutil.StripWS(strutil.B2S(line[colon+1:]))
	if !httpguts.ValidHeaderFieldValue(value) {
		return "", "", status.ErrMalformedHeader
	}

	return key, value, nil
}

// headersComplete resolves the framing of the body.
func (p *Parser) headersComplete() error {
	headers := p.headers()
	length, hasLength, err := contentLength(headers)
	if err != nil {
		return err
	}

	codings := headers.Values("Transfer-Encoding")
	chunked, err := transferEncoding(codings)
	if err != nil {
		return err
	}

	if hasLength && len(codings) > 0 {
		return status.ErrFramingConflict
	}

	if hasLength && length > p.cfg.Body.MaxSize {
		return status.ErrBodyTooLarge
	}

	if p.role == roleResponse && p.bodiless() {
		p.setFraming(http.Empty, -1)
		return nil
	}

	switch {
	case chunked:
		p.setFraming(http.Chunked, -1)
	case len(codings) > 0:
		if p.role == roleRequest {
			// the length of a request can't be determined if chunked isn't the final
			// coding
			return status.ErrBadEncoding
		}

		p.setFraming(http.UntilClose, -1)
	case hasLength && length > 0:
		p.setFraming(http.Fixed, length)
		p.remaining = length
	case hasLength, p.role == roleRequest:
		p.setFraming(http.Empty, -1)
	default:
		p.setFraming(http.UntilClose, -1)
	}

	return nil
}

func (p *Parser) bodiless() bool {
	return p.expect == method.HEAD || status.Bodiless(p.response.Code)
}

func (p *Parser) setFraming(framing http.Framing, length int64) {
	body := p.body()
	body.Reset(framing, length, body.Source)

	switch framing {
	case http.Empty:
		p.state = eBodyNone
	case http.Fixed:
		p.state = eBodyFixed
	case http.Chunked:
		p.state = eBodyChunked
	case http.UntilClose:
		p.state = eBodyUntilClose
	}
}

// contentLength parses all the Content-Length values. Repeated equal values are
// tolerated, differing or empty ones are not.
func contentLength(headers *kv.Storage) (length int64, found bool, err error) {
	values := headers.Values("Content-Length")
	if len(values) == 0 {
		return 0, false, nil
	}

	length = -1
	for _, value := range values {
		for _, element := range strings.Split(value, ",") {
			n, ok := parseUint(strutil.StripWS(element))
			if !ok || (length != -1 && length != n) {
				return 0, true, status.ErrBadContentLength
			}

			length = n
		}
	}

	return length, true, nil
}

func parseUint(str string) (n int64, ok bool) {
	if len(str) == 0 || len(str) > 18 {
		return 0, false
	}

	for i := 0; i < len(str); i++ {
		if str[i] < '0' || str[i] > '9' {
			return 0, false
		}

		n = n*10 + int64(str[i]-'0')
	}

	return n, true
}

// transferEncoding reports whether the body is chunked. Chunked must be the final coding
// and applied once. No other transfer codings are supported, so chunked on top of them
// is rejected as well.
func transferEncoding(values []string) (chunked bool, err error) {
	var other bool

	for _, value := range values {
		for coding := range splitList(value) {
			if chunked {
				// chunked is already applied, yet there's something more
				return false, status.ErrBadEncoding
			}

			if strutil.CmpFold(coding, "chunked") {
				chunked = true
			} else {
				other = true
			}
		}
	}

	if chunked && other {
		return false, status.ErrBadEncoding
	}

	return chunked, nil
}

func splitList(value string) iter.Seq[string] {
	return func(yield func(string) bool) {
		strutil.Tokens(value, yield)
	}
}

func (p *Parser) countBody(n int) error {
	if p.bodySize += int64(n); p.bodySize > p.cfg.Body.MaxSize {
		return status.ErrBodyTooLarge
	}

	return nil
}

func (p *Parser) parseFixed(data []byte) (Event, []byte) {
	if len(data) == 0 {
		return Event{Kind: NeedMoreData}, nil
	}

	n := min(int64(len(data)), p.remaining)
	p.remaining -= n
	if p.remaining == 0 {
		p.state = eBodyNone
	}

	return Event{Kind: BodyChunk, Chunk: data[:n]}, data[n:]
}

func (p *Parser) parseChunked(data []byte) (Event, []byte) {
	for len(data) > 0 {
		chunk, extra, err := p.chunked.Parse(data)
		switch err {
		case nil:
		case io.EOF:
			p.state = eDone
			return Event{Kind: MessageComplete}, extra
		default:
			return p.fail(err)
		}

		if len(chunk) > 0 {
			if err = p.countBody(len(chunk)); err != nil {
				return p.fail(err)
			}

			return Event{Kind: BodyChunk, Chunk: chunk}, extra
		}

		data = extra
	}

	return Event{Kind: NeedMoreData}, nil
}

// trailer is called by the chunked parser on every complete trailer field line.
func (p *Parser) trailer(line []byte) error {
	key, value, err := parseField(line)
	if err != nil {
		return err
	}

	if p.headersNumber++; p.headersNumber > p.cfg.Headers.MaxNumber {
		return status.ErrTooManyHeaders
	}

	body := p.body()
	if body.Trailers == nil {
		body.Trailers = kv.New()
	}

	body.Trailers.Add(key, value)
	return nil
}
