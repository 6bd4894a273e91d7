package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/tandem/config"
	"github.com/indigo-web/tandem/http"
	"github.com/indigo-web/tandem/http/codec"
	"github.com/indigo-web/tandem/http/method"
	"github.com/indigo-web/tandem/http/proto"
	"github.com/indigo-web/tandem/http/status"
	"github.com/indigo-web/tandem/internal/codecutil"
	"github.com/indigo-web/tandem/internal/protocol/http1"
	"github.com/indigo-web/tandem/internal/strutil"
	"github.com/indigo-web/tandem/router"
	"github.com/indigo-web/tandem/transport"
)

const continueResponse = "HTTP/1.1 100 Continue\r\n\r\n"

// Server serves a single connection. Requests are dispatched to the router one by one
// on the session's goroutine, while responses are written out by a separate one, so
// that pipelined requests are parsed without waiting for previous responses to be sent.
type Server struct {
	id         string
	cfg        *config.Config
	log        *slog.Logger
	conn       transport.Conn
	router     router.Router
	request    *http.Request
	parser     *http1.Parser
	reader     *reader
	source     bodySource
	serializer *http1.Serializer
	outbox     *outbox
	codecs     codecutil.Cache
	state      State
}

func NewServer(cfg *config.Config, r router.Router, codecs []codec.Codec, conn transport.Conn) *Server {
	id := uniuri.NewLen(10)
	request := http.NewRequest(http.NewResponse())
	parser := http1.NewRequestParser(cfg, request)
	s := &Server{
		id:         id,
		cfg:        cfg,
		log:        cfg.Log().With("conn", id, "remote", conn.Remote().String()),
		conn:       conn,
		router:     r,
		request:    request,
		parser:     parser,
		reader:     newReader(conn, parser, cfg.NET.ReadBufferSize, cfg.NET.IdleTimeout),
		serializer: http1.NewSerializer(make([]byte, 0, cfg.NET.WriteBufferSize)),
		outbox:     newOutbox(cfg.NET.WriteHighWatermark, cfg.NET.WriteLowWatermark, cfg.NET.WriteTimeout),
		codecs:     codecutil.NewCache(codecs),
	}
	s.source.r = s.reader
	s.reader.before = s.outbox.Throttle

	return s
}

// ID returns the random identifier of the connection.
func (s *Server) ID() string {
	return s.id
}

// State returns the current state. Must be called from the session's goroutine only.
func (s *Server) State() State {
	return s.state
}

// Serve processes requests until the connection is closed by either side or ctx is
// done. The transport is closed by the time it returns.
func (s *Server) Serve(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.Close()
	})
	defer stop()

	s.log.Debug("connection accepted", "secure", s.conn.IsSecure())
	go func() {
		if err := s.outbox.run(s.conn); err != nil {
			// unblocks the reader, as the peer won't receive anything anymore
			_ = s.conn.Close()
		}
	}()

	for s.serveOnce(ctx) {
	}

	s.state = Closing
	if err := s.outbox.Close(); err != nil {
		s.log.Debug("failed to write the responses", "error", err)
	}

	_ = s.conn.Shutdown()
	_ = s.conn.Close()
	s.state = Closed
	s.log.Debug("connection closed")
}

func (s *Server) serveOnce(ctx context.Context) (keepAlive bool) {
	s.state = Idle
	request := s.request
	request.Reset()
	if request.Body == nil {
		request.Body = http.NoBody()
	}

	request.Body.Reset(http.Empty, -1, &s.source)
	s.parser.Reset()
	s.source.reset()

	event, err := s.reader.Next()
	for err != nil && s.parser.Idle() && status.KindOf(err) == status.KindTimeout && s.outbox.Pending() > 0 {
		// the peer is still receiving the responses, so it's not idle
		event, err = s.reader.Next()
	}

	if err != nil {
		switch {
		case s.parser.Idle():
			s.log.Debug("closing idle connection", "error", err)
		case status.KindOf(err) == status.KindTimeout:
			s.respondError(err)
		default:
			s.notify(err)
		}

		return false
	}

	s.state = ReadingHeaders
	if event.Kind == http1.Error {
		s.respondError(event.Err)
		return false
	}

	s.state = ReadingBody
	request.Remote = s.conn.Remote()
	request.Ctx = ctx
	request.Env.Secure = s.conn.IsSecure()
	request.Env.ConnID = s.id

	if err = s.prepareBody(request); err != nil {
		s.respondError(err)
		return false
	}

	s.state = Dispatching
	response := s.dispatch(request)
	if request.Body.Drained() && !s.parser.Done() {
		// decoders might not read the source till its very end
		if err = s.source.discard(); err != nil {
			s.notify(err)
			return false
		}
	}

	keepAlive = request.KeepAlive() && response.KeepAlive()
	// an echoed request body is read while being written
	echoed := response.Body != nil && response.Body == request.Body
	if !s.parser.Done() && !echoed {
		keepAlive = false
	}

	if keepAlive, err = s.write(request, response, keepAlive); err != nil {
		return false
	}

	if !keepAlive || !s.parser.Done() {
		s.log.Debug("closing the connection after the response", "code", response.Code)
		return false
	}

	if !s.cfg.HTTP.Pipelining {
		if err = s.outbox.Drain(); err != nil {
			s.notify(err)
			return false
		}
	}

	s.state = KeepAliveWait
	return true
}

// prepareBody sets up the request body decoding and, for empty bodies, completes the
// message immediately.
func (s *Server) prepareBody(request *http.Request) error {
	if request.Body.Framing == http.Empty {
		_, err := s.source.Fetch()
		if err == io.EOF {
			err = nil
		}

		return err
	}

	if coding := request.Headers.Value("Content-Encoding"); len(coding) > 0 && !strutil.CmpFold(coding, "identity") {
		instance := s.codecs.Get(coding)
		if instance == nil {
			return status.ErrUnsupportedEncoding
		}

		instance.ResetDecompressor(&s.source, s.cfg.NET.ReadBufferSize)
		request.Body.Source = instance
		request.Body.Length = -1
	}

	if request.Protocol == proto.HTTP11 && strutil.CmpFold(request.Headers.Value("Expect"), "100-continue") {
		s.source.interim = func() error {
			return s.outbox.Push([]byte(continueResponse))
		}
	}

	return nil
}

func (s *Server) dispatch(request *http.Request) (response *http.Response) {
	defer func() {
		if err := recover(); err != nil {
			s.log.Error("handler panicked", "panic", err, "method", request.Method, "target", request.Target)
			request.Env.Error = fmt.Errorf("%w: handler panicked: %v", status.ErrInternalServerError, err)
			response = s.onError(request, request.Env.Error)
		}
	}()

	return notNil(request, s.router.OnRequest(request))
}

func (s *Server) onError(request *http.Request, err error) *http.Response {
	return notNil(request, s.router.OnError(request, err))
}

// write renders the response into the outbox. If it fails before anything is emitted,
// the error is answered instead. The returned keepAlive is false if the response can
// be delimited only by closing the connection.
func (s *Server) write(request *http.Request, response *http.Response, keepAlive bool) (bool, error) {
	if response.Body == nil {
		response.Body = http.NoBody()
	}

	body := response.Body
	defer func() {
		_ = body.Close()
	}()

	response.Protocol = request.Protocol
	s.compress(request, response)
	if http1.ClosesConnection(response, request.Method) {
		keepAlive = false
	}

	stampConnection(response, keepAlive)

	emitted, err := s.push(response, request.Method)
	if err == nil {
		return keepAlive, nil
	}

	if status.KindOf(err) == status.KindInvariantViolation {
		s.log.Error("invalid response", "error", err, "code", response.Code)
		if !emitted {
			s.respondError(err)
			return false, err
		}
	}

	s.notify(err)
	return false, err
}

func (s *Server) push(response *http.Response, m method.Method) (emitted bool, err error) {
	s.state = WritingHeaders

	for piece, err := range s.serializer.Response(response, m) {
		if err != nil {
			return emitted, err
		}

		if err = s.outbox.Push(piece); err != nil {
			return emitted, err
		}

		emitted = true
		s.state = WritingBody
	}

	return emitted, nil
}

func (s *Server) compress(request *http.Request, response *http.Response) {
	if response.Body.Framing == http.Empty || status.Bodiless(response.Code) ||
		response.Headers.Has("Content-Encoding") {
		return
	}

	token := response.Coding()
	if len(token) == 0 {
		if !s.cfg.HTTP.AutoCompress {
			return
		}

		c := codec.Negotiate(request.Headers.Values("Accept-Encoding"), s.codecs.Codecs())
		if c == nil {
			return
		}

		token = c.Token()
	}

	instance := s.codecs.Get(token)
	if instance == nil {
		s.log.Debug("unknown response coding, sending as is", "coding", token)
		return
	}

	response.Headers.Delete("Content-Length")
	response.Headers.Add("Content-Encoding", token)
	response.Body = http.ChunkedBody(codec.Encode(instance, response.Body))
}

// respondError sends the error response on a best-effort basis, as the connection is
// closed right after.
func (s *Server) respondError(err error) {
	s.log.Debug("failed to process the request", "error", err)
	s.request.Env.Error = err
	response := s.onError(s.request, err)

	switch status.KindOf(err) {
	case status.KindTransportError, status.KindCancelled:
		return
	}

	if s.outbox.Err() != nil {
		return
	}

	response.Protocol = s.request.Protocol
	if response.Protocol == proto.Unknown {
		response.Protocol = proto.HTTP11
	}

	if response.Body == nil {
		response.Body = http.NoBody()
	}

	body := response.Body
	stampConnection(response, false)
	for piece, err := range s.serializer.Response(response, s.request.Method) {
		if err != nil || s.outbox.Push(piece) != nil {
			break
		}
	}

	_ = body.Close()
}

// notify tells the router about the error nobody can be answered to anymore.
func (s *Server) notify(err error) {
	s.log.Debug("connection failed", "error", err, "state", s.state)
	s.router.OnError(s.request, fmt.Errorf("%w: %w", status.ErrSessionClosed, err))
}

func stampConnection(response *http.Response, keepAlive bool) {
	switch {
	case !keepAlive && response.KeepAlive():
		response.Headers.Set("Connection", "close")
	case keepAlive && response.Protocol == proto.HTTP10 && !response.Headers.Has("Connection"):
		response.Headers.Add("Connection", "keep-alive")
	}
}

func notNil(request *http.Request, response *http.Response) *http.Response {
	if response != nil {
		return response
	}

	return http.Respond(request)
}
