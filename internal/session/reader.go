package session

import (
	"io"
	"time"

	"github.com/indigo-web/tandem/http/status"
	"github.com/indigo-web/tandem/internal/buffer"
	"github.com/indigo-web/tandem/internal/protocol/http1"
	"github.com/indigo-web/tandem/internal/timer"
	"github.com/indigo-web/tandem/transport"
)

// reader drives the parser over the connection, reading more data only when the parser
// has nothing to do with what's already received.
type reader struct {
	conn     transport.Conn
	staging  *buffer.Staging
	parser   *http1.Parser
	readSize int
	timeout  time.Duration
	// before is called prior to every read from the connection.
	before func() error
	eof    bool
}

func newReader(conn transport.Conn, parser *http1.Parser, readSize int, timeout time.Duration) *reader {
	return &reader{
		conn:     conn,
		staging:  buffer.NewStaging(readSize),
		parser:   parser,
		readSize: readSize,
		timeout:  timeout,
	}
}

// Buffered reports whether there are received bytes not fed to the parser yet.
func (r *reader) Buffered() bool {
	return r.staging.Len() > 0
}

// Next returns the next parser event. A clean end of the stream between messages is
// reported as io.EOF. Event.Chunk is valid until the next call.
func (r *reader) Next() (http1.Event, error) {
	for {
		data := r.staging.Bytes()
		event, rest := r.parser.Feed(data)
		r.staging.Consume(len(data) - len(rest))
		if event.Kind != http1.NeedMoreData {
			return event, nil
		}

		if r.eof {
			if err := r.parser.Finish(); err != nil {
				return http1.Event{Kind: http1.Error, Err: err}, nil
			}

			if r.parser.Done() {
				return http1.Event{Kind: http1.MessageComplete}, nil
			}

			return http1.Event{}, io.EOF
		}

		switch err := r.fill(); err {
		case nil:
		case io.EOF:
			r.eof = true
		default:
			return http1.Event{}, err
		}
	}
}

func (r *reader) fill() error {
	if r.before != nil {
		if err := r.before(); err != nil {
			return err
		}
	}

	if err := r.conn.SetReadDeadline(timer.Deadline(r.timeout)); err != nil {
		return err
	}

	spare := r.staging.Spare(r.readSize)
	n, err := r.conn.Read(spare)
	r.staging.Commit(n)
	if n > 0 {
		// the error, if any, repeats on the next read
		return nil
	}

	return err
}

// bodySource fetches the current message's body straight from the parser.
type bodySource struct {
	r    *reader
	done bool
	// interim is called once before the body is requested for the first time.
	interim func() error
}

func (b *bodySource) reset() {
	b.done = false
	b.interim = nil
}

func (b *bodySource) Fetch() ([]byte, error) {
	if b.done {
		return nil, io.EOF
	}

	if b.interim != nil {
		interim := b.interim
		b.interim = nil
		if err := interim(); err != nil {
			return nil, err
		}
	}

	for {
		event, err := b.r.Next()
		if err != nil {
			if err == io.EOF {
				err = status.ErrUnexpectedEOF
			}

			return nil, err
		}

		switch event.Kind {
		case http1.BodyChunk:
			if len(event.Chunk) == 0 {
				continue
			}

			return event.Chunk, nil
		case http1.MessageComplete:
			b.done = true
			return nil, io.EOF
		case http1.Error:
			return nil, event.Err
		}
	}
}

// discard reads the rest of the body.
func (b *bodySource) discard() error {
	for {
		switch _, err := b.Fetch(); err {
		case nil:
		case io.EOF:
			return nil
		default:
			return err
		}
	}
}
