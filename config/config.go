package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

type (
	NET struct {
		// ReadBufferSize is a size of buffer in bytes which will be used to read from
		// socket
		ReadBufferSize int
		// IdleTimeout controls the maximal lifetime of IDLE connections. If no data was
		// received and nothing is waiting to be written in this period of time, the
		// connection is closed. The same timeout bounds every single read in the middle
		// of a message.
		IdleTimeout time.Duration
		// AcceptLoopInterruptPeriod controls how often will the Accept() call be interrupted
		// in order to check whether it's time to stop. Defaults to 5 seconds.
		AcceptLoopInterruptPeriod time.Duration
		// WriteBufferSize is the size of pieces a response or request body is read by
		// and therefore the maximal size of a single emitted chunk.
		WriteBufferSize int
		// WriteHighWatermark stops reading from the connection as soon as there are
		// more bytes than this waiting to be written out.
		WriteHighWatermark int
		// WriteLowWatermark resumes reading once the pending output drains below it.
		WriteLowWatermark int
		// WriteTimeout bounds every single write into the connection. A peer that doesn't
		// read what is written to it gets disconnected once it passes. Zero disables it.
		WriteTimeout time.Duration
		// DialTimeout bounds establishing outgoing connections, including the TLS
		// handshake.
		DialTimeout time.Duration
	}

	Headers struct {
		// MaxSize limits the whole start line and header block (and trailers, too).
		// Exceeding it results in status.ErrHeaderFieldsTooLarge before anything
		// beyond the limit is buffered.
		MaxSize int
		// MaxNumber is the maximal number of header fields in a single message.
		MaxNumber int
	}

	Body struct {
		// MaxChunkSize limits the length of a single chunk of the chunked transfer
		// coding.
		MaxChunkSize int64
		// MaxSize describes the maximal size of a body, that can be processed.
		MaxSize int64
	}

	HTTP struct {
		// Pipelining allows parsing the next request while the previous responses are
		// still being written. Responses are anyway written in the order of requests.
		Pipelining bool
		// AutoCompress compresses responses with the first coding both the server and
		// the client support, unless the handler has chosen one explicitly.
		AutoCompress bool `test:"nullable"`
		// UserAgent is sent by the client unless the request already has one.
		UserAgent string
	}

	Pool struct {
		// IdleTimeout is how long an unused client connection stays in the pool.
		IdleTimeout time.Duration
		// MaxIdlePerHost limits idle connections kept per (host, port, secure) triple.
		MaxIdlePerHost int
	}
)

// Config holds settings used across various parts of tandem, mainly restrictions,
// limitations and timeouts.
//
// You must ALWAYS modify defaults (returned via Default()) and NEVER try to initialize the
// config manually, because most likely this will result in ambiguous errors.
type Config struct {
	NET     NET
	Headers Headers
	Body    Body
	HTTP    HTTP
	Pool    Pool
	// Logger receives connection lifecycle records. Nil discards them.
	Logger *slog.Logger `json:"-" test:"nullable"`
}

// Default returns default config. Those are initially well-balanced, however maximal defaults
// are pretty permitting.
func Default() *Config {
	return &Config{
		NET: NET{
			ReadBufferSize:            4 * 1024,
			IdleTimeout:               90 * time.Second,
			AcceptLoopInterruptPeriod: 5 * time.Second,
			WriteBufferSize:           4 * 1024,
			WriteHighWatermark:        256 * 1024,
			WriteLowWatermark:         64 * 1024,
			WriteTimeout:              30 * time.Second,
			DialTimeout:               30 * time.Second,
		},
		Headers: Headers{
			// allow at most 16kb of request line and headers, which is effectively pretty
			// much tolerant, considering most web-entities limit it to 4-8kb.
			MaxSize:   16 * 1024,
			MaxNumber: 100,
		},
		Body: Body{
			MaxChunkSize: 16 * 1024 * 1024,
			MaxSize:      512 * 1024 * 1024, // 512 megabytes
		},
		HTTP: HTTP{
			Pipelining: true,
			UserAgent:  "tandem",
		},
		Pool: Pool{
			IdleTimeout:    90 * time.Second,
			MaxIdlePerHost: 4,
		},
	}
}

var (
	ErrWatermarks  = errors.New("write low watermark must be below the high one")
	ErrNonPositive = errors.New("limit must be positive")
	discardLogger  = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// Validate checks the config for values the engine can't work with.
func (c *Config) Validate() error {
	if c.NET.WriteLowWatermark >= c.NET.WriteHighWatermark {
		return ErrWatermarks
	}

	limits := []struct {
		name  string
		value int64
	}{
		{"NET.ReadBufferSize", int64(c.NET.ReadBufferSize)},
		{"NET.WriteBufferSize", int64(c.NET.WriteBufferSize)},
		{"NET.IdleTimeout", int64(c.NET.IdleTimeout)},
		{"Headers.MaxSize", int64(c.Headers.MaxSize)},
		{"Headers.MaxNumber", int64(c.Headers.MaxNumber)},
		{"Body.MaxChunkSize", c.Body.MaxChunkSize},
		{"Body.MaxSize", c.Body.MaxSize},
	}

	for _, limit := range limits {
		if limit.value <= 0 {
			return fmt.Errorf("%s: %w", limit.name, ErrNonPositive)
		}
	}

	return nil
}

// Log returns the configured logger or the one discarding everything.
func (c *Config) Log() *slog.Logger {
	if c.Logger == nil {
		return discardLogger
	}

	return c.Logger
}
