package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/indigo-web/tandem/http/status"
)

// Conn is either a plain or a TLS connection. The zero value is closed and unusable.
type Conn struct {
	plain  net.Conn
	secure *tls.Conn
}

// Plain wraps an unencrypted connection.
func Plain(conn net.Conn) Conn {
	return Conn{plain: conn}
}

// Secure wraps a TLS connection.
func Secure(conn *tls.Conn) Conn {
	return Conn{secure: conn}
}

// Wrap picks the variant depending on the connection's actual type.
func Wrap(conn net.Conn) Conn {
	if tlsConn, ok := conn.(*tls.Conn); ok {
		return Secure(tlsConn)
	}

	return Plain(conn)
}

// Unwrap returns the underlying connection.
func (c Conn) Unwrap() net.Conn {
	if c.secure != nil {
		return c.secure
	}

	return c.plain
}

// IsSecure reports whether the connection is encrypted.
func (c Conn) IsSecure() bool {
	return c.secure != nil
}

// TLS returns the connection state. ok is false for plain connections.
func (c Conn) TLS() (state tls.ConnectionState, ok bool) {
	if c.secure == nil {
		return state, false
	}

	return c.secure.ConnectionState(), true
}

// Handshake completes the TLS handshake, if it wasn't done yet. Does nothing on plain
// connections.
func (c Conn) Handshake(ctx context.Context) error {
	if c.secure == nil {
		return nil
	}

	return status.WrapTransport(c.secure.HandshakeContext(ctx))
}

// Read reads into b. Errors are classified, except io.EOF which is returned as is.
func (c Conn) Read(b []byte) (int, error) {
	n, err := c.Unwrap().Read(b)
	return n, status.WrapTransport(err)
}

// Write writes the whole b.
func (c Conn) Write(b []byte) (int, error) {
	n, err := c.Unwrap().Write(b)
	return n, status.WrapTransport(err)
}

type closeWriter interface {
	CloseWrite() error
}

// Shutdown closes the writing side of the connection, so the peer reads EOF while
// reading from it is still possible.
func (c Conn) Shutdown() error {
	if cw, ok := c.Unwrap().(closeWriter); ok {
		return status.WrapTransport(cw.CloseWrite())
	}

	return nil
}

// Close closes the connection in both directions.
func (c Conn) Close() error {
	return c.Unwrap().Close()
}

func (c Conn) SetDeadline(t time.Time) error {
	return c.Unwrap().SetDeadline(t)
}

func (c Conn) SetReadDeadline(t time.Time) error {
	return c.Unwrap().SetReadDeadline(t)
}

func (c Conn) SetWriteDeadline(t time.Time) error {
	return c.Unwrap().SetWriteDeadline(t)
}

// Remote returns the address of the peer.
func (c Conn) Remote() net.Addr {
	return c.Unwrap().RemoteAddr()
}

// Dial connects to the address. A non-nil tlsConfig makes the connection secure, with
// the handshake completed before returning. Zero timeout means no timeout, though ctx
// still bounds the whole procedure.
func Dial(ctx context.Context, addr string, tlsConfig *tls.Config, timeout time.Duration) (Conn, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if ctx.Err() != nil {
			return Conn{}, fmt.Errorf("%w: %w", status.WrapTransport(ctx.Err()), err)
		}

		return Conn{}, status.WrapTransport(err)
	}

	if tlsConfig == nil {
		return Plain(conn), nil
	}

	if len(tlsConfig.ServerName) == 0 {
		tlsConfig = tlsConfig.Clone()
		tlsConfig.ServerName, _, _ = net.SplitHostPort(addr)
	}

	secure := Secure(tls.Client(conn, tlsConfig))
	if err = secure.Handshake(ctx); err != nil {
		_ = conn.Close()
		return Conn{}, err
	}

	return secure, nil
}
