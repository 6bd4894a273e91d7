package dummy

import (
	"io"
	"net"
	"os"
	"sync"
	"time"
)

var _ net.Conn = new(Conn)

// Conn is an in-memory connection. Every read returns the next piece it was initialised
// with, and all the written data is journaled. After the pieces are over, reads return
// io.EOF unless the connection is set to hold, in which case they block until the read
// deadline passes or the connection is closed. A stalled connection behaves alike for
// writes, as if the peer stopped reading.
type Conn struct {
	mu       sync.Mutex
	cond     *sync.Cond
	pieces   [][]byte
	pending  []byte
	written  []byte
	hold     bool
	stall    bool
	closed   bool
	shut     bool
	deadline time.Time
	timer    *time.Timer
	wdl      time.Time
	wtimer   *time.Timer
}

func NewConn(pieces ...[]byte) *Conn {
	c := &Conn{pieces: pieces}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Hold makes reads block instead of returning io.EOF after all the pieces are read.
func (c *Conn) Hold() *Conn {
	c.hold = true
	return c
}

// Stall makes writes block until the write deadline passes or the connection is closed.
func (c *Conn) Stall() *Conn {
	c.stall = true
	return c
}

// Feed appends more pieces to be read, waking up the blocked reader.
func (c *Conn) Feed(pieces ...[]byte) {
	c.mu.Lock()
	c.pieces = append(c.pieces, pieces...)
	c.mu.Unlock()
	c.cond.Broadcast()
}

func (c *Conn) Read(b []byte) (n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		switch {
		case c.closed:
			return 0, net.ErrClosed
		case len(c.pending) > 0:
			n = copy(b, c.pending)
			c.pending = c.pending[n:]
			return n, nil
		case len(c.pieces) > 0:
			c.pending, c.pieces = c.pieces[0], c.pieces[1:]
			continue
		case !c.hold:
			return 0, io.EOF
		case !c.deadline.IsZero() && !time.Now().Before(c.deadline):
			return 0, os.ErrDeadlineExceeded
		}

		c.cond.Wait()
	}
}

func (c *Conn) Write(b []byte) (n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.stall && !c.closed && !c.shut {
		if !c.wdl.IsZero() && !time.Now().Before(c.wdl) {
			return 0, os.ErrDeadlineExceeded
		}

		c.cond.Wait()
	}

	if c.closed || c.shut {
		return 0, net.ErrClosed
	}

	c.written = append(c.written, b...)
	return len(b), nil
}

// Written returns everything written into the connection so far.
func (c *Conn) Written() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return string(c.written)
}

// Closed reports whether the connection was closed.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func (c *Conn) CloseWrite() error {
	c.mu.Lock()
	c.shut = true
	c.mu.Unlock()

	return nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.timer = c.rearm(c.timer, time.Time{})
	c.wtimer = c.rearm(c.wtimer, time.Time{})
	c.mu.Unlock()
	c.cond.Broadcast()

	return nil
}

func (c *Conn) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 80}
}

func (c *Conn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 54321}
}

func (c *Conn) SetDeadline(t time.Time) error {
	_ = c.SetReadDeadline(t)
	return c.SetWriteDeadline(t)
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deadline = t
	c.timer = c.rearm(c.timer, t)
	c.cond.Broadcast()
	return nil
}

func (c *Conn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.wdl = t
	c.wtimer = c.rearm(c.wtimer, t)
	c.cond.Broadcast()
	return nil
}

// rearm stops the timer and returns a new one, waking up the blocked callers at t. It
// must be called with the mutex held.
func (c *Conn) rearm(timer *time.Timer, t time.Time) *time.Timer {
	if timer != nil {
		timer.Stop()
	}

	if t.IsZero() {
		return nil
	}

	return time.AfterFunc(time.Until(t), func() {
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	})
}
