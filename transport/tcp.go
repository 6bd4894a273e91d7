package transport

import (
	"errors"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/indigo-web/tandem/config"
	"github.com/indigo-web/tandem/internal/timer"
)

type listener interface {
	net.Listener
	SetDeadline(t time.Time) error
}

type TCP struct {
	l    listener
	wrap func(net.Conn) Conn
	wg   *sync.WaitGroup
	stop *atomic.Bool
}

func NewTCP() *TCP {
	tcp := newTCP(nil)
	return &tcp
}

func newTCP(l listener) TCP {
	return TCP{
		l:    l,
		wrap: Plain,
		wg:   new(sync.WaitGroup),
		stop: new(atomic.Bool),
	}
}

func bindTCP(addr string) (*net.TCPListener, error) {
	tcpaddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}

	return net.ListenTCP("tcp", tcpaddr)
}

func (t *TCP) Bind(addr string) (err error) {
	t.l, err = bindTCP(addr)
	return err
}

// Addr returns the address the transport is bound to. Useful when bound to the port 0.
func (t *TCP) Addr() string {
	if t.l == nil {
		return ""
	}

	return t.l.Addr().String()
}

func (t *TCP) Listen(cfg config.NET, cb func(conn Conn)) error {
	for !t.stop.Load() {
		err := t.l.SetDeadline(timer.Now().Add(cfg.AcceptLoopInterruptPeriod))
		if err != nil {
			return err
		}

		conn, err := t.l.Accept()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}

			if t.stop.Load() {
				return nil
			}

			return err
		}

		t.wg.Add(1)
		go func(conn Conn) {
			cb(conn)
			_ = conn.Close()
			t.wg.Done()
		}(t.wrap(conn))
	}

	return nil
}

func (t *TCP) Stop() {
	t.stop.Store(true)
}

func (t *TCP) Close() {
	if t.l != nil {
		_ = t.l.Close()
	}
}

func (t *TCP) Wait() {
	t.wg.Wait()
}
