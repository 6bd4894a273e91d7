package transport

import (
	"sync/atomic"

	"github.com/indigo-web/tandem/config"
)

// Supervisor runs multiple transports at once. If any of them fails, all the others are
// stopped too.
type Supervisor struct {
	stopped *atomic.Bool
	ts      []boundTransport
	stopch  chan struct{}
	done    chan struct{}
}

func NewSupervisor() Supervisor {
	return Supervisor{
		stopped: new(atomic.Bool),
		stopch:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Add binds the transport to the address. If binding fails, all the previously added
// transports are closed.
func (s *Supervisor) Add(addr string, transport Transport, cb func(Conn)) error {
	err := transport.Bind(addr)
	if err != nil {
		s.close()
		return err
	}

	s.ts = append(s.ts, boundTransport{
		cb: cb,
		t:  transport,
	})

	return nil
}

// Addrs returns the addresses of all bound transports in the order they were added.
func (s *Supervisor) Addrs() []string {
	addrs := make([]string, len(s.ts))
	for i, t := range s.ts {
		addrs[i] = t.t.Addr()
	}

	return addrs
}

// Run blocks until either any transport fails or Stop is called. By the moment it
// returns, all the connections are already closed.
func (s *Supervisor) Run(cfg config.NET) error {
	defer close(s.done)

	if len(s.ts) == 0 {
		return nil
	}

	errch := make(chan error)

	for _, t := range s.ts {
		go func(t boundTransport, ch chan<- error) {
			errch <- t.t.Listen(cfg, t.cb)
		}(t, errch)
	}

	select {
	case err := <-errch:
		s.stop()
		drain(errch, len(s.ts)-1)

		return err
	case <-s.stopch:
		s.stop()
		drain(errch, len(s.ts))

		return nil
	}
}

// Stop stops all the transports and waits until Run returns.
func (s *Supervisor) Stop() {
	select {
	case s.stopch <- struct{}{}:
		<-s.done
	case <-s.done:
	}
}

func (s *Supervisor) stop() {
	if s.stopped.Swap(true) {
		return
	}

	for _, t := range s.ts {
		t.t.Stop()
	}

	for _, t := range s.ts {
		t.t.Close()
		t.t.Wait()
	}
}

func (s *Supervisor) close() {
	for _, t := range s.ts {
		t.t.Close()
	}
}

type boundTransport struct {
	cb func(conn Conn)
	t  Transport
}

func drain(ch <-chan error, n int) {
	for range n {
		<-ch
	}
}
