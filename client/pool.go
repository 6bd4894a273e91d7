package client

import (
	"context"
	"crypto/tls"
	"sync"
	"time"

	"github.com/indigo-web/tandem/config"
	"github.com/indigo-web/tandem/http/codec"
	"github.com/indigo-web/tandem/internal/session"
	"github.com/indigo-web/tandem/transport"
)

// DialFunc establishes a connection to the address. transport.Dial is the default one.
type DialFunc func(ctx context.Context, addr string, tlsConfig *tls.Config, timeout time.Duration) (transport.Conn, error)

type idleSession struct {
	session *session.Client
	since   time.Time
}

// Pool keeps idle connections per endpoint. A session is owned exclusively by the
// pool while idle and by the caller after Acquire.
type Pool struct {
	cfg    *config.Config
	codecs []codec.Codec
	tls    *tls.Config
	dial   DialFunc

	mu     sync.Mutex
	idle   map[Endpoint][]idleSession
	closed bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewPool returns a pool dialing TLS connections with tlsConfig, or with the default
// one if nil. Idle sessions expire after cfg.Pool.IdleTimeout.
func NewPool(cfg *config.Config, codecs []codec.Codec, tlsConfig *tls.Config, dial DialFunc) *Pool {
	if tlsConfig == nil {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	if dial == nil {
		dial = transport.Dial
	}

	p := &Pool{
		cfg:    cfg,
		codecs: codecs,
		tls:    tlsConfig,
		dial:   dial,
		idle:   make(map[Endpoint][]idleSession),
		stop:   make(chan struct{}),
	}

	if cfg.Pool.IdleTimeout > 0 {
		p.wg.Add(1)
		go p.sweep(cfg.Pool.IdleTimeout)
	}

	return p
}

// Acquire returns an idle session to the endpoint, if any is still alive, or dials a
// new one. The session returns itself into the pool as soon as an exchange over it is
// complete.
func (p *Pool) Acquire(ctx context.Context, endpoint Endpoint) (*session.Client, error) {
	for {
		s, found := p.pop(endpoint)
		if !found {
			break
		}

		if s.Alive() {
			p.cfg.Log().Debug("reusing connection", "endpoint", endpoint.String(), "conn", s.ID())
			return s, nil
		}

		_ = s.Close()
	}

	var tlsConfig *tls.Config
	if endpoint.Secure {
		tlsConfig = p.tls
	}

	conn, err := p.dial(ctx, endpoint.Addr(), tlsConfig, p.cfg.NET.DialTimeout)
	if err != nil {
		return nil, err
	}

	s := session.NewClient(p.cfg, p.codecs, conn)
	s.OnIdle = func(c *session.Client) {
		p.Release(endpoint, c)
	}
	p.cfg.Log().Debug("dialed new connection", "endpoint", endpoint.String(), "conn", s.ID())

	return s, nil
}

func (p *Pool) pop(endpoint Endpoint) (*session.Client, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sessions := p.idle[endpoint]
	if len(sessions) == 0 {
		return nil, false
	}

	// the most recently used session is the most likely one to be alive
	last := sessions[len(sessions)-1]
	sessions[len(sessions)-1] = idleSession{}
	p.idle[endpoint] = sessions[:len(sessions)-1]

	return last.session, true
}

// Release puts the session back into the pool if it's reusable, and closes it otherwise.
func (p *Pool) Release(endpoint Endpoint, s *session.Client) {
	if s.State() != session.Idle {
		_ = s.Close()
		return
	}

	p.mu.Lock()
	if p.closed || len(p.idle[endpoint]) >= p.cfg.Pool.MaxIdlePerHost {
		p.mu.Unlock()
		_ = s.Close()
		return
	}

	p.idle[endpoint] = append(p.idle[endpoint], idleSession{session: s, since: time.Now()})
	p.mu.Unlock()
}

// Idle returns the number of idle sessions to the endpoint.
func (p *Pool) Idle(endpoint Endpoint) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.idle[endpoint])
}

func (p *Pool) sweep(timeout time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(max(timeout/2, 10*time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case now := <-ticker.C:
			for _, s := range p.expired(now.Add(-timeout)) {
				_ = s.Close()
			}
		}
	}
}

// expired removes sessions idle since before the deadline.
func (p *Pool) expired(deadline time.Time) (sessions []*session.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for endpoint, idle := range p.idle {
		kept := idle[:0]
		for _, entry := range idle {
			if entry.since.Before(deadline) {
				sessions = append(sessions, entry.session)
			} else {
				kept = append(kept, entry)
			}
		}

		clear(idle[len(kept):])
		if len(kept) == 0 {
			delete(p.idle, endpoint)
		} else {
			p.idle[endpoint] = kept
		}
	}

	return sessions
}

// Close closes all the idle sessions. Sessions being in use are closed as soon as
// they're released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}

	p.closed = true
	idle := p.idle
	p.idle = make(map[Endpoint][]idleSession)
	p.mu.Unlock()

	close(p.stop)
	p.wg.Wait()

	for _, sessions := range idle {
		for _, entry := range sessions {
			_ = entry.session.Close()
		}
	}

	return nil
}
