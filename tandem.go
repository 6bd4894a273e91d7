package tandem

import (
	"context"
	"fmt"
	"sync"

	"github.com/indigo-web/tandem/config"
	"github.com/indigo-web/tandem/http/codec"
	"github.com/indigo-web/tandem/internal/address"
	"github.com/indigo-web/tandem/internal/session"
	"github.com/indigo-web/tandem/router"
	"github.com/indigo-web/tandem/router/inbuilt"
	"github.com/indigo-web/tandem/transport"
)

// App is the server. It listens at one or more ports, serving every connection in its
// own goroutine.
type App struct {
	addr      address.Address
	cfg       *config.Config
	codecs    []codec.Codec
	hooks     hooks
	listeners []listener

	mu       sync.Mutex
	addrs    []string
	stop     chan struct{}
	graceful chan struct{}
	once     sync.Once
}

type listener struct {
	port      uint16
	transport Transport
}

// New returns a new App instance. The port of the addr is listened by plain TCP unless
// other listeners are added.
func New(addr string) *App {
	appAddr, err := address.Parse(addr)
	if err != nil {
		panic(fmt.Errorf("tandem: bad addr: %w", err))
	}

	return &App{
		addr:     appAddr,
		cfg:      config.Default(),
		codecs:   codec.Default(),
		stop:     make(chan struct{}),
		graceful: make(chan struct{}),
	}
}

// Tune replaces default config.
func (a *App) Tune(cfg *config.Config) *App {
	a.cfg = cfg
	return a
}

// Codec replaces the content codings used for decoding requests and compressing
// responses.
func (a *App) Codec(codecs ...codec.Codec) *App {
	a.codecs = codecs
	return a
}

// NotifyOnStart calls the callback at the moment, when all the listeners are bound.
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks.OnStart = cb
	return a
}

// NotifyOnStop calls the callback at the moment, when all the listeners are down and
// all the connections are closed.
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks.OnStop = cb
	return a
}

// Listen adds a new listener at the port of the app's host. Plain TCP is used by
// default.
func (a *App) Listen(port uint16, transports ...Transport) *App {
	if len(transports) == 0 {
		transports = append(transports, TCP())
	}

	for _, t := range transports {
		a.listeners = append(a.listeners, listener{port: port, transport: t})
	}

	return a
}

// TLS adds a listener with the certificate loaded from files.
func (a *App) TLS(port uint16, cert, key string) *App {
	return a.Listen(port, TLS(cert, key))
}

// AutoHTTPS adds a TLS listener with certificates obtained automatically from Let's
// Encrypt for the domains. If the app's host is a loopback one, a self-signed
// certificate is used instead.
func (a *App) AutoHTTPS(port uint16, domains ...string) *App {
	if a.addr.IsLocalhost() {
		cert, err := transport.LocalhostCert()
		if err != nil {
			a.cfg.Log().Warn("can't get a self-signed certificate, TLS is disabled", "error", err)
			return a
		}

		return a.Listen(port, HTTPS(cert))
	}

	return a.Listen(port, AutoTLS(a.cfg, domains...))
}

// Serve starts the web-application and blocks until it's stopped. If nil is passed
// instead of a router, empty inbuilt will be used.
func (a *App) Serve(r router.Router) error {
	if r == nil {
		r = inbuilt.New()
	}

	if err := a.cfg.Validate(); err != nil {
		return err
	}

	if starter, ok := r.(router.Starter); ok {
		if err := starter.OnStart(); err != nil {
			return err
		}
	}

	listeners := a.listeners
	if len(listeners) == 0 {
		listeners = []listener{{port: a.addr.Port, transport: TCP()}}
	}

	for _, l := range listeners {
		if l.transport.error != nil {
			return l.transport.error
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup := transport.NewSupervisor()
	for _, l := range listeners {
		err := sup.Add(a.addr.SetPort(l.port).String(), l.transport.inner, func(conn transport.Conn) {
			session.NewServer(a.cfg, r, a.codecs, conn).Serve(ctx)
		})
		if err != nil {
			return err
		}
	}

	a.mu.Lock()
	a.addrs = sup.Addrs()
	a.mu.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-a.stop:
			cancel()
		case <-a.graceful:
		case <-done:
			return
		}

		sup.Stop()
	}()

	a.cfg.Log().Info("listening", "addrs", a.Addrs())
	callIfNotNil(a.hooks.OnStart)
	err := sup.Run(a.cfg.NET)
	callIfNotNil(a.hooks.OnStop)

	return err
}

// Addrs returns the addresses the app listens at. They're known only after the
// start.
func (a *App) Addrs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.addrs
}

// Stop stops the whole application, closing all the connections immediately.
//
// NOTE: the call isn't blocking. So by that, after the method returned, the server
// will still be working
func (a *App) Stop() {
	a.once.Do(func() {
		close(a.stop)
	})
}

// GracefulStop stops accepting new connections, but keeps serving old ones until
// they're closed by clients or idle for too long.
//
// NOTE: the call isn't blocking.
func (a *App) GracefulStop() {
	a.once.Do(func() {
		close(a.graceful)
	})
}

type hooks struct {
	OnStart, OnStop func()
}

func callIfNotNil(f func()) {
	if f != nil {
		f()
	}
}
