package tandem

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"testing"
	"time"

	"github.com/indigo-web/tandem/client"
	"github.com/indigo-web/tandem/config"
	"github.com/indigo-web/tandem/http"
	"github.com/indigo-web/tandem/http/status"
	"github.com/indigo-web/tandem/router"
	"github.com/indigo-web/tandem/router/inbuilt"
	"github.com/indigo-web/tandem/transport"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, app *App, r router.Router) []string {
	started := make(chan struct{})
	stopped := make(chan struct{})
	app.NotifyOnStart(func() {
		close(started)
	})
	app.NotifyOnStop(func() {
		close(stopped)
	})

	errch := make(chan error, 1)
	go func() {
		errch <- app.Serve(r)
	}()

	select {
	case <-started:
	case err := <-errch:
		require.FailNow(t, "app failed to start", err)
	case <-time.After(3 * time.Second):
		require.FailNow(t, "app didn't start on time")
	}

	t.Cleanup(func() {
		app.Stop()
		select {
		case err := <-errch:
			require.NoError(t, err)
		case <-time.After(3 * time.Second):
			require.FailNow(t, "app didn't stop on time")
		}

		<-stopped
	})

	return app.Addrs()
}

func newRouter() *inbuilt.Router {
	r := inbuilt.New()
	r.Get("/hello/{name}", func(request *http.Request) *http.Response {
		return http.String(request, "Hello, "+request.Params.Value("name")+"!")
	})
	r.Post("/echo", func(request *http.Request) *http.Response {
		return request.Respond().WithBody(request.Body)
	})
	r.Get("/secure", func(request *http.Request) *http.Response {
		if request.Env.Secure {
			return http.String(request, "yes")
		}

		return http.String(request, "no")
	})

	return r
}

func get(t *testing.T, c *client.Client, url string) (status.Code, string) {
	response, err := c.Get(context.Background(), url)
	require.NoError(t, err)
	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	return response.Code, string(body)
}

func TestApp(t *testing.T) {
	cert, err := transport.SelfSigned("127.0.0.1")
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	roots := x509.NewCertPool()
	roots.AddCert(leaf)

	app := New("127.0.0.1:0").
		Listen(0).
		Listen(0, HTTPS(cert))
	addrs := run(t, app, newRouter())
	require.Len(t, addrs, 2)

	c := client.New(nil, client.WithTLS(&tls.Config{RootCAs: roots}))
	defer c.Close()

	t.Run("routing", func(t *testing.T) {
		code, body := get(t, c, "http://"+addrs[0]+"/hello/tandem")
		require.Equal(t, status.OK, code)
		require.Equal(t, "Hello, tandem!", body)

		code, _ = get(t, c, "http://"+addrs[0]+"/nowhere")
		require.Equal(t, status.NotFound, code)
	})

	t.Run("echo", func(t *testing.T) {
		response, err := c.Post(context.Background(), "http://"+addrs[0]+"/echo", "text/plain", http.StringBody("ping"))
		require.NoError(t, err)
		body, err := io.ReadAll(response.Body)
		require.NoError(t, err)
		require.Equal(t, "ping", string(body))
	})

	t.Run("tls", func(t *testing.T) {
		_, body := get(t, c, "https://"+addrs[1]+"/secure")
		require.Equal(t, "yes", body)

		_, body = get(t, c, "http://"+addrs[0]+"/secure")
		require.Equal(t, "no", body)
	})
}

func TestAppStop(t *testing.T) {
	app := New("127.0.0.1:0")
	errch := make(chan error, 1)
	started := make(chan struct{})
	app.NotifyOnStart(func() {
		close(started)
	})

	go func() {
		errch <- app.Serve(newRouter())
	}()
	<-started

	c := client.New(nil)
	defer c.Close()

	// the connection stays open in the pool, yet the app doesn't wait for it
	code, _ := get(t, c, "http://"+app.Addrs()[0]+"/hello/world")
	require.Equal(t, status.OK, code)

	app.Stop()
	select {
	case err := <-errch:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		require.FailNow(t, "app didn't stop on time")
	}
}

func TestAppErrors(t *testing.T) {
	t.Run("no certificates", func(t *testing.T) {
		err := New("127.0.0.1:0").Listen(0, HTTPS()).Serve(nil)
		require.ErrorIs(t, err, ErrNoCertificates)
	})

	t.Run("missing certificate files", func(t *testing.T) {
		err := New("127.0.0.1:0").TLS(0, "nonexistent.crt", "nonexistent.key").Serve(nil)
		require.Error(t, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := config.Default()
		cfg.NET.WriteLowWatermark = cfg.NET.WriteHighWatermark
		err := New("127.0.0.1:0").Tune(cfg).Serve(nil)
		require.ErrorIs(t, err, config.ErrWatermarks)
	})

	t.Run("router failed to start", func(t *testing.T) {
		r := inbuilt.New()
		r.Get("/", http.Respond)
		r.Get("/", http.Respond)
		require.Error(t, New("127.0.0.1:0").Serve(r))
	})

	t.Run("bad address", func(t *testing.T) {
		require.Panics(t, func() {
			New("localhost")
		})
	})
}
