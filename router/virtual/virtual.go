package virtual

import (
	"errors"

	"github.com/indigo-web/tandem/http"
	"github.com/indigo-web/tandem/http/proto"
	"github.com/indigo-web/tandem/http/status"
	"github.com/indigo-web/tandem/router"
	"github.com/indigo-web/tandem/router/virtual/internal/domain"
)

var (
	_ router.Router  = new(Router)
	_ router.Starter = new(Router)
)

// Router dispatches requests to other routers depending on the Host header value.
type Router struct {
	hosts         map[string]router.Router
	defaultRouter router.Router
}

// New returns a new instance of the virtual Router
func New() *Router {
	return &Router{
		hosts: make(map[string]router.Router),
	}
}

// Host adds a new virtual router. If 0.0.0.0 is passed,
// the router will be set as a default one
func (r *Router) Host(host string, other router.Router) *Router {
	host = domain.Normalize(host)
	if domain.TrimPort(host) == "0.0.0.0" {
		return r.Default(other)
	}

	r.hosts[host] = other
	return r
}

// Default sets the default router to route requests, Host header value of which aren't
// matched. HTTP/1.0 requests without the Host header are passed to it too.
func (r *Router) Default(def router.Router) *Router {
	r.defaultRouter = def
	return r
}

// OnStart prepares every router requiring it.
func (r *Router) OnStart() error {
	var errs []error
	for _, other := range r.routers() {
		if starter, ok := other.(router.Starter); ok {
			errs = append(errs, starter.OnStart())
		}
	}

	return errors.Join(errs...)
}

func (r *Router) OnRequest(request *http.Request) *http.Response {
	other, code := r.lookup(request)
	if other == nil {
		return http.Code(request, code)
	}

	return other.OnRequest(request)
}

func (r *Router) OnError(request *http.Request, err error) *http.Response {
	other, _ := r.lookup(request)
	if other == nil {
		return http.Error(request, err)
	}

	return other.OnError(request, err)
}

// lookup returns the router matching the Host header. If there's none, the status code
// to refuse the request with is returned.
func (r *Router) lookup(request *http.Request) (router.Router, status.Code) {
	hosts := request.Headers.Values("Host")
	switch len(hosts) {
	case 0:
		if request.Protocol == proto.HTTP10 {
			return r.defaultRouter, status.MisdirectedRequest
		}

		return nil, status.BadRequest
	case 1:
	default:
		return nil, status.BadRequest
	}

	if other, found := r.hosts[domain.Normalize(hosts[0])]; found {
		return other, 0
	}

	return r.defaultRouter, status.MisdirectedRequest
}

func (r *Router) routers() []router.Router {
	routers := make([]router.Router, 0, len(r.hosts)+1)
	for _, other := range r.hosts {
		routers = append(routers, other)
	}

	if r.defaultRouter != nil {
		routers = append(routers, r.defaultRouter)
	}

	return routers
}
