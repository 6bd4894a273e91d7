package inbuilt

import (
	"fmt"

	"github.com/indigo-web/tandem/http/method"
	"github.com/indigo-web/tandem/http/status"
	"github.com/indigo-web/tandem/router/inbuilt/internal/radix"
)

// AllErrors is used to be passed into Router.RouteError, indicating by that,
// that the handler must handle ALL errors (if concrete error's handler won't
// override it)
const AllErrors = status.Code(0)

// Route is a base method for registering handlers. Path sections written as {name}
// match any single non-empty section, which is then accessible via request.Params.
// Invalid templates result in panicking.
func (r *Router) Route(
	m method.Method, path string, handler Handler,
	middlewares ...Middleware,
) *Router {
	if !method.Valid(m) {
		panic(fmt.Sprintf("%q: invalid method", m))
	}

	template, err := radix.Parse(r.prefix + path)
	if err != nil {
		panic(err)
	}

	r.root.routes = append(r.root.routes, route{
		group:       r,
		method:      m,
		template:    template,
		handler:     handler,
		middlewares: middlewares,
	})

	return r
}

// RouteError adds an error handler for a corresponding HTTP error code. The error
// itself is available via request.Env.Error.
//
// Note: error codes are only 4xx and 5xx. The following ones may be raised by the
// server itself:
// - AllErrors
// - status.BadRequest
// - status.NotFound
// - status.MethodNotAllowed
// - status.RequestTimeout
// - status.RequestEntityTooLarge
// - status.UnsupportedMediaType
// - status.RequestHeaderFieldsTooLarge
// - status.InternalServerError
// - status.HTTPVersionNotSupported
//
// WARNING: calling this method from groups will affect ALL routers, including root
func (r *Router) RouteError(handler Handler, codes ...status.Code) *Router {
	if len(codes) == 0 {
		codes = append(codes, AllErrors)
	}

	for _, code := range codes {
		r.root.errHandlers[code] = handler
	}

	return r
}

// Get is a shortcut for registering GET-requests
func (r *Router) Get(path string, handler Handler, middlewares ...Middleware) *Router {
	return r.Route(method.GET, path, handler, middlewares...)
}

// Head is a shortcut for registering HEAD-requests
func (r *Router) Head(path string, handler Handler, middlewares ...Middleware) *Router {
	return r.Route(method.HEAD, path, handler, middlewares...)
}

// Post is a shortcut for registering POST-requests
func (r *Router) Post(path string, handler Handler, middlewares ...Middleware) *Router {
	return r.Route(method.POST, path, handler, middlewares...)
}

// Put is a shortcut for registering PUT-requests
func (r *Router) Put(path string, handler Handler, middlewares ...Middleware) *Router {
	return r.Route(method.PUT, path, handler, middlewares...)
}

// Delete is a shortcut for registering DELETE-requests
func (r *Router) Delete(path string, handler Handler, middlewares ...Middleware) *Router {
	return r.Route(method.DELETE, path, handler, middlewares...)
}

// Options is a shortcut for registering OPTIONS-requests
func (r *Router) Options(path string, handler Handler, middlewares ...Middleware) *Router {
	return r.Route(method.OPTIONS, path, handler, middlewares...)
}

// Patch is a shortcut for registering PATCH-requests
func (r *Router) Patch(path string, handler Handler, middlewares ...Middleware) *Router {
	return r.Route(method.PATCH, path, handler, middlewares...)
}
