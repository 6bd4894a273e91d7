package inbuilt

import (
	"slices"

	"github.com/indigo-web/tandem/http"
)

// Group creates a new router inheriting the prefix and the middlewares of the current
// one. Middlewares added to the group later don't affect the parent, whereas ones added
// to the parent do affect the group. Routes are registered in the root router.
func (r *Router) Group(prefix string) *Router {
	return &Router{
		root:   r.root,
		parent: r,
		prefix: r.prefix + prefix,
	}
}

// Use adds middlewares to the group. They're applied to all its routes, including ones
// registered earlier, in the order they were added.
func (r *Router) Use(middlewares ...Middleware) *Router {
	r.middlewares = append(r.middlewares, middlewares...)
	return r
}

// chain collects the middlewares from the root router down to the group.
func (r *Router) chain() []Middleware {
	if r.parent == nil {
		return r.middlewares
	}

	return slices.Concat(r.parent.chain(), r.middlewares)
}

// compose just makes a single Handler from a chain of middlewares and handler
// in the end. The first middleware is the outermost one.
func compose(handler Handler, middlewares []Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		mw, next := middlewares[i], handler
		handler = func(request *http.Request) *http.Response {
			return mw(next, request)
		}
	}

	return handler
}
