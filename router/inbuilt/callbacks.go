package inbuilt

import (
	"fmt"
	"slices"
	"strings"

	"github.com/indigo-web/tandem/http"
	"github.com/indigo-web/tandem/http/method"
	"github.com/indigo-web/tandem/http/status"
	"github.com/indigo-web/tandem/router/inbuilt/internal/radix"
	"github.com/indigo-web/tandem/router/inbuilt/uri"
)

/*
This file contains core-callbacks that are called by server core.

Methods listed here MUST NOT be called by user ever
*/

// OnStart composes all the registered handlers with middlewares and builds the
// routing tree. No routes may be registered after this.
func (r *Router) OnStart() error {
	root := r.root
	endpoints := make(map[string]*endpoint)
	templates := make(map[string]radix.Template)

	for _, rt := range root.routes {
		key := rt.template.String()
		ep, found := endpoints[key]
		if !found {
			ep = &endpoint{methods: make(map[method.Method]Handler)}
			endpoints[key] = ep
			templates[key] = rt.template
		}

		if _, dup := ep.methods[rt.method]; dup {
			return fmt.Errorf("%s %s: route is already registered", rt.method, key)
		}

		middlewares := slices.Concat(rt.group.chain(), rt.middlewares)
		ep.methods[rt.method] = compose(rt.handler, middlewares)
	}

	tree := radix.New[*endpoint]()
	for key, ep := range endpoints {
		ep.allow = allowString(ep.methods)
		if err := tree.Insert(templates[key], ep); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	root.tree = tree
	return nil
}

// OnRequest routes the request
func (r *Router) OnRequest(request *http.Request) *http.Response {
	tree := r.root.tree
	if tree == nil {
		return r.OnError(request, status.ErrNotFound)
	}

	ep, found := tree.Lookup(uri.Normalize(request.Path()), request.Params)
	if !found {
		return r.OnError(request, status.ErrNotFound)
	}

	handler := ep.methods[request.Method]
	if handler == nil {
		switch request.Method {
		case method.HEAD:
			// the serializer anyway discards the body of responses to HEAD requests,
			// leaving only the headers, just like RFC 9110, 9.3.2 wants
			handler = ep.methods[method.GET]
		case method.OPTIONS:
			return request.Respond().WithHeader("Allow", ep.allow)
		}
	}

	if handler == nil {
		request.Env.AllowedMethods = ep.allow
		return r.OnError(request, status.ErrMethodNotAllowed)
	}

	return handler(request)
}

// OnError receives error and decides, which error handler is better to use in this case
func (r *Router) OnError(request *http.Request, err error) *http.Response {
	request.Env.Error = err

	handler, found := r.root.errHandlers[status.CodeOf(err)]
	if !found {
		handler, found = r.root.errHandlers[AllErrors]
	}

	if !found {
		handler = defaultErrorHandler
	}

	return handler(request)
}

func defaultErrorHandler(request *http.Request) *http.Response {
	response := http.Error(request, request.Env.Error)
	if response.Code == status.MethodNotAllowed && len(request.Env.AllowedMethods) > 0 {
		response.WithHeader("Allow", request.Env.AllowedMethods)
	}

	return response
}

// allowString lists the methods in the standard order, followed by the extension ones.
// HEAD and OPTIONS are always served, so they're always listed.
func allowString(methods map[method.Method]Handler) string {
	var allowed []string
	for _, m := range method.List {
		_, found := methods[m]
		switch {
		case found,
			m == method.HEAD && methods[method.GET] != nil,
			m == method.OPTIONS:
			allowed = append(allowed, m.String())
		}
	}

	var extensions []string
	for m := range methods {
		if !slices.Contains(method.List, m) {
			extensions = append(extensions, m.String())
		}
	}

	slices.Sort(extensions)
	return strings.Join(append(allowed, extensions...), ", ")
}
