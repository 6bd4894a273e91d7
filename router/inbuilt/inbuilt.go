package inbuilt

import (
	"github.com/indigo-web/tandem/http"
	"github.com/indigo-web/tandem/http/method"
	"github.com/indigo-web/tandem/http/status"
	"github.com/indigo-web/tandem/router"
	"github.com/indigo-web/tandem/router/inbuilt/internal/radix"
)

type (
	Handler    func(*http.Request) *http.Response
	Middleware func(next Handler, request *http.Request) *http.Response
)

var (
	_ router.Router  = new(Router)
	_ router.Starter = new(Router)
)

// Router is a built-in implementation of router.Router interface that provides
// some basic router features like middlewares, groups, dynamic routing, error
// handlers, and some implicit things like calling GET-handlers for HEAD-requests,
// or answering OPTIONS-requests automatically in case no handler is registered
type Router struct {
	root   *Router
	parent *Router

	prefix      string
	middlewares []Middleware

	// the fields below are used only by the root router
	routes      []route
	errHandlers map[status.Code]Handler
	tree        *radix.Node[*endpoint]
}

// New constructs a new instance of inbuilt router
func New() *Router {
	r := &Router{
		errHandlers: make(map[status.Code]Handler),
	}
	r.root = r

	return r
}

type route struct {
	group    *Router
	method   method.Method
	template radix.Template
	handler  Handler
	// middlewares are ones passed along with the handler
	middlewares []Middleware
}

type endpoint struct {
	methods map[method.Method]Handler
	// allow is the value of the Allow header for this path
	allow string
}
