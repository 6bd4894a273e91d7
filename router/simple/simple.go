package simple

import (
	"github.com/indigo-web/tandem/http"
	"github.com/indigo-web/tandem/router"
)

type (
	Handler      func(*http.Request) *http.Response
	ErrorHandler func(*http.Request, error) *http.Response
)

var _ router.Router = Router{}

// Router passes all the requests to a single handler.
type Router struct {
	handler    Handler
	errHandler ErrorHandler
}

// New returns the router. If errHandler is nil, errors are answered with
// http.Error.
func New(handler Handler, errHandler ErrorHandler) Router {
	if errHandler == nil {
		errHandler = http.Error
	}

	return Router{
		handler:    handler,
		errHandler: errHandler,
	}
}

func (r Router) OnRequest(request *http.Request) *http.Response {
	return r.handler(request)
}

func (r Router) OnError(request *http.Request, err error) *http.Response {
	return r.errHandler(request, err)
}
