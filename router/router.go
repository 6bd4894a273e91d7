package router

import (
	"github.com/indigo-web/tandem/http"
)

// Router is what the server dispatches the requests to.
type Router interface {
	// OnRequest returns the response to the request. Nil response means the default
	// one (200 OK, empty body).
	OnRequest(request *http.Request) *http.Response
	// OnError is called when the request can't be processed because of the err. The
	// returned response is sent if the connection is still capable of it. The request
	// might be only partially filled.
	OnError(request *http.Request, err error) *http.Response
}

// Starter is implemented by routers requiring preparation before serving.
type Starter interface {
	OnStart() error
}
