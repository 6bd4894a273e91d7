package middleware

import (
	"strings"

	"github.com/indigo-web/tandem/http"
	"github.com/indigo-web/tandem/router/inbuilt"
)

const DefaultServerHeader = "tandem"

// ServerHeader sets the Server header of every response, unless the handler has set
// one.
func ServerHeader(customHeaders ...string) inbuilt.Middleware {
	value := strings.Join(customHeaders, " ")
	if len(value) == 0 {
		value = DefaultServerHeader
	}

	return func(next inbuilt.Handler, request *http.Request) *http.Response {
		response := next(request)
		if !response.Headers.Has("Server") {
			response.Headers.Add("Server", value)
		}

		return response
	}
}
