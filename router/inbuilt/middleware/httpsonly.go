package middleware

import (
	"net"

	"github.com/indigo-web/tandem/http"
	"github.com/indigo-web/tandem/http/status"
	"github.com/indigo-web/tandem/router/inbuilt"
)

type HTTPSOnlyParams struct {
	// RedirectTo defines the host, where the user will be redirected.
	// If empty, value from Host header will be used
	RedirectTo string
	// Port is added to the host value.
	// If empty, implicitly default 443 port will be used
	Port string
}

// HTTPSOnly redirects all http requests to https. In case no Host header is provided,
// 400 Bad Request will be returned without calling the actual handler.
func HTTPSOnly(optionalParams ...HTTPSOnlyParams) inbuilt.Middleware {
	params := optional(optionalParams, HTTPSOnlyParams{})

	return func(next inbuilt.Handler, request *http.Request) *http.Response {
		if request.Env.Secure {
			return next(request)
		}

		host := params.RedirectTo
		if len(host) == 0 {
			host = removePort(request.Headers.Value("Host"))
			if len(host) == 0 {
				return request.Respond().
					WithCode(status.BadRequest).
					WithString("no Host header")
			}
		}

		if len(params.Port) > 0 && params.Port != "443" {
			host = net.JoinHostPort(host, params.Port)
		}

		return request.Respond().
			WithCode(status.MovedPermanently).
			WithHeader("Location", "https://"+host+request.Target)
	}
}

func removePort(str string) string {
	if host, _, err := net.SplitHostPort(str); err == nil {
		return host
	}

	return str
}

func optional[T any](custom []T, default_ T) T {
	if len(custom) == 0 {
		return default_
	}

	return custom[0]
}
