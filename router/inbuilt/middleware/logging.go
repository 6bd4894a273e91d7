package middleware

import (
	"log/slog"
	"time"

	"github.com/indigo-web/tandem/http"
	"github.com/indigo-web/tandem/router/inbuilt"
)

// LogRequests records every request along with the response code and the time the
// handler took. A nil logger stands for slog.Default().
func LogRequests(logger *slog.Logger) inbuilt.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next inbuilt.Handler, request *http.Request) *http.Response {
		start := time.Now()
		response := next(request)

		logger.Info("request",
			"method", request.Method,
			"path", request.Path(),
			"code", response.Code,
			"took", time.Since(start),
			"conn", request.Env.ConnID,
		)

		return response
	}
}
