package method

import (
	"golang.org/x/net/http/httpguts"
)

// Method is a request method token. Extension methods are allowed as long as they are
// valid tokens, therefore it isn't an enumeration.
type Method string

const (
	GET     Method = "GET"
	HEAD    Method = "HEAD"
	POST    Method = "POST"
	PUT     Method = "PUT"
	DELETE  Method = "DELETE"
	CONNECT Method = "CONNECT"
	OPTIONS Method = "OPTIONS"
	TRACE   Method = "TRACE"
	PATCH   Method = "PATCH"
)

// List contains all the standard HTTP methods.
var List = []Method{GET, HEAD, POST, PUT, DELETE, CONNECT, OPTIONS, TRACE, PATCH}

// Valid reports whether the method is a non-empty token.
func Valid(m Method) bool {
	// field names and methods share the same token grammar
	return len(m) > 0 && httpguts.ValidHeaderFieldName(string(m))
}

// Idempotent reports whether repeating the request has the same effect as sending it
// once. The engine never retries by itself, but callers decide on retries by this.
func Idempotent(m Method) bool {
	switch m {
	case GET, HEAD, PUT, DELETE, OPTIONS, TRACE:
		return true
	default:
		return false
	}
}

func (m Method) String() string {
	return string(m)
}
