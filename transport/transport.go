package transport

import (
	"github.com/indigo-web/tandem/config"
)

// Transport accepts connections and hands them over to the callback, each in its own
// goroutine. The connection is closed as soon as the callback returns.
type Transport interface {
	Bind(addr string) error
	Listen(cfg config.NET, cb func(conn Conn)) error
	Addr() string
	Stop()
	Close()
	Wait()
}
