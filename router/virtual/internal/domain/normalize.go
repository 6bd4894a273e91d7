package domain

import (
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// Normalize brings the Host header value into a comparable form: lower-cased, in
// punycode, without the www. prefix, a trailing dot, or a default port.
func Normalize(domain string) string {
	host, port, err := net.SplitHostPort(domain)
	if err != nil {
		host, port = strings.TrimSuffix(strings.TrimPrefix(domain, "["), "]"), ""
	}

	host = strings.TrimSuffix(strings.ToLower(host), ".")
	host = strings.TrimPrefix(host, "www.")
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}

	switch port {
	case "", "80", "443":
		// trim only default ports. Non-default must always be presented
		if strings.IndexByte(host, ':') != -1 {
			return "[" + host + "]"
		}

		return host
	default:
		return net.JoinHostPort(host, port)
	}
}

func TrimPort(domain string) string {
	if host, _, err := net.SplitHostPort(domain); err == nil {
		return host
	}

	return domain
}
