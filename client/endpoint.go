package client

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

var (
	ErrUnsupportedScheme = errors.New("only http and https schemes are supported")
	ErrNoHost            = errors.New("no host in the URL")
	ErrBadPort           = errors.New("invalid port")
)

// Endpoint identifies the origin server. Connections are pooled by it.
type Endpoint struct {
	Host   string
	Port   uint16
	Secure bool
}

// NewEndpoint returns the endpoint with the host name normalized. Zero port stands for
// the default one of the scheme.
func NewEndpoint(host string, port uint16, secure bool) (Endpoint, error) {
	normalized, err := normalizeHost(host)
	if err != nil {
		return Endpoint{}, err
	}

	if port == 0 {
		port = defaultPort(secure)
	}

	return Endpoint{Host: normalized, Port: port, Secure: secure}, nil
}

// ParseURL splits an absolute http or https URL into the endpoint and the request
// target.
func ParseURL(rawURL string) (Endpoint, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Endpoint{}, "", err
	}

	var secure bool
	switch strings.ToLower(u.Scheme) {
	case "http":
	case "https":
		secure = true
	default:
		return Endpoint{}, "", fmt.Errorf("%q: %w", u.Scheme, ErrUnsupportedScheme)
	}

	if len(u.Hostname()) == 0 {
		return Endpoint{}, "", ErrNoHost
	}

	var port uint16
	if rawPort := u.Port(); len(rawPort) > 0 {
		p, err := strconv.ParseUint(rawPort, 10, 16)
		if err != nil || p == 0 {
			return Endpoint{}, "", fmt.Errorf("%q: %w", rawPort, ErrBadPort)
		}

		port = uint16(p)
	}

	endpoint, err := NewEndpoint(u.Hostname(), port, secure)
	if err != nil {
		return Endpoint{}, "", err
	}

	return endpoint, u.RequestURI(), nil
}

// Addr returns the address to dial.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

// HostHeader returns the value of the Host header, omitting the default port.
func (e Endpoint) HostHeader() string {
	host := e.Host
	if strings.IndexByte(host, ':') != -1 {
		host = "[" + host + "]"
	}

	if e.Port == defaultPort(e.Secure) {
		return host
	}

	return host + ":" + strconv.Itoa(int(e.Port))
}

func (e Endpoint) String() string {
	scheme := "http"
	if e.Secure {
		scheme = "https"
	}

	return scheme + "://" + e.Addr()
}

func defaultPort(secure bool) uint16 {
	if secure {
		return 443
	}

	return 80
}

// normalizeHost lowercases the host name and converts internationalized names into
// their ASCII form, so the same server always gets the same key. IP literals are kept
// as is.
func normalizeHost(host string) (string, error) {
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if len(host) == 0 {
		return "", ErrNoHost
	}

	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("%q: %w", host, err)
	}

	return strings.ToLower(ascii), nil
}
