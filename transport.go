package tandem

import (
	"crypto/tls"
	"errors"

	"github.com/indigo-web/tandem/config"
	"github.com/indigo-web/tandem/transport"
)

var (
	ErrBadCertificate = errors.New("one or more passed certificates are empty")
	ErrNoCertificates = errors.New("no certificates were passed")
)

// Transport is the way connections are accepted at a port.
type Transport struct {
	inner transport.Transport
	error error
}

// TCP accepts plain connections.
func TCP() Transport {
	return Transport{inner: transport.NewTCP()}
}

// TLS accepts encrypted connections with the certificate loaded from files.
func TLS(cert, key string) Transport {
	c, err := tls.LoadX509KeyPair(cert, key)
	if err != nil {
		// if any error occurred, there's no way to report it at this point.
		// Save it in the transport, the App will catch and return it when
		// will bind listeners.
		return Transport{error: err}
	}

	return HTTPS(c)
}

// HTTPS accepts encrypted connections with the certificates.
func HTTPS(certs ...tls.Certificate) Transport {
	// simple anti-idiot checks in order to avoid the most obvious mistakes
	switch {
	case len(certs) == 0:
		return Transport{error: ErrNoCertificates}
	case !noEmptyCerts(certs):
		return Transport{error: ErrBadCertificate}
	}

	return Transport{
		inner: transport.NewTLS(&tls.Config{
			Certificates: certs,
			MinVersion:   tls.VersionTLS12,
		}),
	}
}

// AutoTLS accepts encrypted connections with certificates obtained from Let's Encrypt.
func AutoTLS(cfg *config.Config, domains ...string) Transport {
	return Transport{inner: transport.NewTLS(transport.AutoTLS(cfg.Log(), domains...))}
}

func Cert(cert, key string) tls.Certificate {
	// in case of an error an empty certificate is returned. This will be
	// checked and instantly reported on starting the application
	c, _ := tls.LoadX509KeyPair(cert, key)
	return c
}

func noEmptyCerts(certs []tls.Certificate) bool {
	for _, c := range certs {
		if c.Certificate == nil {
			return false
		}
	}

	return true
}
