// Package tls wraps the gateway's TCP listener in TLS. Certificate
// paths come from the server config and resolve relative to the config
// file's directory.
package tls

import (
	"crypto/tls"
	"fmt"
	"net"
)

// CreateTLSListener returns a TLS listener on address using the given
// certificate and key pair. TLS 1.3 is the minimum accepted version.
func CreateTLSListener(address, certFile, keyFile string) (net.Listener, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		MinVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{cert},
	}

	tcpListener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP listener: %w", err)
	}

	return tls.NewListener(tcpListener, tlsConfig), nil
}
