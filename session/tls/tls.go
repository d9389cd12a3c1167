// Package tls decides how a client secures its connections.
//
// A [TransportSecurity] policy is either AllowUnsecure or SecureOnly. Secure
// policies may carry a [ClientIdentity] for mutual authentication and a
// [CertificateAuthority] that replaces the platform roots. Connections are
// secured with the platform TLS stack through [Handshake].
package tls

import (
	"context"
	stdtls "crypto/tls"
	"net"

	"github.com/pkg/errors"
)

// Handshake runs a client handshake over conn.
// conn is closed when the handshake fails.
func Handshake(ctx context.Context, conn net.Conn, cfg *stdtls.Config) (*stdtls.Conn, error) {
	tlsConn := stdtls.Client(conn, cfg)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "handshake failed")
	}

	return tlsConn, nil
}
