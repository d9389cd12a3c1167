// Package transport defines how the client reaches a peer.
// Connections are plain [net.Conn] so a security layer can wrap them.
package transport

import (
	"context"
	"net"
	"net/netip"
	"strconv"
)

// Addr is a dialable endpoint. Host is an IP literal once resolved,
// or a transport specific name.
type Addr struct {
	Host string
	Port uint16
}

func AddrFrom(ap netip.AddrPort) Addr {
	return Addr{Host: ap.Addr().String(), Port: ap.Port()}
}

// String joins host and port, bracketing IPv6 literals.
func (a Addr) String() string {
	return net.JoinHostPort(a.Host, strconv.FormatUint(uint64(a.Port), 10))
}

type Dialer interface {
	Dial(ctx context.Context, addr Addr) (net.Conn, error)
}

type Listener interface {
	Accept(ctx context.Context) (net.Conn, error)
	Close() error
}
