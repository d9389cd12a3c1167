// Package tcp dials peers over the host's TCP stack.
package tcp

import (
	"context"
	"net"
	"syscall"
	"time"

	"silq/transport"

	"github.com/pkg/errors"
)

type Options struct {
	// KeepAlive is the keep-alive period. Zero uses the system default,
	// and a negative value disables keep-alives.
	KeepAlive time.Duration
	// LocalAddr binds outgoing connections when set.
	LocalAddr *net.TCPAddr
}

type Dialer struct {
	dialer net.Dialer
}

var _ transport.Dialer = (*Dialer)(nil)

func NewDialer(opts Options) *Dialer {
	d := &Dialer{
		dialer: net.Dialer{KeepAlive: opts.KeepAlive},
	}
	if opts.LocalAddr != nil {
		d.dialer.LocalAddr = opts.LocalAddr
	}
	return d
}

// Dial connects to addr. Host should already be an IP literal.
func (d *Dialer) Dial(ctx context.Context, addr transport.Addr) (net.Conn, error) {
	conn, err := d.dialer.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		switch {
		case errors.Is(err, syscall.ECONNREFUSED):
			return nil, errors.Wrap(transport.ErrConnRefused, err.Error())
		case errors.Is(err, syscall.ENETUNREACH):
			return nil, errors.Wrap(transport.ErrNetUnreachable, err.Error())
		}
		return nil, errors.Wrapf(err, "dialing %s", addr)
	}

	return conn, nil
}

// Listener accepts TCP connections, mostly for exercising [Dialer].
type Listener struct {
	l *net.TCPListener
}

var _ transport.Listener = (*Listener)(nil)

func Listen(addr transport.Addr) (*Listener, error) {
	l, err := net.Listen("tcp", addr.String())
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, errors.Wrap(transport.ErrAddrAlreadyInUse, err.Error())
		}
		return nil, errors.Wrapf(err, "listening on %s", addr)
	}

	return &Listener{l: l.(*net.TCPListener)}, nil
}

func (l *Listener) Addr() transport.Addr {
	return transport.AddrFrom(l.l.Addr().(*net.TCPAddr).AddrPort())
}

func (l *Listener) Accept(ctx context.Context) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}

	done := make(chan result, 1)
	go func() {
		conn, err := l.l.Accept()
		done <- result{conn, err}
	}()

	select {
	case <-ctx.Done():
		// Unblock the pending Accept.
		_ = l.l.SetDeadline(time.Unix(1, 0))
		r := <-done
		_ = l.l.SetDeadline(time.Time{})
		if r.conn != nil {
			_ = r.conn.Close()
		}
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, net.ErrClosed) {
				return nil, transport.ErrConnListenerClosed
			}
			return nil, r.err
		}
		return r.conn, nil
	}
}

func (l *Listener) Close() error {
	if err := l.l.Close(); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return transport.ErrConnListenerClosed
		}
		return err
	}
	return nil
}
