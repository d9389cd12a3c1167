package pipe

import (
	"context"
	"net"
	"sync"

	"silq/transport"

	"github.com/benbjohnson/clock"
)

// PipeTransport connects dialers to listeners registered on it,
// keyed by the address they listen on.
type PipeTransport struct {
	clock clock.Clock

	mu        sync.Mutex
	listeners map[transport.Addr]*pipeListener
}

var _ transport.Dialer = (*PipeTransport)(nil)

func NewPipeTransport(clock clock.Clock) *PipeTransport {
	return &PipeTransport{
		clock:     clock,
		listeners: make(map[transport.Addr]*pipeListener),
	}
}

// Dial blocks until a listener on addr accepts the connection.
func (pt *PipeTransport) Dial(ctx context.Context, addr transport.Addr) (net.Conn, error) {
	pt.mu.Lock()
	pl, ok := pt.listeners[addr]
	pt.mu.Unlock()
	if !ok {
		return nil, transport.ErrConnRefused
	}

	local, remote := NewPair("dialer", addr.String(), pt.clock)

	// requests is unbuffered, so a completed send means Accept took remote.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-pl.closed:
		return nil, transport.ErrConnRefused
	case pl.requests <- remote:
		return local, nil
	}
}

func (pt *PipeTransport) Listen(addr transport.Addr) (*pipeListener, error) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if _, ok := pt.listeners[addr]; ok {
		return nil, transport.ErrAddrAlreadyInUse
	}

	pl := &pipeListener{
		addr:      addr,
		transport: pt,
		requests:  make(chan net.Conn),
		closed:    make(chan struct{}),
	}
	pt.listeners[addr] = pl

	return pl, nil
}

type pipeListener struct {
	addr      transport.Addr
	transport *PipeTransport

	requests  chan net.Conn
	closed    chan struct{}
	closeOnce sync.Once
}

var _ transport.Listener = (*pipeListener)(nil)

func (pl *pipeListener) Addr() transport.Addr { return pl.addr }

func (pl *pipeListener) Accept(ctx context.Context) (net.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-pl.closed:
		return nil, transport.ErrConnListenerClosed
	case conn := <-pl.requests:
		return conn, nil
	}
}

// Close unregisters the listener. Pending and future dials are refused.
func (pl *pipeListener) Close() error {
	err := transport.ErrConnListenerClosed
	pl.closeOnce.Do(func() {
		close(pl.closed)

		pl.transport.mu.Lock()
		delete(pl.transport.listeners, pl.addr)
		pl.transport.mu.Unlock()

		err = nil
	})
	return err
}
