// Package pipe is an in-memory transport.
// Pipes are synchronous and unbuffered, like [net.Pipe], but deadlines run on
// an injected clock.
package pipe

import (
	"io"
	"net"
	"sync"
	"time"

	"silq/transport"

	"github.com/benbjohnson/clock"
)

type Addr struct {
	Name string
}

func (a Addr) Network() string { return "pipe" }
func (a Addr) String() string  { return a.Name }

var _ net.Addr = Addr{}

// pipe is one end of a connection. A write hands its bytes to the peer's
// reader and waits until they are copied out, possibly over several reads.
type pipe struct {
	addr Addr
	peer *pipe

	incoming chan []byte // peer writes arrive here
	consumed chan int    // peer reports how much of our write it copied

	writeMu sync.Mutex // one write at a time, so writes never interleave

	closed    chan struct{}
	closeOnce sync.Once

	readDeadline  *deadline
	writeDeadline *deadline
}

var _ net.Conn = (*pipe)(nil)

// NewPair creates two connected ends named name1 and name2.
func NewPair(name1, name2 string, clock clock.Clock) (net.Conn, net.Conn) {
	p1, p2 := newEnd(name1, clock), newEnd(name2, clock)
	p1.peer, p2.peer = p2, p1
	return p1, p2
}

func newEnd(name string, clock clock.Clock) *pipe {
	return &pipe{
		addr:          Addr{Name: name},
		incoming:      make(chan []byte),
		consumed:      make(chan int),
		closed:        make(chan struct{}),
		readDeadline:  newDeadline(clock),
		writeDeadline: newDeadline(clock),
	}
}

func (p *pipe) LocalAddr() net.Addr  { return p.addr }
func (p *pipe) RemoteAddr() net.Addr { return p.peer.addr }

func (p *pipe) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

// Read returns [io.EOF] once the peer is closed,
// and [transport.ErrConnClosed] once this end is.
func (p *pipe) Read(b []byte) (int, error) {
	switch {
	case isDone(p.closed):
		return 0, transport.ErrConnClosed
	case isDone(p.peer.closed):
		return 0, io.EOF
	case isDone(p.readDeadline.done()):
		return 0, transport.ErrDeadlineExceeded
	}

	select {
	case data := <-p.incoming:
		n := copy(b, data)
		p.peer.consumed <- n
		return n, nil
	case <-p.closed:
		return 0, transport.ErrConnClosed
	case <-p.peer.closed:
		return 0, io.EOF
	case <-p.readDeadline.done():
		return 0, transport.ErrDeadlineExceeded
	}
}

func (p *pipe) Write(b []byte) (int, error) {
	switch {
	case isDone(p.closed), isDone(p.peer.closed):
		return 0, transport.ErrConnClosed
	case isDone(p.writeDeadline.done()):
		return 0, transport.ErrDeadlineExceeded
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	written := 0
	for written < len(b) {
		select {
		case p.peer.incoming <- b[written:]:
			written += <-p.consumed
		case <-p.closed:
			return written, transport.ErrConnClosed
		case <-p.peer.closed:
			return written, transport.ErrConnClosed
		case <-p.writeDeadline.done():
			return written, transport.ErrDeadlineExceeded
		}
	}

	return written, nil
}

func (p *pipe) SetDeadline(t time.Time) error {
	p.readDeadline.reset(t)
	p.writeDeadline.reset(t)
	return nil
}

func (p *pipe) SetReadDeadline(t time.Time) error {
	p.readDeadline.reset(t)
	return nil
}

func (p *pipe) SetWriteDeadline(t time.Time) error {
	p.writeDeadline.reset(t)
	return nil
}

// deadline is a channel that closes when the time set by reset passes.
type deadline struct {
	clock clock.Clock

	mu      sync.Mutex
	timer   *clock.Timer
	expired chan struct{}
}

func newDeadline(clock clock.Clock) *deadline {
	return &deadline{clock: clock, expired: make(chan struct{})}
}

// reset arms the deadline at t. The zero time disarms it.
func (d *deadline) reset(t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if isDone(d.expired) {
		d.expired = make(chan struct{})
	}

	if t.IsZero() {
		return
	}

	wait := d.clock.Until(t)
	if wait <= 0 {
		close(d.expired)
		return
	}

	expired := d.expired
	d.timer = d.clock.AfterFunc(wait, func() { close(expired) })
}

func (d *deadline) done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.expired
}

func isDone(c <-chan struct{}) bool {
	select {
	case <-c:
		return true
	default:
		return false
	}
}
