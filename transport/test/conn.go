// Package test holds a conformance suite for [net.Conn] implementations.
//
// Embed [ConnTestSuite], call its SetupTest and then assign C1 and C2 to
// the two ends of a fresh connection.
package test

import (
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"silq/transport"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

const testTimeout = time.Second

type ConnTestSuite struct {
	suite.Suite
	C1, C2 net.Conn
	Clock  clock.Clock

	wg    sync.WaitGroup
	timer *time.Timer
}

func (s *ConnTestSuite) SetupTest() {
	s.Clock = clock.New()
	s.timer = time.AfterFunc(testTimeout, func() {
		// Unblock whatever is stuck so the failure gets reported.
		_ = s.C1.Close()
		_ = s.C2.Close()
	})
}

func (s *ConnTestSuite) TearDownTest() {
	defer goleak.VerifyNone(s.T())

	s.True(s.timer.Stop(), "timeout exceeded")
	_ = s.C1.Close()
	_ = s.C2.Close()
	s.wg.Wait()
}

// goDo runs f in a goroutine that TearDownTest waits for.
func (s *ConnTestSuite) goDo(f func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		f()
	}()
}

func (s *ConnTestSuite) TestReadWrite() {
	s.goDo(func() {
		n, err := s.C1.Write([]byte("Hello, World!"))
		s.NoError(err)
		s.Equal(13, n)
	})

	// A read returns at most len(buf) and keeps the rest for the next one.
	buf := make([]byte, 10)
	for _, want := range []string{"Hello, Wor", "ld!"} {
		n, err := s.C2.Read(buf)
		s.Require().NoError(err)
		s.Equal(want, string(buf[:n]))
	}
}

func (s *ConnTestSuite) TestConcurrentWrites() {
	const writers = 10

	var wwg sync.WaitGroup
	for range writers {
		wwg.Add(1)
		go func() {
			defer wwg.Done()
			n, err := s.C1.Write([]byte("ABCD"))
			s.NoError(err)
			s.Equal(4, n)
		}()
	}
	s.goDo(func() {
		wwg.Wait()
		s.NoError(s.C1.Close())
	})

	// Writes never interleave, so the stream is whole ABCD units.
	b, err := io.ReadAll(s.C2)
	s.NoError(err)
	s.Equal(strings.Repeat("ABCD", writers), string(b))
}

func (s *ConnTestSuite) TestClose() {
	s.Require().NoError(s.C1.Close())

	buf := make([]byte, 10)
	n, err := s.C1.Read(buf)
	s.ErrorIs(err, transport.ErrConnClosed)
	s.Zero(n)

	n, err = s.C1.Write(buf)
	s.ErrorIs(err, transport.ErrConnClosed)
	s.Zero(n)

	// The peer sees the end of the stream.
	n, err = s.C2.Read(buf)
	s.ErrorIs(err, io.EOF)
	s.Zero(n)
}

func (s *ConnTestSuite) TestCloseUnblocksRead() {
	errs := make(chan error, 1)
	s.goDo(func() {
		_, err := s.C1.Read(make([]byte, 1))
		errs <- err
	})

	time.Sleep(50 * time.Millisecond)
	s.Require().NoError(s.C1.Close())
	s.ErrorIs(<-errs, transport.ErrConnClosed)
}

func (s *ConnTestSuite) TestCloseUnblocksWrite() {
	errs := make(chan error, 1)
	s.goDo(func() {
		_, err := s.C1.Write([]byte("hey"))
		errs <- err
	})

	time.Sleep(50 * time.Millisecond)
	s.Require().NoError(s.C1.Close())
	s.ErrorIs(<-errs, transport.ErrConnClosed)
}

func (s *ConnTestSuite) TestDeadlines() {
	past := s.Clock.Now().Add(-time.Second)

	s.Require().NoError(s.C1.SetReadDeadline(past))
	n, err := s.C1.Read(make([]byte, 1))
	s.ErrorIs(err, transport.ErrDeadlineExceeded)
	s.Zero(n)

	s.Require().NoError(s.C1.SetWriteDeadline(past))
	n, err = s.C1.Write(make([]byte, 1))
	s.ErrorIs(err, transport.ErrDeadlineExceeded)
	s.Zero(n)
}

func (s *ConnTestSuite) TestReadDeadlineFires() {
	s.Require().NoError(s.C1.SetReadDeadline(s.Clock.Now().Add(30 * time.Millisecond)))

	n, err := s.C1.Read(make([]byte, 1))
	s.ErrorIs(err, transport.ErrDeadlineExceeded)
	s.Zero(n)

	// Clearing the deadline lets the conn be used again.
	s.Require().NoError(s.C1.SetReadDeadline(time.Time{}))

	s.goDo(func() {
		_, err := s.C2.Write([]byte("x"))
		s.NoError(err)
	})
	n, err = s.C1.Read(make([]byte, 1))
	s.NoError(err)
	s.Equal(1, n)
}

func (s *ConnTestSuite) TestAddr() {
	s.Equal(s.C1.LocalAddr(), s.C2.RemoteAddr())
	s.Equal(s.C2.LocalAddr(), s.C1.RemoteAddr())
}
