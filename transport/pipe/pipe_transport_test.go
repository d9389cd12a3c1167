package pipe

import (
	"context"
	"io"
	"testing"
	"time"

	"silq/transport"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

type PipeTransportTestSuite struct {
	suite.Suite

	transport *PipeTransport
	addr      transport.Addr
	lis       *pipeListener
}

func TestPipeTransportTestSuite(t *testing.T) {
	suite.Run(t, new(PipeTransportTestSuite))
}

func (s *PipeTransportTestSuite) SetupTest() {
	s.transport = NewPipeTransport(clock.New())
	s.addr = transport.Addr{Host: "server", Port: 80}

	lis, err := s.transport.Listen(s.addr)
	s.Require().NoError(err)
	s.lis = lis
}

func (s *PipeTransportTestSuite) TearDownTest() {
	defer goleak.VerifyNone(s.T())
	_ = s.lis.Close()
}

func (s *PipeTransportTestSuite) TestListen() {
	s.Equal(s.addr, s.lis.Addr())
	s.Same(s.lis, s.transport.listeners[s.addr])

	lis, err := s.transport.Listen(s.addr)
	s.ErrorIs(err, transport.ErrAddrAlreadyInUse)
	s.Nil(lis)
}

func (s *PipeTransportTestSuite) TestDial() {
	accepted := make(chan error, 1)
	go func() {
		conn, err := s.lis.Accept(context.Background())
		if err == nil {
			s.Equal("server:80", conn.LocalAddr().String())
			_, err = conn.Write([]byte("hi"))
			conn.Close()
		}
		accepted <- err
	}()

	conn, err := s.transport.Dial(context.Background(), s.addr)
	s.Require().NoError(err)
	defer conn.Close()

	s.Equal("server:80", conn.RemoteAddr().String())
	s.Equal("dialer", conn.LocalAddr().String())

	b, err := io.ReadAll(conn)
	s.NoError(err)
	s.Equal("hi", string(b))
	s.NoError(<-accepted)
}

func (s *PipeTransportTestSuite) TestDialFails() {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	testcases := []struct {
		desc    string
		ctx     context.Context
		addr    transport.Addr
		wantErr error
	}{
		{desc: "nobody listens", ctx: context.Background(), addr: transport.Addr{Host: "nobody", Port: 1}, wantErr: transport.ErrConnRefused},
		{desc: "nobody accepts", ctx: ctx, addr: s.addr, wantErr: context.DeadlineExceeded},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			conn, err := s.transport.Dial(tc.ctx, tc.addr)
			s.ErrorIs(err, tc.wantErr)
			s.Nil(conn)
		})
	}
}

func (s *PipeTransportTestSuite) TestDialClosedListener() {
	dialed := make(chan error, 1)
	go func() {
		_, err := s.transport.Dial(context.Background(), s.addr)
		dialed <- err
	}()

	time.Sleep(20 * time.Millisecond)
	s.Require().NoError(s.lis.Close())
	s.ErrorIs(<-dialed, transport.ErrConnRefused)

	_, err := s.transport.Dial(context.Background(), s.addr)
	s.ErrorIs(err, transport.ErrConnRefused)
}

func (s *PipeTransportTestSuite) TestAcceptCancels() {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	conn, err := s.lis.Accept(ctx)
	s.Nil(conn)
	s.ErrorIs(err, context.Canceled)
}

func (s *PipeTransportTestSuite) TestClose() {
	s.Require().NoError(s.lis.Close())
	s.ErrorIs(s.lis.Close(), transport.ErrConnListenerClosed)
	s.NotContains(s.transport.listeners, s.addr)

	conn, err := s.lis.Accept(context.Background())
	s.Nil(conn)
	s.ErrorIs(err, transport.ErrConnListenerClosed)

	// The address is free again.
	lis, err := s.transport.Listen(s.addr)
	s.Require().NoError(err)
	s.NoError(lis.Close())
}
