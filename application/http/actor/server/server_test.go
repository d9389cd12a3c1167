package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"

	"silq/application/http"
	"silq/application/http/semantic"
	"silq/application/http/semantic/status"
	"silq/application/http/transfer"
	"silq/transport"
	"silq/transport/pipe"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

type ServerTestSuite struct {
	suite.Suite

	transport *pipe.PipeTransport
	addr      transport.Addr
	clock     *clock.Mock

	handle HandleFunc
	server *Server
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	s.clock = clock.NewMock()
	s.transport = pipe.NewPipeTransport(s.clock)
	s.addr = transport.Addr{Host: "server", Port: 80}

	lis, err := s.transport.Listen(s.addr)
	s.Require().NoError(err)

	s.handle = nil
	s.server = New(lis, slog.New(slog.DiscardHandler), s.clock,
		func(c *HandleContext, request *semantic.Request) *semantic.Response {
			return s.handle(c, request)
		},
		DefaultOptions(),
	)
	s.server.Start()
}

func (s *ServerTestSuite) TearDownTest() {
	defer goleak.VerifyNone(s.T())
	s.NoError(s.server.Close())
}

func (s *ServerTestSuite) dial() (net.Conn, *http.ResponseDecoder) {
	conn, err := s.transport.Dial(context.Background(), s.addr)
	s.Require().NoError(err)
	return conn, http.NewResponseDecoder(conn, http.DefaultDecodeOptions)
}

func (s *ServerTestSuite) roundtrip(conn net.Conn, dec *http.ResponseDecoder, request string) (*semantic.Response, []byte) {
	go func() { _, _ = io.WriteString(conn, request) }()

	var raw http.Response
	s.Require().NoError(dec.Decode(&raw))

	res, err := semantic.ResponseFrom(&raw, semantic.MethodGet)
	s.Require().NoError(err)

	var body []byte
	if res.IsChunked() {
		body, err = io.ReadAll(transfer.NewChunkedReader(res.Body))
	} else if res.ContentLength != nil {
		body, err = io.ReadAll(res.Body)
	}
	s.Require().NoError(err)

	return res, body
}

func (s *ServerTestSuite) TestServe() {
	s.handle = func(c *HandleContext, request *semantic.Request) *semantic.Response {
		s.Equal(semantic.MethodGet, request.Method)
		s.Equal("/hello?x=1", request.Target())
		s.Equal("server", request.Host)
		s.NotNil(c.RemoteAddr())
		return TextResponse(status.OK, "hi")
	}

	conn, dec := s.dial()
	defer conn.Close()

	res, body := s.roundtrip(conn, dec, "GET /hello?x=1 HTTP/1.1\r\nHost: server\r\n\r\n")
	s.Equal(uint(200), res.Status.Code)
	s.Equal("hi", string(body))

	date, ok := res.Headers.Get("Date")
	s.True(ok)
	s.Equal("Thu, 01 Jan 1970 00:00:00 GMT", date)
}

func (s *ServerTestSuite) TestKeepAlive() {
	s.handle = func(c *HandleContext, request *semantic.Request) *semantic.Response {
		return TextResponse(status.OK, request.URI.Path)
	}

	conn, dec := s.dial()
	defer conn.Close()

	for _, path := range []string{"/one", "/two"} {
		res, body := s.roundtrip(conn, dec, "GET "+path+" HTTP/1.1\r\nHost: server\r\n\r\n")
		s.Equal(uint(200), res.Status.Code)
		s.Equal(path, string(body))
		s.False(res.Headers.Has("Connection"))
	}
}

func (s *ServerTestSuite) TestRequestBody() {
	testcases := []struct {
		desc    string
		request string
	}{
		{desc: "content length", request: "POST / HTTP/1.1\r\nHost: server\r\nContent-Length: 5\r\n\r\nhello"},
		{desc: "chunked", request: "POST / HTTP/1.1\r\nHost: server\r\nTransfer-Encoding: chunked\r\n\r\n2\r\nhe\r\n3\r\nllo\r\n0\r\n\r\n"},
	}

	s.handle = func(c *HandleContext, request *semantic.Request) *semantic.Response {
		b, err := io.ReadAll(request.Body)
		if err != nil {
			return c.Error(err)
		}
		return TextResponse(status.OK, strings.ToUpper(string(b)))
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			conn, dec := s.dial()
			defer conn.Close()

			res, body := s.roundtrip(conn, dec, tc.request)
			s.Equal(uint(200), res.Status.Code)
			s.Equal("HELLO", string(body))
		})
	}
}

func (s *ServerTestSuite) TestChunkedResponse() {
	s.handle = func(c *HandleContext, request *semantic.Request) *semantic.Response {
		c.SetTrailers(semantic.Field{Name: "X-Parts", Value: "2"})
		return ChunkedResponse(status.OK, []byte("first"), []byte("second"))
	}

	conn, dec := s.dial()
	defer conn.Close()

	go func() { _, _ = io.WriteString(conn, "GET / HTTP/1.1\r\nHost: server\r\n\r\n") }()

	var raw http.Response
	s.Require().NoError(dec.Decode(&raw))
	res, err := semantic.ResponseFrom(&raw, semantic.MethodGet)
	s.Require().NoError(err)
	s.True(res.IsChunked())

	var trailers []http.Field
	cr := transfer.NewChunkedReader(res.Body)
	cr.SetOnTrailerReceived(func(f []http.Field) { trailers = f })

	var parts []string
	for {
		data, err := cr.ReadChunk(0)
		if err == io.EOF {
			break
		}
		s.Require().NoError(err)
		parts = append(parts, string(data))
	}

	s.Equal([]string{"first", "second"}, parts)
	s.Equal([]http.Field{{Name: []byte("X-Parts"), Value: []byte("2")}}, trailers)
}

func (s *ServerTestSuite) TestBadRequest() {
	testcases := []struct {
		desc    string
		request string
		code    uint
	}{
		{desc: "malformed request line", request: "NOT A REQUEST\r\n\r\n", code: 400},
		{desc: "unsupported coding", request: "POST / HTTP/1.1\r\nHost: server\r\nTransfer-Encoding: gzip, chunked\r\n\r\n", code: 501},
		{desc: "no chunked coding", request: "POST / HTTP/1.1\r\nHost: server\r\nTransfer-Encoding: gzip\r\n\r\n", code: 400},
	}

	s.handle = func(c *HandleContext, request *semantic.Request) *semantic.Response {
		s.Fail("handler must not run")
		return TextResponse(status.OK, "")
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			conn, dec := s.dial()
			defer conn.Close()

			res, _ := s.roundtrip(conn, dec, tc.request)
			s.Equal(tc.code, res.Status.Code)

			v, _ := res.Headers.Get("Connection")
			s.Equal("close", v)

			_, err := dec.Reader().ReadByte()
			s.ErrorIs(err, io.EOF)
		})
	}
}

func (s *ServerTestSuite) TestHandlerPanics() {
	s.handle = func(c *HandleContext, request *semantic.Request) *semantic.Response {
		panic("boom")
	}

	conn, dec := s.dial()
	defer conn.Close()

	res, body := s.roundtrip(conn, dec, "GET / HTTP/1.1\r\nHost: server\r\n\r\n")
	s.Equal(uint(500), res.Status.Code)
	s.Contains(string(body), "boom")
}

func (s *ServerTestSuite) TestConnectionClose() {
	s.handle = func(c *HandleContext, request *semantic.Request) *semantic.Response {
		return TextResponse(status.OK, "bye")
	}

	conn, dec := s.dial()
	defer conn.Close()

	res, body := s.roundtrip(conn, dec, "GET / HTTP/1.1\r\nHost: server\r\nConnection: close\r\n\r\n")
	s.Equal("bye", string(body))
	v, _ := res.Headers.Get("Connection")
	s.Equal("close", v)

	_, err := dec.Reader().ReadByte()
	s.ErrorIs(err, io.EOF)
}

func (s *ServerTestSuite) TestCloseDropsConnections() {
	s.handle = func(c *HandleContext, request *semantic.Request) *semantic.Response {
		return TextResponse(status.OK, "")
	}

	conn, _ := s.dial()
	defer conn.Close()

	s.NoError(s.server.Close())

	_, err := conn.Read(make([]byte, 1))
	s.ErrorIs(err, io.EOF)
}
