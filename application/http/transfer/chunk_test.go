package transfer

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"silq/application/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ChunkedReaderTestSuite struct {
	suite.Suite
}

func TestChunkedReaderTestSuite(t *testing.T) {
	suite.Run(t, new(ChunkedReaderTestSuite))
}

func (s *ChunkedReaderTestSuite) TestRead() {
	body := "5;ext=foo\r\nABCDE\r\na\r\nFGHIJKLNMO\r\n0\r\nHello: World\r\n\r\n"

	var trailers []http.Field
	cr := NewChunkedCoder().NewReader(strings.NewReader(body)).(*ChunkedReader)
	cr.SetOnTrailerReceived(func(f []http.Field) { trailers = f })

	// Read never crosses a chunk boundary.
	var reads []string
	buf := make([]byte, 10)
	for _, size := range []int{2, 10, 10} {
		n, err := cr.Read(buf[:size])
		s.Require().NoError(err)
		reads = append(reads, string(buf[:n]))
	}
	s.Equal([]string{"AB", "CDE", "FGHIJKLNMO"}, reads)

	n, err := cr.Read(buf)
	s.ErrorIs(err, io.EOF)
	s.Zero(n)
	s.Equal([]http.Field{{Name: []byte("Hello"), Value: []byte("World")}}, trailers)
}

func (s *ChunkedReaderTestSuite) TestDecodeChunk() {
	testcases := []struct {
		desc       string
		input      string
		size       uint
		extensions [][2]string
		wantErr    bool
	}{
		{desc: "extension", input: "5;ext=foo\r\nABCDE\r\n", size: 5, extensions: [][2]string{{"ext", "foo"}}},
		{desc: "BWS around extension", input: "5 ; ext = foo\r\nABCDE\r\n", size: 5, extensions: [][2]string{{"ext", "foo"}}},
		{desc: "quoted extension", input: "1;n=\"a b\"\r\nZ\r\n", size: 1, extensions: [][2]string{{"n", "a b"}}},
		{desc: "empty line", input: "\r\n", wantErr: true},
		{desc: "not hex", input: "zz\r\n", wantErr: true},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			cr := NewChunkedReader(strings.NewReader(tc.input))

			err := cr.decodeChunk()
			if tc.wantErr {
				s.Error(err)
				return
			}

			s.Require().NoError(err)
			s.Equal(tc.size, cr.chunk.Size)
			s.Equal(tc.extensions, cr.chunk.Extensions)
			s.Same(cr.chunk, cr.LastChunk())
		})
	}
}

func (s *ChunkedReaderTestSuite) TestReadChunk() {
	br := bufio.NewReader(strings.NewReader("5\r\nABCDE\r\n3;name=\"quoted value\"\r\nFGH\r\n0\r\n\r\nNEXT"))
	cr := NewChunkedReader(br)

	trailerCalled := false
	cr.SetOnTrailerReceived(func(f []http.Field) {
		trailerCalled = true
		s.Empty(f)
	})

	for _, want := range []struct {
		limit uint
		data  string
	}{{3, "ABC"}, {3, "DE"}, {0, "FGH"}} {
		data, err := cr.ReadChunk(want.limit)
		s.Require().NoError(err)
		s.Equal(want.data, string(data))
	}
	s.Equal([][2]string{{"name", "quoted value"}}, cr.LastChunk().Extensions)

	for range 2 {
		_, err := cr.ReadChunk(0)
		s.ErrorIs(err, io.EOF)
	}
	s.True(trailerCalled)

	// The bytes after the body stay in the shared reader.
	rest, err := io.ReadAll(br)
	s.NoError(err)
	s.Equal("NEXT", string(rest))
}

func (s *ChunkedReaderTestSuite) TestReadChunkTruncated() {
	for _, input := range []string{
		"",
		"5\r\nAB",
		"2\r\nABxx",
		"2\r\nAB",
		"0\r\nFoo: Bar\r\n",
		"2\nAB\r\n",
		"0\r\nbad trailer\r\n\r\n",
	} {
		s.Run(input, func() {
			cr := NewChunkedReader(strings.NewReader(input))

			var err error
			for err == nil {
				_, err = cr.ReadChunk(0)
			}
			s.NotErrorIs(err, io.EOF)
		})
	}
}

func TestDecodeChunkSize(t *testing.T) {
	testcases := []struct {
		input    string
		expected uint
		wantErr  bool
	}{
		{input: "FF", expected: 0xFF},
		{input: "0", expected: 0},
		{input: "1a2B", expected: 0x1A2B},
		{input: "haha this aint hex", wantErr: true},
		{input: "-1", wantErr: true},
		{input: "", wantErr: true},
		{input: "FFFFFFFFFFFFFFFFFF", wantErr: true},
	}
	for _, tc := range testcases {
		t.Run(tc.input, func(t *testing.T) {
			size, err := decodeChunkSize([]byte(tc.input))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.expected, size)
		})
	}
}

type ChunkedWriterTestSuite struct {
	suite.Suite

	buf  *bytes.Buffer
	stub *stubWriteCloser
	cw   *ChunkedWriter
}

func TestChunkedWriterTestSuite(t *testing.T) {
	suite.Run(t, new(ChunkedWriterTestSuite))
}

func (s *ChunkedWriterTestSuite) SetupTest() {
	s.buf = bytes.NewBuffer(nil)
	s.stub = &stubWriteCloser{buf: s.buf}
	s.cw = NewChunkedCoder().NewWriter(s.stub).(*ChunkedWriter)
}

func (s *ChunkedWriterTestSuite) TestWrite() {
	// An empty write would read as the last chunk, so it writes nothing.
	n, err := s.cw.Write(nil)
	s.Require().NoError(err)
	s.Zero(n)
	s.Empty(s.buf.Bytes())

	s.cw.SetExtensions([][2]string{{"foo", "bar"}})
	n, err = s.cw.Write([]byte("ABC"))
	s.Require().NoError(err)
	s.Equal(3, n)

	// Extensions apply to one chunk only.
	_, err = s.cw.Write([]byte("123456789ABCDEF"))
	s.Require().NoError(err)

	s.Equal("3;foo=bar\r\nABC\r\nf\r\n123456789ABCDEF\r\n", s.buf.String())
	s.False(s.stub.closed)
}

func (s *ChunkedWriterTestSuite) TestClose() {
	testcases := []struct {
		desc     string
		trailers []http.Field
		expected string
	}{
		{desc: "no trailers", expected: "0\r\n\r\n"},
		{desc: "trailers", trailers: []http.Field{{Name: []byte("Foo"), Value: []byte("Bar")}}, expected: "0\r\nFoo: Bar\r\n\r\n"},
	}
	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			s.SetupTest()
			if tc.trailers != nil {
				s.cw.SetSendTrailers(func() []http.Field { return tc.trailers })
			}

			s.Require().NoError(s.cw.Close())
			s.Equal(tc.expected, s.buf.String())
			s.True(s.stub.closed)
		})
	}
}

func (s *ChunkedWriterTestSuite) TestRoundTrip() {
	s.cw.SetSendTrailers(func() []http.Field {
		return []http.Field{{Name: []byte("X-Sum"), Value: []byte("9")}}
	})
	for _, part := range []string{"alpha", "", "beta"} {
		_, err := s.cw.Write([]byte(part))
		s.Require().NoError(err)
	}
	s.Require().NoError(s.cw.Close())

	var trailers []http.Field
	cr := NewChunkedReader(s.buf)
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
	s.Equal([]string{"alpha", "beta"}, parts)
	s.Equal([]http.Field{{Name: []byte("X-Sum"), Value: []byte("9")}}, trailers)
}
