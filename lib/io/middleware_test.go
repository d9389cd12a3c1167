package iolib

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upperCase upper-cases what it is given and appends suffix on Close.
type upperCase struct {
	w        io.WriteCloser
	suffix   string
	writeErr error
	closeErr error
	closes   int
}

func (u *upperCase) Write(p []byte) (int, error) {
	if u.writeErr != nil {
		return 0, u.writeErr
	}
	return u.w.Write(bytes.ToUpper(p))
}

func (u *upperCase) Close() error {
	u.closes++
	if u.closeErr != nil {
		return u.closeErr
	}
	if _, err := io.WriteString(u.w, u.suffix); err != nil {
		return err
	}
	return u.w.Close()
}

func TestMiddlewareReader(t *testing.T) {
	input := strings.Repeat("abc", 10)

	testcases := []struct {
		desc     string
		src      io.Reader
		mw       *upperCase
		expected string
		wantErr  bool
	}{
		{desc: "transforms", src: strings.NewReader(input), mw: &upperCase{}, expected: strings.Repeat("ABC", 10)},
		{desc: "output on close", src: strings.NewReader(input), mw: &upperCase{suffix: "|end"}, expected: strings.Repeat("ABC", 10) + "|end"},
		{desc: "empty source", src: strings.NewReader(""), mw: &upperCase{suffix: "0"}, expected: "0"},
		{desc: "one byte reads", src: iotest.OneByteReader(strings.NewReader("xyz")), mw: &upperCase{}, expected: "XYZ"},
		{desc: "data with EOF", src: iotest.DataErrReader(strings.NewReader("xyz")), mw: &upperCase{suffix: "!"}, expected: "XYZ!"},
		{desc: "write error", src: strings.NewReader(input), mw: &upperCase{writeErr: errors.New("hey")}, wantErr: true},
		{desc: "close error", src: strings.NewReader(input), mw: &upperCase{closeErr: errors.New("hey")}, wantErr: true},
		{desc: "source error", src: iotest.ErrReader(errors.New("hey")), mw: &upperCase{}, wantErr: true},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			r := NewMiddlewareReader(tc.src, func(wc io.WriteCloser) io.WriteCloser {
				tc.mw.w = wc
				return tc.mw
			})

			b, err := io.ReadAll(r)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(b))
		})
	}
}

func TestMiddlewareReaderClosesOnce(t *testing.T) {
	mw := &upperCase{suffix: "|end"}
	r := NewMiddlewareReader(strings.NewReader("data"), func(wc io.WriteCloser) io.WriteCloser {
		mw.w = wc
		return mw
	})

	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "DATA|end", string(b))

	n, err := r.Read(make([]byte, 8))
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, mw.closes)
}

// stall returns (0, nil) a few times before each real read.
type stall struct {
	r     io.Reader
	calls int
}

func (s *stall) Read(p []byte) (int, error) {
	s.calls++
	if s.calls%3 != 0 {
		return 0, nil
	}
	return s.r.Read(p)
}

func TestMiddlewareReaderEmptyReads(t *testing.T) {
	r := NewMiddlewareReader(&stall{r: strings.NewReader("ab")}, func(wc io.WriteCloser) io.WriteCloser {
		return &upperCase{w: wc}
	})

	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "AB", string(b))
}
