package iolib

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// MiddlewareReader reads src through a writer stack, such as a transfer
// coding. The stack is closed once src ends, so its trailing output
// (e.g. a last chunk) is read too.
type MiddlewareReader struct {
	src  io.Reader
	buf  *bytes.Buffer
	bufw io.WriteCloser

	closed bool
}

func NewMiddlewareReader(
	src io.Reader, middleware func(io.WriteCloser) io.WriteCloser,
) *MiddlewareReader {
	mr := &MiddlewareReader{
		src: src,
		buf: bytes.NewBuffer(nil),
	}
	mr.bufw = middleware(NopWriteCloser(mr.buf))
	return mr
}

func (mr *MiddlewareReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	// The stack may hold back output, so keep feeding it until some shows up.
	for mr.buf.Len() == 0 {
		if mr.closed {
			return 0, io.EOF
		}
		if err := mr.fill(p); err != nil {
			return 0, err
		}
	}

	return mr.buf.Read(p)
}

// fill moves one read of src through the stack, using scratch as the read buffer.
func (mr *MiddlewareReader) fill(scratch []byte) error {
	n, err := mr.src.Read(scratch)
	if err != nil && err != io.EOF {
		return errors.Wrap(err, "reading from source")
	}

	if _, werr := mr.bufw.Write(scratch[:n]); werr != nil {
		return errors.Wrap(werr, "writing to middleware")
	}

	if err == io.EOF {
		mr.closed = true
		if err := mr.bufw.Close(); err != nil {
			return errors.Wrap(err, "closing middleware")
		}
	}

	return nil
}
