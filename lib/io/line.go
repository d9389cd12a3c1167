package iolib

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

var ErrLineTooLong = errors.New("line length exceeds limit")

// ReadLine reads from br until LF. The output includes the LF.
//
// A non-zero limit caps the line length, LF included. Reading stops as soon
// as the limit is passed, so an endless line never gets buffered whole.
// io.EOF is returned only when nothing was read at all.
func ReadLine(br *bufio.Reader, limit uint) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	for {
		b, err := br.ReadSlice('\n')
		buf.Write(b)

		if limit > 0 && uint(buf.Len()) > limit {
			return nil, ErrLineTooLong
		}

		switch {
		case err == nil:
			return buf.Bytes(), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if buf.Len() == 0 {
				return nil, io.EOF
			}
			return nil, io.ErrUnexpectedEOF
		default:
			return nil, err
		}
	}
}
