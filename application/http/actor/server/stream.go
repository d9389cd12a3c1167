package server

import (
	"io"

	"silq/application/http/semantic"
	"silq/application/http/semantic/status"
	"silq/application/http/transfer"
)

// ChunkedResponse sends each part as its own chunk.
func ChunkedResponse(st status.Status, parts ...[]byte) *semantic.Response {
	res := semantic.NewResponse(st)
	res.TransferEncoding = []transfer.Coding{transfer.CodingChunked}
	res.Body = &partReader{parts: parts}
	return res
}

// partReader yields at most one part per Read.
type partReader struct {
	parts [][]byte
}

func (pr *partReader) Read(p []byte) (int, error) {
	for len(pr.parts) > 0 && len(pr.parts[0]) == 0 {
		pr.parts = pr.parts[1:]
	}
	if len(pr.parts) == 0 {
		return 0, io.EOF
	}

	n := copy(p, pr.parts[0])
	pr.parts[0] = pr.parts[0][n:]
	return n, nil
}
