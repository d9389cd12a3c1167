package transfer

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"silq/application/http"
	"silq/application/util/rule"
	iolib "silq/lib/io"

	"github.com/pkg/errors"
)

// maxLineLength bounds chunk-size lines and trailer field lines.
const maxLineLength = 16 * 1024

// Chunk is the header of one chunk: its size and chunk extensions.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-7.1
type Chunk struct {
	Size       uint
	Extensions [][2]string
}

type ChunkedCoder struct{}

var _ Coder = ChunkedCoder{}

func NewChunkedCoder() ChunkedCoder { return ChunkedCoder{} }

func (ChunkedCoder) Coding() Coding { return CodingChunked }

func (ChunkedCoder) NewReader(r io.Reader) io.Reader { return NewChunkedReader(r) }

func (ChunkedCoder) NewWriter(w io.WriteCloser) io.WriteCloser { return NewChunkedWriter(w) }

type ChunkedReader struct {
	br *bufio.Reader

	chunk  *Chunk // nil between chunks
	last   *Chunk
	remain uint // data bytes left in chunk
	done   bool

	onTrailerReceived func(f []http.Field)
}

var _ io.Reader = (*ChunkedReader)(nil)

// NewChunkedReader converts chunked http message into byte stream.
// A *bufio.Reader is used as is, so bytes buffered past the body stay there.
func NewChunkedReader(r io.Reader) *ChunkedReader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &ChunkedReader{br: br}
}

// SetOnTrailerReceived registers f, which is called once the last chunk and
// its trailer section have been read.
func (cr *ChunkedReader) SetOnTrailerReceived(f func(f []http.Field)) {
	cr.onTrailerReceived = f
}

// LastChunk returns the most recently decoded chunk header.
func (cr *ChunkedReader) LastChunk() *Chunk { return cr.last }

// Read never returns data of two chunks at once.
func (cr *ChunkedReader) Read(b []byte) (int, error) {
	if err := cr.begin(); err != nil {
		return 0, err
	}

	if uint(len(b)) > cr.remain {
		b = b[:cr.remain]
	}

	n, err := cr.br.Read(b)
	return n, cr.advance(n, err)
}

// ReadChunk returns the rest of the current chunk, at most limit bytes of it
// when limit is non-zero. It never merges data of two chunks.
// io.EOF is returned after the last chunk and the trailers are read.
func (cr *ChunkedReader) ReadChunk(limit uint) ([]byte, error) {
	if err := cr.begin(); err != nil {
		return nil, err
	}

	size := cr.remain
	if limit > 0 {
		size = min(size, limit)
	}

	data := make([]byte, size)
	n, err := io.ReadFull(cr.br, data)
	if err := cr.advance(n, err); err != nil {
		return nil, err
	}

	return data, nil
}

// begin decodes the next chunk header unless a chunk is in progress.
// The last chunk consumes the trailer section and yields io.EOF.
func (cr *ChunkedReader) begin() error {
	switch {
	case cr.chunk != nil:
		return nil
	case cr.done:
		return io.EOF
	}

	if err := cr.decodeChunk(); err != nil {
		return errors.Wrap(err, "decoding chunk")
	}
	if cr.remain > 0 {
		return nil
	}

	cr.chunk = nil
	if err := cr.decodeTrailers(); err != nil {
		return errors.Wrap(err, "decoding trailer")
	}

	cr.done = true
	return io.EOF
}

// advance accounts n bytes of chunk data and consumes the CRLF that ends it.
func (cr *ChunkedReader) advance(n int, err error) error {
	cr.remain -= uint(n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return errors.Wrap(err, "reading chunk data")
	}

	if cr.remain > 0 {
		return nil
	}

	var crlf [2]byte
	if _, err := io.ReadFull(cr.br, crlf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return errors.Wrap(err, "reading chunk delimiter")
	}
	if !bytes.Equal(crlf[:], rule.CRLF) {
		return errors.New("CRLF delimiter not found")
	}

	cr.chunk = nil
	return nil
}

// decodeChunk reads chunk-size [ chunk-ext ] CRLF.
// BWS around ';' and '=' is tolerated, and quoted values are unquoted.
func (cr *ChunkedReader) decodeChunk() error {
	line, err := readLine(cr.br)
	if err != nil {
		return err
	}

	sizeRaw, extRaw, _ := bytes.Cut(line, []byte{';'})
	size, err := decodeChunkSize(bytes.TrimFunc(sizeRaw, rule.IsWhitespace))
	if err != nil {
		return errors.Wrap(err, "decoding chunk size")
	}

	chunk := &Chunk{Size: size}
	if len(extRaw) > 0 {
		for _, ext := range bytes.Split(extRaw, []byte{';'}) {
			k, v, _ := bytes.Cut(ext, []byte{'='})
			chunk.Extensions = append(chunk.Extensions, [2]string{
				string(bytes.TrimFunc(k, rule.IsWhitespace)),
				string(rule.Unquote(bytes.TrimFunc(v, rule.IsWhitespace))),
			})
		}
	}

	cr.chunk, cr.last, cr.remain = chunk, chunk, size
	return nil
}

func decodeChunkSize(b []byte) (uint, error) {
	if len(b) == 0 {
		return 0, errors.New("chunk size is empty")
	}

	if bytes.IndexFunc(b, func(r rune) bool { return !rule.IsHex(r) }) >= 0 {
		return 0, errors.Errorf("failed to decode hex: %q", string(b))
	}

	size, err := strconv.ParseUint(string(b), 16, 64)
	if err != nil {
		return 0, errors.Errorf("chunk size larger than 64bit: %q", string(b))
	}

	return uint(size), nil
}

func (cr *ChunkedReader) decodeTrailers() error {
	fields := make([]http.Field, 0)
	for {
		line, err := readLine(cr.br)
		if err != nil {
			return errors.Wrap(err, "reading line")
		}
		if len(line) == 0 {
			break
		}

		field, err := http.ParseField(line)
		if err != nil {
			return errors.Wrap(err, "parsing field")
		}
		fields = append(fields, field)
	}

	if cr.onTrailerReceived != nil {
		cr.onTrailerReceived(fields)
	}

	return nil
}

// ChunkedWriter writes every non-empty Write as one chunk.
type ChunkedWriter struct {
	w   io.WriteCloser
	buf bytes.Buffer

	extensions   [][2]string
	sendTrailers func() []http.Field
}

var _ io.WriteCloser = (*ChunkedWriter)(nil)

func NewChunkedWriter(w io.WriteCloser) *ChunkedWriter {
	return &ChunkedWriter{w: w}
}

// SetExtensions sets extensions of the next chunk only.
func (cw *ChunkedWriter) SetExtensions(extensions [][2]string) {
	cw.extensions = extensions
}

// SetSendTrailers registers f, which supplies the trailer section on Close.
func (cw *ChunkedWriter) SetSendTrailers(f func() []http.Field) {
	cw.sendTrailers = f
}

func (cw *ChunkedWriter) Write(p []byte) (int, error) {
	// A zero-size chunk would end the body.
	if len(p) == 0 {
		return 0, nil
	}

	cw.buf.Reset()
	cw.writeChunkLine(uint(len(p)))
	cw.buf.Write(p)
	cw.buf.Write(rule.CRLF)

	if _, err := cw.w.Write(cw.buf.Bytes()); err != nil {
		return 0, errors.Wrap(err, "writing chunk")
	}

	return len(p), nil
}

// Close writes the last chunk and the trailers, then closes the underlying writer.
func (cw *ChunkedWriter) Close() error {
	cw.buf.Reset()
	cw.writeChunkLine(0)

	if cw.sendTrailers != nil {
		for _, field := range cw.sendTrailers() {
			cw.buf.Write(field.Text())
			cw.buf.Write(rule.CRLF)
		}
	}
	cw.buf.Write(rule.CRLF)

	if _, err := cw.w.Write(cw.buf.Bytes()); err != nil {
		return errors.Wrap(err, "writing last chunk")
	}

	return cw.w.Close()
}

func (cw *ChunkedWriter) writeChunkLine(size uint) {
	cw.buf.WriteString(strconv.FormatUint(uint64(size), 16))
	for _, ext := range cw.extensions {
		cw.buf.WriteString(";" + ext[0] + "=" + ext[1])
	}
	cw.buf.Write(rule.CRLF)
	cw.extensions = nil
}

// readLine reads until CRLF and cuts it.
func readLine(br *bufio.Reader) ([]byte, error) {
	line, err := iolib.ReadLine(br, maxLineLength)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	line, ok := bytes.CutSuffix(line, rule.CRLF)
	if !ok {
		return nil, errors.New("missing CR before LF")
	}

	return line, nil
}
