package http

import (
	"bufio"
	"io"
	"strconv"

	"silq/application/util/rule"

	"github.com/pkg/errors"
)

type EncodeOptions struct {
	// UseSoleLF terminates lines with a bare LF instead of CRLF.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	UseSoleLF bool
}

var DefaultEncodeOptions = EncodeOptions{}

// MessageEncoder writes a start line, the header section and the body.
// The head is flushed before the body so the peer can start parsing it.
type MessageEncoder struct {
	bw   *bufio.Writer
	opts EncodeOptions
}

func newMessageEncoder(w io.Writer, opts EncodeOptions) MessageEncoder {
	return MessageEncoder{bw: bufio.NewWriter(w), opts: opts}
}

func (me *MessageEncoder) writeLine(parts ...string) {
	for _, part := range parts {
		me.bw.WriteString(part)
	}
	if me.opts.UseSoleLF {
		me.bw.WriteByte(rule.LF)
	} else {
		me.bw.Write(rule.CRLF)
	}
}

func (me *MessageEncoder) encodeHeaders(headers []Field) error {
	for _, field := range headers {
		me.writeLine(string(field.Text()))
	}
	me.writeLine()

	return errors.Wrap(me.bw.Flush(), "writing head")
}

func (me *MessageEncoder) encode(startLine []string, headers []Field, body io.Reader) error {
	me.writeLine(startLine...)
	if err := me.encodeHeaders(headers); err != nil {
		return err
	}

	if body == nil {
		return nil
	}

	if _, err := me.bw.ReadFrom(body); err != nil {
		return errors.Wrap(err, "writing body")
	}

	return errors.Wrap(me.bw.Flush(), "flushing body")
}

type RequestEncoder struct{ MessageEncoder }

func NewRequestEncoder(w io.Writer, opts EncodeOptions) *RequestEncoder {
	return &RequestEncoder{newMessageEncoder(w, opts)}
}

func (re *RequestEncoder) Encode(request Request) error {
	l := request.RequestLine
	startLine := []string{l.Method, " ", l.Target, " ", l.Version.String()}

	return errors.Wrap(re.encode(startLine, request.Headers, request.Body), "encoding request")
}

type ResponseEncoder struct{ MessageEncoder }

func NewResponseEncoder(w io.Writer, opts EncodeOptions) *ResponseEncoder {
	return &ResponseEncoder{newMessageEncoder(w, opts)}
}

func (re *ResponseEncoder) Encode(response Response) error {
	l := response.StatusLine
	code := strconv.FormatUint(uint64(l.StatusCode), 10)
	startLine := []string{l.Version.String(), " ", code, " ", l.ReasonPhrase}

	return errors.Wrap(re.encode(startLine, response.Headers, response.Body), "encoding response")
}
