package http

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"silq/application/util/rule"
	iolib "silq/lib/io"

	"github.com/pkg/errors"
)

type DecodeOptions struct {
	// AllowSoleLF accepts a bare LF as a line terminator.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	AllowSoleLF bool

	// LenientWhitespace turns every whitespace byte into SP and trims the
	// line on both ends.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3-3
	LenientWhitespace bool

	// Line length limits, terminator included. Zero is no limit.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3-5
	MaxFieldLineLength   uint
	MaxRequestLineLength uint
	MaxStatusLineLength  uint
}

var DefaultDecodeOptions = DecodeOptions{
	MaxFieldLineLength:   16 * 1024,
	MaxRequestLineLength: 8 * 1024,
	MaxStatusLineLength:  8 * 1024,
}

var (
	ErrMissingCRBeforeLF  = errors.New("missing CR before LF")
	ErrFieldLineTooLong   = errors.New("field line length exceeds limit")
	ErrMalformedFieldLine = errors.New("field line is malformed")
)

// MessageDecoder holds what request and response decoding share:
// line reading and the field section.
type MessageDecoder struct {
	br   *bufio.Reader
	opts DecodeOptions
}

// Reader gives access to the bytes following the decoded head.
func (md *MessageDecoder) Reader() *bufio.Reader { return md.br }

// readLine returns one line without its terminator.
func (md *MessageDecoder) readLine(limit uint) ([]byte, error) {
	b, err := iolib.ReadLine(md.br, limit)
	if err != nil {
		return nil, err
	}

	b = b[:len(b)-1]
	if trimmed, ok := bytes.CutSuffix(b, []byte{rule.CR}); ok {
		b = trimmed
	} else if !md.opts.AllowSoleLF {
		return nil, ErrMissingCRBeforeLF
	}

	if md.opts.LenientWhitespace {
		b = bytes.Map(func(r rune) rune {
			if rule.IsWhitespace(r) {
				return rune(rule.SP)
			}
			return r
		}, b)
		return bytes.Trim(b, " "), nil
	}

	// A bare CR inside a line is read as SP.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-4
	return bytes.ReplaceAll(b, []byte{rule.CR}, []byte{rule.SP}), nil
}

// DecodeFields reads field lines up to and including the empty line.
// It's shared by the header section and the chunked trailer section.
func (md *MessageDecoder) DecodeFields() ([]Field, error) {
	fields := make([]Field, 0)
	for {
		line, err := md.readLine(md.opts.MaxFieldLineLength)
		switch {
		case errors.Is(err, iolib.ErrLineTooLong):
			return nil, ErrFieldLineTooLong
		case err != nil:
			return nil, errors.Wrap(err, "reading line")
		case len(line) == 0:
			return fields, nil
		}

		field, err := ParseField(line)
		if err != nil {
			return nil, errors.Wrap(ErrMalformedFieldLine, err.Error())
		}
		fields = append(fields, field)
	}
}

// startLine describes how one kind of start line is read.
type startLine struct {
	limit     uint
	tooLong   error
	malformed error
	parse     func(line []byte) error
}

// decodeHead reads a start line and the header section after it.
// Empty lines before the start line are skipped.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-6
func (md *MessageDecoder) decodeHead(sl startLine) ([]Field, error) {
	var line []byte
	for len(line) == 0 {
		var err error
		if line, err = md.readLine(sl.limit); err != nil {
			if errors.Is(err, iolib.ErrLineTooLong) {
				return nil, sl.tooLong
			}
			return nil, errors.Wrap(err, "reading start line")
		}
	}

	if err := sl.parse(line); err != nil {
		return nil, errors.Wrap(sl.malformed, err.Error())
	}

	headers, err := md.DecodeFields()
	if err != nil {
		return nil, errors.Wrap(err, "parsing headers")
	}

	return headers, nil
}

var (
	ErrRequestLineTooLong   = errors.New("request line length exceeds limit")
	ErrMalformedRequestLine = errors.New("request line is malformed")
)

type RequestDecoder struct{ MessageDecoder }

func NewRequestDecoder(r io.Reader, opts DecodeOptions) *RequestDecoder {
	return &RequestDecoder{MessageDecoder{br: bufio.NewReader(r), opts: opts}}
}

// Decode reads a request head into r. r.Body is left at the start of the
// body, still transfer coded.
func (rd *RequestDecoder) Decode(r *Request) error {
	headers, err := rd.decodeHead(startLine{
		limit:     rd.opts.MaxRequestLineLength,
		tooLong:   ErrRequestLineTooLong,
		malformed: ErrMalformedRequestLine,
		parse: func(line []byte) (err error) {
			r.RequestLine, err = parseRequestLine(line)
			return err
		},
	})
	if err != nil {
		return err
	}

	r.Headers, r.Body = headers, rd.br
	return nil
}

// parseRequestLine parses method SP request-target SP HTTP-version.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3
func parseRequestLine(line []byte) (RequestLine, error) {
	parts := bytes.Split(line, []byte{rule.SP})
	if len(parts) != 3 {
		return RequestLine{}, errors.Errorf("expected 3 parts, got %d", len(parts))
	}

	method, target := string(parts[0]), string(parts[1])
	if !rule.IsValidToken(method) {
		return RequestLine{}, errors.Errorf("method is not a valid token: %q", method)
	}
	if target == "" {
		return RequestLine{}, errors.New("request target should not be empty")
	}

	ver, err := ParseVersion(parts[2])
	if err != nil {
		return RequestLine{}, errors.Wrap(err, "parsing version")
	}

	return RequestLine{Method: method, Target: target, Version: ver}, nil
}

var (
	ErrStatusLineTooLong   = errors.New("status line length exceeds limit")
	ErrMalformedStatusLine = errors.New("status line is malformed")
)

type ResponseDecoder struct{ MessageDecoder }

func NewResponseDecoder(r io.Reader, opts DecodeOptions) *ResponseDecoder {
	return &ResponseDecoder{MessageDecoder{br: bufio.NewReader(r), opts: opts}}
}

// Decode reads one response head. Calling it again reads the next head on
// the same stream, which is how interim (1xx) responses are skipped.
func (rd *ResponseDecoder) Decode(r *Response) error {
	headers, err := rd.decodeHead(startLine{
		limit:     rd.opts.MaxStatusLineLength,
		tooLong:   ErrStatusLineTooLong,
		malformed: ErrMalformedStatusLine,
		parse: func(line []byte) (err error) {
			r.StatusLine, err = parseStatusLine(line)
			return err
		},
	})
	if err != nil {
		return err
	}

	r.Headers, r.Body = headers, rd.br
	return nil
}

// parseStatusLine parses HTTP-version SP status-code [ SP reason-phrase ].
// The SP before an empty reason-phrase is optional in practice.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-4
func parseStatusLine(line []byte) (StatusLine, error) {
	parts := bytes.SplitN(line, []byte{rule.SP}, 3)
	if len(parts) < 2 {
		return StatusLine{}, errors.New("status code not found")
	}

	ver, err := ParseVersion(parts[0])
	if err != nil {
		return StatusLine{}, errors.Wrap(err, "parsing version")
	}

	code := string(parts[1])
	n, err := strconv.ParseUint(code, 10, 16)
	if err != nil || len(code) != 3 {
		return StatusLine{}, errors.Errorf("status code is malformed: %q", code)
	}

	statLine := StatusLine{Version: ver, StatusCode: uint(n)}
	if len(parts) == 3 {
		statLine.ReasonPhrase = string(parts[2])
	}

	return statLine, nil
}
