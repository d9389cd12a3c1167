// Package http holds the HTTP/1.1 message syntax: start lines, field lines
// and their encoders and decoders. Meaning is given by package semantic.
package http

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"silq/application/util/rule"

	"github.com/pkg/errors"
)

type RequestLine struct {
	Method  string
	Target  string
	Version Version
}

type Request struct {
	RequestLine
	Headers []Field

	// Body may be nil for an empty body.
	Body io.Reader
}

type StatusLine struct {
	Version      Version
	StatusCode   uint
	ReasonPhrase string
}

type Response struct {
	StatusLine
	Headers []Field

	// Body is everything after the header section, still transfer coded.
	Body io.Reader
}

// Version is [major, minor].
type Version [2]uint

var (
	Version10 = Version{1, 0}
	Version11 = Version{1, 1}
)

// ParseVersion parses HTTP-version, e.g. "HTTP/1.1".
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.3
func ParseVersion(b []byte) (Version, error) {
	digits, ok := bytes.CutPrefix(b, []byte("HTTP/"))
	if !ok {
		return Version{}, errors.Errorf("http version prefix not found: %q", b)
	}

	major, minor, ok := bytes.Cut(digits, []byte{'.'})
	if !ok {
		return Version{}, errors.Errorf("dot separator not found on version: %q", b)
	}

	var ver Version
	for i, part := range [][]byte{major, minor} {
		n, err := strconv.ParseUint(string(part), 10, 32)
		if err != nil {
			return Version{}, errors.Errorf("http version is not a number: %q", b)
		}
		ver[i] = uint(n)
	}

	return ver, nil
}

func (ver Version) Text() []byte { return []byte(ver.String()) }

func (ver Version) String() string { return fmt.Sprintf("HTTP/%d.%d", ver[0], ver[1]) }

// Field is one field line. Name keeps the case it was received or set in.
type Field struct{ Name, Value []byte }

// ParseField parses field-name ":" OWS field-value OWS.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.1
func ParseField(fieldLine []byte) (Field, error) {
	name, value, found := bytes.Cut(fieldLine, []byte{':'})
	if !found {
		return Field{}, errors.Errorf("colon separator not found on header: %q", fieldLine)
	}

	// No whitespace is allowed between field name and colon.
	if bytes.HasSuffix(name, []byte{rule.SP}) || bytes.HasSuffix(name, []byte{rule.HTAB}) {
		return Field{}, errors.New("field name has trailing whitespace")
	}

	// Also rejects obs-fold continuation lines, which start with whitespace.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.2
	if !rule.IsValidFieldName(string(name)) {
		return Field{}, errors.Errorf("invalid field name: %q", name)
	}

	return Field{Name: name, Value: bytes.Trim(value, string(rule.OWS))}, nil
}

// Text returns the field line as it is sent.
func (f *Field) Text() []byte {
	line := make([]byte, 0, len(f.Name)+2+len(f.Value))
	line = append(line, f.Name...)
	line = append(line, ':', ' ')
	return append(line, f.Value...)
}
