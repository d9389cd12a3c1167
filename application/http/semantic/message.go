package semantic

import (
	"io"
	"slices"
	"strconv"
	"strings"

	"silq/application/http"
	"silq/application/http/transfer"
	iolib "silq/lib/io"

	"github.com/pkg/errors"
)

// Message is what requests and responses share once the framing headers
// are interpreted.
type Message struct {
	Version http.Version
	Headers Headers

	// ContentLength is nil when the header is absent or overridden by
	// Transfer-Encoding.
	ContentLength    *uint
	TransferEncoding []transfer.Coding

	Body io.Reader
}

// createMessage interprets the framing headers of a decoded message.
// A Content-Length body is cut at the declared length.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6
func createMessage(ver http.Version, fields []http.Field, body io.Reader) (Message, error) {
	msg := Message{Version: ver, Headers: HeadersFrom(fields), Body: body}

	// Transfer-Encoding overrides Content-Length.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.3
	if te := msg.Headers.Values("Transfer-Encoding"); len(te) > 0 {
		msg.TransferEncoding = transfer.ParseCodings(te)
		return msg, nil
	}

	length, err := extractContentLength(msg.Headers)
	if err != nil {
		return Message{}, errors.Wrap(err, "extracting content length")
	}

	msg.ContentLength = length
	if length != nil && body != nil {
		msg.Body = iolib.LimitReader(body, *length)
	}

	return msg, nil
}

// IsChunked reports whether chunked is the final transfer coding.
func (m *Message) IsChunked() bool {
	n := len(m.TransferEncoding)
	return n > 0 && m.TransferEncoding[n-1] == transfer.CodingChunked
}

// EnsureHeadersSet writes ContentLength and TransferEncoding back to Headers.
func (m *Message) EnsureHeadersSet() {
	if m.ContentLength != nil {
		m.Headers.Set("Content-Length", strconv.FormatUint(uint64(*m.ContentLength), 10))
	}

	if len(m.TransferEncoding) == 0 {
		return
	}
	m.Headers.Del("Transfer-Encoding")
	for _, coding := range m.TransferEncoding {
		m.Headers.Add("Transfer-Encoding", string(coding))
	}
}

// extractContentLength reads Content-Length. Repeated fields and list
// members are accepted only when they all carry the same value.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.6-8
func extractContentLength(h Headers) (*uint, error) {
	var lengths []uint64
	for _, value := range h.Values("Content-Length") {
		for member := range strings.SplitSeq(value, ",") {
			n, err := strconv.ParseUint(strings.TrimSpace(member), 10, 64)
			if err != nil {
				return nil, errors.Wrap(err, "failed to parse Content-Length")
			}
			lengths = append(lengths, n)
		}
	}

	switch lengths = slices.Compact(lengths); len(lengths) {
	case 0:
		return nil, nil
	case 1:
		length := uint(lengths[0])
		return &length, nil
	default:
		return nil, errors.Errorf("conflicting Content-Length values: %v", lengths)
	}
}
