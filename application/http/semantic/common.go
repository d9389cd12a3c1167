package semantic

import (
	"time"

	"github.com/pkg/errors"
)

// DefaultPort returns the port implied by an http(s) scheme, or 0.
func DefaultPort(scheme string) uint16 {
	return map[string]uint16{"http": 80, "https": 443}[scheme]
}

type Method string

const (
	MethodGet     Method = "GET"
	MethodHead    Method = "HEAD"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodConnect Method = "CONNECT"
	MethodOptions Method = "OPTIONS"
	MethodTrace   Method = "TRACE"
)

// ExpectsContent reports whether a request with this method carries content,
// so an empty body is still framed with "Content-Length: 0".
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.6-5
func (m Method) ExpectsContent() bool {
	return m == MethodPost || m == MethodPut || m == MethodPatch
}

// Accepted HTTP-date layouts, preferred first.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.7
var dateLayouts = []string{
	"Mon, 02 Jan 2006 15:04:05 GMT", // IMF-fixdate
	time.RFC850,                     // obsolete RFC 850 format
	time.ANSIC,                      // obsolete asctime format, always UTC
}

// ParseDate parses an HTTP-date. The result is in UTC.
func ParseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, errors.Errorf("invalid time format: %q", raw)
}

// FormatDate formats t as an IMF-fixdate.
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayouts[0])
}
