package uri

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// URI holds decoded components. A URI built by hand carries no escapes;
// String and the Escaped methods add them back.
type URI struct {
	Scheme    string
	Authority *Authority
	Path      string
	Query     *string
	Fragment  *string

	// Escaped forms as they appeared in the parsed text.
	rawPath  string
	rawQuery *string
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-4.2
func (u *URI) IsRelativeRef() bool { return u.Scheme == "" }

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-4.3
func (u *URI) IsAbsoluteURI() bool { return u.Scheme != "" && u.Fragment == nil }

func (u *URI) IsValid() error {
	if u.Scheme != "" {
		if err := assertValidScheme(u.Scheme); err != nil {
			return errors.Wrap(err, "scheme is not valid")
		}
	}

	if a := u.Authority; a != nil {
		if !isValidUserInfo(escape(a.UserInfo, encodeUserInfo)) {
			return errors.New("userinfo is not valid")
		}
		if err := AssertValidHost(a.Host); err != nil {
			return errors.Wrap(err, "host is not valid")
		}
	}

	if err := assertValidPath(escape(u.Path, encodePath), u.Authority != nil, u.IsRelativeRef()); err != nil {
		return errors.Wrap(err, "path is not valid")
	}

	return nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-5.3
func (u *URI) String() string {
	var b strings.Builder
	if u.Scheme != "" {
		b.WriteString(u.Scheme + ":")
	}

	if a := u.Authority; a != nil {
		b.WriteString("//")
		if a.UserInfo != "" {
			b.WriteString(escape(a.UserInfo, encodeUserInfo) + "@")
		}
		b.WriteString(escape(a.Host, encodeHost))
		if a.Port != nil {
			b.WriteString(":" + strconv.Itoa(int(*a.Port)))
		}
	}

	b.WriteString(u.EscapedPath())
	if q, ok := u.EscapedQuery(); ok {
		b.WriteString("?" + q)
	}
	if u.Fragment != nil {
		b.WriteString("#" + escape(*u.Fragment, encodeFragment))
	}

	return b.String()
}

// EscapedPath prefers the form that was parsed, so "%2F" survives.
func (u *URI) EscapedPath() string {
	return preferRaw(&u.rawPath, u.Path, encodePath)
}

func (u *URI) EscapedQuery() (string, bool) {
	if u.Query == nil {
		return "", false
	}
	return preferRaw(u.rawQuery, *u.Query, encodeQuery), true
}

// preferRaw returns raw when it still decodes to decoded.
func preferRaw(raw *string, decoded string, mode encodeMode) string {
	if raw != nil && *raw != "" {
		if s, err := unescape(*raw); err == nil && s == decoded {
			return *raw
		}
	}
	return escape(decoded, mode)
}

// RequestTarget returns the origin-form of u.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.1
func (u *URI) RequestTarget() string {
	target := u.EscapedPath()
	if target == "" {
		target = "/"
	}
	if q, ok := u.EscapedQuery(); ok {
		target += "?" + q
	}
	return target
}

type Authority struct {
	UserInfo string
	Host     string

	// Port is nil when absent or empty. RFC 3986 allows any number of
	// digits, but only values that fit a TCP port are accepted.
	// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.2.3
	Port *uint16

	// Raw is the authority exactly as it appeared in the parsed text.
	Raw string
}

// Hostname strips the brackets of an IP literal.
func (a *Authority) Hostname() string {
	if inner, ok := strings.CutPrefix(a.Host, "["); ok {
		if inner, ok = strings.CutSuffix(inner, "]"); ok {
			return inner
		}
	}
	return a.Host
}

// HasUserInfo reports whether the raw authority carries a userinfo delimiter,
// even an empty one.
func (a *Authority) HasUserInfo() bool {
	return a.UserInfo != "" || strings.Contains(a.Raw, "@")
}
