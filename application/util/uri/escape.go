package uri

import (
	"strings"

	"github.com/pkg/errors"
)

type encodeMode uint

const (
	encodePath encodeMode = 1 + iota
	encodeHost
	encodeUserInfo
	encodeQuery
	encodeFragment
	encodeComponent
	encodeForm
)

// keptReserved lists the reserved characters each component may carry
// unescaped, on top of unreserved ones.
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3
var keptReserved = map[encodeMode]string{
	encodeUserInfo: subDelims + userInfoExtra,
	encodeHost:     subDelims + "[]:", // IP-literal brackets and port separator
	encodePath:     subDelims + pcharExtra + "/",
	encodeQuery:    subDelims + queryExtra,
	encodeFragment: subDelims + queryExtra,
}

// EscapeComponent percent-encodes everything but unreserved characters.
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-2.3
func EscapeComponent(s string) string { return escape(s, encodeComponent) }

// EscapeForm encodes s for application/x-www-form-urlencoded bodies.
// SP becomes '+', and '*', '-', '.', '_' and alphanumerics are kept.
// Reference: https://url.spec.whatwg.org/#urlencoded-serializing
func EscapeForm(s string) string { return escape(s, encodeForm) }

const upperHex = "0123456789ABCDEF"

func hex(c byte) [2]byte { return [2]byte{upperHex[c>>4], upperHex[c&0x0F]} }

func unhex(h [2]byte) byte { return fromHex(h[0])<<4 | fromHex(h[1]) }

// fromHex expects a hex digit and yields 0 for anything else.
func fromHex(h byte) byte {
	switch {
	case h >= 'a':
		h -= 'a' - 10
	case h >= 'A':
		h -= 'A' - 10
	default:
		h -= '0'
	}
	if h > 0x0F {
		return 0
	}
	return h
}

func shouldEscape(c byte, mode encodeMode) bool {
	if mode == encodeForm {
		return !isAlphaNum(c) && strings.IndexByte("*-._", c) < 0
	}
	if isUnreserved(c) {
		return false
	}
	return !isReserved(c) || strings.IndexByte(keptReserved[mode], c) < 0
}

func escape(s string, mode encodeMode) string {
	var sb strings.Builder
	sb.Grow(len(s))

	for i := range len(s) {
		switch c := s[i]; {
		case c == ' ' && mode == encodeForm:
			sb.WriteByte('+')
		case shouldEscape(c, mode):
			h := hex(c)
			sb.WriteByte('%')
			sb.Write(h[:])
		default:
			sb.WriteByte(c)
		}
	}

	return sb.String()
}

func unescape(s string) (string, error) {
	if strings.IndexByte(s, '%') < 0 {
		return s, nil
	}

	var sb strings.Builder
	sb.Grow(len(s))

	for rest := s; rest != ""; {
		before, after, found := strings.Cut(rest, "%")
		sb.WriteString(before)
		if !found {
			break
		}

		if len(after) < 2 || !isPercentEncoded("%"+after[:2]) {
			return "", errors.Errorf("percent encoding not properly applied: %q", "%"+after[:min(2, len(after))])
		}
		sb.WriteByte(unhex([2]byte{after[0], after[1]}))
		rest = after[2:]
	}

	return sb.String(), nil
}
