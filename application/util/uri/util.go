package uri

import (
	"net/netip"
	"strings"

	"silq/application/util/rule"

	"github.com/pkg/errors"
)

const maxHostLength = 255

// Character sets of RFC 3986 beyond unreserved and sub-delims.
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#appendix-A
const (
	pcharExtra    = ":@"
	userInfoExtra = ":"
	queryExtra    = ":@/?"
	genDelims     = ":/?#[]@"
	subDelims     = "!$&'()*+,;="
)

func containsCTL(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r < ' ' || r == 0x7f }) >= 0
}

func isSubDelim(c byte) bool { return strings.IndexByte(subDelims, c) >= 0 }

func isAlphaNum(c byte) bool {
	return rule.IsAlpha(rune(c)) || rule.IsDigit(rune(c))
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-2.3
func isUnreserved(c byte) bool {
	return isAlphaNum(c) || c == '-' || c == '.' || c == '_' || c == '~'
}

func isReserved(c byte) bool {
	return strings.IndexByte(genDelims, c) >= 0 || isSubDelim(c)
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-2.1
func isPercentEncoded(s string) bool {
	return len(s) == 3 && s[0] == '%' && rule.IsHex(rune(s[1])) && rule.IsHex(rune(s[2]))
}

// consistsOf reports whether s is made of unreserved characters,
// sub-delims, bytes of extra and percent-encoded octets only.
func consistsOf(s string, extra string) bool {
	for idx := 0; idx < len(s); idx++ {
		c := s[idx]
		switch {
		case isUnreserved(c), isSubDelim(c), strings.IndexByte(extra, c) >= 0:
		case idx+3 <= len(s) && isPercentEncoded(s[idx:idx+3]):
			idx += 2
		default:
			return false
		}
	}
	return true
}

func isValidUserInfo(s string) bool { return consistsOf(s, userInfoExtra) }

func isValidRegName(s string) bool { return consistsOf(s, "") }

func isQueryFragValid(s string) bool { return consistsOf(s, queryExtra) }

func assertValidScheme(scheme string) error {
	if scheme == "" {
		return errors.New("scheme is empty")
	}
	if !rule.IsAlpha(rune(scheme[0])) {
		return errors.New("scheme doesn't start with ALPHA")
	}

	rest := strings.TrimLeftFunc(scheme[1:], func(r rune) bool {
		return r < 0x80 && (isAlphaNum(byte(r)) || r == '+' || r == '-' || r == '.')
	})
	if rest != "" {
		return errors.Errorf("scheme contains invalid byte: %q", rest[0])
	}

	return nil
}

// AssertValidHost accepts IP literals, IPv4 addresses and reg-names.
// An empty reg-name is valid too.
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.2.2
func AssertValidHost(host string) error {
	if len(host) > maxHostLength {
		return errors.Errorf("host length exceeds limit(%d): %d", maxHostLength, len(host))
	}

	if literal, ok := strings.CutPrefix(host, "["); ok {
		literal, ok = strings.CutSuffix(literal, "]")
		if ok {
			if addr, err := netip.ParseAddr(literal); err == nil && addr.Is6() {
				return nil
			}
			if isIPvFuture(literal) {
				return nil
			}
		}
		return errors.New("host is expected to be IP Literal, but was malformed")
	}

	if addr, err := netip.ParseAddr(host); err == nil && addr.Is4() {
		return nil
	}
	if isValidRegName(host) {
		return nil
	}

	return errors.New("host is neither ipv4 addr nor valid reg-name")
}

// isIPvFuture matches "v" 1*HEXDIG "." 1*( unreserved / sub-delims / ":" ).
func isIPvFuture(s string) bool {
	version, rest, ok := strings.Cut(s, ".")
	if !ok || len(version) < 2 || version[0] != 'v' || rest == "" {
		return false
	}
	for _, c := range []byte(version[1:]) {
		if !rule.IsHex(rune(c)) {
			return false
		}
	}
	return !strings.Contains(rest, "%") && consistsOf(rest, ":")
}

func assertValidPath(path string, hasAuthority bool, isRelative bool) error {
	switch {
	case hasAuthority && path != "" && path[0] != '/':
		return errors.New("URI with authority must either be empty or start with '/'")
	case !hasAuthority && strings.HasPrefix(path, "//"):
		return errors.New("URI without authority should not start with '//'")
	}

	segments := strings.Split(path, "/")
	if isRelative && strings.Contains(segments[0], ":") {
		return errors.New("relative URI reference's first segment should not contain ':'")
	}

	for _, segment := range segments {
		if !consistsOf(segment, pcharExtra) {
			return errors.Errorf("path segment should be pchar: %q", segment)
		}
	}

	return nil
}
