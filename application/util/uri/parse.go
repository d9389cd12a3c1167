package uri

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Parse parses a URI or a relative reference and decodes its components.
// Scheme and host are lower-cased.
func Parse(rawURL string) (URI, error) {
	if containsCTL(rawURL) {
		return URI{}, errors.New("URI should not contain CTL bytes")
	}

	scheme, rest, err := cutScheme(rawURL)
	if err != nil {
		return URI{}, errors.Wrap(err, "getting scheme")
	}
	uri := URI{Scheme: strings.ToLower(scheme)}

	if hierPart, ok := strings.CutPrefix(rest, "//"); ok {
		end := strings.IndexAny(hierPart, "/?#")
		if end < 0 {
			end = len(hierPart)
		}

		authority, err := parseAuthority(hierPart[:end])
		if err != nil {
			return URI{}, errors.Wrap(err, "parsing authority")
		}
		uri.Authority, rest = &authority, hierPart[end:]
	}

	rest, frag, hasFrag := strings.Cut(rest, "#")
	path, query, hasQuery := strings.Cut(rest, "?")

	if err := assertValidPath(path, uri.Authority != nil, uri.IsRelativeRef()); err != nil {
		return URI{}, errors.Wrap(err, "path is not valid")
	}
	if uri.Path, err = unescape(path); err != nil {
		return URI{}, errors.Wrap(err, "unescaping path")
	}
	uri.rawPath = path

	if hasQuery {
		decoded, err := decodeQueryFrag(query)
		if err != nil {
			return URI{}, errors.Wrap(err, "query is not valid")
		}
		uri.Query, uri.rawQuery = &decoded, &query
	}

	if hasFrag {
		decoded, err := decodeQueryFrag(frag)
		if err != nil {
			return URI{}, errors.Wrap(err, "frag is not valid")
		}
		uri.Fragment = &decoded
	}

	return uri, nil
}

func decodeQueryFrag(s string) (string, error) {
	if !isQueryFragValid(s) {
		return "", errors.Errorf("invalid byte in %q", s)
	}
	return unescape(s)
}

// cutScheme splits off the scheme. A colon after the first '/', '?' or '#'
// belongs to a later component, so such text has no scheme.
func cutScheme(rawURL string) (scheme, rest string, err error) {
	before, after, found := strings.Cut(rawURL, ":")
	if !found || strings.ContainsAny(before, "/?#") {
		return "", rawURL, nil
	}

	if err := assertValidScheme(before); err != nil {
		return "", "", err
	}

	return before, after, nil
}

func parseAuthority(raw string) (Authority, error) {
	authority := Authority{Raw: raw}

	hostPort := raw
	if at := strings.LastIndex(raw, "@"); at >= 0 {
		userInfo := raw[:at]
		hostPort = raw[at+1:]

		if !isValidUserInfo(userInfo) {
			return Authority{}, errors.New("user information is not valid")
		}
		decoded, err := unescape(userInfo)
		if err != nil {
			return Authority{}, errors.Wrap(err, "unescaping user information")
		}
		authority.UserInfo = decoded
	}

	host, port, err := splitHostPort(hostPort)
	if err != nil {
		return Authority{}, errors.Wrap(err, "parsing host")
	}

	if authority.Port, err = parsePort(port); err != nil {
		return Authority{}, errors.Wrap(err, "parsing port")
	}

	decoded, err := unescape(host)
	if err != nil {
		return Authority{}, errors.Wrap(err, "unescaping host")
	}
	authority.Host = strings.ToLower(decoded)

	return authority, nil
}

// splitHostPort returns the host and whatever follows it, colon included.
func splitHostPort(raw string) (host string, port string, err error) {
	host = raw
	if strings.HasPrefix(raw, "[") {
		end := strings.LastIndex(raw, "]")
		if end < 0 {
			return "", "", errors.New("missing ']' in IP Literal")
		}
		host, port = raw[:end+1], raw[end+1:]
	} else if colon := strings.LastIndex(raw, ":"); colon >= 0 {
		host, port = raw[:colon], raw[colon:]
	}

	if err := AssertValidHost(host); err != nil {
		return "", "", errors.Wrap(err, "host is not valid")
	}

	return host, port, nil
}

// parsePort accepts "", ":" and ":" followed by a decimal port without
// leading zeros. The first two mean the scheme's default port.
// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-6.2.3
func parsePort(s string) (*uint16, error) {
	if s == "" {
		return nil, nil
	}

	digits, ok := strings.CutPrefix(s, ":")
	if !ok {
		return nil, errors.New("colon delimiter not found on port")
	}
	if digits == "" {
		return nil, nil
	}

	if len(digits) > 1 && digits[0] == '0' {
		return nil, errors.New("port has leading zero")
	}

	n, err := strconv.ParseUint(digits, 10, 16)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse uint")
	}

	port := uint16(n)
	return &port, nil
}
