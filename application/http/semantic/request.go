package semantic

import (
	"net"
	"strconv"
	"strings"

	"silq/application/http"
	"silq/application/util/uri"

	"github.com/pkg/errors"
)

type Request struct {
	Message

	Method Method
	URI    uri.URI

	Host string
}

// NewRequest creates an outgoing HTTP/1.1 request.
// The Host field is added first, as recommended.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-7.2-5
func NewRequest(method Method, u uri.URI, host string) *Request {
	r := &Request{
		Message: Message{Version: http.Version11},
		Method:  method,
		URI:     u,
		Host:    host,
	}
	r.Headers.Add("Host", host)
	return r
}

type ParseRequestOptions struct {
	// IsForwardProxy accepts absolute-form targets only.
	IsForwardProxy bool

	// MaxURILen rejects longer targets with [ErrURITooLong]. Zero is no limit.
	MaxURILen uint
}

// RequestFrom interprets a decoded request, as a server would.
func RequestFrom(raw *http.Request, opts ParseRequestOptions) (*Request, error) {
	msg, err := createMessage(raw.Version, raw.Headers, raw.Body)
	if err != nil {
		return nil, err
	}
	request := &Request{Message: msg, Method: Method(raw.Method)}

	if request.Host, err = extractHost(request.Headers); err != nil {
		return nil, errors.Wrap(err, "extracting host")
	}

	if request.URI, err = parseTarget(raw.Target, request.Method, opts); err != nil {
		return nil, errors.Wrap(err, "failed to parse URI")
	}

	// An absolute-form target replaces the Host field.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.2-8
	if request.URI.IsAbsoluteURI() {
		request.Host = ""
		if a := request.URI.Authority; a != nil {
			request.Host = a.Raw
		}
		request.Headers.Set("Host", request.Host)
	}

	return request, nil
}

func (r *Request) EnsureHeadersSet() {
	r.Message.EnsureHeadersSet()

	r.Headers.Set("Host", r.Host)
}

// Target returns the request-target for the request line.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2
func (r *Request) Target() string {
	if r.Method == MethodConnect && r.URI.Authority != nil {
		// authority-form always carries the port.
		a := r.URI.Authority
		port := DefaultPort(r.URI.Scheme)
		if a.Port != nil {
			port = *a.Port
		}
		return net.JoinHostPort(a.Hostname(), strconv.FormatUint(uint64(port), 10))
	}

	return r.URI.RequestTarget()
}

func (r *Request) RawRequest() http.Request {
	return http.Request{
		RequestLine: http.RequestLine{
			Method:  string(r.Method),
			Target:  r.Target(),
			Version: r.Version,
		},
		Headers: r.Headers.ToRawFields(),
		Body:    r.Body,
	}
}

// extractHost validates the Host field and returns it as is, port included.
func extractHost(h Headers) (string, error) {
	v, ok := h.Get("Host")
	if !ok {
		return "", nil
	}

	host := v
	if colon := strings.LastIndexByte(v, ':'); colon >= 0 && !strings.HasSuffix(v, "]") {
		host = v[:colon]
	}

	if err := uri.AssertValidHost(host); err != nil {
		return "", errors.Wrap(err, "host value is not valid")
	}

	return v, nil
}

var ErrURITooLong = errors.New("uri too long")

// parseTarget parses a request-target in whichever of the four forms
// method allows.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2
func parseTarget(raw string, method Method, opts ParseRequestOptions) (uri.URI, error) {
	if opts.MaxURILen > 0 && uint(len(raw)) > opts.MaxURILen {
		return uri.URI{}, ErrURITooLong
	}

	switch {
	case method == MethodConnect:
		u, err := parseAuthorityForm(raw)
		return u, errors.Wrap(err, "failed to parse authority-form")
	case method == MethodOptions && raw == "*":
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.4
		return uri.URI{Path: "*"}, nil
	}

	u, err := uri.Parse(raw)
	if err != nil {
		return uri.URI{}, err
	}

	switch {
	case u.IsAbsoluteURI():
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.2
		if u.Scheme != "http" && u.Scheme != "https" {
			return uri.URI{}, errors.Errorf("scheme %q is not one of http, https", u.Scheme)
		}
		if u.Authority == nil {
			return uri.URI{}, errors.New("absolute-form needs authority")
		}
	case opts.IsForwardProxy:
		return uri.URI{}, errors.New("forward-proxy only allows absolute-form")
	case !strings.HasPrefix(u.Path, "/"):
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.1
		return uri.URI{}, errors.New("origin-form path should start with /")
	}

	return u, nil
}

// parseAuthorityForm accepts host ":" port only.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.3
func parseAuthorityForm(raw string) (uri.URI, error) {
	u, err := uri.Parse("//" + raw)
	if err != nil {
		return uri.URI{}, err
	}

	a := u.Authority
	switch {
	case a == nil || u.Path != "" || u.Query != nil || u.Fragment != nil:
		return uri.URI{}, errors.New("authority-form must be host and port only")
	case a.HasUserInfo():
		return uri.URI{}, errors.New("authority-form must not have userinfo")
	case a.Port == nil:
		return uri.URI{}, errors.New("port in authority form is required")
	}

	return uri.URI{Authority: a}, nil
}
