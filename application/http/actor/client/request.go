package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/netip"
	"strconv"
	"strings"

	"silq/application/http/semantic"
	"silq/application/util/uri"
	"silq/application/util/value"
	"silq/lib/executor"
	"silq/lib/fault"
	"silq/lib/types/pointer"
	"silq/transport"

	"golang.org/x/net/http/httpguts"
	"golang.org/x/net/idna"
)

// payload is nil when the request has no content.
type payload []byte

// RequestBuilder accumulates one request. The first failing step is kept and
// turns later steps into no-ops, so calls can be chained and checked once
// at [RequestBuilder.Send].
type RequestBuilder struct {
	client *Client

	scheme     string
	addr       transport.Addr
	serverName string
	ipLiteral  bool

	request *semantic.Request
	payload payload

	err   error
	spent bool
}

func newRequestBuilder(client *Client, method semantic.Method, rawURI string) *RequestBuilder {
	rb := &RequestBuilder{client: client}
	rb.err = rb.init(method, rawURI)
	return rb
}

func (rb *RequestBuilder) init(method semantic.Method, rawURI string) error {
	u, err := uri.Parse(rawURI)
	if err != nil {
		return fault.Wrapf(fault.URI, err, "parsing %q", rawURI)
	}

	if u.Scheme == "" {
		return fault.New(fault.URI, "uri has no scheme")
	}

	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case "https":
	case "http":
		if !rb.client.policy.AllowsUnsecure() {
			return fault.New(fault.SecurityPolicy, "unsecure connections are not allowed")
		}
	default:
		return fault.Newf(fault.URI, "unsupported scheme %q", u.Scheme)
	}

	port := semantic.DefaultPort(scheme)

	if u.Authority == nil {
		return fault.New(fault.URI, "uri has no authority")
	}

	// Credentials belong in headers, never in the uri.
	if strings.Contains(u.Authority.Raw, "@") {
		return fault.New(fault.URI, "uri must not contain userinfo")
	}

	host := u.Authority.Hostname()
	if host == "" {
		return fault.New(fault.URI, "uri has no host")
	}
	if u.Authority.Port != nil {
		port = *u.Authority.Port
	}

	hostField := u.Authority.Raw
	ipLiteral := false
	if ip, err := netip.ParseAddr(host); err == nil {
		host = ip.String()
		ipLiteral = true
	} else {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return fault.Wrap(fault.URI, err, "converting host to ascii")
		}
		if ascii != host {
			// Field values must be ASCII.
			hostField = ascii
			if u.Authority.Port != nil {
				hostField += ":" + strconv.FormatUint(uint64(*u.Authority.Port), 10)
			}
		}
		host = ascii
	}

	rb.scheme = scheme
	rb.addr = transport.Addr{Host: host, Port: port}
	rb.serverName = host
	rb.ipLiteral = ipLiteral
	rb.request = semantic.NewRequest(method, u, hostField)

	return nil
}

func (rb *RequestBuilder) Method() semantic.Method {
	if rb.request == nil {
		return ""
	}
	return rb.request.Method
}

func (rb *RequestBuilder) URI() *uri.URI {
	if rb.request == nil {
		return nil
	}
	return &rb.request.URI
}

// Address is the host:port the request is sent to.
func (rb *RequestBuilder) Address() string {
	if rb.request == nil {
		return ""
	}
	return rb.addr.String()
}

func (rb *RequestBuilder) Headers() []semantic.Field {
	if rb.request == nil {
		return nil
	}
	return rb.request.Headers.Fields()
}

// Err returns the first error of the chain so far.
func (rb *RequestBuilder) Err() error { return rb.err }

func (rb *RequestBuilder) ok() bool { return rb.err == nil && !rb.spent }

// WithHeaders adds every entry of headers in order. With update, an entry
// replaces all existing fields of its name instead of being appended.
func (rb *RequestBuilder) WithHeaders(headers *value.Map, update bool) *RequestBuilder {
	if !rb.ok() {
		return rb
	}

	for name, v := range headers.All() {
		text, err := value.Text(v)
		if err != nil {
			rb.err = fault.Wrapf(fault.Header, err, "value of %q", name)
			return rb
		}

		if err := validateField(name, text); err != nil {
			rb.err = err
			return rb
		}

		if update {
			rb.request.Headers.Set(name, text)
		} else {
			rb.request.Headers.Add(name, text)
		}
	}

	return rb
}

// WithRawCookies appends one Cookie field holding cookies as is.
func (rb *RequestBuilder) WithRawCookies(cookies *value.Map) *RequestBuilder {
	return rb.withCookies(cookies, func(s string) string { return s })
}

// WithSafeCookies is like [RequestBuilder.WithRawCookies],
// with every value percent-encoded.
func (rb *RequestBuilder) WithSafeCookies(cookies *value.Map) *RequestBuilder {
	return rb.withCookies(cookies, uri.EscapeComponent)
}

func (rb *RequestBuilder) withCookies(cookies *value.Map, encode func(string) string) *RequestBuilder {
	if !rb.ok() || cookies.Len() == 0 {
		return rb
	}

	pairs := make([]string, 0, cookies.Len())
	for name, v := range cookies.All() {
		text, err := value.Text(v)
		if err != nil {
			rb.err = fault.Wrapf(fault.Header, err, "cookie %q", name)
			return rb
		}
		pairs = append(pairs, name+"="+encode(text))
	}

	cookie := strings.Join(pairs, "; ")
	if err := validateField("Cookie", cookie); err != nil {
		rb.err = err
		return rb
	}

	rb.request.Headers.Add("Cookie", cookie)
	return rb
}

// WithBody leaves Content-Type untouched.
func (rb *RequestBuilder) WithBody(body []byte) *RequestBuilder {
	if !rb.ok() {
		return rb
	}

	rb.payload = bytes.Clone(body)
	if rb.payload == nil {
		rb.payload = payload{}
	}
	return rb
}

func (rb *RequestBuilder) WithJSON(v any) *RequestBuilder {
	if !rb.ok() {
		return rb
	}

	b, err := value.MarshalJSON(v)
	if err != nil {
		rb.err = err
		return rb
	}

	rb.request.Headers.Set("Content-Type", "application/json")
	rb.payload = b
	return rb
}

func (rb *RequestBuilder) WithForm(v any) *RequestBuilder {
	if !rb.ok() {
		return rb
	}

	b, err := value.MarshalForm(v)
	if err != nil {
		rb.err = err
		return rb
	}

	rb.request.Headers.Set("Content-Type", "application/x-www-form-urlencoded")
	rb.payload = b
	return rb
}

// Reference: https://datatracker.ietf.org/doc/html/rfc7617#section-2
func (rb *RequestBuilder) WithBasicAuth(user, password string) *RequestBuilder {
	credentials := base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
	return rb.withAuthorization("Basic " + credentials)
}

// Reference: https://datatracker.ietf.org/doc/html/rfc6750#section-2.1
func (rb *RequestBuilder) WithBearerAuth(token string) *RequestBuilder {
	return rb.withAuthorization("Bearer " + token)
}

func (rb *RequestBuilder) withAuthorization(v string) *RequestBuilder {
	if !rb.ok() {
		return rb
	}

	if err := validateField("Authorization", v); err != nil {
		rb.err = err
		return rb
	}

	rb.request.Headers.Set("Authorization", v)
	return rb
}

func validateField(name, v string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return fault.Newf(fault.Header, "invalid field name %q", name)
	}
	if !httpguts.ValidHeaderFieldValue(v) {
		return fault.Newf(fault.Header, "invalid value for field %q", name)
	}
	return nil
}

// finalize moves the request out of the builder, framing its payload.
func (rb *RequestBuilder) finalize() *semantic.Request {
	request := rb.request
	rb.request, rb.spent = nil, true

	switch {
	case rb.payload != nil:
		request.ContentLength = pointer.To(uint(len(rb.payload)))
		request.Body = bytes.NewReader(rb.payload)
	case request.Method.ExpectsContent():
		// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.6-5
		request.ContentLength = pointer.To(uint(0))
	}
	rb.payload = nil

	request.EnsureHeadersSet()
	return request
}

// Send transmits the request and blocks until the response head arrives.
// The builder is spent afterwards.
func (rb *RequestBuilder) Send() (*Response, error) {
	if rb.err != nil {
		return nil, rb.err
	}
	if rb.spent {
		return nil, fault.New(fault.Configuration, "request was already sent")
	}

	c := rb.client
	target := exchangeTarget{
		secure:     rb.scheme == "https",
		addr:       rb.addr,
		serverName: rb.serverName,
		ipLiteral:  rb.ipLiteral,
	}
	request := rb.finalize()

	res, err := executor.Await(c.ex, func(ctx context.Context) (*Response, error) {
		return c.send(ctx, target, request)
	})
	if err != nil {
		if _, ok := fault.KindOf(err); !ok {
			err = fault.Wrap(fault.Transport, err, "sending request")
		}
		return nil, err
	}

	return res, nil
}
