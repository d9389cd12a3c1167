package semantic

import (
	"time"

	"silq/application/http"
	"silq/application/http/semantic/status"
)

type Response struct {
	Message

	Status status.Status
	Date   time.Time
}

// NewResponse creates an outgoing HTTP/1.1 response.
func NewResponse(st status.Status) *Response {
	return &Response{
		Message: Message{Version: http.Version11},
		Status:  st,
	}
}

// ResponseFrom interprets a decoded response to a request made with method.
// Responses that can't have content get an empty body whatever their framing
// fields say.
func ResponseFrom(raw *http.Response, method Method) (*Response, error) {
	response := Response{
		Status: status.Status{Code: raw.StatusCode, ReasonPhrase: raw.ReasonPhrase},
	}

	body := raw.Body
	if !HasContent(method, raw.StatusCode) {
		body = nil
	}

	var err error
	response.Message, err = createMessage(raw.Version, raw.Headers, body)
	if err != nil {
		return nil, err
	}

	if body == nil {
		response.Body = nil
		response.ContentLength = nil
		response.TransferEncoding = nil
	}

	// An unparsable Date is treated as absent.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-6.6.1-8
	if v, ok := response.Headers.Get("Date"); ok {
		if date, err := ParseDate(v); err == nil {
			response.Date = date
		}
	}

	return &response, nil
}

// HasContent reports whether a response to method with code may carry content.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3
func HasContent(method Method, code uint) bool {
	switch {
	case method == MethodHead:
		return false
	case method == MethodConnect && 200 <= code && code < 300:
		return false
	case 100 <= code && code < 200:
		return false
	case code == 204, code == 304:
		return false
	}
	return true
}

// DelimitedByClose reports whether the body runs until the connection closes.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.8
func (r *Response) DelimitedByClose() bool {
	return r.Body != nil && r.ContentLength == nil && !r.IsChunked()
}

func (r *Response) EnsureHeadersSet() {
	r.Message.EnsureHeadersSet()

	if !r.Date.IsZero() {
		r.Headers.Set("Date", FormatDate(r.Date))
	}
}

func (r *Response) RawResponse() http.Response {
	return http.Response{
		StatusLine: http.StatusLine{
			Version:      r.Version,
			StatusCode:   r.Status.Code,
			ReasonPhrase: r.Status.ReasonPhrase,
		},
		Headers: r.Headers.ToRawFields(),
		Body:    r.Body,
	}
}
