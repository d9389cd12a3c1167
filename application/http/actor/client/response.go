package client

import (
	"context"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"silq/application/http"
	"silq/application/http/semantic"
	"silq/application/http/semantic/status"
	"silq/application/util/value"
	"silq/lib/fault"
)

// bodyStream carries frames from a connection driver to the response.
type bodyStream struct {
	frames chan []byte
	cancel context.CancelFunc

	err error // set before frames is closed

	mu       sync.Mutex
	trailers []semantic.Field
}

func newBodyStream(cancel context.CancelFunc) *bodyStream {
	return &bodyStream{
		frames: make(chan []byte),
		cancel: cancel,
	}
}

func (b *bodyStream) addTrailers(f []http.Field) {
	headers := semantic.HeadersFrom(f)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.trailers = append(b.trailers, headers.Fields()...)
}

func (b *bodyStream) finish(err error) {
	b.err = err
	close(b.frames)
}

// next blocks until the driver yields a frame.
// It returns io.EOF once the body has ended.
func (b *bodyStream) next() ([]byte, error) {
	data, ok := <-b.frames
	if ok {
		return data, nil
	}

	if b.err != nil {
		return nil, fault.Wrap(fault.Transport, b.err, "reading body frame")
	}
	return nil, io.EOF
}

// release stops the driver. It can be called any number of times.
func (b *bodyStream) release() { b.cancel() }

type bodyState uint8

const (
	bodyAvailable bodyState = iota
	bodyConsumed
)

// Response is the head of a response plus a body that can be taken once,
// either whole or as frames. It is not safe for concurrent use.
type Response struct {
	status  status.Status
	version http.Version
	headers semantic.Headers

	body  *bodyStream
	state bodyState

	elapsed time.Duration
}

func newResponse(r *semantic.Response) *Response {
	return &Response{
		status:  r.Status,
		version: r.Version,
		headers: r.Headers,
	}
}

func (r *Response) StatusCode() uint      { return r.status.Code }
func (r *Response) ReasonPhrase() string  { return r.status.ReasonPhrase }
func (r *Response) Version() http.Version { return r.version }

func (r *Response) IsInformational() bool { return r.status.IsInformational() }
func (r *Response) IsSuccess() bool       { return r.status.IsSuccessful() }
func (r *Response) IsRedirection() bool   { return r.status.IsRedirection() }
func (r *Response) IsClientError() bool   { return r.status.IsClientError() }
func (r *Response) IsServerError() bool   { return r.status.IsServerError() }

// Elapsed is the time from sending the request to receiving its head.
func (r *Response) Elapsed() time.Duration { return r.elapsed }

// Headers returns every field in receipt order.
func (r *Response) Headers() []semantic.Field { return r.headers.Fields() }

func (r *Response) FirstValue(name string) (string, bool) { return r.headers.Get(name) }

func (r *Response) AllValues(name string) []string { return r.headers.Values(name) }

func (r *Response) HeaderIterator() *HeaderIterator {
	return &HeaderIterator{fields: r.headers.Fields()}
}

// Trailers returns the trailer fields received so far.
// They are complete once the body is drained.
func (r *Response) Trailers() []semantic.Field {
	if r.body == nil {
		return nil
	}

	r.body.mu.Lock()
	defer r.body.mu.Unlock()
	return append([]semantic.Field(nil), r.body.trailers...)
}

func (r *Response) take() (*bodyStream, error) {
	if r.state == bodyConsumed {
		return nil, fault.New(fault.BodyConsumed, "response body was already consumed")
	}

	r.state = bodyConsumed
	return r.body, nil
}

// Bytes drains the body, keeping only its data.
func (r *Response) Bytes() ([]byte, error) {
	body, err := r.take()
	if err != nil {
		return nil, err
	}

	var buf []byte
	for {
		data, err := body.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			body.release()
			return nil, err
		}
		buf = append(buf, data...)
	}

	if buf == nil {
		buf = []byte{}
	}
	return buf, nil
}

func (r *Response) Text() (string, error) {
	b, err := r.Bytes()
	if err != nil {
		return "", err
	}

	if !utf8.Valid(b) {
		return "", fault.New(fault.Encoding, "response body is not valid UTF-8")
	}
	return string(b), nil
}

func (r *Response) JSON() (any, error) {
	b, err := r.Bytes()
	if err != nil {
		return nil, err
	}
	return value.UnmarshalJSON(b)
}

// Frames hands the body to a [FrameIterator] instead of draining it.
func (r *Response) Frames() (*FrameIterator, error) {
	body, err := r.take()
	if err != nil {
		return nil, err
	}
	return &FrameIterator{body: body}, nil
}

// Close releases the body, ending its connection. A body that was taken
// is released too, so Close is always safe to defer.
func (r *Response) Close() error {
	r.state = bodyConsumed
	if r.body != nil {
		r.body.release()
	}
	return nil
}
