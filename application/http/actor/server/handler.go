package server

import (
	"context"
	"net"
	"strings"

	"silq/application/http/semantic"
	"silq/application/http/semantic/status"
	"silq/lib/types/pointer"

	"github.com/pkg/errors"
)

type HandleFunc func(c *HandleContext, request *semantic.Request) *semantic.Response

type HandleContext struct {
	ctx context.Context

	remoteAddr net.Addr

	request *semantic.Request

	closeConn bool
	trailers  []semantic.Field
}

func (c *HandleContext) doHandle(handle HandleFunc) (res *semantic.Response, err error) {
	defer func() {
		if e := recover(); e != nil {
			err = errors.Errorf("handler panicked: %v", e)
		}
	}()

	response := handle(c, c.request)
	if response == nil {
		return nil, errors.New("nil response is forbidden")
	}

	return response, nil
}

func (c *HandleContext) Context() context.Context { return c.ctx }
func (c *HandleContext) RemoteAddr() net.Addr     { return c.remoteAddr }

// CloseAfter closes the connection once the response is written.
func (c *HandleContext) CloseAfter() { c.closeConn = true }

// SetTrailers sets the trailer section of a chunked response.
func (c *HandleContext) SetTrailers(fields ...semantic.Field) {
	c.trailers = append(c.trailers[:0], fields...)
}

// Error answers with 500 and the error text, closing the connection.
func (c *HandleContext) Error(err error) *semantic.Response {
	c.closeConn = true
	return TextResponse(status.InternalServerError, err.Error())
}

// TextResponse is a response with a plain text body of known length.
func TextResponse(st status.Status, body string) *semantic.Response {
	res := semantic.NewResponse(st)
	res.Headers.Set("Content-Type", "text/plain; charset=utf-8")
	res.ContentLength = pointer.To(uint(len(body)))
	res.Body = strings.NewReader(body)
	return res
}
