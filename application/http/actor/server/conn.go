package server

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"strings"

	"silq/application/http"
	"silq/application/http/semantic"
	"silq/application/http/semantic/status"
	"silq/application/http/transfer"
	iolib "silq/lib/io"
	"silq/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// conn serves requests of one connection in order until either side closes.
type conn struct {
	con net.Conn

	dec *http.RequestDecoder
	enc *http.ResponseEncoder

	handle   HandleFunc
	transfer *transfer.CodingPipeliner
	clock    clock.Clock

	logger *slog.Logger

	opts Options
}

func (c *conn) start(ctx context.Context) {
	// Closing the conn is what unblocks a pending read on shutdown.
	stop := context.AfterFunc(ctx, func() { _ = c.con.Close() })
	defer stop()

	err := c.serve(ctx)
	_ = c.con.Close()

	switch {
	case err == nil, errors.Is(err, context.Canceled):
		c.logger.Debug("connection done")
	case errors.Is(err, transport.ErrConnClosed):
		c.logger.Debug("connection closed while serving")
	default:
		c.logger.Error("serving connection failed", "error", err)
	}
}

func (c *conn) serve(ctx context.Context) error {
	for {
		request, err := c.readRequest()
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, transport.ErrConnClosed):
			return ctx.Err()
		case err != nil:
			// A message that could not be read leaves the stream out of sync.
			// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-9
			return c.writeResponse(errorResponse(err), nil, true)
		}

		response, trailers, closeConn := c.handleRequest(ctx, request)
		if err := c.writeResponse(response, trailers, closeConn); err != nil || closeConn {
			return err
		}
	}
}

func (c *conn) handleRequest(ctx context.Context, request *semantic.Request) (*semantic.Response, []semantic.Field, bool) {
	hctx := &HandleContext{ctx: ctx, remoteAddr: c.con.RemoteAddr(), request: request}

	response, err := hctx.doHandle(c.handle)
	if err != nil {
		c.logger.Error("handler failed", "error", err)
		response = hctx.Error(err)
	}

	// Whatever the handler left unread would be taken as the next request.
	if _, err := io.Copy(io.Discard, request.Body); err != nil {
		hctx.CloseAfter()
	}

	return response, hctx.trailers, hctx.closeConn || wantsClose(request)
}

// readRequest returns the request with its body framed.
func (c *conn) readRequest() (*semantic.Request, error) {
	var raw http.Request
	if err := c.dec.Decode(&raw); err != nil {
		return nil, err
	}

	request, err := semantic.RequestFrom(&raw, c.opts.Parse)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create a semantic request")
	}

	if len(request.TransferEncoding) == 0 {
		// No framing header means no body.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.7
		if request.ContentLength == nil {
			request.Body = bytes.NewReader(nil)
		}
		return request, nil
	}

	// Without chunked last the body length cannot be determined.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.4.3
	if !request.IsChunked() {
		return nil, errors.New("transfer encoding without chunked. cannot determine body length")
	}

	if request.Body, err = c.transfer.Decode(request.Body, request.TransferEncoding, nil); err != nil {
		return nil, errors.Wrap(err, "applying transfer coding to body")
	}

	return request, nil
}

func (c *conn) writeResponse(response *semantic.Response, trailers []semantic.Field, closeConn bool) error {
	if closeConn {
		response.Headers.Set("Connection", "close")
	}

	// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-6.6.1-6
	response.Date = c.clock.Now()
	response.EnsureHeadersSet()

	body, err := c.framedBody(response, trailers)
	if err != nil {
		return errors.Wrap(err, "applying transfer coding to response")
	}
	response.Body = body

	if err := c.enc.Encode(response.RawResponse()); err != nil {
		return errors.Wrap(err, "writing response")
	}
	return nil
}

// framedBody returns the response body as it goes on the wire.
func (c *conn) framedBody(response *semantic.Response, trailers []semantic.Field) (io.Reader, error) {
	body := response.Body
	if body == nil {
		body = bytes.NewReader(nil)
	}

	switch {
	case len(response.TransferEncoding) > 0:
		sendTrailers := func() []http.Field {
			var h semantic.Headers
			for _, f := range trailers {
				h.Add(f.Name, f.Value)
			}
			return h.ToRawFields()
		}

		var encodeErr error
		framed := iolib.NewMiddlewareReader(body, func(wc io.WriteCloser) io.WriteCloser {
			w, err := c.transfer.Encode(wc, response.TransferEncoding, sendTrailers)
			if err != nil {
				encodeErr = err
				return iolib.NopWriteCloser(io.Discard)
			}
			return w
		})
		return framed, encodeErr
	case response.ContentLength != nil:
		return iolib.LimitReader(body, *response.ContentLength), nil
	default:
		return body, nil
	}
}

func wantsClose(request *semantic.Request) bool {
	if request.Version == http.Version10 {
		return true
	}
	v, _ := request.Headers.Get("Connection")
	return strings.EqualFold(strings.TrimSpace(v), "close")
}

// errorResponse answers a request that could not be read.
// Anything not specific is a bad request.
func errorResponse(err error) *semantic.Response {
	st := status.BadRequest
	switch {
	case errors.Is(err, semantic.ErrURITooLong):
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3-4
		st = status.URITooLong
	case errors.Is(err, transfer.ErrUnsupportedCoding):
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.1-11
		st = status.NotImplemented
	}
	return TextResponse(st, err.Error())
}
