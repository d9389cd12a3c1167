package client

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/netip"

	"silq/application/http"
	"silq/application/http/semantic"
	"silq/application/http/semantic/status"
	"silq/application/http/transfer"
	"silq/application/util/domain"
	"silq/lib/fault"
	"silq/session/tls"
	"silq/transport"

	"github.com/pkg/errors"
)

type exchangeTarget struct {
	secure     bool
	addr       transport.Addr
	serverName string
	ipLiteral  bool
}

type headResult struct {
	res *Response
	err error
}

// send connects, hands the connection to a driver task and waits for the
// response head. Every failure up to the head is a transport fault.
func (c *Client) send(ctx context.Context, target exchangeTarget, request *semantic.Request) (*Response, error) {
	start := c.clock.Now()

	addr, err := c.convertToAddr(ctx, target)
	if err != nil {
		return nil, fault.Wrap(fault.Transport, err, "converting authority to addr")
	}

	c.logger.Debug("dialing", slog.String("addr", addr.String()))

	con, err := c.dialer.Dial(ctx, addr)
	if err != nil {
		return nil, fault.Wrapf(fault.Transport, err, "connecting to %s", addr)
	}

	if target.secure {
		tlsConn, err := tls.Handshake(ctx, con, c.policy.ClientConfig(target.serverName))
		if err != nil {
			return nil, fault.Wrapf(fault.Transport, err, "securing connection to %s", target.serverName)
		}

		state := tlsConn.ConnectionState()
		c.logger.Debug("handshake done",
			slog.String("server_name", target.serverName),
			slog.Uint64("version", uint64(state.Version)),
			slog.Bool("client_auth", c.policy.Identity() != nil),
		)
		con = tlsConn
	}

	conn := &conn{
		con:      con,
		enc:      http.NewRequestEncoder(con, c.opts.Send.Encode),
		dec:      http.NewResponseDecoder(con, c.opts.Receive.Decode),
		transfer: c.transfer,
		logger:   c.logger,
		opts:     c.opts,
	}

	head := make(chan headResult, 1)
	err = c.ex.Go("http conn "+addr.String(), func(ctx context.Context) error {
		return conn.drive(ctx, request, head)
	})
	if err != nil {
		_ = con.Close()
		return nil, fault.Wrap(fault.Transport, err, "starting connection driver")
	}

	select {
	case r := <-head:
		if r.err != nil {
			return nil, fault.Wrap(fault.Transport, r.err, "error while request-response roundtrip")
		}

		r.res.elapsed = c.clock.Since(start)
		c.logger.Debug("response head received",
			slog.String("addr", addr.String()),
			slog.Uint64("status", uint64(r.res.StatusCode())),
			slog.Duration("elapsed", r.res.elapsed),
		)
		return r.res, nil
	case <-ctx.Done():
		return nil, fault.Wrap(fault.Transport, ctx.Err(), "waiting for response")
	}
}

func (c *Client) convertToAddr(ctx context.Context, target exchangeTarget) (transport.Addr, error) {
	if target.ipLiteral {
		return target.addr, nil
	}

	// Host is a domain name. Resolve it to the ip address.
	addrs, err := c.lookuper.LookupIP(ctx, target.addr.Host)
	if err != nil {
		return transport.Addr{}, errors.Wrapf(err, "lookup for host(%s) failed", target.addr.Host)
	}
	if len(addrs) == 0 {
		return transport.Addr{}, errors.Wrapf(domain.ErrDomainNotFound, "host(%s)", target.addr.Host)
	}

	// Lets simply use the first address.
	return transport.AddrFrom(netip.AddrPortFrom(addrs[0], target.addr.Port)), nil
}

// conn is a single-use connection. Its driver owns the socket from the
// request until the response body ends or is abandoned.
type conn struct {
	con net.Conn

	enc *http.RequestEncoder
	dec *http.ResponseDecoder

	transfer *transfer.CodingPipeliner
	logger   *slog.Logger

	opts Options
}

// frameFunc returns the next body frame, or io.EOF after the last one.
type frameFunc func() ([]byte, error)

func (c *conn) drive(ctx context.Context, request *semantic.Request, head chan<- headResult) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Closing the socket unblocks any pending read or write.
	stop := context.AfterFunc(ctx, func() { _ = c.con.Close() })
	defer stop()
	defer c.con.Close()

	stream := newBodyStream(cancel)

	res, next, err := c.roundtrip(request, stream.addTrailers)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		head <- headResult{err: err}
		return nil
	}

	res.body = stream
	head <- headResult{res: res}

	if next == nil {
		stream.finish(nil)
		return nil
	}

	if err := c.pump(ctx, next, stream); err != nil {
		if errors.Is(err, context.Canceled) {
			// Released by the caller, or the executor is shutting down.
			return err
		}
		if c.opts.DriverErrorSink != nil {
			c.opts.DriverErrorSink(err)
		}
		return err
	}

	return nil
}

func (c *conn) roundtrip(request *semantic.Request, onTrailer func(f []http.Field)) (*Response, frameFunc, error) {
	if err := c.enc.Encode(request.RawRequest()); err != nil {
		return nil, nil, errors.Wrap(err, "writing request")
	}

	var raw http.Response
	for {
		if err := c.dec.Decode(&raw); err != nil {
			return nil, nil, errors.Wrap(err, "reading response")
		}

		// Interim responses precede the final one, except a protocol switch.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.2
		if raw.StatusCode >= 200 || raw.StatusCode == status.SwitchingProtocols.Code {
			break
		}
		c.logger.Debug("skipping interim response", slog.Uint64("status", uint64(raw.StatusCode)))
	}

	response, err := semantic.ResponseFrom(&raw, request.Method)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create a semantic response")
	}

	if !c.opts.Receive.UseReceivedReasonPhrase || response.Status.ReasonPhrase == "" {
		// Overwrite the reason phrase with default one.
		if st, ok := status.FromCode(response.Status.Code); ok {
			response.Status.ReasonPhrase = st.ReasonPhrase
		}
	}

	next, err := c.bodyFrames(response, onTrailer)
	if err != nil {
		return nil, nil, errors.Wrap(err, "preparing body")
	}

	return newResponse(response), next, nil
}

// bodyFrames returns nil when the response has no content.
func (c *conn) bodyFrames(response *semantic.Response, onTrailer func(f []http.Field)) (frameFunc, error) {
	if response.Body == nil {
		return nil, nil
	}

	limit := c.opts.maxFrameSize()
	body := response.Body

	if len(response.TransferEncoding) > 0 {
		r, err := c.transfer.Decode(body, response.TransferEncoding, onTrailer)
		if err != nil {
			return nil, err
		}

		if chunked, ok := r.(*transfer.ChunkedReader); ok {
			// Body is delimited by last chunk. A frame never spans two chunks.
			// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.4.1
			return func() ([]byte, error) { return chunked.ReadChunk(limit) }, nil
		}

		// Without chunked as the final coding, the message is finished when
		// server closes connection.
		// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.4.2
		body = r
	}

	// Content-Length bodies are already limited. Anything else runs until close.
	buf := make([]byte, limit)
	return func() ([]byte, error) {
		n, err := body.Read(buf)
		if n > 0 {
			return bytes.Clone(buf[:n]), nil
		}
		return nil, err
	}, nil
}

func (c *conn) pump(ctx context.Context, next frameFunc, stream *bodyStream) (err error) {
	defer func() { stream.finish(err) }()

	for {
		data, rerr := next()
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return errors.Wrap(rerr, "reading body")
		}

		if len(data) == 0 {
			continue
		}

		select {
		case stream.frames <- data:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
