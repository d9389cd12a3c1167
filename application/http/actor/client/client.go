// Package client sends HTTP/1.1 requests, optionally over TLS.
//
// A [Client] is built once from a security policy and reused for any number
// of requests. Each request goes through a [RequestBuilder] and is sent on a
// fresh connection. The connection is driven by a task on the shared
// [executor.Executor] until its response body is drained or closed.
package client

import (
	"log/slog"

	"silq/application/http/semantic"
	"silq/application/http/transfer"
	"silq/application/util/domain"
	"silq/lib/executor"
	"silq/session/tls"
	"silq/transport"
	"silq/transport/tcp"

	"github.com/benbjohnson/clock"
)

type Builder struct {
	ex *executor.Executor

	policy tls.PolicyBuilder

	dialer   transport.Dialer
	lookuper domain.Lookuper
	opts     *Options
}

func NewBuilder(ex *executor.Executor) *Builder {
	return &Builder{ex: ex}
}

func (b *Builder) AllowUnsecure(allow bool) *Builder {
	b.policy.AllowUnsecure = allow
	return b
}

func (b *Builder) WithClientAuthentication(id *tls.ClientIdentity) *Builder {
	b.policy.Identity = id
	return b
}

func (b *Builder) WithServerAuthentication(ca *tls.CertificateAuthority) *Builder {
	b.policy.CA = ca
	return b
}

func (b *Builder) WithDialer(d transport.Dialer) *Builder {
	b.dialer = d
	return b
}

func (b *Builder) WithLookuper(l domain.Lookuper) *Builder {
	b.lookuper = l
	return b
}

func (b *Builder) WithOptions(opts Options) *Builder {
	b.opts = &opts
	return b
}

// Build validates the security policy and freezes the client.
// It panics without an executor, as nothing can run before one exists.
func (b *Builder) Build() (*Client, error) {
	if b.ex == nil {
		panic("client: executor must be created before building a client")
	}

	policy, err := b.policy.Build()
	if err != nil {
		return nil, err
	}

	c := &Client{
		policy:   policy,
		ex:       b.ex,
		logger:   b.ex.Logger(),
		clock:    b.ex.Clock(),
		dialer:   b.dialer,
		lookuper: b.lookuper,
		opts:     DefaultOptions(),
	}

	if c.dialer == nil {
		c.dialer = tcp.NewDialer(tcp.Options{})
	}
	if c.lookuper == nil {
		c.lookuper = domain.NewResolverLookuper(nil)
	}
	if b.opts != nil {
		c.opts = *b.opts
	}

	c.transfer = transfer.NewCodingPipeliner(c.opts.ExtraTransferCoders)

	return c, nil
}

// Default builds a secure-only client trusting the platform roots.
func Default(ex *executor.Executor) *Client {
	c, err := NewBuilder(ex).Build()
	if err != nil {
		// A builder without material can't conflict.
		panic(err)
	}
	return c
}

// Client is immutable and safe for concurrent use.
type Client struct {
	policy tls.TransportSecurity

	ex     *executor.Executor
	logger *slog.Logger
	clock  clock.Clock

	dialer   transport.Dialer
	lookuper domain.Lookuper
	transfer *transfer.CodingPipeliner

	opts Options
}

func (c *Client) Policy() tls.TransportSecurity { return c.policy }

func (c *Client) Request(method semantic.Method, rawURI string) *RequestBuilder {
	return newRequestBuilder(c, method, rawURI)
}

func (c *Client) Head(rawURI string) *RequestBuilder {
	return c.Request(semantic.MethodHead, rawURI)
}

func (c *Client) Get(rawURI string) *RequestBuilder {
	return c.Request(semantic.MethodGet, rawURI)
}

func (c *Client) Post(rawURI string) *RequestBuilder {
	return c.Request(semantic.MethodPost, rawURI)
}

func (c *Client) Put(rawURI string) *RequestBuilder {
	return c.Request(semantic.MethodPut, rawURI)
}

func (c *Client) Patch(rawURI string) *RequestBuilder {
	return c.Request(semantic.MethodPatch, rawURI)
}

func (c *Client) Delete(rawURI string) *RequestBuilder {
	return c.Request(semantic.MethodDelete, rawURI)
}

func (c *Client) Connect(rawURI string) *RequestBuilder {
	return c.Request(semantic.MethodConnect, rawURI)
}

func (c *Client) Options(rawURI string) *RequestBuilder {
	return c.Request(semantic.MethodOptions, rawURI)
}

func (c *Client) Trace(rawURI string) *RequestBuilder {
	return c.Request(semantic.MethodTrace, rawURI)
}
