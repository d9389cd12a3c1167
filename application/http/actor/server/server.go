// Package server is a small HTTP/1.1 origin server. It serves requests one at
// a time per connection and is what the client is exercised against.
package server

import (
	"context"
	"log/slog"
	"sync"

	"silq/application/http"
	"silq/application/http/transfer"
	"silq/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

type Server struct {
	l transport.Listener

	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *slog.Logger
	opts   Options

	handle   HandleFunc
	transfer *transfer.CodingPipeliner
	clock    clock.Clock
}

func New(
	l transport.Listener,
	logger *slog.Logger,
	clock clock.Clock,
	handle HandleFunc,
	opts Options,
) *Server {
	return &Server{
		l:        l,
		logger:   logger,
		opts:     opts,
		handle:   handle,
		clock:    clock,
		transfer: transfer.NewCodingPipeliner(opts.ExtraTransferCoders),
	}
}

func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			con, err := s.l.Accept(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, transport.ErrConnListenerClosed) {
					s.logger.Error(
						"unexpected error when accepting connection",
						"error", err.Error(),
					)
				}
				return
			}

			c := &conn{
				con:      con,
				dec:      http.NewRequestDecoder(con, s.opts.Decode),
				enc:      http.NewResponseEncoder(con, s.opts.Encode),
				handle:   s.handle,
				opts:     s.opts,
				logger:   s.logger.With("conn", con.RemoteAddr().String()),
				transfer: s.transfer,
				clock:    s.clock,
			}

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				c.start(ctx)
			}()
		}
	}()
}

// Close stops accepting, drops every open connection and waits for them.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	err := s.l.Close()
	s.wg.Wait()

	if errors.Is(err, transport.ErrConnListenerClosed) {
		return nil
	}
	return err
}
