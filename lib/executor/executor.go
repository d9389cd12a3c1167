// Package executor provides the shared execution context of the engine.
//
// An [Executor] is created once by the host process and handed to every
// client. Detached tasks (connection drivers) run on it through [Executor.Go]
// and blocking entry points run through [Await], so callers always observe
// synchronous calls while the work itself is tracked in one place.
package executor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

var ErrShutdown = errors.New("executor is shut down")

type Executor struct {
	logger *slog.Logger
	clock  clock.Clock

	ctx    context.Context
	cancel context.CancelFunc

	wg       sync.WaitGroup
	mu       sync.Mutex
	shutdown bool // guards wg.Add after Shutdown
}

func New(logger *slog.Logger, clock clock.Clock) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Executor{
		logger: logger,
		clock:  clock,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (e *Executor) Logger() *slog.Logger { return e.logger }
func (e *Executor) Clock() clock.Clock   { return e.clock }

// Context is cancelled when the executor shuts down.
func (e *Executor) Context() context.Context { return e.ctx }

// Go runs task detached. Its error is logged and otherwise dropped,
// since nobody is left to receive it.
func (e *Executor) Go(name string, task func(ctx context.Context) error) error {
	if !e.track() {
		return ErrShutdown
	}

	go func() {
		defer e.wg.Done()

		if err := task(e.ctx); err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Warn("detached task failed", slog.String("task", name), slog.String("err", err.Error()))
		}
	}()

	return nil
}

// Await runs fn on the executor and blocks until it returns.
func Await[T any](e *Executor, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if !e.track() {
		return zero, ErrShutdown
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer e.wg.Done()

		v, err := fn(e.ctx)
		done <- result{v, err}
	}()

	r := <-done
	return r.v, r.err
}

// Shutdown cancels every running task and waits for them to return.
// It is safe to call more than once.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	e.shutdown = true
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
}

func (e *Executor) track() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shutdown {
		return false
	}

	e.wg.Add(1)
	return true
}
