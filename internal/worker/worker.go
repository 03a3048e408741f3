// Package worker implements the worker handle: an isolated goroutine that
// owns one translation pipeline and translates one request at a time,
// talking to its owner only through messages.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"codeberg.org/snonux/ynlb/internal/log"
	"codeberg.org/snonux/ynlb/internal/protocol"
	"codeberg.org/snonux/ynlb/internal/translation"
)

var (
	// ErrBusy is returned when a request is already in flight
	ErrBusy = errors.New("worker is busy")
	// ErrTerminated is returned after Terminate
	ErrTerminated = errors.New("worker is terminated")
)

// Config is the configuration of a worker handle.
type Config struct {
	ID      int
	Factory translation.Factory
	Options translation.Options
	// Timeout bounds a single translation; zero disables it.
	Timeout time.Duration
	Logger  log.Logger
}

func (c *Config) defaults() error {
	if c.Factory == nil {
		return fmt.Errorf("pipeline factory is required")
	}
	if c.Options == (translation.Options{}) {
		c.Options = translation.DefaultOptions()
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "worker.Handle", "worker": c.ID})
	return nil
}

// Handle owns exactly one pipeline instance.
type Handle struct {
	id      int
	opts    translation.Options
	timeout time.Duration
	logger  log.Logger

	requests chan protocol.Request
	events   chan<- protocol.Event
	busy     atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Start creates the handle and loads its pipeline in the background. Load
// progress, partial updates and one terminal event per request are posted
// on events. If the pipeline cannot be loaded every request fails.
func Start(ctx context.Context, cfg Config, events chan<- protocol.Event) (*Handle, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if events == nil {
		return nil, fmt.Errorf("events channel is required")
	}

	hctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		id:       cfg.ID,
		opts:     cfg.Options,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		requests: make(chan protocol.Request, 1),
		events:   events,
		ctx:      hctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go h.run(cfg.Factory)

	return h, nil
}

// ID returns the handle identifier.
func (h *Handle) ID() int { return h.id }

// Submit hands a request to the worker without blocking.
func (h *Handle) Submit(req protocol.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if h.ctx.Err() != nil {
		return ErrTerminated
	}
	if !h.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}

	select {
	case h.requests <- req:
		return nil
	case <-h.ctx.Done():
		h.busy.Store(false)
		return ErrTerminated
	}
}

// Terminate stops the worker unconditionally, dropping in-flight work, and
// disposes the pipeline. Safe to call more than once.
func (h *Handle) Terminate() {
	h.cancel()
	<-h.done
}

func (h *Handle) run(factory translation.Factory) {
	defer close(h.done)

	pipeline, loadErr := factory(h.ctx, func(s translation.LoadStatus) {
		h.post(protocol.Load{Worker: h.id, State: s.State, File: s.File, Progress: s.Progress})
	})
	if loadErr != nil {
		h.logger.Errorf("Could not load translation pipeline: %s", loadErr)
	} else {
		h.logger.Debugf("Pipeline %s loaded", pipeline.Name())
		defer func() {
			if err := pipeline.Close(); err != nil {
				h.logger.Warningf("Could not close pipeline: %s", err)
			}
		}()
	}

	for {
		select {
		case <-h.ctx.Done():
			return
		case req := <-h.requests:
			if loadErr != nil {
				h.finish(protocol.Failed{Worker: h.id, Index: req.Index, Err: fmt.Errorf("pipeline not loaded: %w", loadErr)})
				continue
			}
			h.translate(pipeline, req)
		}
	}
}

func (h *Handle) translate(pipeline translation.Pipeline, req protocol.Request) {
	ctx := h.ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	var onUpdate func(string)
	if req.Stream {
		onUpdate = func(partial string) {
			h.post(protocol.Update{Worker: h.id, Index: req.Index, Text: partial})
		}
	}

	text, err := translation.Stream(ctx, pipeline, req.Text, h.opts, onUpdate)
	if h.ctx.Err() != nil {
		// Terminated: nobody is waiting for this result.
		return
	}
	if err != nil {
		h.logger.Errorf("Translation of item %d failed: %s", req.Index, err)
		h.finish(protocol.Failed{Worker: h.id, Index: req.Index, Err: err})
		return
	}

	h.finish(protocol.Completed{Worker: h.id, Index: req.Index, Text: text})
}

// finish frees the handle before posting so the receiver can submit the
// next request as soon as it sees the terminal event.
func (h *Handle) finish(ev protocol.Event) {
	h.busy.Store(false)
	h.post(ev)
}

func (h *Handle) post(ev protocol.Event) {
	select {
	case h.events <- ev:
	case <-h.ctx.Done():
	}
}
