// Package dispatcher coordinates bulk translation runs: it owns a pool of
// worker handles and a FIFO queue of item indices and hands the next item
// to whichever handle finishes first.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"codeberg.org/snonux/ynlb/internal/batch"
	"codeberg.org/snonux/ynlb/internal/log"
	"codeberg.org/snonux/ynlb/internal/protocol"
	"codeberg.org/snonux/ynlb/internal/translation"
	"codeberg.org/snonux/ynlb/internal/worker"
)

const (
	MinWorkers = 1
	MaxWorkers = 10
)

var (
	// ErrRunning is returned for operations that need an idle dispatcher
	ErrRunning = errors.New("a translation run is in progress")
	// ErrNoItems is returned when a run is started without items
	ErrNoItems = errors.New("no items to translate")
	// ErrNoSuchItem is returned for out of range indices
	ErrNoSuchItem = errors.New("no such item")
)

// Status of a translation item
type Status string

const (
	StatusPending     Status = "pending"
	StatusTranslating Status = "translating"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// Item is one unique input line and its translation state
type Item struct {
	Source      string
	Translation string
	Status      Status
	Err         string
}

// Summary describes a finished run
type Summary struct {
	RunID     string
	Total     int
	Completed int
	Failed    int
	Workers   int
	Duration  time.Duration
}

// Config is the dispatcher configuration.
type Config struct {
	Workers  int
	Factory  translation.Factory
	Options  translation.Options
	Timeout  time.Duration
	Logger   log.Logger
	Observer Observer
}

func (c *Config) defaults() error {
	if c.Factory == nil {
		return fmt.Errorf("pipeline factory is required")
	}
	c.Workers = ClampWorkers(c.Workers)
	if c.Options == (translation.Options{}) {
		c.Options = translation.DefaultOptions()
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "dispatcher.Dispatcher"})
	if c.Observer == nil {
		c.Observer = NoopObserver{}
	}
	return nil
}

// ClampWorkers bounds n to the supported pool size
func ClampWorkers(n int) int {
	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}

// Dispatcher owns the item collection. Only the goroutine inside Run
// mutates items; the mutex lets other goroutines take snapshots.
type Dispatcher struct {
	factory  translation.Factory
	opts     translation.Options
	timeout  time.Duration
	logger   log.Logger
	observer Observer

	mu      sync.RWMutex
	items   []Item
	workers int
	running bool

	pool   []*worker.Handle
	events chan protocol.Event
}

// New returns an idle dispatcher without items. Worker handles are
// started lazily by the first run.
func New(cfg Config) (*Dispatcher, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Dispatcher{
		factory:  cfg.Factory,
		opts:     cfg.Options,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		observer: cfg.Observer,
		workers:  cfg.Workers,
	}, nil
}

// Load replaces the item collection with the cleaned, deduplicated lines.
func (d *Dispatcher) Load(lines []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return ErrRunning
	}

	cleaned := batch.Clean(lines)
	d.items = make([]Item, 0, len(cleaned))
	for _, line := range cleaned {
		d.items = append(d.items, Item{Source: line, Status: StatusPending})
	}
	return nil
}

// Delete removes the item at index.
func (d *Dispatcher) Delete(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return ErrRunning
	}
	if index < 0 || index >= len(d.items) {
		return fmt.Errorf("index %d: %w", index, ErrNoSuchItem)
	}
	d.items = append(d.items[:index], d.items[index+1:]...)
	return nil
}

// SetWorkers changes the pool size used by the next run.
func (d *Dispatcher) SetWorkers(n int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return ErrRunning
	}
	n = ClampWorkers(n)
	if n != d.workers {
		d.terminatePool()
		d.workers = n
	}
	return nil
}

// Workers returns the configured pool size
func (d *Dispatcher) Workers() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.workers
}

// Running reports whether a run is in progress
func (d *Dispatcher) Running() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// Items returns a snapshot of the collection
func (d *Dispatcher) Items() []Item {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Item(nil), d.items...)
}

// Progress returns the percentage of completed items
func (d *Dispatcher) Progress() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.progress()
}

// Finished reports whether there are items and none is pending or
// translating, which is when a report may be exported.
func (d *Dispatcher) Finished() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.running || len(d.items) == 0 {
		return false
	}
	for _, item := range d.items {
		if item.Status == StatusPending || item.Status == StatusTranslating {
			return false
		}
	}
	return true
}

// Close terminates the worker pool.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return ErrRunning
	}
	d.terminatePool()
	return nil
}

// Run translates every item and returns when each one is completed or
// failed. Cancelling ctx terminates the pool; items in flight go back to
// pending and the context error is returned.
func (d *Dispatcher) Run(ctx context.Context) (Summary, error) {
	queue, err := d.begin()
	if err != nil {
		return Summary{}, err
	}
	defer d.end()

	start := time.Now()
	summary := Summary{
		RunID:   ulid.Make().String(),
		Total:   len(queue),
		Workers: d.workers,
	}
	logger := d.logger.WithValues(log.Kv{"run": summary.RunID})
	logger.Infof("Starting run with %d items on %d workers", summary.Total, summary.Workers)
	d.observer.OnRunStart(summary.RunID, summary.Total, summary.Workers)

	if err := d.startPool(); err != nil {
		return summary, err
	}

	r := &run{d: d, queue: queue, logger: logger, summary: &summary}
	for _, h := range d.pool {
		r.assignNext(h)
	}

	for r.remaining() > 0 {
		select {
		case <-ctx.Done():
			logger.Warningf("Run cancelled: %s", ctx.Err())
			d.cancelRun()
			summary.Duration = time.Since(start)
			return summary, ctx.Err()
		case ev := <-d.events:
			r.handle(ev)
		}
	}

	summary.Duration = time.Since(start)
	logger.Infof("Run finished: %d completed, %d failed in %s", summary.Completed, summary.Failed, summary.Duration)
	d.observer.OnRunEnd(summary)

	return summary, nil
}

// begin resets every item to pending and returns the FIFO queue.
func (d *Dispatcher) begin() ([]int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil, ErrRunning
	}
	if len(d.items) == 0 {
		return nil, ErrNoItems
	}

	d.running = true
	queue := make([]int, len(d.items))
	for i := range d.items {
		d.items[i] = Item{Source: d.items[i].Source, Status: StatusPending}
		queue[i] = i
	}
	return queue, nil
}

func (d *Dispatcher) end() {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}

func (d *Dispatcher) startPool() error {
	if d.pool != nil {
		return nil
	}

	// Handles never block on each other while the run loop is busy.
	events := make(chan protocol.Event, d.workers*4)
	pool := make([]*worker.Handle, 0, d.workers)
	for id := 0; id < d.workers; id++ {
		h, err := worker.Start(context.Background(), worker.Config{
			ID:      id,
			Factory: d.factory,
			Options: d.opts,
			Timeout: d.timeout,
			Logger:  d.logger,
		}, events)
		if err != nil {
			for _, started := range pool {
				started.Terminate()
			}
			return fmt.Errorf("could not start worker %d: %w", id, err)
		}
		pool = append(pool, h)
	}

	d.pool = pool
	d.events = events
	return nil
}

// terminatePool must be called with mu held or from the run goroutine.
func (d *Dispatcher) terminatePool() {
	for _, h := range d.pool {
		h.Terminate()
	}
	d.pool = nil
	d.events = nil
}

func (d *Dispatcher) cancelRun() {
	d.terminatePool()

	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.items {
		if d.items[i].Status == StatusTranslating {
			d.items[i].Status = StatusPending
		}
	}
}

func (d *Dispatcher) progress() float64 {
	if len(d.items) == 0 {
		return 0
	}
	completed := 0
	for _, item := range d.items {
		if item.Status == StatusCompleted {
			completed++
		}
	}
	return float64(completed) / float64(len(d.items)) * 100
}
