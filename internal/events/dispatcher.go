package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nkiryanov/earlypulse/internal/logger"
)

const (
	defaultCountWorkers = 4
	defaultQueueSize    = 256
	defaultMaxAttempts  = 3
	defaultRetryDelay   = time.Second
)

var ErrQueueFull = errors.New("event queue is full")

type DispatcherConfig struct {
	CountWorkers int
	QueueSize    int

	// Attempts per event before it is dropped
	MaxAttempts int

	// Pause for all workers after failed publish
	RetryDelay time.Duration
}

// Dispatcher takes events off the request path: PublishOrderCreated only enqueues,
// workers deliver to the next publisher in background
type Dispatcher struct {
	next   Publisher
	logger logger.Logger

	countWorkers int
	maxAttempts  int
	retryDelay   time.Duration

	queue chan OrderCreated

	// Broker failed recently; workers wait until the time is up
	waitUntil atomic.Int64
}

func NewDispatcher(next Publisher, cfg DispatcherConfig, l logger.Logger) *Dispatcher {
	if cfg.CountWorkers <= 0 {
		cfg.CountWorkers = defaultCountWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Dispatcher{
		next:         next,
		logger:       l,
		countWorkers: cfg.CountWorkers,
		maxAttempts:  cfg.MaxAttempts,
		retryDelay:   cfg.RetryDelay,
		queue:        make(chan OrderCreated, cfg.QueueSize),
	}
}

// Never blocks. Returns ErrQueueFull if workers can't keep up
func (d *Dispatcher) PublishOrderCreated(_ context.Context, e OrderCreated) error {
	select {
	case d.queue <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Closes the next publisher. Call after Run stopped
func (d *Dispatcher) Close() error {
	if n := len(d.queue); n > 0 {
		d.logger.Warn("Dropping undelivered events", "count", n)
	}
	return d.next.Close()
}

// Start workers. Returned channel is closed when all of them stopped
func (d *Dispatcher) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for range d.countWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.worker(ctx)
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		d.logger.Debug("Event dispatcher stopped")
	}()

	return idleStopped
}

func (d *Dispatcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-d.queue:
			d.deliver(ctx, e)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, e OrderCreated) {
	for attempt := 1; ; attempt++ {
		if !d.wait(ctx) {
			return
		}

		err := d.next.PublishOrderCreated(ctx, e)
		if err == nil {
			return
		}

		if attempt >= d.maxAttempts {
			d.logger.Error("Order event dropped", "order", e.OrderID, "attempts", attempt, "error", err)
			return
		}

		d.logger.Warn("Order event publish failed, retrying", "order", e.OrderID, "attempt", attempt, "error", err)
		d.waitUntil.Store(time.Now().Add(d.retryDelay).UnixNano())
	}
}

// Wait until retry delay is passed. False if context is done first
func (d *Dispatcher) wait(ctx context.Context) bool {
	until := time.Unix(0, d.waitUntil.Load())
	if !until.After(time.Now()) {
		return true
	}

	t := time.NewTimer(time.Until(until))
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
