// Package worker delivers queued submissions to the recommendation service.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/classpulse/internal/adapters/mq/queue"
	"github.com/okian/classpulse/internal/domain/dedupe"
	"github.com/okian/classpulse/pkg/logger"
	"github.com/okian/classpulse/pkg/metrics"
)

const (
	defaultWorkerCount  = 2
	poolShutdownTimeout = 30 * time.Second
)

// Submission abstracts what workers read off the queue.
type Submission = queue.Submission

// Deliverer sends one submission to its endpoint.
type Deliverer interface {
	Deliver(ctx context.Context, s Submission) error
}

// Forgetter drops an idempotency key after a failed delivery.
type Forgetter interface {
	Unrecord(ctx context.Context, id string)
}

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Submission
}

// Counters tallies delivery outcomes across workers.
type Counters struct {
	Delivered atomic.Int64
	Failed    atomic.Int64
}

// Worker processes submissions until stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker delivers submissions read from a Queue.
type InMemoryWorker struct {
	queue     Queue
	deliverer Deliverer
	forgetter Forgetter
	counters  *Counters
	name      string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker.
func NewInMemoryWorker(q Queue, d Deliverer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		deliverer: d,
		counters:  &Counters{},
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop. It returns when ctx is done, Shutdown is
// called or the queue is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case s, ok := <-items:
			if !ok {
				return
			}
			if err := w.process(ctx, s); err != nil {
				w.logger.Error(ctx, "delivery failed",
					logger.String("submission", s.ID),
					logger.String("kind", string(s.Kind)),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker and waits for the in-flight submission.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, s Submission) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := w.deliverer.Deliver(ctx, s); err != nil {
		w.counters.Failed.Add(1)
		metrics.RecordSubmission(string(s.Kind), "failed")
		metrics.RecordErrorByComponent("worker", "delivery_error")
		if w.forgetter != nil {
			w.forgetter.Unrecord(ctx, dedupe.Key(s))
		}
		return fmt.Errorf("deliver %s: %w", s.ID, err)
	}

	w.counters.Delivered.Add(1)
	metrics.RecordSubmission(string(s.Kind), "delivered")
	w.logger.Info(ctx, "submission delivered",
		logger.String("submission", s.ID),
		logger.String("kind", string(s.Kind)),
		logger.Int("entries", s.Size()),
	)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	counters *Counters
	logger   logger.Logger
}

// NewPool creates workerCount workers. A count below one uses the default.
func NewPool(workerCount int, q Queue, d Deliverer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		counters: &Counters{},
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i)), WithCounters(p.counters)}, opts...)
		p.workers[i] = NewInMemoryWorker(q, d, wopts...)
	}
	metrics.UpdateWorkerActiveCount(workerCount)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Delivered returns the number of successfully delivered submissions.
func (p *Pool) Delivered() int64 { return p.counters.Delivered.Load() }

// Failed returns the number of failed deliveries.
func (p *Pool) Failed() int64 { return p.counters.Failed.Load() }

// Shutdown closes the queue so workers drain it, then waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
