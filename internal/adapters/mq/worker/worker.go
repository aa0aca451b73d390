// Package worker runs dispatched jobs off the queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/simuq/internal/domain/jobstatus"
	"github.com/okian/simuq/internal/domain/model"
	"github.com/okian/simuq/pkg/logger"
	"github.com/okian/simuq/pkg/metrics"
)

// Default worker configuration constants.
const (
	metricsUpdateInterval = 5 * time.Second
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Failure reasons reported to metrics.
const (
	ReasonValidation = "validation"
	ReasonEvaluation = "evaluation"
	ReasonStore      = "store"
	ReasonTimeout    = "timeout"
	ReasonInternal   = "internal"
)

// Runner executes one job and persists its record.
type Runner interface {
	Run(ctx context.Context, job model.Job) (model.Record, error)
}

// StatusSetter records job progress for lookups.
type StatusSetter interface {
	Set(ctx context.Context, jobID, status string)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Job
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing jobs.
type InMemoryWorker struct {
	queue      Queue
	runner     Runner
	status     StatusSetter
	name       string
	jobTimeout time.Duration

	// called after every job, success or not
	onProcessed func()

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, runner Runner, status StatusSetter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		runner:   runner,
		status:   status,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "job failed",
					logger.String("job_id", job.ID),
					logger.String("model", job.Model),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker after the job in flight.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
}

// processJob runs a single job. Failed jobs leave no record; the failure is
// visible only through status, logs and metrics.
func (w *InMemoryWorker) processJob(ctx context.Context, job model.Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	metrics.AddWorkerBusy(1)
	defer func() {
		elapsed := float64(time.Since(start).Microseconds()) / 1000.0
		metrics.AddWorkerBusy(-1)
		metrics.RecordWorkerProcessingLatency(elapsed)
		metrics.RecordJobDuration(string(job.Kind), elapsed)
		if w.onProcessed != nil {
			w.onProcessed()
		}
	}()

	w.setStatus(ctx, job.ID, jobstatus.StatusRunning)

	runCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	rec, err := w.runner.Run(runCtx, job)
	if err != nil {
		reason := Classify(err)
		w.setStatus(ctx, job.ID, jobstatus.StatusFailed)
		metrics.RecordJobFailed(reason)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", reason)
		metrics.RecordErrorByType(reason, severity(reason))
		return fmt.Errorf("job %s: %w", job.ID, err)
	}

	w.setStatus(ctx, job.ID, jobstatus.StatusCompleted)
	metrics.RecordJobCompleted(string(job.Kind))
	w.logger.Debug(ctx, "job completed",
		logger.String("job_id", rec.JobID),
		logger.String("kind", string(job.Kind)),
	)
	return nil
}

func (w *InMemoryWorker) setStatus(ctx context.Context, id, status string) {
	if w.status != nil {
		w.status.Set(ctx, id, status)
	}
}

// Classify maps a job error onto its failure reason.
func Classify(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, model.ErrValidation):
		return ReasonValidation
	case errors.Is(err, model.ErrEvaluation):
		return ReasonEvaluation
	case errors.Is(err, model.ErrStore):
		return ReasonStore
	default:
		return ReasonInternal
	}
}

func severity(reason string) string {
	switch reason {
	case ReasonValidation:
		return "low"
	case ReasonEvaluation, ReasonTimeout:
		return "medium"
	default:
		return "high"
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdown     chan struct{}
	shutdownOnce sync.Once

	processedCount    atomic.Int64
	lastProcessedTime time.Time

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive count uses one worker
// per CPU, since jobs are CPU bound.
func NewPool(workerCount int, queue Queue, runner Runner, status StatusSetter, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers:           make([]*InMemoryWorker, workerCount),
		queue:             queue,
		shutdown:          make(chan struct{}),
		lastProcessedTime: time.Now(),
		logger:            logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append(append([]Option(nil), opts...), WithName("worker-"+strconv.Itoa(i)))
		w := NewInMemoryWorker(queue, runner, status, workerOpts...)
		w.onProcessed = pool.RecordProcessedJob
		pool.workers[i] = w
	}

	metrics.UpdateWorkerActiveCount(workerCount)
	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerJobsPerSecond(0.0)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}

	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

func (p *Pool) updateMetrics() {
	now := time.Now()
	if elapsed := now.Sub(p.lastProcessedTime).Seconds(); elapsed > 0 {
		metrics.UpdateWorkerJobsPerSecond(float64(p.processedCount.Swap(0)) / elapsed)
	}
	p.lastProcessedTime = now
}

// RecordProcessedJob increments the processed job count.
func (p *Pool) RecordProcessedJob() {
	p.processedCount.Add(1)
}

// Stop signals every worker and waits briefly for each.
func (p *Pool) Stop() {
	p.signal()

	for _, worker := range p.workers {
		select {
		case <-worker.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

func (p *Pool) signal() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
		for _, worker := range p.workers {
			worker.stop()
		}
	})
}

// Shutdown closes the queue and lets workers drain what is already queued.
// Workers still busy when ctx (or the pool timeout) expires are told to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	p.signal()
	metrics.UpdateWorkerActiveCount(0)

	if timedOut {
		return fmt.Errorf("pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
