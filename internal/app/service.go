// Package service wires ingress, the job queue, the worker pool, the
// result store and lookups into the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/simuq/internal/adapters/biorefinery"
	jobqueue "github.com/okian/simuq/internal/adapters/mq/queue"
	workerpool "github.com/okian/simuq/internal/adapters/mq/worker"
	"github.com/okian/simuq/internal/adapters/repository"
	"github.com/okian/simuq/internal/domain/jobstatus"
	"github.com/okian/simuq/internal/domain/model"
	"github.com/okian/simuq/internal/domain/sampling"
	"github.com/okian/simuq/internal/domain/simulation"
	"github.com/okian/simuq/internal/domain/uncertainty"
	"github.com/okian/simuq/pkg/logger"
	"github.com/okian/simuq/pkg/metrics"
)

// Default service configuration.
const (
	defaultQueueSize     = 1024
	defaultStatusSize    = 50000
	defaultMaxSamples    = 100_000
	defaultStopTimeout   = 30 * time.Second
	nanosecondsPerSecond = 1e9
)

// Service implements the API dependencies for the simulation job system.
type Service struct {
	mu sync.RWMutex

	// Core components
	models    *simulation.Registry
	store     repository.Store
	queue     *jobqueue.InMemoryQueue
	status    jobstatus.Tracker
	runner    *uncertainty.Runner
	lookup    *uncertainty.Lookup
	pool      *workerpool.Pool
	sampler   *sampling.Sampler
	cancelRun context.CancelFunc

	// Configuration
	workerCount    int
	queueSize      int
	statusSize     int
	maxSamples     int
	storeConfig    repository.Config
	ownsStore      bool
	persistPValues bool
	jobTimeout     time.Duration
	stopTimeout    time.Duration

	// Ingress identity and time, replaceable in tests
	newID func() string
	now   func() time.Time

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithStatusSize bounds the number of tracked job states.
func WithStatusSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.statusSize = size
		}
	}
}

// WithMaxSamples caps the sample count an uncertainty request may ask for.
func WithMaxSamples(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSamples = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithModels sets the model registry. Without it Start loads every
// built-in biorefinery model.
func WithModels(models *simulation.Registry) Option {
	return func(s *Service) {
		s.models = models
	}
}

// WithStore injects a result store. The caller keeps ownership.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithStoreConfig selects the backend Start opens when no store is injected.
func WithStoreConfig(cfg repository.Config) Option {
	return func(s *Service) {
		s.storeConfig = cfg
	}
}

// WithSampler sets the sampler used for uncertainty studies.
func WithSampler(sampler *sampling.Sampler) Option {
	return func(s *Service) {
		s.sampler = sampler
	}
}

// WithPValues persists Spearman p-values with each uncertainty record.
func WithPValues(enabled bool) Option {
	return func(s *Service) {
		s.persistPValues = enabled
	}
}

// WithJobTimeout bounds each job. Zero leaves jobs unbounded.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.jobTimeout = d
		}
	}
}

// WithStopTimeout bounds how long Stop waits for queued jobs to drain.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.stopTimeout = d
		}
	}
}

// WithClock replaces the ingress clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the ingress job id source.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		statusSize:  defaultStatusSize,
		maxSamples:  defaultMaxSamples,
		stopTimeout: defaultStopTimeout,
		newID:       uuid.NewString,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the pipeline and starts the worker pool. Workers run on a
// context detached from ctx so Stop can drain queued jobs.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting simulation service...")

	if s.models == nil {
		models, err := biorefinery.NewRegistry()
		if err != nil {
			return fmt.Errorf("load models: %w", err)
		}
		s.models = models
	}
	metrics.UpdateModelCount(len(s.models.Names()))

	if s.store == nil {
		store, err := repository.Open(ctx, s.storeConfig)
		if err != nil {
			return fmt.Errorf("open result store: %w", err)
		}
		s.store = store
		s.ownsStore = true
	}

	runnerOpts := []uncertainty.Option{
		uncertainty.WithPValues(s.persistPValues),
		uncertainty.WithRunnerLogger(s.logger.Named("runner")),
	}
	if s.sampler != nil {
		runnerOpts = append(runnerOpts, uncertainty.WithSampler(s.sampler))
	}
	runner, err := uncertainty.NewRunner(s.models, s.store, runnerOpts...)
	if err != nil {
		s.closeStore(ctx)
		return fmt.Errorf("build runner: %w", err)
	}
	s.runner = runner

	s.status = jobstatus.NewInMemoryTracker(jobstatus.WithMaxSize(s.statusSize))
	s.lookup = uncertainty.NewLookup(s.store, uncertainty.WithStatus(s.status))
	s.queue = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
		jobqueue.WithBufferSize(s.queueSize),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelRun = cancel
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.runner, s.status,
		workerpool.WithJobTimeout(s.jobTimeout),
	)
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "simulation service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.String("storeBackend", s.backendName()),
		logger.Any("models", s.models.Names()),
	)

	return nil
}

// Stop closes ingress, drains queued jobs and releases the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping simulation service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain, cancelling running jobs", logger.Error(err))
		s.cancelRun()
		s.pool.Stop()
	}
	s.cancelRun()
	s.closeStore(ctx)

	s.started = false
	s.logger.Info(ctx, "simulation service stopped")
}

func (s *Service) closeStore(ctx context.Context) {
	if !s.ownsStore || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "error closing result store", logger.Error(err))
	}
	s.store = nil
	s.ownsStore = false
}

func (s *Service) backendName() string {
	if !s.ownsStore {
		return "external"
	}
	if s.storeConfig.Backend == "" {
		return repository.BackendMemory
	}
	return s.storeConfig.Backend
}

// Submit assigns a job id and timestamp, validates the request and
// dispatches it. Only validation and backpressure fail synchronously; the
// outcome of the study is visible through Lookup.
func (s *Service) Submit(ctx context.Context, req model.Request) (model.Ack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return model.Ack{}, ErrNotStarted
	}

	now := s.now()
	req.JobID = s.newID()
	req.JobTimestamp = float64(now.UnixNano()) / nanosecondsPerSecond

	job, err := model.ParseJob(req)
	if err != nil {
		return model.Ack{}, err
	}
	if job.Samples > s.maxSamples {
		return model.Ack{}, fmt.Errorf("%w: samples must be at most %d, got %d", model.ErrValidation, s.maxSamples, job.Samples)
	}
	if _, err := s.models.Get(job.Model); err != nil {
		return model.Ack{}, fmt.Errorf("%w: %w", model.ErrValidation, err)
	}

	s.status.Set(ctx, job.ID, jobstatus.StatusQueued)
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.status.Forget(ctx, job.ID)
		if errors.Is(err, jobqueue.ErrFull) || errors.Is(err, jobqueue.ErrClosed) {
			return model.Ack{}, fmt.Errorf("%w: %w", ErrQueueFull, err)
		}
		return model.Ack{}, err
	}
	metrics.RecordJobSubmitted()

	s.logger.Debug(ctx, "job dispatched",
		logger.String("job_id", job.ID),
		logger.String("model", job.Model),
		logger.String("kind", string(job.Kind)),
		logger.Int("samples", job.Samples),
	)

	params := req.Params
	if params == nil {
		params = []model.ParamRequest{}
	}
	return model.Ack{
		JobID:        job.ID,
		JobTimestamp: strconv.FormatInt(job.TimestampSeconds(), 10),
		Params:       params,
		Status:       model.StatusProcessing,
	}, nil
}

// Lookup returns the persisted record for jobID or the no-data sentinel.
func (s *Service) Lookup(ctx context.Context, jobID string) model.LookupResult {
	s.mu.RLock()
	lookup := s.lookup
	s.mu.RUnlock()

	if lookup == nil {
		return model.LookupResult{Item: model.NoData, JobID: jobID}
	}
	return lookup.Find(ctx, jobID)
}

// Models describes every registered model catalog.
func (s *Service) Models(_ context.Context) ([]simulation.Description, error) {
	s.mu.RLock()
	models := s.models
	s.mu.RUnlock()

	if models == nil {
		return nil, ErrNotStarted
	}

	out := make([]simulation.Description, 0, len(models.Names()))
	for _, name := range models.Names() {
		h, err := models.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, h.Describe())
	}
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"statusSize":  s.statusSize,
		"maxSamples":  s.maxSamples,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["trackedJobs"] = s.status.Size()
		stats["workerCount"] = s.pool.Size()
		stats["storeBackend"] = s.backendName()
		stats["models"] = s.models.Names()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return stats
}
