package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/simuq/internal/adapters/mq/queue"
	worker "github.com/okian/simuq/internal/adapters/mq/worker"
	"github.com/okian/simuq/internal/domain/jobstatus"
	model "github.com/okian/simuq/internal/domain/model"
	logging "github.com/okian/simuq/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logging.Init(); err != nil {
		panic(err)
	}
}

type fakeRunner struct {
	mu     sync.Mutex
	ran    []string
	errs   map[string]error
	delay  time.Duration
	ctxErr map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{errs: make(map[string]error), ctxErr: make(map[string]error)}
}

func (r *fakeRunner) Run(ctx context.Context, job model.Job) (model.Record, error) { //nolint:gocritic // hugeParam: mirrors Runner
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			r.mu.Lock()
			r.ctxErr[job.ID] = ctx.Err()
			r.mu.Unlock()
			return model.Record{}, fmt.Errorf("%w: evaluate: %w", model.ErrEvaluation, ctx.Err())
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ran = append(r.ran, job.ID)
	if err, ok := r.errs[job.ID]; ok {
		return model.Record{}, err
	}
	return model.Record{JobID: job.ID, JobTimestamp: job.TimestampSeconds()}, nil
}

func (r *fakeRunner) setError(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[id] = err
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ran)
}

func (r *fakeRunner) contextErr(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctxErr[id]
}

type fakeStatus struct {
	mu      sync.Mutex
	history map[string][]string
}

func newFakeStatus() *fakeStatus {
	return &fakeStatus{history: make(map[string][]string)}
}

func (s *fakeStatus) Set(_ context.Context, id, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[id] = append(s.history[id], status)
}

func (s *fakeStatus) of(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history[id]...)
}

func (s *fakeStatus) last(id string) string {
	h := s.of(id)
	if len(h) == 0 {
		return ""
	}
	return h[len(h)-1]
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func job(id string) model.Job {
	return model.Job{ID: id, Timestamp: 1700000000.5, Model: "cornstover", Kind: model.KindUncertainty, Samples: 10}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker reading from a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		runner := newFakeRunner()
		status := newFakeStatus()
		w := worker.NewInMemoryWorker(q, runner, status, worker.WithName("test-worker"))
		convey.So(w, convey.ShouldNotBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a job succeeds", func() {
			convey.So(q.Enqueue(ctx, job("job-1")), convey.ShouldBeNil)

			convey.Convey("Then it should pass through running to completed", func() {
				convey.So(eventually(func() bool { return status.last("job-1") == jobstatus.StatusCompleted }), convey.ShouldBeTrue)
				convey.So(status.of("job-1"), convey.ShouldResemble, []string{jobstatus.StatusRunning, jobstatus.StatusCompleted})
			})
		})

		convey.Convey("When a job fails", func() {
			runner.setError("job-2", fmt.Errorf("%w: evaluate: boom", model.ErrEvaluation))
			convey.So(q.Enqueue(ctx, job("job-2")), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, job("job-3")), convey.ShouldBeNil)

			convey.Convey("Then it should be marked failed and the worker should keep going", func() {
				convey.So(eventually(func() bool { return status.last("job-3") == jobstatus.StatusCompleted }), convey.ShouldBeTrue)
				convey.So(status.last("job-2"), convey.ShouldEqual, jobstatus.StatusFailed)
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()

			convey.Convey("Then it should stop and a second call should be harmless", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a worker without a status tracker", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		runner := newFakeRunner()
		w := worker.NewInMemoryWorker(q, runner, nil)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.So(q.Enqueue(ctx, job("job-1")), convey.ShouldBeNil)
		convey.So(eventually(func() bool { return runner.count() == 1 }), convey.ShouldBeTrue)
	})

	convey.Convey("Given a worker with a job timeout", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		runner := newFakeRunner()
		runner.delay = time.Second
		status := newFakeStatus()
		w := worker.NewInMemoryWorker(q, runner, status, worker.WithJobTimeout(20*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.So(q.Enqueue(ctx, job("slow")), convey.ShouldBeNil)

		convey.Convey("Then the job should be cancelled and marked failed", func() {
			convey.So(eventually(func() bool { return status.last("slow") == jobstatus.StatusFailed }), convey.ShouldBeTrue)
			convey.So(errors.Is(runner.contextErr("slow"), context.DeadlineExceeded), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a worker whose queue is closed", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		w := worker.NewInMemoryWorker(q, newFakeRunner(), nil)
		done := make(chan struct{})
		go func() {
			w.Run(context.Background())
			close(done)
		}()

		convey.So(q.Close(), convey.ShouldBeNil)

		convey.Convey("Then Run should return", func() {
			select {
			case <-done:
				convey.So(true, convey.ShouldBeTrue)
			case <-time.After(time.Second):
				convey.So("worker still running", convey.ShouldBeEmpty)
			}
		})
	})
}

func TestClassify(t *testing.T) {
	convey.Convey("Given job errors of each kind", t, func() {
		cases := map[string]error{
			worker.ReasonValidation: fmt.Errorf("%w: unknown model x", model.ErrValidation),
			worker.ReasonEvaluation: fmt.Errorf("%w: sample: boom", model.ErrEvaluation),
			worker.ReasonStore:      fmt.Errorf("%w: put: down", model.ErrStore),
			worker.ReasonTimeout:    fmt.Errorf("%w: evaluate: %w", model.ErrEvaluation, context.DeadlineExceeded),
			worker.ReasonInternal:   errors.New("boom"),
		}

		for want, err := range cases {
			convey.So(worker.Classify(err), convey.ShouldEqual, want)
		}
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a worker pool", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(256))
		runner := newFakeRunner()
		status := newFakeStatus()

		convey.Convey("When created with a non-positive count", func() {
			pool := worker.NewPool(0, q, runner, status)

			convey.Convey("Then it should size itself from the CPU count", func() {
				convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When started with several workers", func() {
			pool := worker.NewPool(4, q, runner, status)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			pool.Start(ctx)

			const jobCount = 100
			var wg sync.WaitGroup
			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func(producer int) {
					defer wg.Done()
					for j := 0; j < jobCount/5; j++ {
						_ = q.Enqueue(ctx, job(fmt.Sprintf("job-%d-%d", producer, j)))
					}
				}(i)
			}
			wg.Wait()

			convey.Convey("Then every job should run exactly once", func() {
				convey.So(eventually(func() bool { return runner.count() == jobCount }), convey.ShouldBeTrue)
				for i := 0; i < 5; i++ {
					for j := 0; j < jobCount/5; j++ {
						convey.So(status.last(fmt.Sprintf("job-%d-%d", i, j)), convey.ShouldEqual, jobstatus.StatusCompleted)
					}
				}
			})

			convey.Convey("Then Shutdown should drain and return", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer shutdownCancel()

				convey.So(pool.Shutdown(shutdownCtx), convey.ShouldBeNil)
				convey.So(runner.count(), convey.ShouldEqual, jobCount)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When stopped", func() {
			pool := worker.NewPool(2, q, runner, status)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			pool.Start(ctx)
			pool.Stop()

			convey.Convey("Then queued jobs should no longer be picked up", func() {
				convey.So(q.Enqueue(ctx, job("late")), convey.ShouldBeNil)
				time.Sleep(50 * time.Millisecond)
				convey.So(status.of("late"), convey.ShouldBeEmpty)
			})
		})
	})
}
