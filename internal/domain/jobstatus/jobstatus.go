// Package jobstatus tracks the in-process state of dispatched jobs.
package jobstatus

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

// Job states. Unknown covers ids that were never tracked or were evicted.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusUnknown   = "unknown"
)

// Tracker records job states between ingress and persistence.
type Tracker interface {
	// Set records the state of id, tracking it if new.
	Set(ctx context.Context, id, status string)

	// Status returns the state of id, or StatusUnknown.
	Status(id string) string

	// Forget stops tracking id, used when a job was never dispatched.
	Forget(ctx context.Context, id string)

	Size() int64
}

type entry struct {
	id     string
	status string
}

// inMemoryTracker keeps states in a map with an insertion-ordered list.
// When bounded (maxSize > 0) the oldest tracked job is evicted first.
type inMemoryTracker struct {
	mu      sync.RWMutex
	jobs    map[string]*list.Element
	order   *list.List
	maxSize int
	size    atomic.Int64
}

// NewInMemoryTracker creates a tracker with configuration options.
func NewInMemoryTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{
		maxSize: 50000,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.jobs = make(map[string]*list.Element)
	t.order = list.New()
	return t
}

func (t *inMemoryTracker) Set(_ context.Context, id, status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if el, ok := t.jobs[id]; ok {
		el.Value.(*entry).status = status
		return
	}
	if t.maxSize > 0 && len(t.jobs) >= t.maxSize {
		t.evictOldest()
	}
	t.jobs[id] = t.order.PushBack(&entry{id: id, status: status})
	t.size.Add(1)
}

func (t *inMemoryTracker) Status(id string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	el, ok := t.jobs[id]
	if !ok {
		return StatusUnknown
	}
	return el.Value.(*entry).status
}

func (t *inMemoryTracker) Forget(_ context.Context, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if el, ok := t.jobs[id]; ok {
		t.order.Remove(el)
		delete(t.jobs, id)
		t.size.Add(-1)
	}
}

func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}

// evictOldest drops the earliest tracked job. Caller holds mu.
func (t *inMemoryTracker) evictOldest() {
	front := t.order.Front()
	if front == nil {
		return
	}
	t.order.Remove(front)
	delete(t.jobs, front.Value.(*entry).id)
	t.size.Add(-1)
}
