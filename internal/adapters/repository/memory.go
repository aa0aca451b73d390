package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/okian/simuq/internal/domain/model"
	"github.com/okian/simuq/pkg/metrics"
)

// MemoryStore keeps records in process memory. Records are copied on the
// way in and out so callers never share buffers with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.Record
	order   []string // insertion order when bounded

	maxRecords            int
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs a memory store with configuration options.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		records:               make(map[string]model.Record),
		metricsUpdateInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.stopChan = make(chan struct{})
	s.startMetricsUpdater(ctx)
	return s
}

// Put implements Store.Put.
func (s *MemoryStore) Put(ctx context.Context, rec model.Record) error {
	if err := validate(rec); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rec = clone(rec)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.JobID]; !exists && s.maxRecords > 0 {
		if len(s.records) >= s.maxRecords {
			s.evictOldest()
		}
		s.order = append(s.order, rec.JobID)
	}
	s.records[rec.JobID] = rec
	return nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, jobID string) (model.Record, error) {
	if err := ctx.Err(); err != nil {
		return model.Record{}, err
	}
	s.mu.RLock()
	rec, ok := s.records[jobID]
	s.mu.RUnlock()
	if !ok {
		return model.Record{}, ErrNotFound
	}
	return clone(rec), nil
}

// Count returns the number of records held.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close stops the background metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// evictOldest drops the earliest inserted record. Caller holds mu.
func (s *MemoryStore) evictOldest() {
	for len(s.order) > 0 {
		id := s.order[0]
		s.order = s.order[1:]
		if _, ok := s.records[id]; ok {
			delete(s.records, id)
			return
		}
	}
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateStoreRecords(s.Count())
			}
		}
	}()
}

func clone(rec model.Record) model.Record {
	rec.Results = cloneRaw(rec.Results)
	rec.SpearmanResults = cloneRaw(rec.SpearmanResults)
	rec.SpearmanPValues = cloneRaw(rec.SpearmanPValues)
	return rec
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	return bytes.Clone(b)
}
