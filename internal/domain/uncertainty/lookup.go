package uncertainty

import (
	"context"
	"time"

	"github.com/okian/simuq/internal/domain/model"
	"github.com/okian/simuq/pkg/logger"
	"github.com/okian/simuq/pkg/metrics"
)

// StatusReader reports the in-process state of a job.
type StatusReader interface {
	Status(jobID string) string
}

// Lookup reads persisted job records. Absence and read failures are both
// reported as model.NoData; there is no retry.
type Lookup struct {
	store  Store
	status StatusReader
	logger logger.Logger
}

// NewLookup returns a lookup over store.
func NewLookup(store Store, opts ...LookupOption) *Lookup {
	l := &Lookup{
		store:  store,
		logger: logger.Get().Named("lookup"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Find returns the record for jobID or the NoData sentinel. It never fails.
func (l *Lookup) Find(ctx context.Context, jobID string) model.LookupResult {
	res := model.LookupResult{Item: model.NoData, JobID: jobID}
	if l.status != nil {
		res.Status = l.status.Status(jobID)
	}

	start := time.Now()
	rec, err := l.store.Get(ctx, jobID)
	metrics.RecordStoreReadLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		l.logger.Debug(ctx, "no record for job", logger.String("job_id", jobID), logger.Error(err))
		metrics.RecordLookup("miss")
		return res
	}

	metrics.RecordLookup("hit")
	res.Item = rec
	return res
}
