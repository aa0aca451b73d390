package jobclient

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/simuq/internal/domain/model"
	"github.com/okian/simuq/pkg/logger"
)

const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run submits every request file and waits for the records.
func Run(ctx context.Context, cfg *Config, files []string) (*Stats, []Outcome, error) {
	log := logger.Get().Named("submit-job")
	stats := &Stats{StartTime: time.Now()}

	if len(files) == 0 {
		return stats, nil, fmt.Errorf("no request files given")
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	wait := cfg.Wait
	if wait <= 0 {
		wait = DefaultWait
	}

	client := NewClient(cfg.BaseURL, cfg.Timeout, cfg.PollInterval)
	if err := client.Health(ctx); err != nil {
		return stats, nil, fmt.Errorf("service health check failed: %w", err)
	}
	log.Info(ctx, "submitting jobs",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("files", len(files)),
		logger.Int("workers", workers))

	outcomes := make([]Outcome, len(files))
	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				outcomes[i] = runOne(ctx, client, files[i], wait)
				if cfg.Verbose {
					o := outcomes[i]
					log.Info(ctx, "job finished",
						logger.String("file", o.File),
						logger.String("job_id", o.JobID),
						logger.String("status", o.Status),
						logger.Any("error", o.Err))
				}
			}
		}()
	}
	go func() {
		defer close(idx)
		for i := range files {
			select {
			case <-ctx.Done():
				return
			case idx <- i:
			}
		}
	}()
	wg.Wait()

	for i := range outcomes {
		o := &outcomes[i]
		if o.File == "" {
			o.File = files[i]
			o.Err = ctx.Err()
		}
		if o.JobID != "" {
			stats.Submitted++
		}
		if o.Err != nil {
			stats.Failed++
			log.Warn(ctx, "job did not complete", logger.String("file", o.File), logger.Error(o.Err))
			continue
		}
		stats.Completed++
		if cfg.OutputDir != "" {
			if err := saveRecord(cfg.OutputDir, o.JobID, o.Record); err != nil {
				log.Warn(ctx, "failed to save record", logger.String("job_id", o.JobID), logger.Error(err))
			}
		}
	}
	stats.Duration = time.Since(stats.StartTime)

	log.Info(ctx, "run finished",
		logger.Int("submitted", stats.Submitted),
		logger.Int("completed", stats.Completed),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration))
	return stats, outcomes, nil
}

func runOne(ctx context.Context, client *Client, file string, wait time.Duration) Outcome {
	out := Outcome{File: file}
	req, err := ReadRequest(file)
	if err != nil {
		out.Err = err
		return out
	}
	ack, err := client.Submit(ctx, req)
	if err != nil {
		out.Err = err
		return out
	}
	out.JobID = ack.JobID

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	res, err := client.Wait(waitCtx, ack.JobID)
	out.Status = res.Status
	out.Err = err
	if err == nil {
		out.Record = res.Item
	}
	return out
}

// ReadRequest loads one JSON job request.
func ReadRequest(path string) (model.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Request{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var req model.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return model.Request{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return req, nil
}

func saveRecord(dir, jobID string, record json.RawMessage) error {
	if err := os.MkdirAll(dir, directoryPermission); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, filepath.Base(jobID)+".json"), record, filePermission)
}
