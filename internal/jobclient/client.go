package jobclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/simuq/internal/domain/jobstatus"
	"github.com/okian/simuq/internal/domain/model"
)

// Client talks to the job API.
type Client struct {
	baseURL string
	http    *http.Client
	poll    time.Duration
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, timeout, poll time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		poll:    poll,
	}
}

// Health checks that the service answers on /healthz.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Submit posts one request and returns its acknowledgement.
func (c *Client) Submit(ctx context.Context, r model.Request) (model.Ack, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return model.Ack{}, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return model.Ack{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.Ack{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Ack{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return model.Ack{}, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	var envelope struct {
		Body model.Ack `json:"body"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return model.Ack{}, fmt.Errorf("failed to decode acknowledgement: %w", err)
	}
	return envelope.Body, nil
}

// Lookup fetches the current lookup result for jobID.
func (c *Client) Lookup(ctx context.Context, jobID string) (LookupResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return LookupResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return LookupResponse{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return LookupResponse{}, fmt.Errorf("lookup failed with status: %d", resp.StatusCode)
	}
	var out LookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return LookupResponse{}, fmt.Errorf("failed to decode lookup: %w", err)
	}
	return out, nil
}

// Wait polls until jobID has a record, the job fails, or ctx ends.
func (c *Client) Wait(ctx context.Context, jobID string) (LookupResponse, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		res, err := c.Lookup(ctx, jobID)
		if err == nil {
			if res.Found() {
				return res, nil
			}
			if res.Status == jobstatus.StatusFailed {
				return res, fmt.Errorf("%w: %s", ErrJobFailed, jobID)
			}
		}

		select {
		case <-ctx.Done():
			if err != nil {
				return LookupResponse{}, fmt.Errorf("%w (last error: %w)", ctx.Err(), err)
			}
			return res, ctx.Err()
		case <-ticker.C:
		}
	}
}
