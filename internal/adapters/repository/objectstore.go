package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/okian/simuq/internal/domain/model"
	"github.com/okian/simuq/pkg/metrics"
)

// ObjectStoreConfig configures ObjectStore.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
	UseSSL    bool
}

// Validate checks the configuration.
func (c ObjectStoreConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("%w: object store endpoint is required", ErrInvalidConfig)
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return fmt.Errorf("%w: object store credentials are required", ErrInvalidConfig)
	}
	if c.Bucket == "" {
		return fmt.Errorf("%w: object store bucket is required", ErrInvalidConfig)
	}
	return nil
}

// ObjectStore keeps each record as a JSON object at <prefix>/<id>.json.
type ObjectStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewObjectStore connects to an S3-compatible endpoint and ensures the
// bucket exists.
func NewObjectStore(ctx context.Context, cfg ObjectStoreConfig) (*ObjectStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("bucket exists: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("make bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &ObjectStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Put implements Store.Put.
func (s *ObjectStore) Put(ctx context.Context, rec model.Record) error {
	if err := validate(rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.key(rec.JobID), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		metrics.RecordStoreError(BackendObjectStore, "put")
		return err
	}
	return nil
}

// Get implements Store.Get.
func (s *ObjectStore) Get(ctx context.Context, jobID string) (model.Record, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(jobID), minio.GetObjectOptions{})
	if err != nil {
		return model.Record{}, s.readError(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return model.Record{}, s.readError(err)
	}
	var rec model.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		metrics.RecordStoreError(BackendObjectStore, "decode")
		return model.Record{}, fmt.Errorf("decode record %s: %w", jobID, err)
	}
	return rec, nil
}

// Close is a no-op; the client holds no long-lived connection.
func (s *ObjectStore) Close() error { return nil }

func (s *ObjectStore) key(jobID string) string {
	return path.Join(s.prefix, jobID+".json")
}

// readError maps a missing object to ErrNotFound. GetObject is lazy, so the
// miss usually surfaces on the first read.
func (s *ObjectStore) readError(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	metrics.RecordStoreError(BackendObjectStore, "get")
	return err
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
