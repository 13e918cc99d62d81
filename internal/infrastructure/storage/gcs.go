// Package storage relays image buffers to the object bucket. An upload is
// two sequential fallible steps composed into one logical operation: stream
// the bytes and await the writer close, then make the object publicly
// readable. If either step fails the whole upload fails; no partial-success
// state is exposed to the caller.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"wound-analysis-service/config"

	gcs "cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

type BucketStore struct {
	client        *gcs.Client
	bucket        string
	publicBaseURL string
	httpClient    *http.Client
	log           *logrus.Logger
}

func NewBucketStore(ctx context.Context, cfg config.StorageConfig, log *logrus.Logger) (*BucketStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	logrus.Info("Successfully connected to object storage")

	return &BucketStore{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: cfg.PublicBaseURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		log:           log,
	}, nil
}

// Upload streams data to the bucket under path, makes the object publicly
// readable and returns its canonical URL.
func (s *BucketStore) Upload(ctx context.Context, path string, data []byte, metadata map[string]string) (string, error) {
	obj := s.client.Bucket(s.bucket).Object(path)

	w := obj.NewWriter(ctx)
	w.ContentType = "image/jpeg"
	w.Metadata = metadata

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("write object %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finish upload of %s: %w", path, err)
	}

	if err := obj.ACL().Set(ctx, gcs.AllUsers, gcs.RoleReader); err != nil {
		return "", fmt.Errorf("make %s public: %w", path, err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, path)
	s.log.Infof("Uploaded object %s", url)
	return url, nil
}

// Download fetches a stored object through its public URL.
func (s *BucketStore) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: unexpected status %d", url, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// Delete removes an object; used by the reconciliation sweep to reclaim
// uploads whose analysis record never completed.
func (s *BucketStore) Delete(ctx context.Context, path string) error {
	return s.client.Bucket(s.bucket).Object(path).Delete(ctx)
}

func (s *BucketStore) Close() error {
	return s.client.Close()
}
