// Package gcs provides a Google Cloud Storage implementation of the storage
// adapter interfaces.
package gcs

import (
	"context"
	"fmt"
	"io"

	gstorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	storageAdapter "github.com/tigerroll/swell/internal/adapter/storage"
	storageConfig "github.com/tigerroll/swell/internal/adapter/storage/config"
	"github.com/tigerroll/swell/internal/support/logger"
)

const (
	// ProviderType defines the type identifier for the GCS storage backend.
	ProviderType = "gcs"
)

// gcsAdapter implements storage.Connection backed by a GCS client.
type gcsAdapter struct {
	cfg    storageConfig.StorageConfig
	name   string
	client *gstorage.Client
}

var _ storageAdapter.Connection = (*gcsAdapter)(nil)

// NewGCSAdapter creates a new GCS storage connection.
// When a credentials file is configured it is used; otherwise application
// default credentials apply.
func NewGCSAdapter(ctx context.Context, cfg storageConfig.StorageConfig, name string) (storageAdapter.Connection, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs storage adapter '%s': failed to create client: %w", name, err)
	}

	return &gcsAdapter{
		cfg:    cfg,
		name:   name,
		client: client,
	}, nil
}

// Close releases the underlying GCS client.
func (a *gcsAdapter) Close() error {
	logger.Debugf("GCS storage adapter '%s' closed.", a.name)
	return a.client.Close()
}

// Type returns the type of the adapter, which is "gcs".
func (a *gcsAdapter) Type() string {
	return ProviderType
}

// Name returns the name of this connection.
func (a *gcsAdapter) Name() string {
	return a.name
}

// Upload streams data to the specified bucket and object.
func (a *gcsAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	if bucket == "" {
		bucket = a.cfg.BucketName
	}
	if bucket == "" {
		return fmt.Errorf("gcs storage adapter '%s': no bucket specified and no bucket_name configured", a.name)
	}

	w := a.client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object 'gs://%s/%s': %w", bucket, objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object 'gs://%s/%s': %w", bucket, objectName, err)
	}
	logger.Debugf("Uploaded data to 'gs://%s/%s' (gcs adapter '%s').", bucket, objectName, a.name)
	return nil
}

// Download opens the specified object for reading.
// The returned io.ReadCloser must be closed by the caller.
func (a *gcsAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	if bucket == "" {
		bucket = a.cfg.BucketName
	}
	if bucket == "" {
		return nil, fmt.Errorf("gcs storage adapter '%s': no bucket specified and no bucket_name configured", a.name)
	}

	r, err := a.client.Bucket(bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open object 'gs://%s/%s': %w", bucket, objectName, err)
	}
	logger.Debugf("Downloaded data from 'gs://%s/%s' (gcs adapter '%s').", bucket, objectName, a.name)
	return r, nil
}
