// Package storage defines the interfaces for result artifact storage.
// It abstracts upload and download operations so the execution layer can
// push CSV and parquet artifacts to different backends (local file system,
// GCS) through a unified API.
package storage

import (
	"context"
	"io"
)

// Connection represents a storage backend connection.
type Connection interface {
	// Upload uploads data to the specified bucket and object name.
	// 'data' is the stream of data to upload. 'contentType' is the MIME type of the data.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download downloads data from the specified bucket and object name.
	// It returns a ReadCloser which must be closed by the caller after use.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// Close releases any resources held by the connection.
	Close() error
	// Type returns the backend type of this connection (e.g., "local", "gcs").
	Type() string
	// Name returns the configured name of this connection.
	Name() string
}

// Resolver resolves named storage connections from the application
// configuration and manages their lifecycle.
type Resolver interface {
	// Resolve returns the storage connection with the given name,
	// establishing it on first use.
	Resolve(ctx context.Context, name string) (Connection, error)
	// CloseAll closes all connections managed by this resolver.
	CloseAll() error
}
