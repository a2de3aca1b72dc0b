// Package config defines the configuration structure for storage adapters.
package config

// StorageConfig holds the settings of a single named storage connection.
type StorageConfig struct {
	// Type is the backend type: "local" or "gcs".
	Type string `yaml:"type"`
	// BaseDir is the root directory for the local backend.
	BaseDir string `yaml:"base_dir"`
	// BucketName is the default bucket used when callers pass an empty bucket.
	BucketName string `yaml:"bucket_name"`
	// CredentialsFile is an optional service account key file for GCS.
	CredentialsFile string `yaml:"credentials_file"`
}
