package config

// Package config provides structures and utilities for managing application configuration.

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC", "Asia/Tokyo").
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	// Address is the listen address (e.g., ":8080").
	Address string `yaml:"address"`
	// ReadTimeoutSeconds is the HTTP read timeout in seconds.
	ReadTimeoutSeconds int `yaml:"read_timeout_seconds"`
	// WriteTimeoutSeconds is the HTTP write timeout in seconds.
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
}

// DatabaseConfig holds the durable store connection settings.
type DatabaseConfig struct {
	// Type is the database type: "sqlite", "postgres" or "mysql".
	Type string `yaml:"type"`
	// DSN is the connection string (file path for sqlite).
	DSN string `yaml:"dsn"`
	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int `yaml:"max_open_conns"`
	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int `yaml:"max_idle_conns"`
	// ConnMaxLifetimeSeconds is the maximum lifetime of a connection in seconds.
	ConnMaxLifetimeSeconds int `yaml:"conn_max_lifetime_seconds"`
}

// LLMConfig holds the default generation backend settings.
// Individual prompt configurations may override any of these per batch.
type LLMConfig struct {
	// Provider selects the backend: "lm_studio", "openai" or "copilot".
	Provider string `yaml:"provider"`
	// Endpoint is the base URL of the generation API.
	Endpoint string `yaml:"endpoint"`
	// APIKey is the bearer token for hosted providers.
	APIKey string `yaml:"api_key"`
	// Model is the model identifier sent to chat-style providers.
	Model string `yaml:"model"`
	// Temperature is the default sampling temperature.
	Temperature float64 `yaml:"temperature"`
	// MaxTokens is the default generation token budget.
	MaxTokens int `yaml:"max_tokens"`
	// TimeoutSeconds is the default per-request timeout.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// AnalyticsConfig holds the remote analytics API settings.
type AnalyticsConfig struct {
	// BaseURL is the instance URL of the analytics service.
	BaseURL string `yaml:"base_url"`
	// APIVersion is the REST API version segment (e.g., "v60.0").
	APIVersion string `yaml:"api_version"`
	// AccessToken is the bearer token used for API calls.
	AccessToken string `yaml:"access_token"`
	// TimeoutSeconds is the per-request timeout.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// ExecutionConfig holds batch execution tuning knobs.
type ExecutionConfig struct {
	// MaxRecords is the hard ceiling on records pulled per run.
	MaxRecords int `yaml:"max_records"`
	// MirrorInterval is how many records are processed between durable
	// progress writes.
	MirrorInterval int `yaml:"mirror_interval"`
	// RetentionGraceSeconds is how long a finished execution stays readable
	// in memory before eviction.
	RetentionGraceSeconds int `yaml:"retention_grace_seconds"`
}

// UploadConfig holds best-effort result upload settings.
type UploadConfig struct {
	// Enabled toggles the upload step.
	Enabled bool `yaml:"enabled"`
	// StorageRef names the storage connection to upload to.
	StorageRef string `yaml:"storage_ref"`
	// Bucket is the target bucket (or subdirectory for local storage).
	Bucket string `yaml:"bucket"`
	// Prefix is the object name prefix for uploaded artifacts.
	Prefix string `yaml:"prefix"`
	// ParquetArchive toggles writing a parquet copy of the result rows.
	ParquetArchive bool `yaml:"parquet_archive"`
}

// SwellConfig holds all configuration under the "swell" top-level key.
type SwellConfig struct {
	// System contains system-wide configurations.
	System SystemConfig `yaml:"system"`
	// Server contains HTTP server configurations.
	Server ServerConfig `yaml:"server"`
	// Database contains durable store configurations.
	Database DatabaseConfig `yaml:"database"`
	// LLM contains default generation backend configurations.
	LLM LLMConfig `yaml:"llm"`
	// Analytics contains remote analytics API configurations.
	Analytics AnalyticsConfig `yaml:"analytics"`
	// Execution contains batch execution tuning knobs.
	Execution ExecutionConfig `yaml:"execution"`
	// Upload contains best-effort result upload settings.
	Upload UploadConfig `yaml:"upload"`
	// StorageConfigs holds named storage adapter configurations.
	StorageConfigs map[string]interface{} `yaml:"storage"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	// Swell contains the top-level application configuration.
	Swell SwellConfig `yaml:"swell"`
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	cfg := &Config{
		Swell: SwellConfig{
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Server: ServerConfig{
				Address:             ":8080",
				ReadTimeoutSeconds:  30,
				WriteTimeoutSeconds: 60,
			},
			Database: DatabaseConfig{
				Type:                   "sqlite",
				DSN:                    "swell.db",
				MaxOpenConns:           10,
				MaxIdleConns:           5,
				ConnMaxLifetimeSeconds: 300,
			},
			LLM: LLMConfig{
				Provider:       "lm_studio",
				Endpoint:       "http://localhost:1234",
				Model:          "gpt-3.5-turbo",
				Temperature:    0.7,
				MaxTokens:      4000,
				TimeoutSeconds: 60,
			},
			Analytics: AnalyticsConfig{
				APIVersion:     "v60.0",
				TimeoutSeconds: 60,
			},
			Execution: ExecutionConfig{
				MaxRecords:            10000,
				MirrorInterval:        10,
				RetentionGraceSeconds: 30,
			},
			Upload: UploadConfig{
				Enabled:        false,
				StorageRef:     "results",
				Prefix:         "exports",
				ParquetArchive: false,
			},
		},
	}

	cfg.Swell.StorageConfigs = map[string]interface{}{}
	return cfg
}
