package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"

	storageConfig "github.com/tigerroll/swell/internal/adapter/storage/config"
	coreConfig "github.com/tigerroll/swell/internal/core/config"
	"github.com/tigerroll/swell/internal/support/logger"
)

// ConnectionFactory creates a Connection from a decoded storage configuration.
// Backend packages register themselves through a factory map supplied to
// NewConfigResolver, keeping this package free of backend imports.
type ConnectionFactory func(ctx context.Context, cfg storageConfig.StorageConfig, name string) (Connection, error)

// ConfigResolver resolves named storage connections from the application
// configuration, caching established connections.
type ConfigResolver struct {
	cfg       *coreConfig.Config
	factories map[string]ConnectionFactory

	mu          sync.RWMutex
	connections map[string]Connection
}

var _ Resolver = (*ConfigResolver)(nil)

// NewConfigResolver creates a resolver over the application configuration
// using the given backend factories keyed by storage type.
func NewConfigResolver(cfg *coreConfig.Config, factories map[string]ConnectionFactory) *ConfigResolver {
	return &ConfigResolver{
		cfg:         cfg,
		factories:   factories,
		connections: make(map[string]Connection),
	}
}

// Resolve returns the storage connection with the given name, establishing
// it on first use.
func (r *ConfigResolver) Resolve(ctx context.Context, name string) (Connection, error) {
	r.mu.RLock()
	conn, ok := r.connections[name]
	r.mu.RUnlock()
	if ok {
		return conn, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring lock.
	if conn, ok := r.connections[name]; ok {
		return conn, nil
	}

	namedConfig, ok := r.cfg.Swell.StorageConfigs[name]
	if !ok {
		return nil, fmt.Errorf("storage configuration for name '%s' not found", name)
	}

	var storageCfg storageConfig.StorageConfig
	// Use mapstructure.DecoderConfig to recognize yaml tags.
	decoderConfig := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   &storageCfg,
		TagName:  "yaml",
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder for storage config '%s': %w", name, err)
	}
	if err := decoder.Decode(namedConfig); err != nil {
		return nil, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}

	factory, ok := r.factories[storageCfg.Type]
	if !ok {
		return nil, fmt.Errorf("no storage backend registered for type '%s' (connection '%s')", storageCfg.Type, name)
	}

	newConn, err := factory(ctx, storageCfg, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage connection '%s': %w", storageCfg.Type, name, err)
	}

	r.connections[name] = newConn
	logger.Debugf("Created new %s storage connection '%s'.", storageCfg.Type, name)
	return newConn, nil
}

// CloseAll closes all connections managed by this resolver.
func (r *ConfigResolver) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var multiErr error
	for name, conn := range r.connections {
		if err := conn.Close(); err != nil {
			multiErr = multierror.Append(multiErr, fmt.Errorf("failed to close storage connection '%s': %w", name, err))
		}
		delete(r.connections, name)
	}
	if multiErr != nil {
		return multiErr
	}
	logger.Debugf("All storage connections closed.")
	return nil
}
