// Package backends wires the concrete storage backends into the storage
// resolver. Keeping the registration here avoids an import cycle between the
// storage interfaces and the backend implementations.
package backends

import (
	"context"

	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/swell/internal/adapter/storage"
	storageConfig "github.com/tigerroll/swell/internal/adapter/storage/config"
	"github.com/tigerroll/swell/internal/adapter/storage/gcs"
	"github.com/tigerroll/swell/internal/adapter/storage/local"
	coreConfig "github.com/tigerroll/swell/internal/core/config"
)

// Module is an Fx module that provides the storage resolver with the local
// and GCS backends registered, closing all connections on shutdown.
var Module = fx.Options(
	fx.Provide(func(cfg *coreConfig.Config) storageAdapter.Resolver {
		factories := map[string]storageAdapter.ConnectionFactory{
			local.ProviderType: func(ctx context.Context, c storageConfig.StorageConfig, name string) (storageAdapter.Connection, error) {
				return local.NewLocalAdapter(c, name)
			},
			gcs.ProviderType: func(ctx context.Context, c storageConfig.StorageConfig, name string) (storageAdapter.Connection, error) {
				return gcs.NewGCSAdapter(ctx, c, name)
			},
		}
		return storageAdapter.NewConfigResolver(cfg, factories)
	}),
	fx.Invoke(func(lc fx.Lifecycle, r storageAdapter.Resolver) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return r.CloseAll()
			},
		})
	}),
)
