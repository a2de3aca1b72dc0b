package database

import (
	"context"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/tigerroll/swell/internal/support/logger"
)

// Module is an Fx module that provides the gorm database connection and
// closes it on shutdown.
var Module = fx.Options(
	fx.Provide(NewDB),
	fx.Invoke(func(lc fx.Lifecycle, db *gorm.DB) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				logger.Debugf("Closing database connection.")
				return CloseDB(db)
			},
		})
	}),
)
