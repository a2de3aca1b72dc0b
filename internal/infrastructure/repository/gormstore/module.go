package gormstore

import (
	"context"

	"go.uber.org/fx"
	"gorm.io/gorm"

	config "github.com/tigerroll/swell/internal/core/config"
	repository "github.com/tigerroll/swell/internal/core/domain/repository"
)

// Module is an Fx module that provides the GORM-backed repositories and
// applies schema migrations on startup.
var Module = fx.Options(
	fx.Provide(
		NewStore,
		func(s *Store) repository.BatchRepository { return s },
		func(s *Store) repository.DatasetConfigRepository { return s },
		func(s *Store) repository.PromptRepository { return s },
		func(s *Store) repository.ExecutionRepository { return s },
		func(s *Store) repository.HistoryRepository { return s },
	),
	fx.Invoke(func(lc fx.Lifecycle, db *gorm.DB, cfg *config.Config) {
		migrator := NewMigrator(db, cfg.Swell.Database.Type)
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return migrator.Up(ctx)
			},
		})
	}),
)
