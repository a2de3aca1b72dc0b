// Package database provides the gorm database connection for Swell's
// durable store. A dialector registry maps configured database types to
// gorm drivers.
package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	config "github.com/tigerroll/swell/internal/core/config"
	"github.com/tigerroll/swell/internal/support/exception"
	"github.com/tigerroll/swell/internal/support/logger"
)

const moduleName = "database"

// DialectorFactory creates a gorm.Dialector from a DSN.
type DialectorFactory func(dsn string) gorm.Dialector

// dialectorFactories is the registry of supported database types.
var dialectorFactories = map[string]DialectorFactory{
	"sqlite":   func(dsn string) gorm.Dialector { return sqlite.Open(dsn) },
	"postgres": func(dsn string) gorm.Dialector { return postgres.Open(dsn) },
	"mysql":    func(dsn string) gorm.Dialector { return mysql.Open(dsn) },
}

// SupportedTypes returns the registered database type names.
func SupportedTypes() []string {
	types := make([]string, 0, len(dialectorFactories))
	for t := range dialectorFactories {
		types = append(types, t)
	}
	return types
}

// NewDB opens a gorm connection according to the configured database type
// and applies connection pool settings.
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	dbCfg := cfg.Swell.Database

	factory, ok := dialectorFactories[dbCfg.Type]
	if !ok {
		return nil, exception.NewBatchErrorf(moduleName, "unsupported database type '%s' (supported: %v)", dbCfg.Type, SupportedTypes())
	}

	db, err := gorm.Open(factory(dbCfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to open %s database", dbCfg.Type), err, false, true)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to get underlying sql.DB", err, false, false)
	}
	if dbCfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbCfg.MaxOpenConns)
	}
	if dbCfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbCfg.MaxIdleConns)
	}
	if dbCfg.ConnMaxLifetimeSeconds > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(dbCfg.ConnMaxLifetimeSeconds) * time.Second)
	}

	logger.Infof("Database connection established (type: %s).", dbCfg.Type)
	return db, nil
}

// CloseDB closes the underlying sql.DB of a gorm connection.
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to get underlying sql.DB for close", err, false, false)
	}
	return sqlDB.Close()
}
