package factory

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/theak/crm/internal/adapters/storage"
	"github.com/theak/crm/internal/config"
)

// StorageFactory opens the record store based on configuration.
type StorageFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStorageFactory creates a new storage factory.
func NewStorageFactory(cfg *config.Config, logger *zap.Logger) *StorageFactory {
	return &StorageFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// OpenDatabase opens the configured backend and ensures its schema.
func (f *StorageFactory) OpenDatabase() (*sqlx.DB, error) {
	storageCfg := f.cfg.GetStorage()

	switch storageCfg.Type {
	case "sqlite":
		f.logger.Info("Opening sqlite store", zap.String("path", storageCfg.SQLitePath))
		return storage.OpenSQLite(storageCfg.SQLitePath)
	case "mysql":
		f.logger.Info("Opening mysql store")
		return storage.OpenMySQL(storageCfg.MySQLDSN)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageCfg.Type)
	}
}
