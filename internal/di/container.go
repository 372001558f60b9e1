package di

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/theak/crm/internal/adapters/httpapi"
	"github.com/theak/crm/internal/adapters/smtpingest"
	"github.com/theak/crm/internal/adapters/storage"
	"github.com/theak/crm/internal/config"
	"github.com/theak/crm/internal/core"
	"github.com/theak/crm/internal/factory"
	"github.com/theak/crm/internal/logging"
	"github.com/theak/crm/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStorageFactory); err != nil {
		return nil, err
	}

	// Register the record store and its repositories
	if err := container.Provide(func(f *factory.StorageFactory) (*sqlx.DB, error) {
		return f.OpenDatabase()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(db *sqlx.DB) core.CustomerRepository {
		return storage.NewCustomersRepo(db)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(db *sqlx.DB) core.SettingsRepository {
		return storage.NewSettingsRepo(db)
	}); err != nil {
		return nil, err
	}

	// Register classifier client
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return nil, err
	}

	// Register core services
	if err := container.Provide(core.NewTrackerService); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewEmailProcessor); err != nil {
		return nil, err
	}

	// Register the HTTP server
	if err := container.Provide(httpapi.NewServer); err != nil {
		return nil, err
	}

	// Register the SMTP ingest listener
	if err := container.Provide(func(cfg *config.Config, processor *core.EmailProcessor, logger *zap.Logger) *smtpingest.Ingest {
		return smtpingest.NewIngest(cfg.GetSMTP(), processor, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
