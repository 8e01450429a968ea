package app

import (
	"fmt"

	"github.com/guttosm/escrowd/config"
	"github.com/guttosm/escrowd/internal/logger"
	"github.com/guttosm/escrowd/internal/storage"
	"github.com/guttosm/escrowd/internal/storage/badgerdb"
	"github.com/guttosm/escrowd/internal/storage/memory"
	"github.com/guttosm/escrowd/internal/storage/postgres"
)

// OpenStorage builds the RepoManager selected by cfg.Storage.Driver.
func OpenStorage(cfg config.Config) (storage.RepoManager, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		logger.L().Warn().Msg("using in-memory storage; balances and trades are lost on exit")
		return memory.New(), nil

	case config.DriverBadger:
		m, err := badgerdb.Open(cfg.Storage.BadgerDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		return m, nil

	case config.DriverPostgres, "":
		db, err := postgresOpener(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		if cfg.Storage.AutoMigrate {
			if err := postgres.Migrate(db); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to migrate postgres: %w", err)
			}
		}
		return postgres.NewManager(db), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
