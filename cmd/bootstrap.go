package cmd

import (
	"fmt"

	"inventory-sync/core/config"
	"inventory-sync/core/database"
	"inventory-sync/core/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// bootstrap loads the configuration, builds the logger and opens the
// migrated inventory database shared by the commands.
func bootstrap() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, nil, nil, err
	}
	l.Debug("Connected to inventory database", zap.String("driver", cfg.Database.Driver))
	return cfg, l, db, nil
}
