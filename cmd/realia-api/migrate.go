package main

import (
	"fmt"

	"github.com/realia-labs/realia/internal/config"
	"github.com/realia-labs/realia/internal/store"
	"github.com/realia-labs/realia/pkg/log"
	"github.com/realia-labs/realia/pkg/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}

		_, undo := log.Setup(level(cfg))
		defer undo()

		zap.S().Info("Migrating database")
		defer zap.S().Info("Db migrated")

		db, err := store.InitDB(cfg)
		if err != nil {
			return fmt.Errorf("initializing data store: %w", err)
		}

		s := store.NewStore(db)
		defer func() {
			_ = s.Close()
		}()

		return migrate(db, cfg)
	},
}

func migrate(db *gorm.DB, cfg *config.Config) error {
	if err := migrations.MigrateStore(db, cfg.Service.MigrationFolder); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func level(cfg *config.Config) string {
	if logLevel != "" {
		return logLevel
	}
	return cfg.Service.LogLevel
}
