package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fitlink/chat-broker/internal/config"
	"github.com/fitlink/chat-broker/internal/repository"
	"github.com/fitlink/chat-broker/pkg/database"
	pkglog "github.com/fitlink/chat-broker/pkg/log"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the chat tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			pkglog.Init(cfg.Log)

			db, err := database.New(&cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := repository.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			l := pkglog.L()
			l.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")
			return nil
		},
	}
}
