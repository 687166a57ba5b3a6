package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"linkhub-ops/internal/config"
	"linkhub-ops/internal/logging"
	"linkhub-ops/internal/store"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded SQL migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			logCfg, err := config.LoadLog()
			if err != nil {
				return err
			}
			logging.Init(logCfg)
			dbCfg, err := config.LoadDatabase()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			st, err := store.New(dbCfg.PostgresDSN)
			if err != nil {
				return fmt.Errorf("store init: %w", err)
			}
			defer st.Close()
			if err := st.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}
