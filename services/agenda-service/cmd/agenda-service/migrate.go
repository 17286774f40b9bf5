package main

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/nutriagenda/libs/db"
	"github.com/md-rashed-zaman/nutriagenda/libs/runtime"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/config"
	"github.com/md-rashed-zaman/nutriagenda/services/agenda-service/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd(load func() (config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger := runtime.NewLogger(cfg.ServiceName, cfg.LogLevel)
			pool, err := db.Open(cmd.Context(), cfg.DatabaseURL, 2)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer pool.Close()

			n, err := storage.NewMigrator(pool).Up(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("migrations applied", "count", n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			pool, err := db.Open(cmd.Context(), cfg.DatabaseURL, 2)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer pool.Close()

			statuses, err := storage.NewMigrator(pool).Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, st := range statuses {
				applied := "pending"
				if st.Applied() {
					applied = st.AppliedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(out, "%04d  %-40s  %s\n", st.Version, st.Name, applied)
			}
			return nil
		},
	})
	return cmd
}
