package cli

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"ai-or-not-service/internal/config"
	pginfra "ai-or-not-service/internal/infra/postgres"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewCleanupCmd deletes expired rooms once and exits. Useful as a cron job
// next to a server fleet that has the periodic sweeper disabled.
func NewCleanupCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired rooms and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
			db := bun.NewDB(sqldb, pgdialect.New())
			defer db.Close()

			store := pginfra.NewRoomStore(db)
			removed, err := store.DeleteExpired(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			log.Printf("removed %d expired rooms", removed)
			return nil
		},
	}
}
