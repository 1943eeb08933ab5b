package cli

import (
	"context"
	"fmt"
	"os"

	pginfra "gameshow-service/internal/infra/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrations(cmd.Context(), flags)
		},
	}
}

func runMigrations(ctx context.Context, flags *rootFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	logger := newLogger(os.Stderr, cfg.Log)

	db := pginfra.OpenBun(cfg.Postgres.URL)
	defer db.Close()

	group, err := pginfra.Migrate(ctx, db)
	if err != nil {
		return err
	}
	if group.IsZero() {
		logger.Info("no new migrations")
		return nil
	}
	logger.Info("migrations applied", "group", group.String())
	return nil
}
