package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sundai-club/shop/internal/repositories/postgres"
)

func migrateCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply order log migrations to Postgres",
		Long: `Apply the embedded order log schema migrations to the database named by
SHOP_ORDERLOG_DATABASE_URL. Already-applied migrations are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context(), *envFile, cmd.OutOrStdout())
		},
	}
}

func runMigrate(ctx context.Context, envFile string, out io.Writer) error {
	rt, err := bootstrap(ctx, "migrate", envFile, "OrderLog.DatabaseURL")
	if err != nil {
		return err
	}
	defer rt.Close()

	pool, err := postgres.Open(ctx, rt.cfg.OrderLog.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	table := rt.cfg.OrderLog.MigrationsTable
	if err := postgres.Migrate(pool, table); err != nil {
		rt.logger.Error("order log migration failed", zap.Error(err))
		return err
	}
	rt.logger.Info("order log migrations applied", zap.String("table", table))
	fmt.Fprintf(out, "Order log schema is up to date (migrations table %q)\n", table)
	return nil
}
