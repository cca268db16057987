package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sundai-club/shop/internal/di"
	"github.com/sundai-club/shop/internal/platform/observability"
	"github.com/sundai-club/shop/internal/services"
)

func syncCmd(envFile *string) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync products from Printful and print a catalog summary",
		Long: `Trigger a Printful product sync, rebuild the catalog snapshot, and print how many
products were loaded and which were skipped.

Examples:
  shop sync
  shop sync --timeout 2m`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runSync(ctx, *envFile, cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "abort the sync after this long")

	return cmd
}

func runSync(ctx context.Context, envFile string, out io.Writer) error {
	rt, err := bootstrap(ctx, "sync", envFile, "Printful.APIKey")
	if err != nil {
		return err
	}
	defer rt.Close()

	client, err := di.NewPrintfulClient(rt.cfg.Printful, rt.logger)
	if err != nil {
		return err
	}
	catalog, err := services.NewCatalogService(services.CatalogServiceDeps{
		Provider: client,
		Clock:    time.Now,
		Logger:   observability.EventLogger(rt.logger.Named("catalog")),
	})
	if err != nil {
		return fmt.Errorf("build catalog service: %w", err)
	}

	snapshot, err := catalog.Sync(ctx)
	if err != nil {
		rt.logger.Error("catalog sync failed", zap.Error(err))
		return fmt.Errorf("sync catalog: %w", err)
	}
	printSyncSummary(out, snapshot)
	return nil
}

func printSyncSummary(out io.Writer, snapshot services.CatalogSnapshot) {
	fmt.Fprintf(out, "Synced %d products from %s at %s\n",
		len(snapshot.Products), snapshot.Source, snapshot.FetchedAt.UTC().Format(time.RFC3339))
	for _, product := range snapshot.Products {
		fmt.Fprintf(out, "  %-8d %-40s %-12s %d variants\n", product.ID, product.Name, product.Category, len(product.Variants))
	}
	if len(snapshot.Skipped) == 0 {
		return
	}
	fmt.Fprintf(out, "Skipped %d products\n", len(snapshot.Skipped))
	for _, skipped := range snapshot.Skipped {
		fmt.Fprintf(out, "  %-8d %-40s %s\n", skipped.ID, skipped.Name, skipped.Reason)
	}
}
