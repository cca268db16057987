package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version and Commit are stamped at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "shop",
		Short:         "SundAI merch storefront backed by Printful and Stripe",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), envFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file merged beneath the process environment")

	rootCmd.AddCommand(serveCmd(&envFile))
	rootCmd.AddCommand(syncCmd(&envFile))
	rootCmd.AddCommand(migrateCmd(&envFile))

	return rootCmd
}
