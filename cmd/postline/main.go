package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/postline-io/postline/internal/interfaces/cli/migrate"
	"github.com/postline-io/postline/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "postline",
		Short: "Postline billing engine",
		Long:  `Postline is a multi-provider billing engine with payments, subscriptions, webhooks, and a credit ledger.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
