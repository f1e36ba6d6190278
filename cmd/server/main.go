package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:          "splitactivity",
	Short:        "Shared expense activity feed",
	Long:         `Serves the activity feed of a shared-expense ledger: what each user paid, received or owes.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", ".", "directory containing config.yml")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
