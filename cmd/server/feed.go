package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitactivity/internal/config"
	"github.com/mmynk/splitactivity/internal/service"
	"github.com/mmynk/splitactivity/internal/storage/sqlite"
	"github.com/mmynk/splitactivity/pkg/logging"
)

var feedUserID string

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Print a user's activity feed",
	RunE:  runFeed,
}

func init() {
	feedCmd.Flags().StringVarP(&feedUserID, "user", "u", "", "user ID whose feed to print")
	_ = feedCmd.MarkFlagRequired("user")
}

func runFeed(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	viewer, feed, err := service.LoadFeed(cmd.Context(), store, feedUserID)
	if err != nil {
		return fmt.Errorf("failed to load feed for %s: %w", feedUserID, err)
	}
	for _, f := range feed.Failures {
		logger.Warn("Skipping activity record", "expense_id", f.ExpenseID, "error", f.Err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Activity for %s\n", viewer.DisplayName())
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, e := range feed.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.ExpenseDate.Format("2006-01-02"),
			e.ExpenseName,
			e.PaidByName,
			e.Statement.Text(),
		)
	}
	return tw.Flush()
}
