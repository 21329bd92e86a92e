package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/atelier-ai/atelier/internal/config"
	"github.com/atelier-ai/atelier/internal/printer"
	"github.com/atelier-ai/atelier/internal/runlist"
	"github.com/atelier-ai/atelier/pkg/blackboard"
)

var (
	runsLimit int64
	runsJSON  bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past and in-progress runs",
	Long: `List runs recorded on the blackboard, newest first.

Examples:
  # Show the latest runs
  atelier runs

  # Show more, as JSONL for jq
  atelier runs --limit 100 --json`,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().Int64VarP(&runsLimit, "limit", "l", 20, "Maximum number of runs to show")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "Output line-delimited JSON instead of a table")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return printer.Error(
			"failed to load configuration",
			err.Error(),
			[]string{"Create a config first:\n  atelier init"},
		)
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := blackboard.NewClient(redisOpts)
	defer client.Close()

	runs, err := client.ListRuns(ctx, runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if runsJSON {
		return runlist.FormatJSONL(os.Stdout, runs)
	}
	runlist.FormatTable(os.Stdout, runs)
	return nil
}
