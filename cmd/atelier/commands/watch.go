package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/atelier-ai/atelier/internal/config"
	"github.com/atelier-ai/atelier/internal/printer"
	"github.com/atelier-ai/atelier/internal/resolver"
	"github.com/atelier-ai/atelier/pkg/blackboard"
)

var watchCmd = &cobra.Command{
	Use:   "watch <run-id>",
	Short: "Stream a run's event log live",
	Long: `Stream the event log of a run as agents work on it.

Prints the durable event history first, then follows the live stream
until interrupted with Ctrl+C.

Examples:
  # Follow a run started in another terminal
  atelier watch 7d8e9f0a-1b2c-4d3e-8f9a-0b1c2d3e4f5a`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	runID, err := resolver.ResolveRunID(ctx, client, args[0])
	if err != nil {
		var ambiguous *resolver.AmbiguousError
		if errors.As(err, &ambiguous) {
			return printer.Error(
				"ambiguous run ID",
				resolver.FormatAmbiguousError(ambiguous),
				[]string{"List runs:\n  atelier runs"},
			)
		}
		return err
	}

	// subscribe before replaying history so no live event slips between
	sub, err := client.SubscribeEvents(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to subscribe to run events: %w", err)
	}
	defer sub.Close()

	history, err := client.Events(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to read event history: %w", err)
	}

	lastSeq := int64(-1)
	for _, ev := range history {
		printEvent(&ev)
		lastSeq = ev.Seq
	}

	printer.Info("Watching run %s (Ctrl+C to stop)...\n", shortID(runID))

	for {
		select {
		case <-ctx.Done():
			printer.Println()
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if ev.Seq <= lastSeq {
				continue // already shown during replay
			}
			lastSeq = ev.Seq
			printEvent(ev)
		case err, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			printer.Warning("stream error: %v\n", err)
		}
	}
}

func printEvent(ev *blackboard.Event) {
	ts := time.UnixMilli(ev.CreatedAtMs).Format("15:04:05")
	printer.Printf("%s  #%-3d %-22s %s\n", ts, ev.Seq, ev.Type, formatMeta(ev.Meta))
}

func formatMeta(meta map[string]string) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, meta[k]))
	}
	return strings.Join(parts, " ")
}
