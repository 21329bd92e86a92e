package commands

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/atelier-ai/atelier/internal/agent"
	"github.com/atelier-ai/atelier/internal/config"
	"github.com/atelier-ai/atelier/internal/llm"
	"github.com/atelier-ai/atelier/internal/memory"
	"github.com/atelier-ai/atelier/internal/orchestrator"
	"github.com/atelier-ai/atelier/internal/printer"
	"github.com/atelier-ai/atelier/internal/scaffold"
	"github.com/atelier-ai/atelier/pkg/blackboard"
)

var runOutputDir string

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Generate a project from a one-line brief",
	Long: `Run the full agent pipeline for a project brief.

The pipeline classifies the brief, debates a tech stack, agrees on a
delivery contract, generates code and validates it in a refinement loop.
The best result is written to the output directory.

Prerequisites:
  • A running Redis instance (see redis.url in atelier.yml)
  • An LLM provider, or llm.provider: fake for deterministic offline runs

Examples:
  # Generate a project
  atelier run "Build a blog with posts and comments"

  # Write the result somewhere specific
  atelier run --output ./my-blog "Build a blog"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runOutputDir, "output", "o", "", "Output directory (defaults to output.dir/<run-id> from config)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		return printer.Error(
			"empty project brief",
			"The run command needs a one-line description of what to build.",
			[]string{"Example:\n  atelier run \"Build a blog with posts and comments\""},
		)
	}

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

	if err := client.Ping(ctx); err != nil {
		return printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", cfg.Redis.URL),
			map[string]string{"Config": configPath},
			[]string{"Start Redis, or point redis.url at a running instance"},
		)
	}

	gateway, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return printer.Error(
			"failed to configure LLM provider",
			err.Error(),
			[]string{"Check the llm section of " + configPath},
		)
	}

	store := memory.NewStore(redisOpts)
	defer store.Close()

	registry, err := agent.DefaultRegistry(gateway, store, cfg.Pipeline.Perspectives)
	if err != nil {
		return fmt.Errorf("failed to build agent registry: %w", err)
	}

	engine := orchestrator.NewEngine(client, registry, cfg.Pipeline.MaxSteps)
	engine.OnStep = func(step int, id agent.ID, s *blackboard.State) {
		printer.Agent(step, string(id))
		if id == agent.IDValidate && s.Validation != nil {
			printer.Score(s.Validation.Score, s.ValidationThreshold)
		}
	}

	printer.Step("Starting run for: %s\n", prompt)

	state, err := engine.StartRun(ctx, prompt, orchestrator.Policy{
		ValidationThreshold: cfg.Pipeline.ValidationThreshold,
		RequireValidStatus:  cfg.Pipeline.RequireValidStatus,
		MaxCodegenIters:     cfg.Pipeline.MaxCodegenIters,
		ContractMode:        blackboard.ContractMode(cfg.Pipeline.ContractMode),
	})
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}

	if err := engine.Run(ctx, state); err != nil {
		return fmt.Errorf("run %s failed: %w", state.RunID, err)
	}

	printSummary(state)

	if state.BestCode.FileCount() == 0 {
		printer.Warning("No code was produced, nothing to write\n")
		return nil
	}

	outDir := runOutputDir
	if outDir == "" {
		outDir = filepath.Join(cfg.Output.Dir, shortID(state.RunID))
	}
	if err := scaffold.WriteProject(outDir, state.BestCode.Files); err != nil {
		return fmt.Errorf("failed to write project: %w", err)
	}
	printer.Success("Project written to %s (%d files)\n", outDir, state.BestCode.FileCount())
	return nil
}

func printSummary(s *blackboard.State) {
	printer.Println()
	if s.Evaluation != nil && s.Evaluation.Outcome == "goal_reached" {
		printer.Success("Run %s reached its goal\n", shortID(s.RunID))
	} else {
		printer.Warning("Run %s stopped on budget, shipping best attempt\n", shortID(s.RunID))
	}

	printer.Printf("  Best score:    %d/10\n", max(s.BestScore, 0))
	printer.Printf("  Iterations:    %d\n", s.CodegenIters)
	if s.Profile != nil {
		printer.Printf("  Domain:        %s (%s)\n", s.Profile.Domain, s.Profile.Complexity)
	}
	if len(s.TechStack) > 0 {
		var parts []string
		for _, choice := range s.TechStack {
			parts = append(parts, choice.Name)
		}
		printer.Printf("  Stack:         %s\n", strings.Join(parts, " + "))
	}
	if s.Contract != nil {
		printer.Printf("  Contract:      %d files, %d endpoints, %d tables\n",
			len(s.Contract.Files), len(s.Contract.Endpoints), len(s.Contract.Tables))
	}
}

func shortID(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}
