// Package runlist formats the run index for CLI display.
package runlist

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atelier-ai/atelier/pkg/blackboard"
)

// FormatTable writes runs as a formatted table to the provided writer.
// Columns: ID, STATUS, SCORE, AGE and PROMPT (truncated). Returns the
// number of runs formatted.
func FormatTable(w io.Writer, runs []blackboard.RunInfo) int {
	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs found\n")
		return 0
	}

	fmt.Fprintf(w, "%-10s %-10s %-6s %-8s %s\n",
		"ID", "STATUS", "SCORE", "AGE", "PROMPT")
	fmt.Fprintf(w, "%-10s %-10s %-6s %-8s %s\n",
		"----------", "----------", "------", "--------", "----------------------------------------")

	for _, r := range runs {
		fmt.Fprintf(w, "%-10s %-10s %-6s %-8s %s\n",
			formatID(r.RunID),
			formatStatus(r.GoalReached),
			formatScore(r.BestScore),
			formatAge(r.CreatedAtMs),
			formatPrompt(r.Prompt),
		)
	}

	countMsg := "run"
	if len(runs) != 1 {
		countMsg = "runs"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(runs), countMsg)

	return len(runs)
}

// FormatJSONL writes runs as line-delimited JSON to the provided writer.
// This format is ideal for processing with tools like jq.
func FormatJSONL(w io.Writer, runs []blackboard.RunInfo) error {
	for _, r := range runs {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal run to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", string(data)); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// formatID truncates run IDs to the first 8 characters for compact display.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatStatus(goalReached bool) string {
	if goalReached {
		return "done"
	}
	return "running"
}

// formatScore renders the best score, or "-" before the first validation.
func formatScore(score int) string {
	if score < 0 {
		return "-"
	}
	return fmt.Sprintf("%d/10", score)
}

// formatAge renders the run age in a compact humanized form.
func formatAge(createdAtMs int64) string {
	if createdAtMs == 0 {
		return "-"
	}
	age := time.Since(time.UnixMilli(createdAtMs))
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd", int(age.Hours()/24))
	}
}

// formatPrompt truncates the prompt to its first line, max 40 characters.
func formatPrompt(prompt string) string {
	if prompt == "" {
		return "-"
	}
	if idx := strings.IndexByte(prompt, '\n'); idx >= 0 {
		prompt = prompt[:idx]
	}
	if len(prompt) > 40 {
		return prompt[:37] + "..."
	}
	return prompt
}
