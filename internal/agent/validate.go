package agent

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/atelier-ai/atelier/internal/llm"
	"github.com/atelier-ai/atelier/pkg/blackboard"
	"github.com/atelier-ai/atelier/pkg/contract"
)

// ValidateAgent scores the generated tree against the contract. Structural
// checks (file presence, endpoint mentions, baseline coverage) run locally;
// the quality score comes from the model with a deterministic fallback. The
// report is a routing input: gaps are recorded, never raised as errors.
type ValidateAgent struct {
	gw llm.Gateway
}

func NewValidateAgent(gw llm.Gateway) *ValidateAgent {
	return &ValidateAgent{gw: gw}
}

func (a *ValidateAgent) ID() ID { return IDValidate }

// CanRun gates on the iteration counters: a codegen pass is validated
// exactly once, however many times the agent lands on the queue.
func (a *ValidateAgent) CanRun(s *blackboard.State) bool {
	return !s.GoalReached && s.Generated != nil && s.LastValidatedIter < s.CodegenIters
}

func (a *ValidateAgent) Run(ctx context.Context, s *blackboard.State) (*Update, error) {
	if s.Generated.FileCount() == 0 {
		report := &blackboard.ValidationReport{
			Status: blackboard.StatusNoCode,
			Score:  0,
			Issues: []string{"code generation produced no files"},
		}
		return a.finish(s, report), nil
	}

	missingFiles := missingContractFiles(s.Contract, s.Generated)
	missingEndpoints := missingContractEndpoints(s.Contract, s.Generated)
	missingBaseline := missingBaselineItems(s.Generated)

	report := a.score(ctx, s, missingFiles, missingEndpoints, missingBaseline)
	report.MissingFiles = missingFiles
	report.MissingEndpoints = missingEndpoints
	report.MissingBaseline = missingBaseline

	structuralGaps := len(missingFiles)+len(missingEndpoints)+len(missingBaseline) > 0
	switch s.ContractMode {
	case blackboard.ModeFree:
		// no contract gating at all
		report.MissingFiles = nil
		report.MissingEndpoints = nil
		report.MissingBaseline = nil
	case blackboard.ModeStrict:
		if structuralGaps {
			report.Status = blackboard.StatusInvalid
			if report.Score > 5 {
				report.Score = 5
			}
		}
	}

	u := a.finish(s, report)
	if mismatch := stackMismatch(s.TechStack, s.Generated); mismatch != "" {
		report.Issues = append(report.Issues, mismatch)
		u.Events = append(u.Events, EventDraft{
			Type: blackboard.EventNeedDebate,
			Meta: map[string]string{"reason": mismatch},
		})
	}
	return u, nil
}

// score asks the model for a 0-10 quality assessment. The fallback score is
// structural: a complete tree rates 6, a gapped one 3.
func (a *ValidateAgent) score(ctx context.Context, s *blackboard.State, missingFiles, missingEndpoints, missingBaseline []string) *blackboard.ValidationReport {
	fallbackScore := 6
	var fallbackIssues []interface{}
	if n := len(missingFiles) + len(missingEndpoints) + len(missingBaseline); n > 0 {
		fallbackScore = 3
		fallbackIssues = append(fallbackIssues, fmt.Sprintf("%d contract items missing from the generated tree", n))
	}

	result := llm.ExtractWithFallback(ctx, a.gw,
		"You review a generated web project against its delivery contract. Respond with a JSON object: score (0-10 integer), status (valid|issues|invalid), issues (array), suggestions (array).",
		validatePrompt(s, missingFiles, missingEndpoints, missingBaseline),
		map[string]interface{}{
			"score":       fallbackScore,
			"status":      "issues",
			"issues":      fallbackIssues,
			"suggestions": []interface{}{},
		})

	score := llm.IntValue(result["score"], fallbackScore)
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}

	status := blackboard.ValidationStatus(llm.StringValue(result["status"], "issues"))
	if status.Validate() != nil || status == blackboard.StatusNoCode {
		status = blackboard.StatusIssues
	}

	return &blackboard.ValidationReport{
		Status:      status,
		Score:       score,
		Issues:      llm.StringSlice(result["issues"]),
		Suggestions: llm.StringSlice(result["suggestions"]),
	}
}

// finish assembles the update common to every validation outcome: the
// report, the iteration marker, the best-snapshot ratchet and the events.
func (a *ValidateAgent) finish(s *blackboard.State, report *blackboard.ValidationReport) *Update {
	u := &Update{
		Validation:        report,
		LastValidatedIter: intPtr(s.CodegenIters),
		Events: []EventDraft{{
			Type: blackboard.EventValidationCompleted,
			Meta: map[string]string{
				"score":  strconv.Itoa(report.Score),
				"status": string(report.Status),
				"iter":   strconv.Itoa(s.CodegenIters),
			},
		}},
	}

	if report.Score > s.BestScore && s.Generated.FileCount() > 0 {
		u.BestScore = intPtr(report.Score)
		u.BestCode = s.Generated
	}

	if len(report.MissingBaseline) > 0 || len(report.MissingFiles) > 0 {
		u.Events = append(u.Events, EventDraft{
			Type: blackboard.EventExpandContract,
			Meta: map[string]string{
				"missing_files":    strconv.Itoa(len(report.MissingFiles)),
				"missing_baseline": strconv.Itoa(len(report.MissingBaseline)),
			},
		})
	}

	if report.Score <= 2 && s.CodegenIters >= 2 {
		u.Events = append(u.Events, EventDraft{
			Type: blackboard.EventNeedDebate,
			Meta: map[string]string{"score": strconv.Itoa(report.Score)},
		})
	}

	return u
}

func validatePrompt(s *blackboard.State, missingFiles, missingEndpoints, missingBaseline []string) string {
	var b strings.Builder
	b.WriteString(describeProject(s))
	if s.Contract != nil {
		fmt.Fprintf(&b, "\nContract: %d files, %d endpoints, %d tables\n",
			len(s.Contract.Files), len(s.Contract.Endpoints), len(s.Contract.Tables))
	}
	fmt.Fprintf(&b, "Generated files (%d):\n", s.Generated.FileCount())
	for _, p := range sortedPaths(s.Generated.Files) {
		fmt.Fprintf(&b, "--- %s ---\n%s\n", p, truncate(s.Generated.Files[p], 2000))
	}
	if len(missingFiles) > 0 {
		fmt.Fprintf(&b, "\nMissing contract files: %s\n", strings.Join(missingFiles, ", "))
	}
	if len(missingEndpoints) > 0 {
		fmt.Fprintf(&b, "Missing endpoints: %s\n", strings.Join(missingEndpoints, ", "))
	}
	if len(missingBaseline) > 0 {
		fmt.Fprintf(&b, "Missing baseline: %s\n", strings.Join(missingBaseline, ", "))
	}
	return b.String()
}

// missingContractFiles returns contract file entries with no matching
// generated file. Entries may be globs; plain entries match exactly.
func missingContractFiles(c *contract.Contract, g *blackboard.GeneratedCode) []string {
	if c == nil {
		return nil
	}
	var missing []string
	for _, pattern := range c.Files {
		if fileMatches(pattern, g) {
			continue
		}
		missing = append(missing, pattern)
	}
	return missing
}

func fileMatches(pattern string, g *blackboard.GeneratedCode) bool {
	if !strings.ContainsAny(pattern, "*?[") {
		_, ok := g.Files[pattern]
		return ok
	}
	for p := range g.Files {
		if ok, err := path.Match(pattern, p); err == nil && ok {
			return true
		}
	}
	return false
}

// missingContractEndpoints returns endpoints whose path appears in no
// generated file. A textual mention is the bar here; behavioral checks are
// the generated project's own test suite's job.
func missingContractEndpoints(c *contract.Contract, g *blackboard.GeneratedCode) []string {
	if c == nil {
		return nil
	}
	var missing []string
	for _, e := range c.Endpoints {
		found := false
		for _, content := range g.Files {
			if strings.Contains(content, e.Path) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, fmt.Sprintf("%s %s", e.Method, e.Path))
		}
	}
	return missing
}

// missingBaselineItems checks the generated tree itself against the fixed
// baseline, independent of what the contract says.
func missingBaselineItems(g *blackboard.GeneratedCode) []string {
	var missing []string
	for _, f := range contract.BaselineFiles {
		if g.Files[f] == "" {
			missing = append(missing, "file:"+f)
		}
	}
	for _, e := range contract.BaselineEndpoints {
		found := false
		for _, content := range g.Files {
			if strings.Contains(content, e.Path) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, fmt.Sprintf("endpoint:%s %s", e.Method, e.Path))
		}
	}
	return missing
}

// techExtensions maps a technology to the source extension its projects
// carry. Only technologies in this table are mismatch-checked.
var techExtensions = map[string]string{
	"fastapi": ".py",
	"django":  ".py",
	"flask":   ".py",
	"express": ".js",
	"gin":     ".go",
	"fiber":   ".go",
	"react":   ".js",
	"vue":     ".js",
	"svelte":  ".js",
}

// stackMismatch reports a chosen backend or frontend technology whose
// source extension appears nowhere in the generated tree. A mismatch means
// codegen ignored the stack, which is a debate matter, not a codegen retry.
func stackMismatch(stack []blackboard.TechChoice, g *blackboard.GeneratedCode) string {
	for _, choice := range stack {
		if choice.Role != "backend" && choice.Role != "frontend" {
			continue
		}
		ext, known := techExtensions[strings.ToLower(choice.Name)]
		if !known {
			continue
		}
		if treeHasExtension(g, ext) {
			continue
		}
		return fmt.Sprintf("%s stack is %s but no %s files were generated", choice.Role, choice.Name, ext)
	}
	return ""
}

func treeHasExtension(g *blackboard.GeneratedCode, ext string) bool {
	alt := map[string][]string{".js": {".jsx", ".ts", ".tsx"}}
	for p := range g.Files {
		if strings.HasSuffix(p, ext) {
			return true
		}
		for _, a := range alt[ext] {
			if strings.HasSuffix(p, a) {
				return true
			}
		}
	}
	return false
}

func sortedPaths(files map[string]string) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n... (truncated)"
}
