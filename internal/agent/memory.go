package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/atelier-ai/atelier/internal/llm"
	"github.com/atelier-ai/atelier/internal/memory"
	"github.com/atelier-ai/atelier/pkg/blackboard"
	"github.com/atelier-ai/atelier/pkg/contract"
)

// seedSimilarity is the minimum similarity to a past run before memory
// seeds the contract from it.
const seedSimilarity = 0.5

// MemoryAgent runs first in every pipeline. On its initial pass it
// classifies the prompt into a domain profile, pulls hints from similar past
// runs, and optionally seeds the contract. On later passes, triggered by
// expand_contract events, it escalates the contract mode so validation
// stops accepting structurally incomplete output.
type MemoryAgent struct {
	store *memory.Store
	gw    llm.Gateway
}

func NewMemoryAgent(store *memory.Store, gw llm.Gateway) *MemoryAgent {
	return &MemoryAgent{store: store, gw: gw}
}

func (a *MemoryAgent) ID() ID { return IDMemory }

func (a *MemoryAgent) CanRun(s *blackboard.State) bool {
	if s.GoalReached {
		return false
	}
	if s.Profile == nil {
		return true
	}
	return s.HasEventSince(string(IDMemory), blackboard.EventExpandContract)
}

func (a *MemoryAgent) Run(ctx context.Context, s *blackboard.State) (*Update, error) {
	if s.Profile != nil {
		return a.escalate(s), nil
	}
	return a.firstPass(ctx, s), nil
}

// escalate handles the event-triggered re-run: validation keeps finding
// contract gaps, so tighten the gate.
func (a *MemoryAgent) escalate(s *blackboard.State) *Update {
	u := &Update{}
	if s.ContractMode.Rank() < blackboard.ModeStrict.Rank() {
		u.ContractMode = blackboard.ModeStrict
		u.CoachNotes = []string{"contract gaps persisted, escalated to strict contract mode"}
	}
	return u
}

func (a *MemoryAgent) firstPass(ctx context.Context, s *blackboard.State) *Update {
	fallback := map[string]interface{}{
		"domain":            classifyDomain(s.Prompt),
		"complexity":        classifyComplexity(s.Prompt),
		"performance_needs": "medium",
	}
	result := llm.ExtractWithFallback(ctx, a.gw,
		"You classify software project briefs. Respond with a JSON object containing domain, complexity (simple|moderate|complex) and performance_needs (low|medium|high).",
		s.Prompt, fallback)

	u := &Update{
		Profile: &blackboard.DomainProfile{
			Domain:           llm.StringValue(result["domain"], "web_app"),
			Complexity:       llm.StringValue(result["complexity"], "moderate"),
			PerformanceNeeds: llm.StringValue(result["performance_needs"], "medium"),
		},
	}

	if a.store == nil {
		return u
	}

	similar := a.store.FindSimilar(ctx, s.Prompt, 3)
	for _, sim := range similar {
		u.Hints = append(u.Hints, fmt.Sprintf(
			"similar past run (%.0f%% match, score %.1f): %s",
			sim.Similarity*100, sim.SuccessScore, summarizeStack(sim.TechStack)))
	}

	if len(similar) > 0 && similar[0].Similarity >= seedSimilarity {
		seed := contract.WithBaseline(&contract.Contract{Source: "memory_seed"})
		seed.Source = "memory_seed"
		u.Contract = seed
		u.ContractSeededByMemory = boolPtr(true)
	}
	return u
}

func summarizeStack(stack []blackboard.TechChoice) string {
	if len(stack) == 0 {
		return "no recorded stack"
	}
	parts := make([]string, 0, len(stack))
	for _, c := range stack {
		parts = append(parts, fmt.Sprintf("%s=%s", c.Role, c.Name))
	}
	return strings.Join(parts, ", ")
}

// domainKeywords maps prompt keywords to coarse domains, checked in order.
var domainKeywords = []struct {
	domain   string
	keywords []string
}{
	{"e_commerce", []string{"shop", "store", "cart", "checkout", "product catalog", "e-commerce", "ecommerce"}},
	{"content", []string{"blog", "cms", "article", "publishing"}},
	{"messaging", []string{"chat", "message", "messaging", "notification"}},
	{"analytics", []string{"dashboard", "analytics", "metric", "report"}},
	{"task_management", []string{"todo", "task", "kanban", "project management"}},
	{"api_service", []string{"api", "rest", "microservice", "webhook"}},
}

func classifyDomain(prompt string) string {
	lower := strings.ToLower(prompt)
	for _, entry := range domainKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.domain
			}
		}
	}
	return "web_app"
}

func classifyComplexity(prompt string) string {
	lower := strings.ToLower(prompt)
	signals := 0
	for _, kw := range []string{"auth", "login", "role", "payment", "real-time", "realtime", "search", "admin", "upload", "multi-tenant"} {
		if strings.Contains(lower, kw) {
			signals++
		}
	}
	switch {
	case signals >= 3:
		return "complex"
	case signals >= 1:
		return "moderate"
	default:
		return "simple"
	}
}
