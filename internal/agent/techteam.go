package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/atelier-ai/atelier/internal/llm"
	"github.com/atelier-ai/atelier/pkg/blackboard"
)

// stackRoles are the roles every proposed stack must cover.
var stackRoles = []string{"backend", "frontend", "database", "deployment"}

// fallbackStack is the deterministic choice per role when no model answer
// is available.
var fallbackStack = map[string]string{
	"backend":    "fastapi",
	"frontend":   "react",
	"database":   "postgresql",
	"deployment": "docker-compose",
}

// TechTeamAgent consults several advisory perspectives in parallel, then
// moderates their proposals into one stack. Perspectives that fail simply
// drop out of the debate.
type TechTeamAgent struct {
	gw           llm.Gateway
	perspectives []string
}

func NewTechTeamAgent(gw llm.Gateway, perspectives []string) *TechTeamAgent {
	if len(perspectives) == 0 {
		perspectives = []string{"pragmatist", "performance", "security"}
	}
	return &TechTeamAgent{gw: gw, perspectives: perspectives}
}

func (a *TechTeamAgent) ID() ID { return IDTechTeam }

// CanRun admits the first debate once the profile exists, and a re-debate
// whenever a need_debate event landed after the agent's last pass.
func (a *TechTeamAgent) CanRun(s *blackboard.State) bool {
	if s.GoalReached || s.Profile == nil {
		return false
	}
	if len(s.TechStack) == 0 {
		return true
	}
	return s.HasEventSince(string(IDTechTeam), blackboard.EventNeedDebate)
}

type perspectiveProposal struct {
	perspective string
	choices     map[string]string // role -> technology
}

func (a *TechTeamAgent) Run(ctx context.Context, s *blackboard.State) (*Update, error) {
	proposals := a.gatherProposals(ctx, s)

	disagreed := rolesInDispute(proposals)
	merged := a.moderate(ctx, s, proposals, disagreed)

	stack := make([]blackboard.TechChoice, 0, len(stackRoles))
	for _, role := range stackRoles {
		name := merged[role]
		if name == "" {
			name = fallbackStack[role]
		}
		stack = append(stack, blackboard.TechChoice{
			Role:      role,
			Name:      name,
			Reasoning: reasoningFor(role, name, proposals),
		})
	}

	u := &Update{TechStack: stack}
	if len(disagreed) > 0 {
		u.Events = append(u.Events, EventDraft{
			Type: blackboard.EventNeedDebate,
			Meta: map[string]string{"roles": strings.Join(disagreed, ",")},
		})
	}
	return u, nil
}

// gatherProposals fans one gateway call out per perspective and joins the
// results. Order in the returned slice follows the configured perspectives.
func (a *TechTeamAgent) gatherProposals(ctx context.Context, s *blackboard.State) []perspectiveProposal {
	results := make([]perspectiveProposal, len(a.perspectives))

	var wg sync.WaitGroup
	for i, perspective := range a.perspectives {
		wg.Add(1)
		go func(i int, perspective string) {
			defer wg.Done()
			fallback := make(map[string]interface{}, len(fallbackStack))
			for role, name := range fallbackStack {
				fallback[role] = name
			}
			result := llm.ExtractWithFallback(ctx, a.gw,
				fmt.Sprintf("You are the %s advisor on a technology selection panel. Propose one technology per role. Respond with a JSON object with keys backend, frontend, database, deployment.", perspective),
				describeProject(s), fallback)

			choices := make(map[string]string, len(stackRoles))
			for _, role := range stackRoles {
				choices[role] = strings.ToLower(llm.StringValue(result[role], fallbackStack[role]))
			}
			results[i] = perspectiveProposal{perspective: perspective, choices: choices}
		}(i, perspective)
	}
	wg.Wait()

	return results
}

// moderate resolves the panel into a final stack. When perspectives agree
// the majority stands as-is; disputed roles go to one moderation call with
// the deterministic majority as fallback.
func (a *TechTeamAgent) moderate(ctx context.Context, s *blackboard.State, proposals []perspectiveProposal, disagreed []string) map[string]string {
	merged := make(map[string]string, len(stackRoles))
	for _, role := range stackRoles {
		merged[role] = majorityChoice(role, proposals)
	}
	if len(disagreed) == 0 {
		return merged
	}

	fallback := make(map[string]interface{}, len(merged))
	for role, name := range merged {
		fallback[role] = name
	}
	result := llm.ExtractWithFallback(ctx, a.gw,
		"You moderate a technology debate. Pick the final technology for each disputed role. Respond with a JSON object with keys backend, frontend, database, deployment.",
		describeProject(s)+"\n\nPanel proposals:\n"+formatProposals(proposals),
		fallback)
	for _, role := range stackRoles {
		merged[role] = strings.ToLower(llm.StringValue(result[role], merged[role]))
	}
	return merged
}

func describeProject(s *blackboard.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project brief: %s\n", s.Prompt)
	if s.Profile != nil {
		fmt.Fprintf(&b, "Domain: %s, complexity: %s, performance needs: %s\n",
			s.Profile.Domain, s.Profile.Complexity, s.Profile.PerformanceNeeds)
	}
	for _, hint := range s.Hints {
		fmt.Fprintf(&b, "Hint: %s\n", hint)
	}
	return b.String()
}

func formatProposals(proposals []perspectiveProposal) string {
	var b strings.Builder
	for _, p := range proposals {
		fmt.Fprintf(&b, "- %s:", p.perspective)
		for _, role := range stackRoles {
			fmt.Fprintf(&b, " %s=%s", role, p.choices[role])
		}
		b.WriteString("\n")
	}
	return b.String()
}

// majorityChoice picks the most proposed technology for a role, breaking
// ties by alphabetical order so the result is deterministic.
func majorityChoice(role string, proposals []perspectiveProposal) string {
	counts := make(map[string]int)
	for _, p := range proposals {
		if name := p.choices[role]; name != "" {
			counts[name]++
		}
	}
	if len(counts) == 0 {
		return fallbackStack[role]
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	best := names[0]
	for _, name := range names[1:] {
		if counts[name] > counts[best] {
			best = name
		}
	}
	return best
}

// rolesInDispute returns the roles where the panel did not agree, sorted.
func rolesInDispute(proposals []perspectiveProposal) []string {
	var disputed []string
	for _, role := range stackRoles {
		seen := make(map[string]struct{})
		for _, p := range proposals {
			if name := p.choices[role]; name != "" {
				seen[name] = struct{}{}
			}
		}
		if len(seen) > 1 {
			disputed = append(disputed, role)
		}
	}
	sort.Strings(disputed)
	return disputed
}

func reasoningFor(role, name string, proposals []perspectiveProposal) string {
	var backers []string
	for _, p := range proposals {
		if p.choices[role] == name {
			backers = append(backers, p.perspective)
		}
	}
	if len(backers) == 0 {
		return "default choice"
	}
	return "backed by " + strings.Join(backers, ", ")
}
