package agent

import (
	"context"
	"strings"

	"github.com/atelier-ai/atelier/pkg/blackboard"
)

// StackResolverAgent normalizes the proposed tech stack: exactly one choice
// per role, lowercase names, missing roles filled from the deterministic
// defaults. It is idempotent, so re-running it is harmless.
type StackResolverAgent struct{}

func NewStackResolverAgent() *StackResolverAgent { return &StackResolverAgent{} }

func (a *StackResolverAgent) ID() ID { return IDStackResolver }

func (a *StackResolverAgent) CanRun(s *blackboard.State) bool {
	return !s.GoalReached && len(s.TechStack) > 0
}

func (a *StackResolverAgent) Run(ctx context.Context, s *blackboard.State) (*Update, error) {
	byRole := make(map[string]blackboard.TechChoice, len(s.TechStack))
	for _, choice := range s.TechStack {
		role := strings.ToLower(strings.TrimSpace(choice.Role))
		if role == "" {
			continue
		}
		// first occurrence per role wins
		if _, seen := byRole[role]; seen {
			continue
		}
		choice.Role = role
		choice.Name = strings.ToLower(strings.TrimSpace(choice.Name))
		byRole[role] = choice
	}

	resolved := make([]blackboard.TechChoice, 0, len(stackRoles))
	for _, role := range stackRoles {
		choice, ok := byRole[role]
		if !ok || choice.Name == "" {
			choice = blackboard.TechChoice{Role: role, Name: fallbackStack[role], Reasoning: "default choice"}
		}
		resolved = append(resolved, choice)
	}
	return &Update{TechStack: resolved}, nil
}
