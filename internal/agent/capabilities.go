package agent

import (
	"context"
	"strings"

	"github.com/atelier-ai/atelier/internal/llm"
	"github.com/atelier-ai/atelier/pkg/blackboard"
)

// CapabilitiesAgent extracts the required entities, features and auth
// requirements from the project brief.
type CapabilitiesAgent struct {
	gw llm.Gateway
}

func NewCapabilitiesAgent(gw llm.Gateway) *CapabilitiesAgent {
	return &CapabilitiesAgent{gw: gw}
}

func (a *CapabilitiesAgent) ID() ID { return IDCapabilities }

func (a *CapabilitiesAgent) CanRun(s *blackboard.State) bool {
	return !s.GoalReached && s.Profile != nil && s.Capabilities == nil
}

func (a *CapabilitiesAgent) Run(ctx context.Context, s *blackboard.State) (*Update, error) {
	fallback := map[string]interface{}{
		"entities":       toInterfaceSlice(guessEntities(s)),
		"features":       toInterfaceSlice([]string{"crud", "listing"}),
		"auth":           promptWantsAuth(s.Prompt),
		"roles":          toInterfaceSlice(nil),
		"non_functional": toInterfaceSlice(nil),
	}
	result := llm.ExtractWithFallback(ctx, a.gw,
		"You extract requirements from software project briefs. Respond with a JSON object: entities (array of singular nouns), features (array), auth (bool), roles (array), non_functional (array).",
		describeProject(s), fallback)

	caps := &blackboard.Capabilities{
		Entities:      llm.StringSlice(result["entities"]),
		Features:      llm.StringSlice(result["features"]),
		Auth:          llm.BoolValue(result["auth"], false),
		Roles:         llm.StringSlice(result["roles"]),
		NonFunctional: llm.StringSlice(result["non_functional"]),
	}
	if len(caps.Entities) == 0 {
		caps.Entities = guessEntities(s)
	}
	return &Update{Capabilities: caps}, nil
}

// guessEntities derives plausible core entities from the classified domain.
func guessEntities(s *blackboard.State) []string {
	domain := "web_app"
	if s.Profile != nil {
		domain = s.Profile.Domain
	}
	switch domain {
	case "e_commerce":
		return []string{"product", "order", "customer"}
	case "content":
		return []string{"post", "author", "comment"}
	case "messaging":
		return []string{"message", "channel", "user"}
	case "analytics":
		return []string{"metric", "report", "dashboard"}
	case "task_management":
		return []string{"task", "project", "user"}
	default:
		return []string{"item", "user"}
	}
}

func promptWantsAuth(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, kw := range []string{"auth", "login", "sign in", "signin", "account", "user role"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func toInterfaceSlice(items []string) []interface{} {
	out := make([]interface{}, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}
