package agent

import (
	"context"
	"fmt"

	"github.com/atelier-ai/atelier/internal/llm"
	"github.com/atelier-ai/atelier/pkg/blackboard"
)

// ArchitectureAgent writes the short architecture outline codegen follows:
// layering, component boundaries and where each contract concern lives.
type ArchitectureAgent struct {
	gw llm.Gateway
}

func NewArchitectureAgent(gw llm.Gateway) *ArchitectureAgent {
	return &ArchitectureAgent{gw: gw}
}

func (a *ArchitectureAgent) ID() ID { return IDArchitecture }

func (a *ArchitectureAgent) CanRun(s *blackboard.State) bool {
	return !s.GoalReached && s.Contract != nil && len(s.Architecture) == 0
}

func (a *ArchitectureAgent) Run(ctx context.Context, s *blackboard.State) (*Update, error) {
	fallback := map[string]interface{}{
		"layers": toInterfaceSlice(defaultArchitecture(s)),
	}
	result := llm.ExtractWithFallback(ctx, a.gw,
		"You outline the architecture of a small web project. Respond with a JSON object: layers (array of one-line architecture decisions).",
		describeProject(s)+describeCapabilities(s), fallback)

	layers := llm.StringSlice(result["layers"])
	if len(layers) == 0 {
		layers = defaultArchitecture(s)
	}
	return &Update{Architecture: layers}, nil
}

func defaultArchitecture(s *blackboard.State) []string {
	backend, frontend, database := "fastapi", "react", "postgresql"
	for _, choice := range s.TechStack {
		switch choice.Role {
		case "backend":
			backend = choice.Name
		case "frontend":
			frontend = choice.Name
		case "database":
			database = choice.Name
		}
	}
	return []string{
		fmt.Sprintf("%s backend exposing the REST API under /api", backend),
		fmt.Sprintf("%s frontend served as static assets", frontend),
		fmt.Sprintf("%s for persistence, schema managed in db/schema.sql", database),
		"route handlers per entity, shared persistence layer",
		"docker-compose wires backend, frontend and database for local dev",
	}
}
