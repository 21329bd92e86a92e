package agent

import (
	"context"
	"fmt"

	"github.com/atelier-ai/atelier/internal/llm"
	"github.com/atelier-ai/atelier/pkg/blackboard"
	"github.com/atelier-ai/atelier/pkg/contract"
)

// ContractAgent proposes the delivery contract: the files, endpoints and
// tables the generated project must contain. Proposals merge by union into
// whatever contract already exists, so a rebuild can only add requirements.
type ContractAgent struct {
	gw llm.Gateway
}

func NewContractAgent(gw llm.Gateway) *ContractAgent {
	return &ContractAgent{gw: gw}
}

func (a *ContractAgent) ID() ID { return IDContract }

func (a *ContractAgent) CanRun(s *blackboard.State) bool {
	if s.GoalReached {
		return false
	}
	return contract.IsEmpty(s.Contract) || s.RedoContract
}

func (a *ContractAgent) Run(ctx context.Context, s *blackboard.State) (*Update, error) {
	fallback := fallbackContract(s)
	result := llm.ExtractWithFallback(ctx, a.gw,
		"You define the delivery contract for a generated web project. Respond with a JSON object: files (array of relative paths), endpoints (array of {method, path}), tables (array of names).",
		describeProject(s)+describeCapabilities(s), fallback)

	proposed := &contract.Contract{
		Files:  llm.StringSlice(result["files"]),
		Source: "llm",
	}
	for _, item := range toMapSlice(result["endpoints"]) {
		proposed.Endpoints = append(proposed.Endpoints, contract.Endpoint{
			Method: llm.StringValue(item["method"], "GET"),
			Path:   llm.StringValue(item["path"], ""),
		})
	}
	for _, name := range llm.StringSlice(result["tables"]) {
		proposed.Tables = append(proposed.Tables, contract.Table{Name: name})
	}

	merged := contract.WithBaseline(contract.Merge(s.Contract, proposed))
	return &Update{
		Contract:     merged,
		RedoContract: boolPtr(false),
	}, nil
}

// fallbackContract builds a deterministic contract from the capabilities:
// CRUD endpoints and a backend module per entity, plus the usual frontend
// shell files.
func fallbackContract(s *blackboard.State) map[string]interface{} {
	entities := guessEntities(s)
	if s.Capabilities != nil && len(s.Capabilities.Entities) > 0 {
		entities = s.Capabilities.Entities
	}

	files := []string{
		"backend/main.py",
		"backend/requirements.txt",
		"frontend/index.html",
		"frontend/app.js",
	}
	endpoints := []interface{}{}
	tables := []string{}
	for _, entity := range entities {
		files = append(files, fmt.Sprintf("backend/routes/%s.py", entity))
		endpoints = append(endpoints,
			map[string]interface{}{"method": "GET", "path": fmt.Sprintf("/api/%ss", entity)},
			map[string]interface{}{"method": "POST", "path": fmt.Sprintf("/api/%ss", entity)},
			map[string]interface{}{"method": "GET", "path": fmt.Sprintf("/api/%ss/{id}", entity)},
		)
		tables = append(tables, entity+"s")
	}
	if s.Capabilities != nil && s.Capabilities.Auth {
		files = append(files, "backend/routes/auth.py")
		endpoints = append(endpoints,
			map[string]interface{}{"method": "POST", "path": "/api/auth/login"},
			map[string]interface{}{"method": "POST", "path": "/api/auth/register"},
		)
		tables = append(tables, "users")
	}

	return map[string]interface{}{
		"files":     toInterfaceSlice(files),
		"endpoints": endpoints,
		"tables":    toInterfaceSlice(tables),
	}
}

func describeCapabilities(s *blackboard.State) string {
	if s.Capabilities == nil {
		return ""
	}
	return fmt.Sprintf("\nEntities: %v\nFeatures: %v\nAuth required: %v\n",
		s.Capabilities.Entities, s.Capabilities.Features, s.Capabilities.Auth)
}

func toMapSlice(v interface{}) []map[string]interface{} {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []map[string]interface{}
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}
