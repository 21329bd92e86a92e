package agent

import (
	"fmt"

	"github.com/atelier-ai/atelier/internal/llm"
	"github.com/atelier-ai/atelier/internal/memory"
)

// knownIDs is the closed set of agent ids the registry accepts.
var knownIDs = map[ID]struct{}{
	IDMemory:        {},
	IDTechTeam:      {},
	IDStackResolver: {},
	IDCapabilities:  {},
	IDContract:      {},
	IDContractGuard: {},
	IDArchitecture:  {},
	IDCodegen:       {},
	IDDatabase:      {},
	IDDeployment:    {},
	IDValidate:      {},
	IDRouter:        {},
	IDEvaluation:    {},
}

// KnownID reports whether id belongs to the closed agent id set.
func KnownID(id ID) bool {
	_, ok := knownIDs[id]
	return ok
}

// DefaultQueue is the seed work queue for a fresh run: the full pipeline in
// dependency order. The router appends re-run chains behind it as needed.
var DefaultQueue = []ID{
	IDMemory,
	IDTechTeam,
	IDStackResolver,
	IDCapabilities,
	IDContract,
	IDContractGuard,
	IDArchitecture,
	IDCodegen,
	IDDatabase,
	IDDeployment,
	IDValidate,
	IDRouter,
}

// Registry maps agent ids to agent instances. The set is fixed at
// construction; lookups for unregistered or unknown ids fail rather than
// falling back to a default agent.
type Registry struct {
	agents map[ID]Agent
}

// NewRegistry builds a registry from the given agents. Agents with ids
// outside the closed set, or duplicate ids, are rejected.
func NewRegistry(agents ...Agent) (*Registry, error) {
	r := &Registry{agents: make(map[ID]Agent, len(agents))}
	for _, a := range agents {
		id := a.ID()
		if !KnownID(id) {
			return nil, fmt.Errorf("unknown agent id: %q", id)
		}
		if _, exists := r.agents[id]; exists {
			return nil, fmt.Errorf("duplicate agent id: %q", id)
		}
		r.agents[id] = a
	}
	return r, nil
}

// Lookup returns the agent registered under id.
func (r *Registry) Lookup(id ID) (Agent, bool) {
	a, ok := r.agents[id]
	return a, ok
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	return len(r.agents)
}

// DefaultRegistry wires the full agent set against the given gateway and
// memory store. The store may be nil; memory-backed agents degrade to
// running without history.
func DefaultRegistry(gw llm.Gateway, store *memory.Store, perspectives []string) (*Registry, error) {
	return NewRegistry(
		NewMemoryAgent(store, gw),
		NewTechTeamAgent(gw, perspectives),
		NewStackResolverAgent(),
		NewCapabilitiesAgent(gw),
		NewContractAgent(gw),
		NewContractGuardAgent(),
		NewArchitectureAgent(gw),
		NewCodegenAgent(gw),
		NewDatabaseAgent(),
		NewDeploymentAgent(),
		NewValidateAgent(gw),
		NewRouterAgent(),
		NewEvaluationAgent(store),
	)
}
