package agent

import (
	"context"
	"strconv"

	"github.com/atelier-ai/atelier/pkg/blackboard"
)

// RouterAgent turns the latest validation report into a routing decision:
// accept, stop on budget, or queue one of the re-run chains. The decision
// logic itself lives in Decide; the agent only applies it to the state.
type RouterAgent struct{}

func NewRouterAgent() *RouterAgent { return &RouterAgent{} }

func (a *RouterAgent) ID() ID { return IDRouter }

// CanRun gates on the iteration markers: each validation pass is routed
// exactly once.
func (a *RouterAgent) CanRun(s *blackboard.State) bool {
	return !s.GoalReached && s.Validation != nil && s.RoutedAfterIter < s.LastValidatedIter
}

func (a *RouterAgent) Run(ctx context.Context, s *blackboard.State) (*Update, error) {
	decision := Decide(s)

	u := &Update{
		RoutedAfterIter: intPtr(s.LastValidatedIter),
		CoachNotes:      []string{"routed: " + decision.Kind.String() + " (" + decision.Reason + ")"},
	}

	switch decision.Kind {
	case RouteAccept, RouteBudgetExhausted:
		u.GoalReached = boolPtr(true)

	case RouteRebuildContract:
		// rebuilding the contract implies regenerating against it
		u.RedoContract = boolPtr(true)
		u.RedoCodegen = boolPtr(true)
		u.Events = append(u.Events, refinementEvent(s))
		u.NextAgents = []ID{IDMemory, IDContract, IDContractGuard, IDCodegen, IDDatabase, IDDeployment, IDValidate, IDRouter}

	case RouteRetryCodegen:
		u.RedoCodegen = boolPtr(true)
		u.NextAgents = []ID{IDCodegen, IDDatabase, IDDeployment, IDValidate, IDRouter}

	case RouteRefine:
		u.RedoCodegen = boolPtr(true)
		u.Events = append(u.Events, refinementEvent(s))
		u.NextAgents = []ID{IDMemory, IDTechTeam, IDCodegen, IDDatabase, IDDeployment, IDValidate, IDRouter}
	}

	return u, nil
}

func refinementEvent(s *blackboard.State) EventDraft {
	return EventDraft{
		Type: blackboard.EventRefinementTriggered,
		Meta: map[string]string{
			"score": strconv.Itoa(s.Validation.Score),
			"iter":  strconv.Itoa(s.LastValidatedIter),
		},
	}
}
