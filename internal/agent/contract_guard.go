package agent

import (
	"context"
	"strconv"

	"github.com/atelier-ai/atelier/pkg/blackboard"
	"github.com/atelier-ai/atelier/pkg/contract"
)

// ContractGuardAgent is the safety net between contract building and code
// generation. When the contract pass left nothing usable it synthesizes a
// minimal baseline contract; when the contract merely misses baseline items
// it injects them.
type ContractGuardAgent struct{}

func NewContractGuardAgent() *ContractGuardAgent { return &ContractGuardAgent{} }

func (a *ContractGuardAgent) ID() ID { return IDContractGuard }

func (a *ContractGuardAgent) CanRun(s *blackboard.State) bool {
	if s.GoalReached || s.Profile == nil {
		return false
	}
	return contract.IsEmpty(s.Contract) || len(contract.MissingBaseline(s.Contract)) > 0
}

func (a *ContractGuardAgent) Run(ctx context.Context, s *blackboard.State) (*Update, error) {
	if contract.IsEmpty(s.Contract) {
		return &Update{
			Contract: contract.WithBaseline(&contract.Contract{Source: "guard"}),
			Events: []EventDraft{{
				Type: blackboard.EventExpandContract,
				Meta: map[string]string{"synthesized": "baseline"},
			}},
			CoachNotes: []string{"the contract pass produced nothing usable, so a minimal baseline contract was synthesized"},
		}, nil
	}

	missing := contract.MissingBaseline(s.Contract)
	return &Update{
		Contract: contract.WithBaseline(s.Contract),
		Events: []EventDraft{{
			Type: blackboard.EventExpandContract,
			Meta: map[string]string{"injected": strconv.Itoa(len(missing))},
		}},
		CoachNotes: []string{"baseline items were missing from the contract and were injected"},
	}, nil
}
