// Package agent defines the pipeline agents that cooperate over the shared
// blackboard state. Each agent declares an eligibility check and a run
// method; the orchestrator pops agent ids from the work queue, skips
// ineligible agents, and merges the typed update an eligible agent returns.
package agent

import (
	"context"

	"github.com/atelier-ai/atelier/pkg/blackboard"
	"github.com/atelier-ai/atelier/pkg/contract"
)

// ID identifies an agent. The set of valid ids is closed: the registry
// rejects anything outside it and the scheduler skips unknown ids.
type ID string

const (
	IDMemory        ID = "memory"
	IDTechTeam      ID = "tech_team"
	IDStackResolver ID = "stack_resolver"
	IDCapabilities  ID = "capabilities"
	IDContract      ID = "contract"
	IDContractGuard ID = "contract_guard"
	IDArchitecture  ID = "architecture"
	IDCodegen       ID = "codegen"
	IDDatabase      ID = "database"
	IDDeployment    ID = "deployment"
	IDValidate      ID = "validate"
	IDRouter        ID = "router"
	IDEvaluation    ID = "evaluation"
)

// Agent is one worker in the pipeline.
//
// CanRun must be a cheap, side-effect-free read of the state. Run returns a
// typed partial update; it must not mutate the state it is given.
type Agent interface {
	ID() ID
	CanRun(s *blackboard.State) bool
	Run(ctx context.Context, s *blackboard.State) (*Update, error)
}

// EventDraft is an event an agent wants appended to the run log. The
// blackboard assigns the sequence number and timestamp.
type EventDraft struct {
	Type string
	Meta map[string]string
}

// Update is a typed partial state change. Nil pointer fields mean "leave
// unchanged"; set fields replace the current value (last writer wins).
// Hints and CoachNotes append rather than replace, and ContractMode only
// escalates.
type Update struct {
	Profile      *blackboard.DomainProfile
	TechStack    []blackboard.TechChoice
	Capabilities *blackboard.Capabilities
	Contract     *contract.Contract
	Architecture []string
	Generated    *blackboard.GeneratedCode
	Validation   *blackboard.ValidationReport
	Evaluation   *blackboard.Evaluation

	BestCode  *blackboard.GeneratedCode
	BestScore *int

	CodegenIters      *int
	LastValidatedIter *int
	RoutedAfterIter   *int

	ContractMode        blackboard.ContractMode // "" leaves the mode unchanged
	ValidationThreshold *int
	RequireValidStatus  *bool
	MaxCodegenIters     *int

	RedoContract *bool
	RedoCodegen  *bool
	GoalReached  *bool

	ContractSeededByMemory *bool
	Hints                  []string
	CoachNotes             []string

	// Events to append to the run log, in order.
	Events []EventDraft

	// NextAgents are queued behind the current queue contents.
	NextAgents []ID
}

// Apply merges the update into the state in place.
func (u *Update) Apply(s *blackboard.State) {
	if u == nil {
		return
	}
	if u.Profile != nil {
		s.Profile = u.Profile
	}
	if u.TechStack != nil {
		s.TechStack = u.TechStack
	}
	if u.Capabilities != nil {
		s.Capabilities = u.Capabilities
	}
	if u.Contract != nil {
		s.Contract = u.Contract
	}
	if u.Architecture != nil {
		s.Architecture = u.Architecture
	}
	if u.Generated != nil {
		s.Generated = u.Generated
	}
	if u.Validation != nil {
		s.Validation = u.Validation
	}
	if u.Evaluation != nil {
		s.Evaluation = u.Evaluation
	}
	if u.BestCode != nil {
		s.BestCode = u.BestCode
	}
	if u.BestScore != nil {
		s.BestScore = *u.BestScore
	}
	if u.CodegenIters != nil {
		s.CodegenIters = *u.CodegenIters
	}
	if u.LastValidatedIter != nil {
		s.LastValidatedIter = *u.LastValidatedIter
	}
	if u.RoutedAfterIter != nil {
		s.RoutedAfterIter = *u.RoutedAfterIter
	}
	if u.ContractMode != "" {
		s.EscalateContractMode(u.ContractMode)
	}
	if u.ValidationThreshold != nil {
		s.ValidationThreshold = *u.ValidationThreshold
	}
	if u.RequireValidStatus != nil {
		s.RequireValidStatus = *u.RequireValidStatus
	}
	if u.MaxCodegenIters != nil {
		s.MaxCodegenIters = *u.MaxCodegenIters
	}
	if u.RedoContract != nil {
		s.RedoContract = *u.RedoContract
	}
	if u.RedoCodegen != nil {
		s.RedoCodegen = *u.RedoCodegen
	}
	if u.GoalReached != nil {
		s.GoalReached = *u.GoalReached
	}
	if u.ContractSeededByMemory != nil {
		s.ContractSeededByMemory = *u.ContractSeededByMemory
	}
	s.Hints = append(s.Hints, u.Hints...)
	s.CoachNotes = append(s.CoachNotes, u.CoachNotes...)
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
