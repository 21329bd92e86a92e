package blackboard

import (
	"fmt"

	"github.com/atelier-ai/atelier/pkg/contract"
)

// ContractMode controls how strictly validation gates acceptance on the
// delivery contract. Modes only escalate within a run, never relax.
type ContractMode string

const (
	// ModeFree performs no contract gating at all.
	ModeFree ContractMode = "free"

	// ModeGuided reports contract gaps but lets the score stand.
	ModeGuided ContractMode = "guided"

	// ModeStrict downgrades any validation that reports contract gaps.
	ModeStrict ContractMode = "strict"
)

// Rank orders modes by strictness so escalation is a one-way ratchet.
func (m ContractMode) Rank() int {
	switch m {
	case ModeFree:
		return 0
	case ModeGuided:
		return 1
	case ModeStrict:
		return 2
	default:
		return -1
	}
}

// Validate checks if the ContractMode is a valid enum value.
func (m ContractMode) Validate() error {
	switch m {
	case ModeFree, ModeGuided, ModeStrict:
		return nil
	default:
		return fmt.Errorf("unknown contract mode: %q", m)
	}
}

// ValidationStatus is the terminal classification of a validation pass.
type ValidationStatus string

const (
	StatusValid   ValidationStatus = "valid"
	StatusIssues  ValidationStatus = "issues"
	StatusInvalid ValidationStatus = "invalid"
	StatusNoCode  ValidationStatus = "no_code"
)

// Validate checks if the ValidationStatus is a valid enum value.
func (s ValidationStatus) Validate() error {
	switch s {
	case StatusValid, StatusIssues, StatusInvalid, StatusNoCode:
		return nil
	default:
		return fmt.Errorf("unknown validation status: %q", s)
	}
}

// TechChoice is one selected technology and the role it fills.
type TechChoice struct {
	Role      string `json:"role"` // backend, frontend, database, deployment
	Name      string `json:"name"`
	Reasoning string `json:"reasoning,omitempty"`
}

// DomainProfile is the coarse classification of the project prompt used to
// steer tech selection.
type DomainProfile struct {
	Domain           string `json:"domain"`
	Complexity       string `json:"complexity"`        // simple, moderate, complex
	PerformanceNeeds string `json:"performance_needs"` // low, medium, high
}

// Capabilities captures the features the generated project must provide.
type Capabilities struct {
	Entities      []string `json:"entities"`
	Features      []string `json:"features"`
	Auth          bool     `json:"auth"`
	Roles         []string `json:"roles"`
	NonFunctional []string `json:"non_functional"`
}

// GeneratedCode is the file map produced by the code generation agent.
type GeneratedCode struct {
	Files map[string]string `json:"files"`
}

// FileCount returns the number of generated files; safe on nil.
func (g *GeneratedCode) FileCount() int {
	if g == nil {
		return 0
	}
	return len(g.Files)
}

// ValidationReport is the scored outcome of a validation pass. The score is
// on a 0-10 scale; structural gaps (missing files, endpoints, baseline) are
// first-class routing inputs, not errors.
type ValidationReport struct {
	Status           ValidationStatus `json:"status"`
	Score            int              `json:"score"`
	Issues           []string         `json:"issues,omitempty"`
	Suggestions      []string         `json:"suggestions,omitempty"`
	MissingFiles     []string         `json:"missing_files,omitempty"`
	MissingEndpoints []string         `json:"missing_endpoints,omitempty"`
	MissingBaseline  []string         `json:"missing_baseline,omitempty"`
}

// Evaluation is the final run summary written once the pipeline settles.
type Evaluation struct {
	OverallScore int    `json:"overall_score"`
	Iterations   int    `json:"iterations"`
	FilesShipped int    `json:"files_shipped"`
	Outcome      string `json:"outcome"` // "goal_reached" or "budget_exhausted"
}

// Event is a tagged record appended to the run's event log. Events are never
// removed; consumers track their position with per-agent cursors instead of
// acknowledging or popping entries.
type Event struct {
	Seq         int64             `json:"seq"`
	Type        string            `json:"type"`
	Meta        map[string]string `json:"meta,omitempty"`
	CreatedAtMs int64             `json:"created_at_ms"`
}

// Well-known event types emitted by the pipeline agents.
const (
	EventValidationCompleted = "validation_completed"
	EventRefinementTriggered = "refinement_triggered"
	EventExpandContract      = "expand_contract"
	EventNeedDebate          = "need_debate"
	EventAgentSkipped        = "agent_skipped"
	EventAgentFailed         = "agent_failed"
)

// State is the blackboard for one pipeline run. Fields are optional per
// stage: a nil pointer or zero value means the stage has not produced output
// yet, and all readers treat missing fields as their defaults.
type State struct {
	RunID  string
	Prompt string

	Profile      *DomainProfile
	TechStack    []TechChoice
	Capabilities *Capabilities
	Contract     *contract.Contract
	Architecture []string
	Generated    *GeneratedCode
	Validation   *ValidationReport
	Evaluation   *Evaluation

	// Best snapshot: highest-scoring artifact seen so far, never regressed.
	BestCode  *GeneratedCode
	BestScore int // -1 until the first validation

	// Iteration bookkeeping for the validation/refinement loop.
	CodegenIters      int
	LastValidatedIter int // -1 until the first validation
	RoutedAfterIter   int // -1 until the first routing decision

	// Policy knobs, overridable by the memory agent within a run.
	ContractMode        ContractMode
	ValidationThreshold int
	RequireValidStatus  bool
	MaxCodegenIters     int

	// Explicit redo requests set by the router and consumed by agents.
	RedoContract bool
	RedoCodegen  bool

	// Global kill switch: once true every agent's eligibility check fails.
	GoalReached bool

	ContractSeededByMemory bool
	Hints                  []string
	CoachNotes             []string

	Events  []Event
	Cursors map[string]int64 // agent id -> last event seq consumed
}

// NewState creates a run state with the sentinel iteration markers set.
// Policy fields are left zero for the caller (or the memory agent) to fill.
func NewState(runID, prompt string) *State {
	return &State{
		RunID:             runID,
		Prompt:            prompt,
		BestScore:         -1,
		LastValidatedIter: -1,
		RoutedAfterIter:   -1,
		ContractMode:      ModeGuided,
		Cursors:           make(map[string]int64),
	}
}

// LastSeq returns the sequence number of the newest event, or -1 when the
// log is empty.
func (s *State) LastSeq() int64 {
	if len(s.Events) == 0 {
		return -1
	}
	return s.Events[len(s.Events)-1].Seq
}

// CursorFor returns the last event sequence the given agent has consumed,
// or -1 when the agent has never run.
func (s *State) CursorFor(agentID string) int64 {
	if s.Cursors == nil {
		return -1
	}
	if seq, ok := s.Cursors[agentID]; ok {
		return seq
	}
	return -1
}

// AdvanceCursor records that the agent has consumed every event up to and
// including seq. Cursors never move backwards.
func (s *State) AdvanceCursor(agentID string, seq int64) {
	if s.Cursors == nil {
		s.Cursors = make(map[string]int64)
	}
	if seq > s.CursorFor(agentID) {
		s.Cursors[agentID] = seq
	}
}

// EventsOfType returns all events with the given type, oldest first.
func (s *State) EventsOfType(eventType string) []Event {
	var out []Event
	for _, ev := range s.Events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// HasEventType reports whether any event of the given type exists.
func (s *State) HasEventType(eventType string) bool {
	for _, ev := range s.Events {
		if ev.Type == eventType {
			return true
		}
	}
	return false
}

// HasEventSince reports whether an event of the given type was appended
// after the agent's cursor. This is the sticky-event guard: the event stays
// in the log forever, but an agent that already reacted (and advanced its
// cursor) no longer sees it as new.
func (s *State) HasEventSince(agentID, eventType string) bool {
	cursor := s.CursorFor(agentID)
	for _, ev := range s.Events {
		if ev.Seq > cursor && ev.Type == eventType {
			return true
		}
	}
	return false
}

// EscalateContractMode raises the contract mode to at least target.
// De-escalation is ignored: the ratchet is one-way within a run.
func (s *State) EscalateContractMode(target ContractMode) {
	if target.Rank() > s.ContractMode.Rank() {
		s.ContractMode = target
	}
}
