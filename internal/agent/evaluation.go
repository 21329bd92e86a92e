package agent

import (
	"context"
	"log"

	"github.com/atelier-ai/atelier/internal/memory"
	"github.com/atelier-ai/atelier/pkg/blackboard"
)

// EvaluationAgent writes the final run summary and records the outcome in
// long-term memory so future runs with similar prompts get hints. It is the
// one agent that runs after the goal flag is set; the orchestrator invokes
// it as the finalization step.
type EvaluationAgent struct {
	store *memory.Store
}

func NewEvaluationAgent(store *memory.Store) *EvaluationAgent {
	return &EvaluationAgent{store: store}
}

func (a *EvaluationAgent) ID() ID { return IDEvaluation }

func (a *EvaluationAgent) CanRun(s *blackboard.State) bool {
	return s.GoalReached && s.Evaluation == nil
}

func (a *EvaluationAgent) Run(ctx context.Context, s *blackboard.State) (*Update, error) {
	score := s.BestScore
	if score < 0 {
		score = 0
	}

	outcome := "budget_exhausted"
	if s.Validation != nil && s.Validation.Score >= s.ValidationThreshold &&
		(!s.RequireValidStatus || s.Validation.Status == blackboard.StatusValid) {
		outcome = "goal_reached"
	}

	eval := &blackboard.Evaluation{
		OverallScore: score,
		Iterations:   s.CodegenIters,
		FilesShipped: s.BestCode.FileCount(),
		Outcome:      outcome,
	}

	if a.store != nil {
		if err := a.store.RecordRun(ctx, s.RunID, s.Prompt, s.TechStack, float64(score)); err != nil {
			log.Printf("[Evaluation] failed to record run in memory: %v", err)
		}
	}

	return &Update{Evaluation: eval}, nil
}
