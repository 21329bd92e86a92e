// Package orchestrator runs the reactive scheduling loop: pop an agent id
// from the run's work queue, check eligibility, run the agent, merge its
// update into the blackboard, and queue whatever follow-up agents it named.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-ai/atelier/internal/agent"
	"github.com/atelier-ai/atelier/pkg/blackboard"
)

// Policy holds the per-run knobs the engine stamps onto a fresh state.
type Policy struct {
	ValidationThreshold int
	RequireValidStatus  bool
	MaxCodegenIters     int
	ContractMode        blackboard.ContractMode
}

// Engine drives one run at a time over the blackboard.
type Engine struct {
	client   *blackboard.Client
	registry *agent.Registry
	maxSteps int

	// OnStep, when set, is called after every executed agent step. Used by
	// the CLI for progress output; never called concurrently.
	OnStep func(step int, id agent.ID, s *blackboard.State)
}

// NewEngine creates an engine. maxSteps caps executed agent steps per run;
// values below 1 fall back to 1.
func NewEngine(client *blackboard.Client, registry *agent.Registry, maxSteps int) *Engine {
	if maxSteps < 1 {
		maxSteps = 1
	}
	return &Engine{
		client:   client,
		registry: registry,
		maxSteps: maxSteps,
	}
}

// StartRun creates and persists a fresh run state, registers it in the run
// index and seeds the work queue with the full pipeline.
func (e *Engine) StartRun(ctx context.Context, prompt string, policy Policy) (*blackboard.State, error) {
	if prompt == "" {
		return nil, fmt.Errorf("prompt must not be empty")
	}

	s := blackboard.NewState(uuid.New().String(), prompt)
	s.ValidationThreshold = policy.ValidationThreshold
	s.RequireValidStatus = policy.RequireValidStatus
	s.MaxCodegenIters = policy.MaxCodegenIters
	if policy.ContractMode != "" {
		if err := policy.ContractMode.Validate(); err != nil {
			return nil, err
		}
		s.ContractMode = policy.ContractMode
	}

	if err := e.client.RegisterRun(ctx, s.RunID, prompt); err != nil {
		return nil, fmt.Errorf("failed to register run: %w", err)
	}
	if err := e.client.SaveState(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to save initial state: %w", err)
	}

	queue := make([]string, len(agent.DefaultQueue))
	for i, id := range agent.DefaultQueue {
		queue[i] = string(id)
	}
	if err := e.client.PushQueue(ctx, s.RunID, queue...); err != nil {
		return nil, fmt.Errorf("failed to seed work queue: %w", err)
	}

	e.logEvent(s.RunID, "run_started", map[string]interface{}{
		"prompt_len": len(prompt),
		"max_steps":  e.maxSteps,
	})
	return s, nil
}

// Run executes the scheduling loop until the goal flag is set, the queue
// drains, or the step cap is hit, then finalizes the run. Agent errors and
// panics are non-fatal: the failure is logged and the loop moves on.
func (e *Engine) Run(ctx context.Context, s *blackboard.State) error {
	steps := 0
	for steps < e.maxSteps && !s.GoalReached {
		if err := ctx.Err(); err != nil {
			return err
		}

		id, err := e.client.PopQueue(ctx, s.RunID)
		if blackboard.IsNotFound(err) {
			e.logEvent(s.RunID, "queue_drained", map[string]interface{}{"steps": steps})
			break
		}
		if err != nil {
			return fmt.Errorf("failed to pop work queue: %w", err)
		}

		agentID := agent.ID(id)
		ag, ok := e.registry.Lookup(agentID)
		if !ok {
			e.recordSkip(ctx, s, id, "unknown agent id")
			continue
		}
		if !ag.CanRun(s) {
			e.recordSkip(ctx, s, id, "not eligible")
			continue
		}

		update, err := e.runAgent(ctx, ag, s)
		if err != nil {
			e.recordFailure(ctx, s, id, err)
			continue
		}

		if err := e.applyUpdate(ctx, s, agentID, update); err != nil {
			return err
		}

		steps++
		e.logEvent(s.RunID, "agent_completed", map[string]interface{}{
			"agent": id,
			"step":  steps,
		})
		if e.OnStep != nil {
			e.OnStep(steps, agentID, s)
		}
	}

	if steps >= e.maxSteps && !s.GoalReached {
		pending, err := e.client.QueueLen(ctx, s.RunID)
		if err != nil {
			pending = -1
		}
		e.logEvent(s.RunID, "step_cap_reached", map[string]interface{}{
			"steps":   steps,
			"pending": pending,
		})
	}

	return e.finalize(ctx, s)
}

// runAgent invokes the agent with panic recovery. A panicking agent is
// treated the same as one returning an error.
func (e *Engine) runAgent(ctx context.Context, ag agent.Agent, s *blackboard.State) (update *agent.Update, err error) {
	defer func() {
		if r := recover(); r != nil {
			update = nil
			err = fmt.Errorf("agent %s panicked: %v", ag.ID(), r)
		}
	}()
	return ag.Run(ctx, s)
}

// applyUpdate merges the update into the state, appends its events to the
// durable log, advances the agent's cursor past everything in the log, and
// persists the state plus any follow-up queue entries.
func (e *Engine) applyUpdate(ctx context.Context, s *blackboard.State, agentID agent.ID, update *agent.Update) error {
	if update != nil {
		update.Apply(s)
		for _, draft := range update.Events {
			ev := &blackboard.Event{Type: draft.Type, Meta: draft.Meta}
			if err := e.client.AppendEvent(ctx, s.RunID, ev); err != nil {
				return fmt.Errorf("failed to append event: %w", err)
			}
			s.Events = append(s.Events, *ev)
		}
	}

	// the agent has now seen every event in the log, including its own
	s.AdvanceCursor(string(agentID), s.LastSeq())

	if update != nil && len(update.NextAgents) > 0 {
		next := make([]string, len(update.NextAgents))
		for i, id := range update.NextAgents {
			next[i] = string(id)
		}
		if err := e.client.PushQueue(ctx, s.RunID, next...); err != nil {
			return fmt.Errorf("failed to queue follow-up agents: %w", err)
		}
	}

	if err := e.client.SaveState(ctx, s); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// finalize marks stalled runs as done and runs the evaluation step so every
// run ends with a summary, whatever path it took.
func (e *Engine) finalize(ctx context.Context, s *blackboard.State) error {
	if !s.GoalReached {
		s.GoalReached = true
		s.CoachNotes = append(s.CoachNotes, "run stopped before routing accepted: step cap hit or queue drained")
	}

	if eval, ok := e.registry.Lookup(agent.IDEvaluation); ok && eval.CanRun(s) {
		update, err := e.runAgent(ctx, eval, s)
		if err != nil {
			e.recordFailure(ctx, s, string(agent.IDEvaluation), err)
		} else if err := e.applyUpdate(ctx, s, agent.IDEvaluation, update); err != nil {
			return err
		}
	}

	if err := e.client.SaveState(ctx, s); err != nil {
		return fmt.Errorf("failed to save final state: %w", err)
	}
	e.logEvent(s.RunID, "run_finished", map[string]interface{}{
		"best_score":    s.BestScore,
		"codegen_iters": s.CodegenIters,
	})
	return nil
}

func (e *Engine) recordSkip(ctx context.Context, s *blackboard.State, id, reason string) {
	e.logEvent(s.RunID, "agent_skipped", map[string]interface{}{
		"agent":  id,
		"reason": reason,
	})
	ev := &blackboard.Event{
		Type: blackboard.EventAgentSkipped,
		Meta: map[string]string{"agent": id, "reason": reason},
	}
	if err := e.client.AppendEvent(ctx, s.RunID, ev); err != nil {
		log.Printf("[Engine] Failed to record skip event: %v", err)
		return
	}
	s.Events = append(s.Events, *ev)
}

func (e *Engine) recordFailure(ctx context.Context, s *blackboard.State, id string, agentErr error) {
	log.Printf("[Engine] Agent %s failed: %v", id, agentErr)
	e.logEvent(s.RunID, "agent_failed", map[string]interface{}{
		"agent": id,
		"error": agentErr.Error(),
	})
	ev := &blackboard.Event{
		Type: blackboard.EventAgentFailed,
		Meta: map[string]string{"agent": id, "error": agentErr.Error()},
	}
	if err := e.client.AppendEvent(ctx, s.RunID, ev); err != nil {
		log.Printf("[Engine] Failed to record failure event: %v", err)
		return
	}
	s.Events = append(s.Events, *ev)
}

// logEvent logs a structured event in JSON format.
func (e *Engine) logEvent(runID, eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "engine"
	data["event_type"] = eventType
	data["run_id"] = runID

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Engine] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
