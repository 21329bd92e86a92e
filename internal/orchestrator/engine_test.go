package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-ai/atelier/internal/agent"
	"github.com/atelier-ai/atelier/internal/llm"
	"github.com/atelier-ai/atelier/internal/memory"
	"github.com/atelier-ai/atelier/pkg/blackboard"
)

func setupTestClient(t *testing.T) (*blackboard.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := blackboard.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

// scriptAgent is a configurable test double.
type scriptAgent struct {
	id     agent.ID
	canRun func(s *blackboard.State) bool
	run    func(ctx context.Context, s *blackboard.State) (*agent.Update, error)
	runs   int
}

func (a *scriptAgent) ID() agent.ID { return a.id }

func (a *scriptAgent) CanRun(s *blackboard.State) bool {
	if a.canRun == nil {
		return true
	}
	return a.canRun(s)
}

func (a *scriptAgent) Run(ctx context.Context, s *blackboard.State) (*agent.Update, error) {
	a.runs++
	if a.run == nil {
		return &agent.Update{}, nil
	}
	return a.run(ctx, s)
}

func boolP(v bool) *bool { return &v }

func seededRun(t *testing.T, client *blackboard.Client, queue ...string) *blackboard.State {
	t.Helper()
	ctx := context.Background()
	s := blackboard.NewState("test-run", "build a thing")
	s.ValidationThreshold = 7
	s.MaxCodegenIters = 2
	require.NoError(t, client.RegisterRun(ctx, s.RunID, s.Prompt))
	require.NoError(t, client.SaveState(ctx, s))
	if len(queue) > 0 {
		require.NoError(t, client.PushQueue(ctx, s.RunID, queue...))
	}
	return s
}

func TestEngine_UnknownAgentIDIsSkipped(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	finisher := &scriptAgent{
		id: agent.IDCodegen,
		run: func(ctx context.Context, s *blackboard.State) (*agent.Update, error) {
			return &agent.Update{GoalReached: boolP(true)}, nil
		},
	}
	registry, err := agent.NewRegistry(finisher)
	require.NoError(t, err)

	engine := NewEngine(client, registry, 10)
	s := seededRun(t, client, "bogus_agent", "codegen")

	require.NoError(t, engine.Run(ctx, s))

	assert.Equal(t, 1, finisher.runs)
	assert.True(t, s.GoalReached)
	assert.True(t, s.HasEventType(blackboard.EventAgentSkipped))
}

func TestEngine_IneligibleAgentRunsOnlyOnce(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	once := &scriptAgent{
		id: agent.IDCodegen,
		canRun: func(s *blackboard.State) bool {
			return s.CodegenIters == 0
		},
		run: func(ctx context.Context, s *blackboard.State) (*agent.Update, error) {
			iters := s.CodegenIters + 1
			return &agent.Update{CodegenIters: &iters}, nil
		},
	}
	registry, err := agent.NewRegistry(once)
	require.NoError(t, err)

	engine := NewEngine(client, registry, 10)
	s := seededRun(t, client, "codegen", "codegen", "codegen")

	require.NoError(t, engine.Run(ctx, s))
	assert.Equal(t, 1, once.runs)
}

func TestEngine_AgentErrorIsNonFatal(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	failing := &scriptAgent{
		id: agent.IDCodegen,
		run: func(ctx context.Context, s *blackboard.State) (*agent.Update, error) {
			return nil, errors.New("model exploded")
		},
	}
	finisher := &scriptAgent{
		id: agent.IDValidate,
		run: func(ctx context.Context, s *blackboard.State) (*agent.Update, error) {
			return &agent.Update{GoalReached: boolP(true)}, nil
		},
	}
	registry, err := agent.NewRegistry(failing, finisher)
	require.NoError(t, err)

	engine := NewEngine(client, registry, 10)
	s := seededRun(t, client, "codegen", "validate")

	require.NoError(t, engine.Run(ctx, s))

	assert.True(t, s.GoalReached)
	assert.True(t, s.HasEventType(blackboard.EventAgentFailed))
	assert.Equal(t, 1, finisher.runs)
}

func TestEngine_AgentPanicIsRecovered(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	panicking := &scriptAgent{
		id: agent.IDCodegen,
		run: func(ctx context.Context, s *blackboard.State) (*agent.Update, error) {
			panic("nil map write")
		},
	}
	finisher := &scriptAgent{
		id: agent.IDValidate,
		run: func(ctx context.Context, s *blackboard.State) (*agent.Update, error) {
			return &agent.Update{GoalReached: boolP(true)}, nil
		},
	}
	registry, err := agent.NewRegistry(panicking, finisher)
	require.NoError(t, err)

	engine := NewEngine(client, registry, 10)
	s := seededRun(t, client, "codegen", "validate")

	require.NoError(t, engine.Run(ctx, s))
	assert.True(t, s.GoalReached)
	assert.True(t, s.HasEventType(blackboard.EventAgentFailed))
}

func TestEngine_StepCapStopsSelfRequeueingAgent(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	greedy := &scriptAgent{
		id: agent.IDCodegen,
		run: func(ctx context.Context, s *blackboard.State) (*agent.Update, error) {
			return &agent.Update{NextAgents: []agent.ID{agent.IDCodegen}}, nil
		},
	}
	registry, err := agent.NewRegistry(greedy)
	require.NoError(t, err)

	engine := NewEngine(client, registry, 5)
	s := seededRun(t, client, "codegen")

	require.NoError(t, engine.Run(ctx, s))

	assert.Equal(t, 5, greedy.runs)
	// stalled runs still get closed out
	assert.True(t, s.GoalReached)

	// the capped run leaves its unconsumed work visible on the queue
	pending, err := client.QueueLen(ctx, s.RunID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}

func TestEngine_FollowUpAgentsAreQueuedBehindCurrentWork(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	var order []agent.ID
	record := func(id agent.ID, update *agent.Update) *scriptAgent {
		return &scriptAgent{
			id: id,
			run: func(ctx context.Context, s *blackboard.State) (*agent.Update, error) {
				order = append(order, id)
				if update != nil {
					return update, nil
				}
				return &agent.Update{}, nil
			},
		}
	}

	first := record(agent.IDContract, &agent.Update{NextAgents: []agent.ID{agent.IDValidate}})
	second := record(agent.IDCodegen, nil)
	third := record(agent.IDValidate, &agent.Update{GoalReached: boolP(true)})

	registry, err := agent.NewRegistry(first, second, third)
	require.NoError(t, err)

	engine := NewEngine(client, registry, 10)
	s := seededRun(t, client, "contract", "codegen")

	require.NoError(t, engine.Run(ctx, s))
	assert.Equal(t, []agent.ID{agent.IDContract, agent.IDCodegen, agent.IDValidate}, order)
}

func TestEngine_StatePersistsAcrossSteps(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	finisher := &scriptAgent{
		id: agent.IDCodegen,
		run: func(ctx context.Context, s *blackboard.State) (*agent.Update, error) {
			iters := 3
			return &agent.Update{CodegenIters: &iters, GoalReached: boolP(true)}, nil
		},
	}
	registry, err := agent.NewRegistry(finisher)
	require.NoError(t, err)

	engine := NewEngine(client, registry, 10)
	s := seededRun(t, client, "codegen")
	require.NoError(t, engine.Run(ctx, s))

	loaded, err := client.LoadState(ctx, s.RunID)
	require.NoError(t, err)
	assert.True(t, loaded.GoalReached)
	assert.Equal(t, 3, loaded.CodegenIters)
}

func TestEngine_FullPipelineExhaustsBudgetWithoutModel(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// no scripted responses: every agent falls back deterministically
	gw := llm.NewFakeGateway()
	store := memory.NewStore(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { store.Close() })

	registry, err := agent.DefaultRegistry(gw, store, nil)
	require.NoError(t, err)

	engine := NewEngine(client, registry, 60)
	s, err := engine.StartRun(ctx, "Build a simple blog with posts and comments", Policy{
		ValidationThreshold: 7,
		MaxCodegenIters:     2,
		ContractMode:        blackboard.ModeGuided,
	})
	require.NoError(t, err)
	require.NoError(t, engine.Run(ctx, s))

	assert.True(t, s.GoalReached)
	assert.Equal(t, 2, s.CodegenIters)
	assert.Equal(t, 2, s.LastValidatedIter)

	// fallback validation scores a complete stub tree below the threshold,
	// so the budget runs out and the best snapshot ships
	require.NotNil(t, s.Evaluation)
	assert.Equal(t, "budget_exhausted", s.Evaluation.Outcome)
	assert.Equal(t, 6, s.BestScore)
	require.NotNil(t, s.BestCode)
	assert.Greater(t, s.BestCode.FileCount(), 0)

	// contract carries the baseline
	require.NotNil(t, s.Contract)
	assert.Contains(t, s.Contract.Files, "docker-compose.yml")

	// the refinement between the two passes went through the event log
	assert.True(t, s.HasEventType(blackboard.EventRefinementTriggered))
	assert.True(t, s.HasEventType(blackboard.EventValidationCompleted))

	// the finished run landed in long-term memory
	similar := store.FindSimilar(ctx, "Build a simple blog with posts and comments", 1)
	require.Len(t, similar, 1)
	assert.InDelta(t, 6.0, similar[0].SuccessScore, 0.001)
}

func TestEngine_FullPipelineAcceptsHighScore(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gw := llm.NewFakeGateway().
		Respond("review a generated web project", map[string]interface{}{
			"score":  9,
			"status": "valid",
		})

	registry, err := agent.DefaultRegistry(gw, nil, nil)
	require.NoError(t, err)

	engine := NewEngine(client, registry, 60)
	s, err := engine.StartRun(ctx, "Build a todo list API", Policy{
		ValidationThreshold: 7,
		MaxCodegenIters:     4,
		ContractMode:        blackboard.ModeGuided,
	})
	require.NoError(t, err)
	require.NoError(t, engine.Run(ctx, s))

	assert.True(t, s.GoalReached)
	assert.Equal(t, 1, s.CodegenIters)
	require.NotNil(t, s.Evaluation)
	assert.Equal(t, "goal_reached", s.Evaluation.Outcome)
	assert.Equal(t, 9, s.BestScore)
	assert.False(t, s.HasEventType(blackboard.EventRefinementTriggered))
}

func TestEngine_StartRunValidatesInput(t *testing.T) {
	client, _ := setupTestClient(t)
	registry, err := agent.NewRegistry()
	require.NoError(t, err)
	engine := NewEngine(client, registry, 10)

	_, err = engine.StartRun(context.Background(), "", Policy{})
	require.Error(t, err)

	_, err = engine.StartRun(context.Background(), "prompt", Policy{ContractMode: "chaotic"})
	require.Error(t, err)
}
