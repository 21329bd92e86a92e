package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-ai/atelier/internal/llm"
	"github.com/atelier-ai/atelier/pkg/blackboard"
)

func finishedState() *blackboard.State {
	s := blackboard.NewState("run", "Build a blog")
	s.ValidationThreshold = 7
	s.GoalReached = true
	s.CodegenIters = 3
	s.BestScore = 8
	s.BestCode = &blackboard.GeneratedCode{Files: map[string]string{"a": "x", "b": "y"}}
	s.Validation = &blackboard.ValidationReport{Status: blackboard.StatusValid, Score: 8}
	s.TechStack = []blackboard.TechChoice{{Role: "backend", Name: "fastapi"}}
	return s
}

func TestEvaluationAgent_SummarizesAcceptedRun(t *testing.T) {
	a := NewEvaluationAgent(nil)
	s := finishedState()

	require.True(t, a.CanRun(s))
	update, err := a.Run(context.Background(), s)
	require.NoError(t, err)

	eval := update.Evaluation
	require.NotNil(t, eval)
	assert.Equal(t, 8, eval.OverallScore)
	assert.Equal(t, 3, eval.Iterations)
	assert.Equal(t, 2, eval.FilesShipped)
	assert.Equal(t, "goal_reached", eval.Outcome)
}

func TestEvaluationAgent_BudgetExhaustedOutcome(t *testing.T) {
	a := NewEvaluationAgent(nil)
	s := finishedState()
	s.Validation.Score = 5
	s.Validation.Status = blackboard.StatusIssues
	s.BestScore = 5

	update, err := a.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "budget_exhausted", update.Evaluation.Outcome)
}

func TestEvaluationAgent_NeverRanRunScoresZero(t *testing.T) {
	a := NewEvaluationAgent(nil)
	s := blackboard.NewState("run", "prompt")
	s.GoalReached = true

	update, err := a.Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, 0, update.Evaluation.OverallScore)
	assert.Equal(t, 0, update.Evaluation.FilesShipped)
	assert.Equal(t, "budget_exhausted", update.Evaluation.Outcome)
}

func TestEvaluationAgent_RecordsRunInMemory(t *testing.T) {
	store := setupMemoryStore(t)
	a := NewEvaluationAgent(store)
	s := finishedState()

	_, err := a.Run(context.Background(), s)
	require.NoError(t, err)

	similar := store.FindSimilar(context.Background(), "Build a blog", 1)
	require.Len(t, similar, 1)
	assert.InDelta(t, 8.0, similar[0].SuccessScore, 0.001)
}

func TestEvaluationAgent_RunsOnlyAfterGoal(t *testing.T) {
	a := NewEvaluationAgent(nil)
	s := blackboard.NewState("run", "prompt")

	assert.False(t, a.CanRun(s))
	s.GoalReached = true
	assert.True(t, a.CanRun(s))

	s.Evaluation = &blackboard.Evaluation{}
	assert.False(t, a.CanRun(s))
}

func TestCapabilitiesAgent_FallbackDerivesEntitiesFromDomain(t *testing.T) {
	a := NewCapabilitiesAgent(llm.NewFakeGateway())
	s := blackboard.NewState("run", "Build a blog with login")
	s.Profile = &blackboard.DomainProfile{Domain: "content"}

	require.True(t, a.CanRun(s))
	update, err := a.Run(context.Background(), s)
	require.NoError(t, err)

	caps := update.Capabilities
	require.NotNil(t, caps)
	assert.Equal(t, []string{"post", "author", "comment"}, caps.Entities)
	assert.True(t, caps.Auth, "login keyword implies auth")
}

func TestCapabilitiesAgent_ModelEntitiesWin(t *testing.T) {
	gw := llm.NewFakeGateway().Respond("extract requirements", map[string]interface{}{
		"entities": []interface{}{"recipe", "ingredient"},
		"auth":     false,
	})
	a := NewCapabilitiesAgent(gw)
	s := blackboard.NewState("run", "Recipe sharing site")
	s.Profile = &blackboard.DomainProfile{Domain: "web_app"}

	update, err := a.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"recipe", "ingredient"}, update.Capabilities.Entities)
	assert.False(t, update.Capabilities.Auth)
}

func TestArchitectureAgent_ReflectsChosenStack(t *testing.T) {
	a := NewArchitectureAgent(llm.NewFakeGateway())
	s := codegenState()
	s.TechStack = []blackboard.TechChoice{
		{Role: "backend", Name: "django"},
		{Role: "database", Name: "sqlite"},
	}

	require.True(t, a.CanRun(s))
	update, err := a.Run(context.Background(), s)
	require.NoError(t, err)

	require.NotEmpty(t, update.Architecture)
	joined := ""
	for _, line := range update.Architecture {
		joined += line + "\n"
	}
	assert.Contains(t, joined, "django")
	assert.Contains(t, joined, "sqlite")
}
