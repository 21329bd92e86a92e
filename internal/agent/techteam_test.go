package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-ai/atelier/internal/llm"
	"github.com/atelier-ai/atelier/pkg/blackboard"
)

func techteamState() *blackboard.State {
	s := blackboard.NewState("run", "Build a blog")
	s.Profile = &blackboard.DomainProfile{Domain: "content", Complexity: "simple", PerformanceNeeds: "low"}
	return s
}

func TestTechTeamAgent_FallbackStackCoversEveryRole(t *testing.T) {
	a := NewTechTeamAgent(llm.NewFakeGateway(), nil)
	s := techteamState()

	require.True(t, a.CanRun(s))
	update, err := a.Run(context.Background(), s)
	require.NoError(t, err)

	require.Len(t, update.TechStack, 4)
	roles := make(map[string]string)
	for _, choice := range update.TechStack {
		roles[choice.Role] = choice.Name
	}
	assert.Equal(t, "fastapi", roles["backend"])
	assert.Equal(t, "react", roles["frontend"])
	assert.Equal(t, "postgresql", roles["database"])
	assert.Equal(t, "docker-compose", roles["deployment"])

	// unanimous panel, no debate event
	assert.Empty(t, update.Events)
}

func TestTechTeamAgent_ConsultsEveryPerspectiveConcurrently(t *testing.T) {
	gw := llm.NewFakeGateway()
	a := NewTechTeamAgent(gw, []string{"pragmatist", "performance", "security"})
	s := techteamState()

	_, err := a.Run(context.Background(), s)
	require.NoError(t, err)

	// one call per perspective, no moderation needed when they agree
	assert.Equal(t, 3, gw.CallCount())
}

func TestTechTeamAgent_DisagreementEmitsDebateAndModerates(t *testing.T) {
	gw := llm.NewFakeGateway().
		Respond("performance advisor", map[string]interface{}{"backend": "actix"}).
		Respond("moderate a technology debate", map[string]interface{}{"backend": "fastapi"})
	a := NewTechTeamAgent(gw, []string{"pragmatist", "performance"})
	s := techteamState()

	update, err := a.Run(context.Background(), s)
	require.NoError(t, err)

	require.Len(t, update.Events, 1)
	assert.Equal(t, blackboard.EventNeedDebate, update.Events[0].Type)
	assert.Equal(t, "backend", update.Events[0].Meta["roles"])

	for _, choice := range update.TechStack {
		if choice.Role == "backend" {
			assert.Equal(t, "fastapi", choice.Name)
		}
	}
}

func TestTechTeamAgent_EligibilityRequiresProfileAndEmptyStack(t *testing.T) {
	a := NewTechTeamAgent(nil, nil)

	s := blackboard.NewState("run", "prompt")
	assert.False(t, a.CanRun(s), "needs a profile first")

	s.Profile = &blackboard.DomainProfile{Domain: "web_app"}
	assert.True(t, a.CanRun(s))

	s.TechStack = []blackboard.TechChoice{{Role: "backend", Name: "fastapi"}}
	assert.False(t, a.CanRun(s), "stack already chosen")

	s.Events = append(s.Events, blackboard.Event{Seq: 0, Type: blackboard.EventNeedDebate})
	assert.True(t, a.CanRun(s), "fresh need_debate reopens the debate")

	s.AdvanceCursor(string(IDTechTeam), 0)
	assert.False(t, a.CanRun(s), "a consumed debate event does not re-trigger")
}

func TestStackResolverAgent_NormalizesAndFillsRoles(t *testing.T) {
	a := NewStackResolverAgent()
	s := blackboard.NewState("run", "prompt")
	s.TechStack = []blackboard.TechChoice{
		{Role: " Backend ", Name: "FastAPI"},
		{Role: "backend", Name: "flask"}, // duplicate role, dropped
		{Role: "frontend", Name: "react"},
	}

	require.True(t, a.CanRun(s))
	update, err := a.Run(context.Background(), s)
	require.NoError(t, err)

	require.Len(t, update.TechStack, 4)
	assert.Equal(t, blackboard.TechChoice{Role: "backend", Name: "fastapi"}, update.TechStack[0])
	assert.Equal(t, "react", update.TechStack[1].Name)
	assert.Equal(t, "postgresql", update.TechStack[2].Name)
	assert.Equal(t, "docker-compose", update.TechStack[3].Name)
}
