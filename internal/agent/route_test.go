package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atelier-ai/atelier/pkg/blackboard"
	"github.com/atelier-ai/atelier/pkg/contract"
)

func routableState() *blackboard.State {
	s := blackboard.NewState("run", "build a thing")
	s.ValidationThreshold = 7
	s.MaxCodegenIters = 4
	s.Contract = contract.WithBaseline(nil)
	s.CodegenIters = 1
	s.LastValidatedIter = 1
	s.Validation = &blackboard.ValidationReport{Status: blackboard.StatusIssues, Score: 5}
	return s
}

func TestDecide_AcceptsAtThreshold(t *testing.T) {
	s := routableState()
	s.Validation.Score = 7

	d := Decide(s)
	assert.Equal(t, RouteAccept, d.Kind)
}

func TestDecide_RequireValidStatusBlocksAccept(t *testing.T) {
	s := routableState()
	s.Validation.Score = 9
	s.Validation.Status = blackboard.StatusIssues
	s.RequireValidStatus = true

	d := Decide(s)
	assert.NotEqual(t, RouteAccept, d.Kind)

	s.Validation.Status = blackboard.StatusValid
	assert.Equal(t, RouteAccept, Decide(s).Kind)
}

func TestDecide_BudgetExhaustedBeatsEveryRetryPath(t *testing.T) {
	s := routableState()
	s.LastValidatedIter = 4

	assert.Equal(t, RouteBudgetExhausted, Decide(s).Kind)

	// even a structural gap cannot extend the budget
	s.Validation.MissingBaseline = []string{"file:Makefile"}
	assert.Equal(t, RouteBudgetExhausted, Decide(s).Kind)

	// but an accepting score still wins
	s.Validation.Score = 8
	assert.Equal(t, RouteAccept, Decide(s).Kind)
}

func TestDecide_ContractGapRebuildsContract(t *testing.T) {
	s := routableState()
	s.Contract = nil
	assert.Equal(t, RouteRebuildContract, Decide(s).Kind)

	s = routableState()
	s.Validation.MissingBaseline = []string{"endpoint:GET /api/health"}
	assert.Equal(t, RouteRebuildContract, Decide(s).Kind)
}

func TestDecide_NoCodeRetriesCodegen(t *testing.T) {
	s := routableState()
	s.Validation.Status = blackboard.StatusNoCode
	s.Validation.Score = 0

	assert.Equal(t, RouteRetryCodegen, Decide(s).Kind)
}

func TestDecide_LowScoreRefines(t *testing.T) {
	s := routableState()
	assert.Equal(t, RouteRefine, Decide(s).Kind)
}

func TestDecide_MissingReportRetries(t *testing.T) {
	s := routableState()
	s.Validation = nil
	assert.Equal(t, RouteRetryCodegen, Decide(s).Kind)
}
