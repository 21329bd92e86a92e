package agent

import (
	"fmt"

	"github.com/atelier-ai/atelier/pkg/blackboard"
	"github.com/atelier-ai/atelier/pkg/contract"
)

// RouteKind tags a routing decision. Exactly one kind applies per decision.
type RouteKind int

const (
	// RouteAccept ends the run: the latest validation met the bar.
	RouteAccept RouteKind = iota

	// RouteBudgetExhausted ends the run: no codegen budget remains. The
	// best snapshot captured so far is what ships.
	RouteBudgetExhausted

	// RouteRebuildContract sends the run back through contract building
	// because the contract itself is structurally broken.
	RouteRebuildContract

	// RouteRetryCodegen re-runs code generation after a pass that produced
	// no code at all.
	RouteRetryCodegen

	// RouteRefine re-runs code generation with the validation feedback
	// folded into the prompt.
	RouteRefine
)

// String implements fmt.Stringer for log output.
func (k RouteKind) String() string {
	switch k {
	case RouteAccept:
		return "accept"
	case RouteBudgetExhausted:
		return "budget_exhausted"
	case RouteRebuildContract:
		return "rebuild_contract"
	case RouteRetryCodegen:
		return "retry_codegen"
	case RouteRefine:
		return "refine"
	default:
		return fmt.Sprintf("route(%d)", int(k))
	}
}

// Decision is the outcome of routing one validation pass.
type Decision struct {
	Kind   RouteKind
	Reason string
}

// Decide picks the route for the latest validation pass. It is a pure
// function of the state: no I/O, no mutation.
//
// Priority order:
//  1. accept when the score meets the threshold (and, when required, the
//     status is valid)
//  2. budget exhausted when no codegen iterations remain, so every
//     non-accept path stays bounded
//  3. rebuild the contract when it is empty or the baseline is missing
//  4. retry codegen when the pass produced no code
//  5. otherwise refine
func Decide(s *blackboard.State) Decision {
	v := s.Validation
	if v == nil {
		return Decision{Kind: RouteRetryCodegen, Reason: "no validation report"}
	}

	if v.Score >= s.ValidationThreshold && (!s.RequireValidStatus || v.Status == blackboard.StatusValid) {
		return Decision{
			Kind:   RouteAccept,
			Reason: fmt.Sprintf("score %d met threshold %d", v.Score, s.ValidationThreshold),
		}
	}

	if s.LastValidatedIter >= s.MaxCodegenIters {
		return Decision{
			Kind:   RouteBudgetExhausted,
			Reason: fmt.Sprintf("used %d of %d codegen iterations", s.LastValidatedIter, s.MaxCodegenIters),
		}
	}

	if contract.IsEmpty(s.Contract) || len(v.MissingBaseline) > 0 {
		return Decision{
			Kind:   RouteRebuildContract,
			Reason: fmt.Sprintf("contract gap: empty=%v missing_baseline=%d", contract.IsEmpty(s.Contract), len(v.MissingBaseline)),
		}
	}

	if v.Status == blackboard.StatusNoCode {
		return Decision{Kind: RouteRetryCodegen, Reason: "no code produced"}
	}

	return Decision{
		Kind:   RouteRefine,
		Reason: fmt.Sprintf("score %d below threshold %d", v.Score, s.ValidationThreshold),
	}
}
