package agent

import (
	"context"

	"github.com/atelier-ai/atelier/pkg/blackboard"
	"github.com/atelier-ai/atelier/pkg/contract"
)

// DeploymentAgent guarantees the baseline operational files exist with real
// content after codegen. Files the model already wrote are left alone; only
// missing or empty baseline files get the deterministic versions.
type DeploymentAgent struct{}

func NewDeploymentAgent() *DeploymentAgent { return &DeploymentAgent{} }

func (a *DeploymentAgent) ID() ID { return IDDeployment }

func (a *DeploymentAgent) CanRun(s *blackboard.State) bool {
	if s.GoalReached || s.Generated == nil {
		return false
	}
	for _, f := range contract.BaselineFiles {
		if s.Generated.Files[f] == "" {
			return true
		}
	}
	return false
}

func (a *DeploymentAgent) Run(ctx context.Context, s *blackboard.State) (*Update, error) {
	files := make(map[string]string, len(s.Generated.Files))
	for p, content := range s.Generated.Files {
		files[p] = content
	}
	var added []string
	for _, f := range contract.BaselineFiles {
		if files[f] == "" {
			files[f] = stubContent(f, s)
			added = append(added, f)
		}
	}

	u := &Update{Generated: &blackboard.GeneratedCode{Files: files}}
	if len(added) > 0 {
		u.CoachNotes = []string{"deployment filled missing baseline files"}
	}
	return u, nil
}
