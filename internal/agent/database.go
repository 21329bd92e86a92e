package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/atelier-ai/atelier/pkg/blackboard"
)

// schemaFile is where the database agent writes the generated DDL.
const schemaFile = "db/schema.sql"

// DatabaseAgent materializes the contract tables into a SQL schema file.
// It runs once per codegen pass that lacks a schema.
type DatabaseAgent struct{}

func NewDatabaseAgent() *DatabaseAgent { return &DatabaseAgent{} }

func (a *DatabaseAgent) ID() ID { return IDDatabase }

func (a *DatabaseAgent) CanRun(s *blackboard.State) bool {
	if s.GoalReached || s.Generated == nil || s.Contract == nil || len(s.Contract.Tables) == 0 {
		return false
	}
	return s.Generated.Files[schemaFile] == ""
}

func (a *DatabaseAgent) Run(ctx context.Context, s *blackboard.State) (*Update, error) {
	var b strings.Builder
	for _, table := range s.Contract.Tables {
		fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", table.Name)
		b.WriteString("    id SERIAL PRIMARY KEY,\n")
		b.WriteString("    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),\n")
		b.WriteString("    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()\n")
		b.WriteString(");\n\n")
	}

	files := make(map[string]string, len(s.Generated.Files)+1)
	for p, content := range s.Generated.Files {
		files[p] = content
	}
	files[schemaFile] = b.String()

	return &Update{Generated: &blackboard.GeneratedCode{Files: files}}, nil
}
