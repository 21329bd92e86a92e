package runlist

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-ai/atelier/pkg/blackboard"
)

func sampleRuns() []blackboard.RunInfo {
	return []blackboard.RunInfo{
		{
			RunID:       "a1b2c3d4e5f6",
			Prompt:      "Build a blog with posts and comments",
			BestScore:   8,
			GoalReached: true,
			CreatedAtMs: time.Now().Add(-2 * time.Minute).UnixMilli(),
		},
		{
			RunID:       "ffffffff0000",
			Prompt:      "Build a shop",
			BestScore:   -1,
			GoalReached: false,
			CreatedAtMs: time.Now().UnixMilli(),
		},
	}
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	count := FormatTable(&buf, sampleRuns())

	assert.Equal(t, 2, count)
	out := buf.String()
	assert.Contains(t, out, "a1b2c3d4")
	assert.NotContains(t, out, "a1b2c3d4e5f6", "IDs are truncated")
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "8/10")
	assert.Contains(t, out, "2m")
	assert.Contains(t, out, "2 runs found")

	// unvalidated runs show a dash, not a negative score
	lines := strings.Split(out, "\n")
	var secondRow string
	for _, line := range lines {
		if strings.HasPrefix(line, "ffffffff") {
			secondRow = line
		}
	}
	require.NotEmpty(t, secondRow)
	assert.Contains(t, secondRow, " - ")
}

func TestFormatTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	count := FormatTable(&buf, nil)

	assert.Equal(t, 0, count)
	assert.Contains(t, buf.String(), "No runs found")
}

func TestFormatJSONL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSONL(&buf, sampleRuns()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &decoded))
	}
}

func TestFormatPromptTruncation(t *testing.T) {
	long := strings.Repeat("x", 60)
	assert.Len(t, formatPrompt(long), 40)
	assert.Equal(t, "first line", formatPrompt("first line\nsecond line"))
	assert.Equal(t, "-", formatPrompt(""))
}
