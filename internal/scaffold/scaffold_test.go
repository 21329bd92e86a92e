package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestInitialize_CreatesValidConfig(t *testing.T) {
	chdirTemp(t)

	require.NoError(t, Initialize(false))

	content, err := os.ReadFile("atelier.yml")
	require.NoError(t, err)
	assert.Contains(t, string(content), `version: "1.0"`)
	assert.Contains(t, string(content), "validation_threshold: 7")
}

func TestInitialize_RefusesToClobberWithoutForce(t *testing.T) {
	chdirTemp(t)
	require.NoError(t, os.WriteFile("atelier.yml", []byte("version: \"1.0\"\n"), 0644))

	err := Initialize(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, Initialize(true))
}

func TestWriteProject_CreatesNestedTree(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"backend/main.py": "print('hi')\n",
		"scripts/dev.sh":  "#!/bin/sh\n",
		"README.md":       "# readme\n",
	}
	require.NoError(t, WriteProject(dir, files))

	content, err := os.ReadFile(filepath.Join(dir, "backend", "main.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", string(content))

	info, err := os.Stat(filepath.Join(dir, "scripts", "dev.sh"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0111, "shell scripts are executable")
}

func TestWriteProject_RejectsEscapingPaths(t *testing.T) {
	dir := t.TempDir()

	tests := map[string]string{
		"absolute":  "/etc/passwd",
		"traversal": "../outside.txt",
		"sneaky":    "a/../../outside.txt",
		"empty":     "",
	}
	for name, path := range tests {
		t.Run(name, func(t *testing.T) {
			err := WriteProject(dir, map[string]string{path: "x"})
			require.Error(t, err)
		})
	}

	// nothing was written
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
