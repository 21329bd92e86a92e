package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteProject materializes a generated file map under dir, creating parent
// directories as needed. Paths are validated before anything touches disk:
// one bad path aborts the whole write.
func WriteProject(dir string, files map[string]string) error {
	if dir == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	for path := range files {
		if err := checkRelPath(path); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	for path, content := range files {
		target := filepath.Join(dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		if err := os.WriteFile(target, []byte(content), filePerm(path)); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

// checkRelPath rejects paths that could escape the output directory.
func checkRelPath(path string) error {
	if path == "" {
		return fmt.Errorf("empty file path in generated project")
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return fmt.Errorf("absolute path in generated project: %s", path)
	}
	clean := filepath.ToSlash(filepath.Clean(path))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("path escapes output directory: %s", path)
	}
	return nil
}

// filePerm makes shell scripts executable.
func filePerm(path string) os.FileMode {
	if strings.HasSuffix(path, ".sh") {
		return 0755
	}
	return 0644
}
