// Package scaffold creates project files on disk: the atelier.yml starter
// config and the generated project trees a finished run ships.
package scaffold

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*
var templatesFS embed.FS

// configFile is the name of the pipeline configuration file.
const configFile = "atelier.yml"

// Initialize writes a starter atelier.yml into the current directory.
// If force is true an existing config is replaced.
func Initialize(force bool) error {
	if _, err := os.Stat(configFile); err == nil {
		if !force {
			return fmt.Errorf("%s already exists (use --force to replace it)", configFile)
		}
		fmt.Printf("⚠️  Replacing existing %s...\n", configFile)
	}

	content, err := templatesFS.ReadFile("templates/atelier.yml.tmpl")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}
	if err := os.WriteFile(configFile, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", configFile, err)
	}

	return validateCreatedConfig()
}

// validateCreatedConfig checks the written config parses as YAML.
func validateCreatedConfig() error {
	content, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to read created %s: %w", configFile, err)
	}
	var yamlData interface{}
	if err := yaml.Unmarshal(content, &yamlData); err != nil {
		return fmt.Errorf("created %s is not valid YAML: %w", configFile, err)
	}
	return nil
}

// PrintSuccess prints the post-init message.
func PrintSuccess() {
	fmt.Println("\n✅ Initialized atelier project!")
	fmt.Println("\nCreated:")
	fmt.Println("  ✓ atelier.yml")
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Point redis.url at a running Redis instance")
	fmt.Println("  2. Set OPENAI_API_KEY, or switch llm.provider to ollama or fake")
	fmt.Println("  3. Run 'atelier run \"describe your project\"'")
}
