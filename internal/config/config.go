// Package config loads and validates the atelier.yml configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied when atelier.yml omits a value. The numeric knobs are
// deliberately configuration, not contract: deployments tune them.
const (
	DefaultMaxSteps            = 60
	DefaultMaxCodegenIters     = 4
	DefaultValidationThreshold = 7
	DefaultContractMode        = "guided"
	DefaultRedisURL            = "redis://localhost:6379"
	DefaultOutputDir           = "atelier-output"
	DefaultLLMProvider         = "openai"
)

// DefaultPerspectives are the advisory roles consulted in parallel during
// tech selection when the config does not override them.
var DefaultPerspectives = []string{"pragmatist", "performance", "security"}

// AtelierConfig represents the top-level atelier.yml configuration.
type AtelierConfig struct {
	Version  string         `yaml:"version"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Redis    RedisConfig    `yaml:"redis"`
	Output   OutputConfig   `yaml:"output"`
}

// LLMConfig selects the model provider the agents talk to.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai, ollama, or fake
	Model    string `yaml:"model,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// PipelineConfig holds the scheduler and validation policy knobs.
type PipelineConfig struct {
	MaxSteps            int      `yaml:"max_steps,omitempty"`
	MaxCodegenIters     int      `yaml:"max_codegen_iters,omitempty"`
	ValidationThreshold int      `yaml:"validation_threshold,omitempty"`
	RequireValidStatus  bool     `yaml:"require_valid_status,omitempty"`
	ContractMode        string   `yaml:"contract_mode,omitempty"`
	Perspectives        []string `yaml:"perspectives,omitempty"`
}

// RedisConfig holds the blackboard connection settings.
type RedisConfig struct {
	URL string `yaml:"url,omitempty"`
}

// OutputConfig holds project materialization settings.
type OutputConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// Load reads, parses and validates an atelier.yml file, applying defaults
// for omitted fields.
func Load(path string) (*AtelierConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config AtelierConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate performs strict validation and fills in defaults.
func (c *AtelierConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = DefaultLLMProvider
	}
	switch c.LLM.Provider {
	case "openai", "ollama", "fake":
	default:
		return fmt.Errorf("invalid llm provider: %s (must be 'openai', 'ollama', or 'fake')", c.LLM.Provider)
	}

	if c.Pipeline.MaxSteps == 0 {
		c.Pipeline.MaxSteps = DefaultMaxSteps
	}
	if c.Pipeline.MaxSteps < 1 {
		return fmt.Errorf("pipeline.max_steps must be >= 1, got %d", c.Pipeline.MaxSteps)
	}

	if c.Pipeline.MaxCodegenIters == 0 {
		c.Pipeline.MaxCodegenIters = DefaultMaxCodegenIters
	}
	if c.Pipeline.MaxCodegenIters < 1 {
		return fmt.Errorf("pipeline.max_codegen_iters must be >= 1, got %d", c.Pipeline.MaxCodegenIters)
	}

	if c.Pipeline.ValidationThreshold == 0 {
		c.Pipeline.ValidationThreshold = DefaultValidationThreshold
	}
	if c.Pipeline.ValidationThreshold < 1 || c.Pipeline.ValidationThreshold > 10 {
		return fmt.Errorf("pipeline.validation_threshold must be in 1..10, got %d", c.Pipeline.ValidationThreshold)
	}

	if c.Pipeline.ContractMode == "" {
		c.Pipeline.ContractMode = DefaultContractMode
	}
	switch c.Pipeline.ContractMode {
	case "free", "guided", "strict":
	default:
		return fmt.Errorf("invalid pipeline.contract_mode: %s (must be 'free', 'guided', or 'strict')", c.Pipeline.ContractMode)
	}

	if len(c.Pipeline.Perspectives) == 0 {
		c.Pipeline.Perspectives = append([]string(nil), DefaultPerspectives...)
	}

	if c.Redis.URL == "" {
		c.Redis.URL = DefaultRedisURL
	}

	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}

	return nil
}
