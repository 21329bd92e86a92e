// Package llm provides the gateway the pipeline agents use to obtain
// structured JSON from a language model. The gateway contract is
// deliberately narrow: a call either yields a JSON object or nil, and every
// call site supplies a static fallback, so model failures never propagate
// as errors into the pipeline.
package llm

import (
	"context"
	"fmt"
	"log"
)

// Gateway extracts a structured JSON object from a model given a system and
// a user prompt. Implementations return (nil, err) on any failure: timeout,
// provider unavailable, or unparseable output. Callers must treat a nil map
// as "no answer" and fall back to a static value.
type Gateway interface {
	ExtractStructured(ctx context.Context, systemPrompt, userPrompt string) (map[string]interface{}, error)
}

// ExtractWithFallback calls the gateway and merges the result over the
// fallback: keys the model returned win, keys it omitted keep the fallback
// value. On any failure the fallback is returned unchanged. This is the
// only way agents talk to a model.
func ExtractWithFallback(ctx context.Context, g Gateway, systemPrompt, userPrompt string, fallback map[string]interface{}) map[string]interface{} {
	if g == nil {
		return fallback
	}
	result, err := g.ExtractStructured(ctx, systemPrompt, userPrompt)
	if err != nil || result == nil {
		if err != nil {
			log.Printf("[LLM] call failed, using fallback: %v", err)
		}
		return fallback
	}
	merged := make(map[string]interface{}, len(fallback)+len(result))
	for k, v := range fallback {
		merged[k] = v
	}
	for k, v := range result {
		merged[k] = v
	}
	return merged
}

// Config selects and configures a gateway provider.
type Config struct {
	Provider string // "openai", "ollama", or "fake"
	Model    string
	BaseURL  string
	APIKey   string
}

// New builds a gateway from the provider configuration.
func New(cfg Config) (Gateway, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIGateway(cfg)
	case "ollama":
		return NewOllamaGateway(cfg), nil
	case "fake":
		return NewFakeGateway(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
}
