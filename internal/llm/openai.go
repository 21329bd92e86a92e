package llm

import (
	"context"
	"fmt"
	"log"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIGateway extracts structured JSON via an OpenAI-compatible chat
// completions API using JSON response mode.
type OpenAIGateway struct {
	client *openai.Client
	model  string
}

// NewOpenAIGateway builds a gateway against the OpenAI API. The key is
// taken from the config or the OPENAI_API_KEY environment variable; a
// custom BaseURL targets any OpenAI-compatible server.
func NewOpenAIGateway(cfg Config) (*OpenAIGateway, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
		log.Printf("[LLM] no model configured, defaulting to %s", model)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIGateway{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// ExtractStructured implements Gateway.
func (g *OpenAIGateway) ExtractStructured(ctx context.Context, systemPrompt, userPrompt string) (map[string]interface{}, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}

	obj, err := DecodeObject(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("model output was not a JSON object: %w", err)
	}
	return obj, nil
}
