package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3.1:latest"
	ollamaTimeout        = 120 * time.Second
)

// OllamaGateway extracts structured JSON from a local Ollama server via its
// /api/generate endpoint with JSON output format forced.
type OllamaGateway struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaGateway builds a gateway against a local Ollama server.
func NewOllamaGateway(cfg Config) *OllamaGateway {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaGateway{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: ollamaTimeout},
	}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Format string `json:"format"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// ExtractStructured implements Gateway.
func (g *OllamaGateway) ExtractStructured(ctx context.Context, systemPrompt, userPrompt string) (map[string]interface{}, error) {
	payload := ollamaRequest{
		Model:  g.model,
		Prompt: systemPrompt + "\n\n" + userPrompt + "\nRespond with a single valid JSON object only.",
		Format: "json",
		Stream: false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var decoded ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode ollama response: %w", err)
	}

	obj, err := DecodeObject(decoded.Response)
	if err != nil {
		return nil, fmt.Errorf("model output was not a JSON object: %w", err)
	}
	return obj, nil
}
