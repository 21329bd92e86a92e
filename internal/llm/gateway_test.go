package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractWithFallback(t *testing.T) {
	ctx := context.Background()
	fallback := map[string]interface{}{"score": 6, "status": "issues"}

	t.Run("nil gateway returns fallback", func(t *testing.T) {
		got := ExtractWithFallback(ctx, nil, "sys", "user", fallback)
		assert.Equal(t, fallback, got)
	})

	t.Run("nil result returns fallback", func(t *testing.T) {
		g := NewFakeGateway()
		got := ExtractWithFallback(ctx, g, "sys", "user", fallback)
		assert.Equal(t, fallback, got)
	})

	t.Run("error returns fallback", func(t *testing.T) {
		g := NewFakeGateway().FailAll()
		got := ExtractWithFallback(ctx, g, "sys", "user", fallback)
		assert.Equal(t, fallback, got)
	})

	t.Run("model keys win over fallback keys", func(t *testing.T) {
		g := NewFakeGateway().Respond("sys", map[string]interface{}{"score": 9.0})
		got := ExtractWithFallback(ctx, g, "sys", "user", fallback)
		assert.Equal(t, 9.0, got["score"])
		assert.Equal(t, "issues", got["status"]) // omitted keys keep fallback values
	})
}

func TestFakeGateway(t *testing.T) {
	ctx := context.Background()

	t.Run("records calls", func(t *testing.T) {
		g := NewFakeGateway()
		_, _ = g.ExtractStructured(ctx, "a", "b")
		_, _ = g.ExtractStructured(ctx, "c", "d")
		require.Equal(t, 2, g.CallCount())
		assert.Equal(t, "a", g.Calls()[0].SystemPrompt)
	})

	t.Run("newest matching response wins", func(t *testing.T) {
		g := NewFakeGateway().
			Respond("contract", map[string]interface{}{"v": 1.0}).
			Respond("contract", map[string]interface{}{"v": 2.0})
		got, err := g.ExtractStructured(ctx, "derive a contract", "x")
		require.NoError(t, err)
		assert.Equal(t, 2.0, got["v"])
	})

	t.Run("once responses are consumed", func(t *testing.T) {
		g := NewFakeGateway().RespondOnce("validate", map[string]interface{}{"score": 3.0})
		first, err := g.ExtractStructured(ctx, "validate this", "x")
		require.NoError(t, err)
		assert.NotNil(t, first)
		second, err := g.ExtractStructured(ctx, "validate this", "x")
		require.NoError(t, err)
		assert.Nil(t, second)
	})

	t.Run("matches user prompt too", func(t *testing.T) {
		g := NewFakeGateway().Respond("needle", map[string]interface{}{"hit": true})
		got, err := g.ExtractStructured(ctx, "sys", "haystack with needle inside")
		require.NoError(t, err)
		assert.Equal(t, true, got["hit"])
	})
}

func TestOllamaGateway(t *testing.T) {
	t.Run("sends json-format request and decodes response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/generate", r.URL.Path)
			var req ollamaRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "json", req.Format)
			assert.False(t, req.Stream)
			assert.Contains(t, req.Prompt, "system part")

			_ = json.NewEncoder(w).Encode(ollamaResponse{Response: `{"status": "valid", "score": 8}`})
		}))
		defer server.Close()

		g := NewOllamaGateway(Config{BaseURL: server.URL, Model: "test-model"})
		obj, err := g.ExtractStructured(context.Background(), "system part", "user part")
		require.NoError(t, err)
		assert.Equal(t, 8, IntValue(obj["score"], 0))
	})

	t.Run("non-200 status is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		g := NewOllamaGateway(Config{BaseURL: server.URL})
		_, err := g.ExtractStructured(context.Background(), "s", "u")
		assert.Error(t, err)
	})

	t.Run("non-json model output is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(ollamaResponse{Response: "no json here"})
		}))
		defer server.Close()

		g := NewOllamaGateway(Config{BaseURL: server.URL})
		_, err := g.ExtractStructured(context.Background(), "s", "u")
		assert.Error(t, err)
	})
}

func TestNew(t *testing.T) {
	t.Run("fake provider", func(t *testing.T) {
		g, err := New(Config{Provider: "fake"})
		require.NoError(t, err)
		assert.NotNil(t, g)
	})

	t.Run("ollama provider", func(t *testing.T) {
		g, err := New(Config{Provider: "ollama"})
		require.NoError(t, err)
		assert.NotNil(t, g)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(Config{Provider: "psychic"})
		assert.Error(t, err)
	})
}
