package memory

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-ai/atelier/pkg/blackboard"
)

func setupTestStore(t *testing.T) *Store {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store := NewStore(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndFindSimilar(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	stack := []blackboard.TechChoice{{Role: "backend", Name: "FastAPI"}}
	require.NoError(t, store.RecordRun(ctx, "r1", "build a blog platform with comments", stack, 8.5))
	require.NoError(t, store.RecordRun(ctx, "r2", "realtime chat application with rooms", nil, 6.0))
	require.NoError(t, store.RecordRun(ctx, "r3", "blog engine with markdown posts", nil, 7.0))

	t.Run("ranks by lexical similarity", func(t *testing.T) {
		results := store.FindSimilar(ctx, "simple blog with comments and posts", 3)
		require.NotEmpty(t, results)
		assert.Contains(t, results[0].Prompt, "blog")
		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Similarity, results[i].Similarity)
		}
	})

	t.Run("carries stack and score through", func(t *testing.T) {
		results := store.FindSimilar(ctx, "build a blog platform with comments", 1)
		require.Len(t, results, 1)
		assert.Equal(t, stack, results[0].TechStack)
		assert.Equal(t, 8.5, results[0].SuccessScore)
		assert.InDelta(t, 1.0, results[0].Similarity, 0.001)
	})

	t.Run("respects topK", func(t *testing.T) {
		results := store.FindSimilar(ctx, "blog application", 1)
		assert.Len(t, results, 1)
	})

	t.Run("unrelated prompt yields nothing", func(t *testing.T) {
		results := store.FindSimilar(ctx, "embedded firmware driver", 3)
		assert.Empty(t, results)
	})
}

func TestFindSimilarDegradesGracefully(t *testing.T) {
	t.Run("empty store yields empty slice", func(t *testing.T) {
		store := setupTestStore(t)
		assert.Empty(t, store.FindSimilar(context.Background(), "anything at all", 3))
	})

	t.Run("unreachable redis yields empty slice", func(t *testing.T) {
		store := NewStore(&redis.Options{Addr: "127.0.0.1:1"})
		defer store.Close()
		assert.Empty(t, store.FindSimilar(context.Background(), "anything at all", 3))
	})
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("Build a REST API, with auth!")
	assert.Contains(t, tokens, "build")
	assert.Contains(t, tokens, "rest")
	assert.Contains(t, tokens, "auth")
	// short filler words are dropped
	assert.NotContains(t, tokens, "a")
}
