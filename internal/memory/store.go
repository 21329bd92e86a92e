// Package memory records pipeline run outcomes in Redis and serves
// similarity lookups over past prompts. The lookup is a hint source only:
// an empty or unreachable store degrades to no hints, never to an error
// that stops a pipeline.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atelier-ai/atelier/pkg/blackboard"
)

// Store persists run outcomes for cross-run learning.
type Store struct {
	rdb *redis.Client
}

// Record is one remembered run outcome.
type Record struct {
	RunID        string                  `json:"run_id"`
	Prompt       string                  `json:"prompt"`
	TechStack    []blackboard.TechChoice `json:"tech_stack"`
	SuccessScore float64                 `json:"success_score"`
	CreatedAtMs  int64                   `json:"created_at_ms"`
}

// Similar is a past run scored against a query prompt.
// Similarity is lexical token overlap in [0, 1].
type Similar struct {
	Prompt       string
	TechStack    []blackboard.TechChoice
	Similarity   float64
	SuccessScore float64
}

// memoryIndexKey is the ZSET of remembered run ids, scored by creation time.
func memoryIndexKey() string {
	return "atelier:memory:runs"
}

// memoryRecordKey holds one remembered run as a JSON blob.
func memoryRecordKey(runID string) string {
	return fmt.Sprintf("atelier:memory:run:%s", runID)
}

// NewStore creates a memory store from Redis connection options.
func NewStore(redisOpts *redis.Options) *Store {
	return &Store{rdb: redis.NewClient(redisOpts)}
}

// Close closes the Redis connection. Implements io.Closer.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// RecordRun remembers a finished run's prompt, stack and score.
func (s *Store) RecordRun(ctx context.Context, runID, prompt string, stack []blackboard.TechChoice, score float64) error {
	rec := Record{
		RunID:        runID,
		Prompt:       prompt,
		TechStack:    stack,
		SuccessScore: score,
		CreatedAtMs:  time.Now().UnixMilli(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}
	if err := s.rdb.Set(ctx, memoryRecordKey(runID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write run record: %w", err)
	}
	z := redis.Z{Score: float64(rec.CreatedAtMs), Member: runID}
	if err := s.rdb.ZAdd(ctx, memoryIndexKey(), z).Err(); err != nil {
		return fmt.Errorf("failed to index run record: %w", err)
	}
	return nil
}

// FindSimilar returns up to topK past runs ranked by lexical similarity to
// the prompt. Failures and an empty store both yield an empty slice: the
// caller treats memory as a best-effort hint source.
func (s *Store) FindSimilar(ctx context.Context, prompt string, topK int) []Similar {
	if topK <= 0 {
		topK = 3
	}

	runIDs, err := s.rdb.ZRevRange(ctx, memoryIndexKey(), 0, -1).Result()
	if err != nil {
		log.Printf("[Memory] lookup failed, continuing without hints: %v", err)
		return nil
	}

	queryTokens := tokenize(prompt)
	var results []Similar
	for _, runID := range runIDs {
		data, err := s.rdb.Get(ctx, memoryRecordKey(runID)).Result()
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			continue
		}
		sim := jaccard(queryTokens, tokenize(rec.Prompt))
		if sim <= 0 {
			continue
		}
		results = append(results, Similar{
			Prompt:       rec.Prompt,
			TechStack:    rec.TechStack,
			Similarity:   sim,
			SuccessScore: rec.SuccessScore,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// tokenize lowercases and splits a prompt into a token set, dropping very
// short words that carry no signal.
func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()[]{}")
		if len(word) < 3 {
			continue
		}
		tokens[word] = struct{}{}
	}
	return tokens
}

// jaccard computes set overlap between two token sets in [0, 1].
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
