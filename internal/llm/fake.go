package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// FakeGateway is a scripted gateway for tests and offline runs. Responses
// are registered against a substring of the system prompt; unmatched calls
// return nil so call sites exercise their fallback paths. The zero-value
// behaviour (always nil) is what the "fake" provider in config gives you.
type FakeGateway struct {
	mu        sync.Mutex
	responses []fakeResponse
	calls     []FakeCall
	failAll   bool
}

type fakeResponse struct {
	match  string
	result map[string]interface{}
	once   bool
	used   bool
}

// FakeCall records one gateway invocation for assertions.
type FakeCall struct {
	SystemPrompt string
	UserPrompt   string
}

// NewFakeGateway creates an empty fake gateway. With no scripted responses
// every call returns nil, driving callers onto their static fallbacks.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{}
}

// Respond registers a response returned whenever the system prompt contains
// match. Later registrations win over earlier ones.
func (g *FakeGateway) Respond(match string, result map[string]interface{}) *FakeGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responses = append(g.responses, fakeResponse{match: match, result: result})
	return g
}

// RespondOnce registers a response consumed by a single matching call.
func (g *FakeGateway) RespondOnce(match string, result map[string]interface{}) *FakeGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responses = append(g.responses, fakeResponse{match: match, result: result, once: true})
	return g
}

// FailAll makes every call return an error, simulating an unreachable
// provider.
func (g *FakeGateway) FailAll() *FakeGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failAll = true
	return g
}

// Calls returns a copy of every invocation seen so far.
func (g *FakeGateway) Calls() []FakeCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]FakeCall, len(g.calls))
	copy(out, g.calls)
	return out
}

// CallCount returns the number of invocations seen so far.
func (g *FakeGateway) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// ExtractStructured implements Gateway.
func (g *FakeGateway) ExtractStructured(ctx context.Context, systemPrompt, userPrompt string) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, FakeCall{SystemPrompt: systemPrompt, UserPrompt: userPrompt})

	if g.failAll {
		return nil, fmt.Errorf("fake gateway: provider unavailable")
	}

	// newest registration wins
	for i := len(g.responses) - 1; i >= 0; i-- {
		r := &g.responses[i]
		if r.once && r.used {
			continue
		}
		if strings.Contains(systemPrompt, r.match) || strings.Contains(userPrompt, r.match) {
			r.used = true
			return r.result, nil
		}
	}
	return nil, nil
}
