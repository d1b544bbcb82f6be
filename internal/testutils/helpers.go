package testutils

import (
	"context"
	"errors"
	"sync"
)

// ErrScriptExhausted is returned when a FakeGenerator runs out of replies.
var ErrScriptExhausted = errors.New("fake generator: no scripted reply left")

// Reply is one scripted generator result.
type Reply struct {
	Text string
	Err  error
}

// FakeGenerator implements ports.Generator with scripted replies and records
// every prompt it receives. Safe for concurrent use.
type FakeGenerator struct {
	mu      sync.Mutex
	replies []Reply
	prompts []string

	// Fallback, if set, answers once the script is exhausted.
	Fallback func(prompt string) (string, error)
}

// NewFakeGenerator returns a generator answering with texts in order.
func NewFakeGenerator(texts ...string) *FakeGenerator {
	g := &FakeGenerator{}
	for _, t := range texts {
		g.replies = append(g.replies, Reply{Text: t})
	}
	return g
}

// Then appends a scripted reply.
func (g *FakeGenerator) Then(text string, err error) *FakeGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies = append(g.replies, Reply{Text: text, Err: err})
	return g
}

// Generate implements ports.Generator.
func (g *FakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	if len(g.replies) == 0 {
		fallback := g.Fallback
		g.mu.Unlock()
		if fallback != nil {
			return fallback(prompt)
		}
		return "", ErrScriptExhausted
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return r.Text, r.Err
}

// Calls returns how many times Generate was invoked.
func (g *FakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// Prompts returns a copy of every prompt received.
func (g *FakeGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// LastPrompt returns the most recent prompt, or "".
func (g *FakeGenerator) LastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}
