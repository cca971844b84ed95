// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"sync"
)

// Gate bounds the number of LLM calls in flight across the whole process.
// It is constructed once at startup and passed by reference to every
// component that issues LLM calls; there is no package-level instance.
type Gate struct {
	slots chan struct{}
}

// NewGate returns a gate admitting at most n concurrent calls. n <= 0 falls
// back to 2, the default the upstream API quota comfortably sustains.
func NewGate(n int) *Gate {
	if n <= 0 {
		n = 2
	}
	return &Gate{slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or the context is cancelled.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot acquired earlier.
func (g *Gate) Release() {
	<-g.slots
}

// Cap returns the gate's concurrency limit.
func (g *Gate) Cap() int { return cap(g.slots) }

// Usage accumulates token counts across all LLM calls in a run.
type Usage struct {
	mu         sync.Mutex
	calls      int
	prompt     int
	completion int
}

// Add records the token cost of one call.
func (u *Usage) Add(prompt, completion int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	u.prompt += prompt
	u.completion += completion
}

// UsageTotals is a point-in-time snapshot of accumulated usage.
type UsageTotals struct {
	Calls            int
	PromptTokens     int
	CompletionTokens int
}

// Snapshot returns the accumulated totals.
func (u *Usage) Snapshot() UsageTotals {
	u.mu.Lock()
	defer u.mu.Unlock()
	return UsageTotals{
		Calls:            u.calls,
		PromptTokens:     u.prompt,
		CompletionTokens: u.completion,
	}
}
