// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score assigns relevance scores to candidate papers with an LLM
// under bounded concurrency, per-paper retry, and a circuit breaker.
package score

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/internal/llm"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// ErrCircuitBreaker indicates the per-run failure budget was exhausted and
// the stage aborted rather than keep hammering a broken upstream dependency.
var ErrCircuitBreaker = errors.New("score: failure budget exhausted")

// maxWorkers caps the scoring pool regardless of configuration, to respect
// upstream API quotas.
const maxWorkers = 2

// Outcome is the discriminated per-paper result: a scored paper or a
// recorded failure. Downstream filtering pattern-matches on Err instead of
// checking sentinel keys.
type Outcome struct {
	Paper *types.Paper
	Err   error
}

// Failed reports whether this paper's scoring failed.
func (o Outcome) Failed() bool { return o.Err != nil }

// Scorer scores papers against an interest.
type Scorer struct {
	Backend llm.Backend
	Config  types.ScoringConfig
}

// ScoreAll scores every paper concurrently, then filters, ranks, and
// truncates the survivors. Soft failures are recorded per paper and excluded
// from the result; authentication failures and circuit-breaker trips are
// fatal and abort the stage. keep bounds the ranked output length.
func (s *Scorer) ScoreAll(ctx context.Context, papers []*types.Paper, interest types.Interest, keep int, w io.Writer) ([]*types.Paper, error) {
	outcomes, err := s.scoreBatch(ctx, papers, interest, w)
	if err != nil {
		return nil, err
	}

	threshold := clampScore(s.Config.Threshold)

	var kept []*types.Paper
	for _, o := range outcomes {
		if o.Failed() {
			fmt.Fprintf(w, "warning: scoring %s failed: %v\n", o.Paper.ID, o.Err)
			continue
		}
		if o.Paper.RelevanceScore < threshold {
			continue
		}
		kept = append(kept, o.Paper)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].RelevanceScore > kept[j].RelevanceScore
	})

	if keep > 0 && len(kept) > keep {
		kept = kept[:keep]
	}
	return kept, nil
}

// scoreBatch runs the bounded worker pool over all papers. A fatal error
// cancels the pool's context so idle workers stop picking up jobs; papers
// already in flight finish or fail on their own.
func (s *Scorer) scoreBatch(ctx context.Context, papers []*types.Paper, interest types.Interest, w io.Writer) ([]Outcome, error) {
	workers := s.Config.Workers
	if workers <= 0 || workers > maxWorkers {
		workers = maxWorkers
	}
	if workers > len(papers) {
		workers = len(papers)
	}
	maxFailures := s.Config.MaxFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]Outcome, len(papers))
	jobs := make(chan int)

	var mu sync.Mutex
	var fatal error
	failures := 0

	recordFatal := func(err error) {
		mu.Lock()
		if fatal == nil {
			fatal = err
		}
		mu.Unlock()
		cancel()
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				paper := papers[idx]
				err := s.scoreOne(ctx, paper, interest)
				outcomes[idx] = Outcome{Paper: paper, Err: err}

				if err == nil {
					continue
				}
				if errors.Is(err, llm.ErrAuthentication) {
					recordFatal(err)
					return
				}
				mu.Lock()
				failures++
				tripped := failures >= maxFailures
				mu.Unlock()
				if tripped {
					recordFatal(fmt.Errorf("%w: %d papers failed", ErrCircuitBreaker, failures))
					return
				}
			}
		}()
	}

feed:
	for idx := range papers {
		select {
		case jobs <- idx:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if fatal != nil {
		return nil, fatal
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// scoreOne scores a single paper, retrying with linearly increasing backoff.
// Authentication failures short-circuit immediately; anything else exhausts
// the attempt budget before becoming a soft failure.
func (s *Scorer) scoreOne(ctx context.Context, paper *types.Paper, interest types.Interest) error {
	attempts := s.Config.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	base := s.Config.BackoffBase
	if base <= 0 {
		base = 2 * time.Second
	}
	maxTokens := s.Config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}

	prompt := scorePrompt(paper, interest)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := httputil.Sleep(ctx, time.Duration(attempt)*base); err != nil {
				return err
			}
		}

		resp, err := s.Backend.Complete(ctx, llm.Request{
			System:      scoreSystemPrompt,
			Prompt:      prompt,
			Temperature: 0,
			MaxTokens:   maxTokens,
		})
		if err != nil {
			if errors.Is(err, llm.ErrAuthentication) {
				return err
			}
			lastErr = err
			continue
		}

		result, err := llm.ParseScore(resp.Text, 10)
		if err != nil {
			lastErr = fmt.Errorf("parsing score: %w", err)
			continue
		}

		paper.RelevanceScore = clampScore(result.RelevanceScore)
		paper.Evaluation = result.Evaluation
		return nil
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

// clampScore forces a score or threshold into [0, 10].
func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
