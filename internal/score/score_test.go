// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/internal/llm"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// mockBackend returns canned scores keyed by paper title, or errors.
type mockBackend struct {
	mu     sync.Mutex
	scores map[string]string // substring of prompt -> response text
	errFor map[string]error
	calls  []string
}

func (m *mockBackend) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req.Prompt)
	m.mu.Unlock()

	for key, err := range m.errFor {
		if strings.Contains(req.Prompt, key) {
			return llm.Response{}, err
		}
	}
	for key, text := range m.scores {
		if strings.Contains(req.Prompt, key) {
			return llm.Response{Text: text}, nil
		}
	}
	return llm.Response{}, fmt.Errorf("no canned response")
}

func (m *mockBackend) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func paper(id, title string) *types.Paper {
	return &types.Paper{ID: id, Title: title, Abstract: "An abstract."}
}

func testScorer(backend llm.Backend, threshold float64) *Scorer {
	return &Scorer{
		Backend: backend,
		Config: types.ScoringConfig{
			Workers:     2,
			MaxAttempts: 2,
			BackoffBase: time.Millisecond,
			MaxFailures: 5,
			Threshold:   threshold,
		},
	}
}

func TestScoreAllFiltersAndRanks(t *testing.T) {
	backend := &mockBackend{
		scores: map[string]string{
			"Paper One":   `{"relevance_score": 3}`,
			"Paper Two":   `{"relevance_score": 6}`,
			"Paper Three": `{"relevance_score": 9}`,
		},
		errFor: map[string]error{
			"Paper Four": fmt.Errorf("upstream hiccup"),
		},
	}
	papers := []*types.Paper{
		paper("id1", "Paper One"),
		paper("id2", "Paper Two"),
		paper("id3", "Paper Three"),
		paper("id4", "Paper Four"),
	}

	var log strings.Builder
	got, err := testScorer(backend, 6).ScoreAll(context.Background(), papers, types.Interest{Positive: "ml"}, 10, &log)
	require.NoError(t, err)

	// id4 failed softly, id1 fell below threshold; survivors rank descending.
	require.Len(t, got, 2)
	assert.Equal(t, "id3", got[0].ID)
	assert.Equal(t, 9.0, got[0].RelevanceScore)
	assert.Equal(t, "id2", got[1].ID)
	assert.Equal(t, 6.0, got[1].RelevanceScore)
	assert.Contains(t, log.String(), "id4")
}

func TestScoreAllTruncatesToKeep(t *testing.T) {
	backend := &mockBackend{
		scores: map[string]string{
			"Paper One":   "8",
			"Paper Two":   "7",
			"Paper Three": "6",
		},
	}
	papers := []*types.Paper{
		paper("id1", "Paper One"),
		paper("id2", "Paper Two"),
		paper("id3", "Paper Three"),
	}

	got, err := testScorer(backend, 0).ScoreAll(context.Background(), papers, types.Interest{Positive: "ml"}, 2, &strings.Builder{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "id1", got[0].ID)
	assert.Equal(t, "id2", got[1].ID)
}

func TestScoreAllCircuitBreaker(t *testing.T) {
	backend := &mockBackend{
		scores: map[string]string{"Good": "8"},
		errFor: map[string]error{"Bad": fmt.Errorf("boom")},
	}
	papers := []*types.Paper{
		paper("g1", "Good One"),
		paper("b1", "Bad One"),
		paper("b2", "Bad Two"),
		paper("g2", "Good Two"),
	}

	s := testScorer(backend, 0)
	s.Config.MaxFailures = 2

	_, err := s.ScoreAll(context.Background(), papers, types.Interest{Positive: "ml"}, 10, &strings.Builder{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitBreaker)
}

func TestScoreAllAuthFailureIsFatalAndUnretried(t *testing.T) {
	backend := &mockBackend{
		errFor: map[string]error{"Paper": llm.ErrAuthentication},
	}
	papers := []*types.Paper{paper("id1", "Paper One")}

	s := testScorer(backend, 0)
	s.Config.MaxAttempts = 3

	_, err := s.ScoreAll(context.Background(), papers, types.Interest{Positive: "ml"}, 10, &strings.Builder{})
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrAuthentication)
	// No retries: the key is definitively wrong.
	assert.Equal(t, 1, backend.callCount())
}

func TestScoreOneRetriesSoftFailures(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	backend := completeFunc(func(_ context.Context, _ llm.Request) (llm.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			return llm.Response{}, fmt.Errorf("transient")
		}
		return llm.Response{Text: "7"}, nil
	})

	s := testScorer(backend, 0)
	s.Config.MaxAttempts = 3

	p := paper("id1", "Paper One")
	require.NoError(t, s.scoreOne(context.Background(), p, types.Interest{Positive: "ml"}))
	assert.Equal(t, 7.0, p.RelevanceScore)
	assert.Equal(t, 3, calls)
}

// completeFunc adapts a function to the llm.Backend interface.
type completeFunc func(context.Context, llm.Request) (llm.Response, error)

func (f completeFunc) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	return f(ctx, req)
}

func TestScoringIsDeterministicAtTemperatureZero(t *testing.T) {
	// A stub keyed only on the request content models the temperature-0
	// determinism contract: same paper and interest, same score.
	backend := completeFunc(func(_ context.Context, req llm.Request) (llm.Response, error) {
		require.Equal(t, float64(0), req.Temperature)
		if strings.Contains(req.Prompt, "Paper One") {
			return llm.Response{Text: "8"}, nil
		}
		return llm.Response{Text: "2"}, nil
	})

	s := testScorer(backend, 0)
	first := paper("id1", "Paper One")
	second := paper("id1", "Paper One")
	interest := types.Interest{Positive: "ml"}

	require.NoError(t, s.scoreOne(context.Background(), first, interest))
	require.NoError(t, s.scoreOne(context.Background(), second, interest))
	assert.Equal(t, first.RelevanceScore, second.RelevanceScore)
}

func TestScorePromptTemplates(t *testing.T) {
	p := paper("id1", "Paper One")

	single := scorePrompt(p, types.Interest{Positive: "graph neural networks"})
	assert.Contains(t, single, "graph neural networks")
	assert.NotContains(t, single, "avoid")

	dual := scorePrompt(p, types.Interest{Positive: "graph neural networks", Negative: "survey papers"})
	assert.Contains(t, dual, "survey papers")
	assert.Contains(t, dual, "avoid")
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, clampScore(-1))
	assert.Equal(t, 10.0, clampScore(42))
	assert.Equal(t, 6.5, clampScore(6.5))
}
