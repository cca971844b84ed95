// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScore(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		max     float64
		want    float64
		wantErr bool
	}{
		{"bare integer", "7", 10, 7, false},
		{"bare float", "8.5", 10, 8.5, false},
		{"json object", `{"relevance_score": 9, "evaluation": {"novelty": "high"}}`, 10, 9, false},
		{"json in fences", "```json\n{\"relevance_score\": 6.5}\n```", 10, 6.5, false},
		{"json with prose", "Here is my evaluation:\n{\"relevance_score\": 3}\nHope that helps.", 10, 3, false},
		{"last in-range number wins", "I rate criteria 15 and 12, final score: 8", 10, 8, false},
		{"hundred scale", "The paper scores 85 on the hundred-point scale.", 100, 85, false},
		{"out of range bare", "42", 10, 0, true},
		{"no number", "excellent paper", 10, 0, true},
		{"empty", "   ", 10, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScore(tt.text, tt.max)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.RelevanceScore)
		})
	}
}

func TestParseScoreKeepsEvaluation(t *testing.T) {
	res, err := ParseScore(`{"relevance_score": 7, "evaluation": {"strengths": "solid benchmarks", "weaknesses": "no ablations"}}`, 10)
	require.NoError(t, err)
	assert.Equal(t, 7.0, res.RelevanceScore)
	assert.Equal(t, "solid benchmarks", res.Evaluation["strengths"])
	assert.Equal(t, "no ablations", res.Evaluation["weaknesses"])
}
