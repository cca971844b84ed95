// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// numberPattern matches integers and decimals embedded in free text.
var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// ScoreResult is the structured payload a scoring call is expected to return.
type ScoreResult struct {
	RelevanceScore float64           `json:"relevance_score"`
	Evaluation     map[string]string `json:"evaluation,omitempty"`
}

// ParseScore extracts a relevance score in [0, max] from a model response.
// It tries, in order: a JSON object carrying "relevance_score" (possibly
// wrapped in fences or surrounding prose), a direct numeric cast of the whole
// response, and finally the last in-range number embedded in the text.
// Anything else is a failure.
func ParseScore(text string, max float64) (ScoreResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ScoreResult{}, fmt.Errorf("empty response")
	}

	if obj := extractObject(trimmed); obj != "" {
		var res ScoreResult
		if err := json.Unmarshal([]byte(obj), &res); err == nil {
			if res.RelevanceScore >= 0 && res.RelevanceScore <= max {
				return res, nil
			}
		}
	}

	if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if v >= 0 && v <= max {
			return ScoreResult{RelevanceScore: v}, nil
		}
		return ScoreResult{}, fmt.Errorf("score %v outside [0, %v]", v, max)
	}

	matches := numberPattern.FindAllString(trimmed, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		v, err := strconv.ParseFloat(matches[i], 64)
		if err != nil {
			continue
		}
		if v >= 0 && v <= max {
			return ScoreResult{RelevanceScore: v}, nil
		}
	}

	return ScoreResult{}, fmt.Errorf("no score in [0, %v] found in response %q", max, truncateBody([]byte(text)))
}

// extractObject returns the outermost {...} substring, or "" when the text
// contains no braces. Models often wrap JSON in Markdown fences or prose.
func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
