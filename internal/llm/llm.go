// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides the chat-completion client shared by the scoring and
// report stages, together with the process-wide concurrency gate and token
// usage accounting.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrAuthentication indicates the API rejected our credentials. Never retried:
// the key is definitively wrong and further calls would only burn quota.
var ErrAuthentication = errors.New("llm: authentication failed")

// ErrRateLimited indicates the API returned HTTP 429.
var ErrRateLimited = errors.New("llm: rate limited")

// Backend issues a single chat completion. Implementations must be safe for
// concurrent use; tests supply a mock.
type Backend interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Request is one chat-completion call.
type Request struct {
	// System is the optional system message.
	System string

	// Prompt is the user message.
	Prompt string

	// Temperature controls sampling. Scoring calls pin it to 0 so a repeated
	// call for the same paper yields the same score.
	Temperature float64

	// MaxTokens bounds the completion length.
	MaxTokens int
}

// Response is the completion text plus token accounting.
type Response struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// APIError is a non-2xx response from the completion API.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("llm: API returned HTTP %d: %s", e.StatusCode, e.Body)
}
