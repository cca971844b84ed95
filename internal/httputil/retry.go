// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP failure classification and backoff helpers
// shared by the fetch and scoring stages.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies an HTTP outcome for retry decisions.
type Kind int

const (
	// KindOK is a successful response.
	KindOK Kind = iota

	// KindNetwork is a timeout or connection error. Retried.
	KindNetwork

	// KindRateLimited is HTTP 429. Retried after a longer fixed wait.
	KindRateLimited

	// KindServer is HTTP 5xx. Retried.
	KindServer

	// KindClient is HTTP 4xx other than 429. Not retried.
	KindClient
)

// String returns a short label for logging.
func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNetwork:
		return "network"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	default:
		return "client"
	}
}

// Retryable reports whether an outcome of this kind may be retried.
func (k Kind) Retryable() bool {
	return k == KindNetwork || k == KindRateLimited || k == KindServer
}

// StatusError is a non-2xx HTTP response surfaced as an error.
type StatusError struct {
	Code int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// Kind returns the retry classification for the status code.
func (e *StatusError) Kind() Kind {
	return ClassifyStatus(e.Code)
}

// ClassifyStatus maps an HTTP status code to a retry kind.
func ClassifyStatus(code int) Kind {
	switch {
	case code >= 200 && code < 300:
		return KindOK
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code >= 500:
		return KindServer
	default:
		return KindClient
	}
}

// Classify maps an error from an HTTP round trip to a retry kind. Transport
// errors (timeouts, connection resets) count as network failures; StatusError
// values classify by their code.
func Classify(err error) Kind {
	if err == nil {
		return KindOK
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Kind()
	}
	return KindNetwork
}

// ExpBackoff returns min(2^(attempt-1) * base, limit) for attempt >= 1.
// The first attempt carries no delay by convention; callers skip the sleep
// before it.
func ExpBackoff(attempt int, base, limit time.Duration) time.Duration {
	if attempt < 1 || base <= 0 {
		return 0
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	if d > limit {
		return limit
	}
	return d
}

// Sleep waits for d or until the context is cancelled, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
