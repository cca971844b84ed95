// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want Kind
	}{
		{200, KindOK},
		{204, KindOK},
		{429, KindRateLimited},
		{500, KindServer},
		{503, KindServer},
		{400, KindClient},
		{404, KindClient},
		{403, KindClient},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyStatus(tt.code), "code %d", tt.code)
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindOK, Classify(nil))
	assert.Equal(t, KindNetwork, Classify(errors.New("dial tcp: connection refused")))
	assert.Equal(t, KindServer, Classify(&StatusError{Code: http.StatusBadGateway}))
	assert.Equal(t, KindRateLimited, Classify(&StatusError{Code: http.StatusTooManyRequests}))
	assert.Equal(t, KindClient, Classify(&StatusError{Code: http.StatusNotFound}))
}

func TestKindRetryable(t *testing.T) {
	assert.True(t, KindNetwork.Retryable())
	assert.True(t, KindRateLimited.Retryable())
	assert.True(t, KindServer.Retryable())
	assert.False(t, KindClient.Retryable())
	assert.False(t, KindOK.Retryable())
}

func TestExpBackoff(t *testing.T) {
	base := time.Second
	limit := 10 * time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second}, // capped
		{9, 10 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpBackoff(tt.attempt, base, limit), "attempt %d", tt.attempt)
	}
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Sleep(ctx, time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepZeroIsImmediate(t *testing.T) {
	start := time.Now()
	require.NoError(t, Sleep(context.Background(), 0))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
