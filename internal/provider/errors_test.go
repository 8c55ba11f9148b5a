package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/streamchat-ai/streamchat/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want types.ErrorKind
	}{
		{"nil passthrough", nil, ""},
		{"quota", errors.New("error code 429: insufficient_quota"), types.ErrKindQuotaExceeded},
		{"billing", errors.New("billing hard limit reached"), types.ErrKindQuotaExceeded},
		{"rate limit snake", errors.New("rate_limit_exceeded: slow down"), types.ErrKindRateLimited},
		{"rate limit text", errors.New("Rate limit reached for gpt-4o"), types.ErrKindRateLimited},
		{"too many requests", errors.New("HTTP 429 Too Many Requests"), types.ErrKindRateLimited},
		{"connection", errors.New("connection refused"), types.ErrKindProviderUnavailable},
		{"timeout", errors.New("request timeout"), types.ErrKindProviderUnavailable},
		{"bad gateway", errors.New("unexpected status 502"), types.ErrKindProviderUnavailable},
		{"canceled", context.Canceled, types.ErrKindAborted},
		{"deadline", context.DeadlineExceeded, types.ErrKindAborted},
		{"unknown", errors.New("something odd"), types.ErrKindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if tt.err == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.want, got.Kind)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyPreservesExistingClassification(t *testing.T) {
	orig := types.NewSessionError(types.ErrKindQuotaExceeded, errors.New("upstream"))
	wrapped := fmt.Errorf("turn failed: %w", orig)

	got := Classify(wrapped)
	assert.Equal(t, types.ErrKindQuotaExceeded, got.Kind)
}

func TestRetryableKinds(t *testing.T) {
	assert.True(t, types.NewSessionError(types.ErrKindProviderUnavailable, nil).Retryable())
	assert.True(t, types.NewSessionError(types.ErrKindRateLimited, nil).Retryable())
	assert.False(t, types.NewSessionError(types.ErrKindQuotaExceeded, nil).Retryable())
	assert.False(t, types.NewSessionError(types.ErrKindToolLoopExceeded, nil).Retryable())
}
