package resilience

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit transient", NewTransientError(errors.New("server overloaded"), 503), true},
		{"wrapped transient", fmt.Errorf("api call failed: %w", NewTransientError(errors.New("rate limited"), 429)), true},
		{"connection reset", syscall.ECONNRESET, true},
		{"string pattern", errors.New("read tcp: connection reset by peer"), true},
		{"plain error", errors.New("invalid request body"), false},
		{"cancellation is not transient", context.Canceled, false},
		{"deadline is not transient", fmt.Errorf("call: %w", context.DeadlineExceeded), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsCancellation(t *testing.T) {
	assert.True(t, IsCancellation(context.Canceled))
	assert.True(t, IsCancellation(fmt.Errorf("stage: %w", context.Canceled)))
	assert.True(t, IsCancellation(context.DeadlineExceeded))
	assert.False(t, IsCancellation(errors.New("boom")))
	assert.False(t, IsCancellation(nil))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 201, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}
