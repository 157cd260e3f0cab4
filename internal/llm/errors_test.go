package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyByStatus(t *testing.T) {
	cases := []struct {
		status    int
		transient bool
	}{
		{408, true},
		{429, true},
		{500, true},
		{502, true},
		{529, true},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
	}
	for _, tc := range cases {
		err := NewProviderError("anthropic", tc.status, errors.New("boom"))
		assert.Equal(t, tc.transient, err.Transient, "status %d", tc.status)
	}
}

func TestClassifyByError(t *testing.T) {
	cases := []struct {
		err       error
		transient bool
	}{
		{context.DeadlineExceeded, true},
		{errors.New("client timeout exceeded"), true},
		{errors.New("Rate limit reached"), true},
		{errors.New("429 Too Many Requests"), true},
		{errors.New("server overloaded"), true},
		{errors.New("connection reset by peer"), true},
		{errors.New("invalid api key"), false},
		{nil, false},
	}
	for _, tc := range cases {
		err := NewProviderError("openai", 0, tc.err)
		assert.Equal(t, tc.transient, err.Transient, "%v", tc.err)
	}
}

func TestIsTransient(t *testing.T) {
	transient := NewProviderError("anthropic", 429, errors.New("rate limited"))
	fatal := NewProviderError("anthropic", 401, errors.New("bad key"))

	assert.True(t, IsTransient(transient))
	assert.False(t, IsTransient(fatal))
	assert.False(t, IsTransient(errors.New("plain error")))
	assert.False(t, IsTransient(nil))

	// Wrapped provider errors still classify.
	assert.True(t, IsTransient(fmt.Errorf("completing turn: %w", transient)))
}

func TestProviderErrorFormatting(t *testing.T) {
	withStatus := NewProviderError("anthropic", 429, errors.New("rate limited"))
	assert.Equal(t, "anthropic: 429 rate limited", withStatus.Error())

	withoutStatus := NewProviderError("openai", 0, errors.New("connection refused"))
	assert.Equal(t, "openai: connection refused", withoutStatus.Error())
}

func TestProviderErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewProviderError("anthropic", 500, cause)
	assert.ErrorIs(t, err, cause)
}
