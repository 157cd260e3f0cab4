package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/clowder/internal/logging"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func transientErr() error {
	return NewProviderError("test", 429, errors.New("rate limited"))
}

func fatalErr() error {
	return NewProviderError("test", 401, errors.New("invalid api key"))
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	client := &ScriptedClient{
		Errs:   []error{transientErr(), transientErr(), nil},
		Script: []*Response{nil, nil, {Content: "third time lucky", StopReason: StopEnd}},
	}

	resp, err := CompleteWithRetry(context.Background(), client, Request{Model: "m"}, 3, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", resp.Content)
	assert.Equal(t, 3, client.CallCount())
}

func TestRetryStopsOnFatalError(t *testing.T) {
	client := &ScriptedClient{Errs: []error{fatalErr()}}

	_, err := CompleteWithRetry(context.Background(), client, Request{Model: "m"}, 5, time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, 1, client.CallCount(), "fatal errors must not be retried")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 401, pe.Status)
}

func TestRetryExhaustsBudget(t *testing.T) {
	client := &ScriptedClient{
		Errs: []error{transientErr(), transientErr(), transientErr(), transientErr()},
	}

	_, err := CompleteWithRetry(context.Background(), client, Request{Model: "m"}, 3, time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, 3, client.CallCount())
	assert.True(t, IsTransient(err), "the last transient error propagates")
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &MockClient{
		CompleteFunc: func(ctx context.Context, req Request) (*Response, error) {
			cancel()
			return nil, transientErr()
		},
	}

	_, err := CompleteWithRetry(ctx, client, Request{Model: "m"}, 5, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, client.Calls, 1, "no further attempts after cancellation")
}

func TestRetryDefaultsApplied(t *testing.T) {
	client := &ScriptedClient{
		Script: []*Response{{Content: "ok", StopReason: StopEnd}},
	}
	resp, err := CompleteWithRetry(context.Background(), client, Request{Model: "m"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 1, client.CallCount())
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry(silentLog())
	claude := &MockClient{ProviderName: "anthropic"}
	reg.Register("claude", claude)
	reg.SetFallback("claude")

	got, err := reg.Resolve("claude")
	require.NoError(t, err)
	assert.Same(t, claude, got.(*MockClient))

	got, err = reg.Resolve("missing")
	require.NoError(t, err, "fallback covers unknown names")
	assert.Same(t, claude, got.(*MockClient))
}

func TestRegistryResolveWithoutFallback(t *testing.T) {
	reg := NewRegistry(silentLog())
	_, err := reg.Resolve("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no LLM provider")
}

func TestRegistryList(t *testing.T) {
	reg := NewRegistry(silentLog())
	reg.Register("a", &MockClient{})
	reg.Register("b", &MockClient{})
	assert.ElementsMatch(t, []string{"a", "b"}, reg.List())
}
