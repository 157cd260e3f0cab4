package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/clowder/internal/domain"
	"github.com/soyeahso/clowder/internal/llm"
	"github.com/soyeahso/clowder/internal/workspace"
)

func messageLog(n int) []domain.Message {
	msgs := make([]domain.Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, domain.NewUserMessage(fmt.Sprintf("message %d with a bit of padding text here", i)))
	}
	return msgs
}

func TestMaybeCompactUnderBudgetIsNoop(t *testing.T) {
	mock := &llm.MockClient{}
	c := NewCompactor(mock, "", 1_000_000, 5, nil, silentLog())

	cr, err := c.MaybeCompact(context.Background(), messageLog(20))
	require.NoError(t, err)
	assert.Nil(t, cr)
	assert.Empty(t, mock.Calls, "no provider call when under budget")
}

func TestMaybeCompactShortLogIsNoop(t *testing.T) {
	mock := &llm.MockClient{}
	c := NewCompactor(mock, "", 1, 10, nil, silentLog())

	cr, err := c.MaybeCompact(context.Background(), messageLog(10))
	require.NoError(t, err)
	assert.Nil(t, cr)
	assert.Empty(t, mock.Calls)
}

func TestMaybeCompactSummarizesHead(t *testing.T) {
	mock := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			assert.Equal(t, summarizerSystem, req.System)
			require.Len(t, req.Messages, 1)
			assert.Contains(t, req.Messages[0].Content, "Summarize this conversation")
			assert.Contains(t, req.Messages[0].Content, "message 0")
			return &llm.Response{Content: "A short chat about padding.", StopReason: llm.StopEnd}, nil
		},
	}
	c := NewCompactor(mock, "", 1, 5, nil, silentLog())

	cr, err := c.MaybeCompact(context.Background(), messageLog(20))
	require.NoError(t, err)
	require.NotNil(t, cr)
	assert.Equal(t, 15, cr.Replaced)
	assert.Equal(t, domain.RoleSystem, cr.Summary.Role)
	assert.Contains(t, cr.Summary.Content, "[Summary of 15 earlier messages]")
	assert.Contains(t, cr.Summary.Content, "A short chat about padding.")
}

func TestMaybeCompactProviderFailure(t *testing.T) {
	mock := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			return nil, fmt.Errorf("boom")
		},
	}
	c := NewCompactor(mock, "", 1, 5, nil, silentLog())

	cr, err := c.MaybeCompact(context.Background(), messageLog(20))
	require.Error(t, err)
	assert.Nil(t, cr)
}

func TestMaybeCompactEmptySummaryIsError(t *testing.T) {
	mock := &llm.MockClient{
		CompleteFunc: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			return &llm.Response{Content: "   ", StopReason: llm.StopEnd}, nil
		},
	}
	c := NewCompactor(mock, "", 1, 5, nil, silentLog())

	_, err := c.MaybeCompact(context.Background(), messageLog(20))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty summary")
}

func TestMaybeCompactCustomEstimator(t *testing.T) {
	mock := &llm.MockClient{}
	always := func(msgs []domain.Message) int { return 0 }
	c := NewCompactor(mock, "", 1, 2, always, silentLog())

	cr, err := c.MaybeCompact(context.Background(), messageLog(20))
	require.NoError(t, err)
	assert.Nil(t, cr, "estimator reporting zero keeps the log as is")
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(nil))

	msgs := []domain.Message{domain.NewUserMessage("12345678")}
	assert.Equal(t, 2, EstimateTokens(msgs))

	withCall := []domain.Message{
		domain.NewAssistantMessage("", []domain.ToolCallRequest{
			{ID: "c", Name: "echo", Arguments: []byte(`{"text":"hi"}`)},
		}),
	}
	// (4 + 13) chars / 4 = 4, plus per-call overhead.
	assert.Equal(t, 4+toolCallOverhead, EstimateTokens(withCall))

	toolMsg := []domain.Message{domain.NewToolMessage(domain.ToolResult{ToolCallID: "c", Content: "12345678"})}
	assert.Equal(t, 2+toolCallOverhead, EstimateTokens(toolMsg))
}

func TestBuildSystemPrompt(t *testing.T) {
	ws := workspace.New(t.TempDir(), silentLog())
	require.NoError(t, ws.Init())
	require.NoError(t, ws.UpdateMemory("Facts", "The user likes tea."))

	now := time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC)
	prompt := BuildSystemPrompt(PromptSources{
		Base:     "You are a helpful assistant.",
		Ws:       ws,
		SenderID: "user-42",
		Timezone: "Europe/Berlin",
		Now:      now,
	})

	assert.Contains(t, prompt, "You are a helpful assistant.")
	assert.Contains(t, prompt, "## Memory")
	assert.Contains(t, prompt, "The user likes tea.")
	assert.Contains(t, prompt, "## Authorized Senders\nuser-42")
	assert.Contains(t, prompt, "## Current Date & Time\n2026-03-14 09:26 UTC (Europe/Berlin)")
}

func TestBuildSystemPromptMinimal(t *testing.T) {
	prompt := BuildSystemPrompt(PromptSources{Base: "Base only."})
	assert.Contains(t, prompt, "Base only.")
	assert.NotContains(t, prompt, "## Memory")
	assert.NotContains(t, prompt, "## Authorized Senders")
	assert.Contains(t, prompt, "## Current Date & Time")
	assert.Contains(t, prompt, "(UTC)")
}
