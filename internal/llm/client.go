// Package llm defines the provider abstraction the agent loop talks to.
//
// Every LLM vendor is hidden behind the single Client interface; vendor
// quirks (prompt caching, base URLs) are expressed as configuration, never
// as different method shapes, so the loop stays vendor-agnostic.
package llm

import (
	"context"
	"encoding/json"

	"github.com/soyeahso/clowder/internal/domain"
)

// StopReason reports why a completion ended.
type StopReason string

const (
	StopEnd       StopReason = "stop"
	StopToolCalls StopReason = "tool_calls"
	StopLength    StopReason = "length"
	StopError     StopReason = "error"
)

// ToolDefinition describes a tool the model can invoke.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"` // JSON Schema object
}

// Request is the input to a Complete call.
type Request struct {
	Model       string           `json:"model,omitempty"`
	System      string           `json:"system,omitempty"`
	Messages    []domain.Message `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	MaxTokens   int              `json:"maxTokens,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`

	// CacheSystemPrompt asks vendors that support prompt caching to mark
	// the system prompt cacheable. Vendors without the feature ignore it.
	CacheSystemPrompt bool `json:"cacheSystemPrompt,omitempty"`
}

// Usage tracks token consumption for one completion.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	CacheRead    int `json:"cacheReadInputTokens,omitempty"`
	CacheWrite   int `json:"cacheCreationInputTokens,omitempty"`
}

// Response is the normalized result of a completion.
type Response struct {
	Content    string                   `json:"content"`
	ToolCalls  []domain.ToolCallRequest `json:"toolCalls,omitempty"`
	StopReason StopReason               `json:"stopReason"`
	Usage      Usage                    `json:"usage"`
	Model      string                   `json:"model,omitempty"`
}

// HasToolCalls reports whether the model requested tool execution.
func (r *Response) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// Client is the interface all LLM providers implement.
type Client interface {
	// Complete sends a request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider name (e.g. "anthropic", "openai").
	Name() string
}
