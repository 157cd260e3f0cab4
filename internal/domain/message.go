// Package domain defines the core types shared across the engine:
// session keys, conversation messages, tool calls, and the channel contract.
package domain

import (
	"encoding/json"
	"time"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCallRequest is a provider request to invoke a named tool.
type ToolCallRequest struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolResult is the outcome of dispatching one tool call.
type ToolResult struct {
	ToolCallID string `json:"toolCallId"`
	Name       string `json:"name,omitempty"`
	Content    string `json:"content"`
	IsError    bool   `json:"isError,omitempty"`
}

// Message is one entry in a session log. Messages are append-only:
// once written they are never mutated, only superseded by compaction.
type Message struct {
	Role       string            `json:"role"`
	Content    string            `json:"content,omitempty"`
	ToolCalls  []ToolCallRequest `json:"toolCalls,omitempty"`  // assistant only
	ToolCallID string            `json:"toolCallId,omitempty"` // tool role only
	IsError    bool              `json:"isError,omitempty"`    // tool role only
	Timestamp  time.Time         `json:"timestamp"`
}

// NewUserMessage builds a user-role message stamped now.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now().UTC()}
}

// NewAssistantMessage builds an assistant-role message stamped now.
func NewAssistantMessage(content string, calls []ToolCallRequest) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls, Timestamp: time.Now().UTC()}
}

// NewToolMessage builds a tool-role message from a dispatch result.
func NewToolMessage(res ToolResult) Message {
	return Message{
		Role:       RoleTool,
		Content:    res.Content,
		ToolCallID: res.ToolCallID,
		IsError:    res.IsError,
		Timestamp:  time.Now().UTC(),
	}
}

// NewSystemMessage builds a system-role message stamped now.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content, Timestamp: time.Now().UTC()}
}
