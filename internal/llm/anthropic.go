package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"github.com/soyeahso/clowder/internal/domain"
)

const defaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicClient implements Client on the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient creates an Anthropic-backed client. An empty model
// selects the default. baseURL overrides the API endpoint when non-empty.
func NewAnthropicClient(apiKey, model, baseURL string) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

func (c *AnthropicClient) Name() string { return "anthropic" }

// Complete sends a Messages API request and normalizes the response.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	messages, err := c.convertMessages(req.Messages)
	if err != nil {
		return nil, NewProviderError(c.Name(), 400, err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if req.System != "" {
		block := anthropic.TextBlockParam{Text: req.System}
		if req.CacheSystemPrompt {
			block.CacheControl = anthropic.NewCacheControlEphemeralParam()
		}
		params.System = []anthropic.TextBlockParam{block}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if len(req.Tools) > 0 {
		tools, err := c.convertTools(req.Tools)
		if err != nil {
			return nil, NewProviderError(c.Name(), 400, err)
		}
		params.Tools = tools
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, NewProviderError(c.Name(), apiErr.StatusCode, err)
		}
		return nil, NewProviderError(c.Name(), 0, err)
	}

	resp := &Response{Model: string(msg.Model)}
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			if resp.Content != "" {
				resp.Content += "\n"
			}
			resp.Content += variant.Text
		case anthropic.ToolUseBlock:
			args, merr := json.Marshal(variant.Input)
			if merr != nil {
				args = []byte("{}")
			}
			id := variant.ID
			if id == "" {
				id = uuid.New().String()
			}
			resp.ToolCalls = append(resp.ToolCalls, domain.ToolCallRequest{
				ID:        id,
				Name:      variant.Name,
				Arguments: args,
			})
		}
	}

	switch {
	case len(resp.ToolCalls) > 0:
		resp.StopReason = StopToolCalls
	case msg.StopReason == anthropic.StopReasonMaxTokens:
		resp.StopReason = StopLength
	default:
		resp.StopReason = StopEnd
	}

	resp.Usage = Usage{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		CacheRead:    int(msg.Usage.CacheReadInputTokens),
		CacheWrite:   int(msg.Usage.CacheCreationInputTokens),
	}
	return resp, nil
}

// convertMessages maps session-log messages into the Anthropic block format.
// Tool results become user-role tool_result blocks; system messages (e.g.
// compaction summaries) are inlined as user text.
func (c *AnthropicClient) convertMessages(messages []domain.Message) ([]anthropic.MessageParam, error) {
	var result []anthropic.MessageParam
	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleSystem:
			result = append(result, anthropic.NewUserMessage(
				anthropic.NewTextBlock("[System: "+msg.Content+"]"),
			))

		case domain.RoleUser:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))

		case domain.RoleAssistant:
			var content []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				content = append(content, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var input map[string]any
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &input); err != nil {
						return nil, fmt.Errorf("tool call %s: invalid arguments: %w", tc.ID, err)
					}
				}
				content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			if len(content) == 0 {
				continue
			}
			result = append(result, anthropic.NewAssistantMessage(content...))

		case domain.RoleTool:
			result = append(result, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, msg.IsError),
			))

		default:
			return nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}
	return result, nil
}

func (c *AnthropicClient) convertTools(tools []ToolDefinition) ([]anthropic.ToolUnionParam, error) {
	result := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(tool.InputSchema, &schema); err != nil {
			return nil, fmt.Errorf("tool %s: invalid schema: %w", tool.Name, err)
		}
		param := anthropic.ToolUnionParamOfTool(schema, tool.Name)
		if param.OfTool == nil {
			return nil, fmt.Errorf("tool %s: missing tool definition", tool.Name)
		}
		param.OfTool.Description = anthropic.String(tool.Description)
		result = append(result, param)
	}
	return result, nil
}
