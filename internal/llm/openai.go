package llm

import (
	"context"
	"errors"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/soyeahso/clowder/internal/domain"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAIClient implements Client on the OpenAI chat completions API.
// A custom base URL makes it work against any OpenAI-compatible endpoint
// (DeepSeek, local gateways, etc.).
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates an OpenAI-backed client. An empty model selects
// the default; baseURL overrides the API endpoint when non-empty.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (c *OpenAIClient) Name() string { return "openai" }

// Complete sends a chat completion request and normalizes the response.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: c.convertMessages(req.System, req.Messages),
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = c.convertTools(req.Tools)
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, NewProviderError(c.Name(), apiErr.HTTPStatusCode, err)
		}
		return nil, NewProviderError(c.Name(), 0, err)
	}
	if len(resp.Choices) == 0 {
		return nil, NewProviderError(c.Name(), 0, errors.New("empty choices in response"))
	}

	choice := resp.Choices[0]
	out := &Response{
		Content: choice.Message.Content,
		Model:   resp.Model,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		id := tc.ID
		if id == "" {
			id = uuid.New().String()
		}
		args := tc.Function.Arguments
		if args == "" {
			args = "{}"
		}
		out.ToolCalls = append(out.ToolCalls, domain.ToolCallRequest{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: []byte(args),
		})
	}

	switch {
	case len(out.ToolCalls) > 0:
		out.StopReason = StopToolCalls
	case choice.FinishReason == openai.FinishReasonLength:
		out.StopReason = StopLength
	default:
		out.StopReason = StopEnd
	}
	return out, nil
}

func (c *OpenAIClient) convertMessages(system string, messages []domain.Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleSystem:
			// Mid-conversation system content (compaction summaries) goes
			// through as user text to keep the single leading system slot.
			result = append(result, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: "[System: " + msg.Content + "]",
			})

		case domain.RoleUser:
			result = append(result, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.Content,
			})

		case domain.RoleAssistant:
			oaiMsg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Content,
			}
			for _, tc := range msg.ToolCalls {
				oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
			result = append(result, oaiMsg)

		case domain.RoleTool:
			result = append(result, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: msg.ToolCallID,
				Content:    msg.Content,
			})
		}
	}
	return result
}

func (c *OpenAIClient) convertTools(tools []ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, tool := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		}
	}
	return result
}
