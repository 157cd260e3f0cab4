package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/soyeahso/clowder/internal/domain"
	"github.com/soyeahso/clowder/internal/llm"
	"github.com/soyeahso/clowder/internal/logging"
)

const (
	summarizerSystem = "You are a concise summarizer. Respond only with the summary."
	summaryMaxTokens = 1024
)

var summaryTemperature = 0.3

// CompactionResult describes a completed head summarization: the summary
// message that replaces the first Replaced entries of the log.
type CompactionResult struct {
	Summary  domain.Message
	Replaced int
}

// Compactor keeps session logs within a token budget by summarizing the
// oldest messages through the provider.
type Compactor struct {
	client   llm.Client
	model    string
	budget   int // trigger threshold in estimated tokens
	keepLast int
	estimate TokenEstimator
	log      *logging.Logger
}

// NewCompactor builds a compactor. budget is the estimated-token
// threshold that triggers compaction; keepLast is how many recent
// messages survive untouched.
func NewCompactor(client llm.Client, model string, budget, keepLast int, estimate TokenEstimator, log *logging.Logger) *Compactor {
	if estimate == nil {
		estimate = EstimateTokens
	}
	return &Compactor{
		client:   client,
		model:    model,
		budget:   budget,
		keepLast: keepLast,
		estimate: estimate,
		log:      log.Sub("compactor"),
	}
}

// MaybeCompact returns a summarization of the log head when the
// estimated size exceeds the budget, or nil when no compaction is due.
// A provider failure is returned as an error; the caller decides whether
// to proceed uncompacted.
func (c *Compactor) MaybeCompact(ctx context.Context, msgs []domain.Message) (*CompactionResult, error) {
	estimate := c.estimate(msgs)
	if estimate < c.budget {
		return nil, nil
	}
	if len(msgs) <= c.keepLast {
		return nil, nil
	}

	head := msgs[:len(msgs)-c.keepLast]
	c.log.Info().Int("estimate", estimate).Int("budget", c.budget).
		Int("summarizing", len(head)).Msg("compacting session")

	summary, err := c.summarize(ctx, head)
	if err != nil {
		return nil, fmt.Errorf("summarizing %d messages: %w", len(head), err)
	}

	content := fmt.Sprintf("[Summary of %d earlier messages]\n%s", len(head), summary)
	return &CompactionResult{
		Summary:  domain.NewSystemMessage(content),
		Replaced: len(head),
	}, nil
}

func (c *Compactor) summarize(ctx context.Context, head []domain.Message) (string, error) {
	var b strings.Builder
	for _, m := range head {
		content := m.Content
		if content == "" {
			content = "[tool call]"
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(content)
		b.WriteString("\n")
	}
	prompt := "Summarize this conversation concisely. Preserve key decisions, facts, and context.\n\n" + b.String()

	resp, err := c.client.Complete(ctx, llm.Request{
		Model:       c.model,
		System:      summarizerSystem,
		Messages:    []domain.Message{domain.NewUserMessage(prompt)},
		MaxTokens:   summaryMaxTokens,
		Temperature: &summaryTemperature,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("provider returned empty summary")
	}
	return resp.Content, nil
}
