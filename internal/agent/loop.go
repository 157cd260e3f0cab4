// Package agent implements the core execution loop: build context, call
// the model, dispatch tool calls, persist every step, repeat until the
// model stops asking for tools or the turn budget runs out.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/clowder/internal/domain"
	"github.com/soyeahso/clowder/internal/llm"
	"github.com/soyeahso/clowder/internal/logging"
	"github.com/soyeahso/clowder/internal/session"
	"github.com/soyeahso/clowder/internal/tools"
	"github.com/soyeahso/clowder/internal/workspace"
)

// Config controls one agent's behavior.
type Config struct {
	AgentID      string
	SystemPrompt string

	Model       string
	MaxTokens   int
	Temperature float64

	// MaxTurns bounds tool-use rounds per inbound message.
	MaxTurns int

	// Compaction triggers when the estimated log size crosses
	// ContextWindow * CompactionThreshold.
	ContextWindow       int
	CompactionThreshold float64
	CompactionKeepLast  int

	Timezone    string
	ResetPolicy session.ResetPolicy

	CacheSystemPrompt bool

	RetryAttempts int
	RetryDelay    time.Duration
}

func (c *Config) applyDefaults() {
	if c.AgentID == "" {
		c.AgentID = "main"
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = "You are a helpful assistant."
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4096
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTurns <= 0 {
		c.MaxTurns = 10
	}
	if c.ContextWindow <= 0 {
		c.ContextWindow = 128_000
	}
	if c.CompactionThreshold <= 0 {
		c.CompactionThreshold = 0.7
	}
	if c.CompactionKeepLast <= 0 {
		c.CompactionKeepLast = 10
	}
}

// Result is the outcome of processing one inbound message.
type Result struct {
	Reply string
	Key   domain.SessionKey

	Turns     int
	Usage     llm.Usage
	Compacted bool

	// TurnLimit is set when the loop stopped because MaxTurns ran out
	// while the model was still requesting tools.
	TurnLimit bool
}

// Loop runs the agent state machine for one configured agent.
type Loop struct {
	cfg       Config
	client    llm.Client
	tools     *tools.Registry
	store     session.Store
	ws        *workspace.Workspace
	compactor *Compactor
	log       *logging.Logger
}

// NewLoop wires a loop from its collaborators. ws may be nil when the
// agent runs without a workspace.
func NewLoop(cfg Config, client llm.Client, reg *tools.Registry, store session.Store, ws *workspace.Workspace, log *logging.Logger) *Loop {
	cfg.applyDefaults()
	budget := int(float64(cfg.ContextWindow) * cfg.CompactionThreshold)
	return &Loop{
		cfg:       cfg,
		client:    client,
		tools:     reg,
		store:     store,
		ws:        ws,
		compactor: NewCompactor(client, cfg.Model, budget, cfg.CompactionKeepLast, nil, log),
		log:       log.Sub("agent"),
	}
}

// SetEstimator swaps the token estimator used for compaction decisions.
func (l *Loop) SetEstimator(fn TokenEstimator) {
	if fn != nil {
		l.compactor.estimate = fn
	}
}

// Run processes one user message for the given session and returns the
// final reply. The user message is persisted before the first provider
// call; every assistant and tool message is persisted as it is produced,
// so a crash mid-loop loses at most the in-flight completion.
func (l *Loop) Run(ctx context.Context, key domain.SessionKey, userText, senderID string) (*Result, error) {
	res := &Result{Key: key}

	if _, err := l.store.ResetIfDue(key, l.cfg.ResetPolicy); err != nil {
		l.log.Warn().Err(err).Str("key", key.String()).Msg("session reset failed")
	}

	history, err := l.store.Read(key)
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	history, res.Compacted = l.compact(ctx, key, history)

	userMsg := domain.NewUserMessage(userText)
	if err := l.store.Append(key, userMsg); err != nil {
		return nil, fmt.Errorf("persisting user message: %w", err)
	}
	history = append(history, userMsg)

	system := BuildSystemPrompt(PromptSources{
		Base:     l.cfg.SystemPrompt,
		Ws:       l.ws,
		SenderID: senderID,
		Timezone: l.cfg.Timezone,
	})
	defs := l.tools.Definitions()
	temperature := l.cfg.Temperature

	var resp *llm.Response
	for turn := 1; turn <= l.cfg.MaxTurns; turn++ {
		res.Turns = turn
		l.log.Debug().Str("agent", l.cfg.AgentID).Int("turn", turn).
			Int("maxTurns", l.cfg.MaxTurns).Msg("agent turn")

		resp, err = llm.CompleteWithRetry(ctx, l.client, llm.Request{
			Model:             l.cfg.Model,
			System:            system,
			Messages:          history,
			Tools:             defs,
			MaxTokens:         l.cfg.MaxTokens,
			Temperature:       &temperature,
			CacheSystemPrompt: l.cfg.CacheSystemPrompt,
		}, l.cfg.RetryAttempts, l.cfg.RetryDelay)
		if err != nil {
			return nil, fmt.Errorf("completion on turn %d: %w", turn, err)
		}
		res.Usage = addUsage(res.Usage, resp.Usage)

		asstMsg := domain.NewAssistantMessage(resp.Content, resp.ToolCalls)
		if err := l.store.Append(key, asstMsg); err != nil {
			return nil, fmt.Errorf("persisting assistant message: %w", err)
		}
		history = append(history, asstMsg)

		if !resp.HasToolCalls() {
			res.Reply = resp.Content
			return res, nil
		}

		toolMsgs, err := l.dispatchTools(ctx, resp.ToolCalls)
		if err != nil {
			return nil, err
		}
		if err := l.store.Append(key, toolMsgs...); err != nil {
			return nil, fmt.Errorf("persisting tool results: %w", err)
		}
		history = append(history, toolMsgs...)
	}

	l.log.Warn().Str("agent", l.cfg.AgentID).Int("maxTurns", l.cfg.MaxTurns).
		Msg("turn limit reached with pending tool use")
	res.TurnLimit = true
	res.Reply = strings.TrimSpace(resp.Content)
	if res.Reply == "" {
		res.Reply = fmt.Sprintf("Reached the tool-use limit of %d turns before finishing. Partial progress has been saved; ask again to continue.", l.cfg.MaxTurns)
	}
	return res, nil
}

// compact runs the compactor and rewrites the stored log on success.
// Compaction failures are warnings: the turn proceeds on the full log.
func (l *Loop) compact(ctx context.Context, key domain.SessionKey, history []domain.Message) ([]domain.Message, bool) {
	cr, err := l.compactor.MaybeCompact(ctx, history)
	if err != nil {
		l.log.Warn().Err(err).Str("key", key.String()).Msg("compaction skipped")
		return history, false
	}
	if cr == nil {
		return history, false
	}
	if err := l.store.ReplacePrefix(key, cr.Replaced, cr.Summary); err != nil {
		l.log.Warn().Err(err).Str("key", key.String()).Msg("compaction rewrite failed")
		return history, false
	}
	compacted := make([]domain.Message, 0, len(history)-cr.Replaced+1)
	compacted = append(compacted, cr.Summary)
	compacted = append(compacted, history[cr.Replaced:]...)
	l.log.Info().Str("key", key.String()).Int("replaced", cr.Replaced).
		Int("kept", len(compacted)-1).Msg("session compacted")
	return compacted, true
}

// dispatchTools executes tool calls sequentially in response order. Tool
// failures become error results for the model; only context cancellation
// aborts the turn.
func (l *Loop) dispatchTools(ctx context.Context, calls []domain.ToolCallRequest) ([]domain.Message, error) {
	msgs := make([]domain.Message, 0, len(calls))
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result := l.tools.Dispatch(ctx, call)
		msgs = append(msgs, domain.NewToolMessage(result))
	}
	return msgs, nil
}

func addUsage(a, b llm.Usage) llm.Usage {
	return llm.Usage{
		InputTokens:  a.InputTokens + b.InputTokens,
		OutputTokens: a.OutputTokens + b.OutputTokens,
		CacheRead:    a.CacheRead + b.CacheRead,
		CacheWrite:   a.CacheWrite + b.CacheWrite,
	}
}
