// Package gateway connects channels to the agent loop: session key
// derivation, per-session serialization, the middleware chain, and
// reply routing back through the originating channel.
package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/soyeahso/clowder/internal/agent"
	"github.com/soyeahso/clowder/internal/domain"
	"github.com/soyeahso/clowder/internal/logging"
)

const stopTimeout = 10 * time.Second

// Config controls gateway behavior.
type Config struct {
	AgentID string
}

// Gateway routes inbound messages through middleware to the agent loop
// and sends replies back. Messages for the same session key run
// strictly one at a time; different keys run in parallel.
type Gateway struct {
	cfg  Config
	loop *agent.Loop
	log  *logging.Logger

	mu         sync.Mutex
	channels   map[string]domain.Channel
	middleware []Middleware
	running    bool

	keyLocks sync.Map // session key string → *sync.Mutex
	wg       sync.WaitGroup
}

// New creates a gateway around an agent loop.
func New(cfg Config, loop *agent.Loop, log *logging.Logger) *Gateway {
	if cfg.AgentID == "" {
		cfg.AgentID = "main"
	}
	return &Gateway{
		cfg:      cfg,
		loop:     loop,
		log:      log.Sub("gateway"),
		channels: make(map[string]domain.Channel),
	}
}

// AddChannel registers a channel. Returns the gateway for chaining.
func (g *Gateway) AddChannel(ch domain.Channel) *Gateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[ch.ID()] = ch
	g.log.Info().Str("channel", ch.ID()).Msg("channel registered")
	return g
}

// Use appends a middleware to the chain. Returns the gateway for chaining.
func (g *Gateway) Use(mw Middleware) *Gateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.middleware = append(g.middleware, mw)
	return g
}

// Run starts all channels and blocks until the context is canceled.
func (g *Gateway) Run(ctx context.Context) error {
	g.mu.Lock()
	if len(g.channels) == 0 {
		g.mu.Unlock()
		return fmt.Errorf("no channels registered")
	}
	g.running = true
	channels := make([]domain.Channel, 0, len(g.channels))
	for _, ch := range g.channels {
		channels = append(channels, ch)
	}
	g.mu.Unlock()

	for _, ch := range channels {
		ch := ch
		ch.OnMessage(func(msg domain.InboundMessage) {
			g.wg.Add(1)
			go func() {
				defer g.wg.Done()
				g.handle(ctx, msg)
			}()
		})
		if err := ch.Start(ctx); err != nil {
			return fmt.Errorf("starting channel %s: %w", ch.ID(), err)
		}
		g.log.Info().Str("channel", ch.ID()).Msg("channel started")
	}

	<-ctx.Done()
	g.Stop()
	return ctx.Err()
}

// Stop shuts down all channels and waits for in-flight messages.
func (g *Gateway) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	g.mu.Lock()
	channels := make([]domain.Channel, 0, len(g.channels))
	for _, ch := range g.channels {
		channels = append(channels, ch)
	}
	g.running = false
	g.mu.Unlock()

	for _, ch := range channels {
		if err := ch.Stop(ctx); err != nil {
			g.log.Warn().Err(err).Str("channel", ch.ID()).Msg("channel stop failed")
		}
	}

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		g.log.Warn().Msg("timed out waiting for in-flight messages")
	}
}

// handle routes one inbound message: derive the session key, serialize
// on it, run the middleware chain into the agent, send the reply.
func (g *Gateway) handle(ctx context.Context, msg domain.InboundMessage) {
	key := g.sessionKey(msg)
	mc := &Context{Ctx: ctx, Message: msg, Key: key}

	unlock := g.lockKey(key)
	defer unlock()

	if ind, ok := g.channelFor(msg.ChannelID).(domain.Indicator); ok {
		ind.Working(ctx, msg)
		defer ind.Done(ctx, msg)
	}

	g.mu.Lock()
	chain := Chain(g.middleware, g.runAgent)
	g.mu.Unlock()

	reply, err := chain(mc)
	if err != nil {
		g.log.Error().Err(err).Str("key", key.String()).Msg("message processing failed")
		reply = "Error: " + err.Error()
	}
	if reply == "" {
		return
	}
	g.sendReply(ctx, msg, reply)
}

// runAgent is the terminal handler of the middleware chain.
func (g *Gateway) runAgent(mc *Context) (string, error) {
	g.log.Info().
		Str("key", mc.Key.String()).
		Str("body", truncate(mc.Message.Body, 80)).
		Msg("dispatching to agent")

	res, err := g.loop.Run(mc.Ctx, mc.Key, mc.Message.Body, mc.Message.From)
	if err != nil {
		return "", err
	}
	return res.Reply, nil
}

// Process injects a message directly, bypassing channel transports but
// keeping per-key serialization. Used by the CLI, cron jobs, and tests.
func (g *Gateway) Process(ctx context.Context, msg domain.InboundMessage) (string, error) {
	key := g.sessionKey(msg)

	unlock := g.lockKey(key)
	defer unlock()

	res, err := g.loop.Run(ctx, key, msg.Body, msg.From)
	if err != nil {
		return "", err
	}
	return res.Reply, nil
}

// sessionKey derives the canonical key for a message: direct chats are
// keyed by sender, groups by chat, cron jobs by job id.
func (g *Gateway) sessionKey(msg domain.InboundMessage) domain.SessionKey {
	chatType := msg.ChatType
	if !chatType.Valid() {
		chatType = domain.ChatTypeDirect
	}
	chatID := msg.ChatID
	if chatType == domain.ChatTypeDirect && msg.From != "" {
		chatID = msg.From
	}
	return domain.SessionKey{
		AgentID:  g.cfg.AgentID,
		Channel:  msg.ChannelID,
		ChatType: chatType,
		ChatID:   chatID,
	}
}

func (g *Gateway) lockKey(key domain.SessionKey) func() {
	v, _ := g.keyLocks.LoadOrStore(key.String(), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (g *Gateway) channelFor(id string) domain.Channel {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.channels[id]
}

func (g *Gateway) sendReply(ctx context.Context, original domain.InboundMessage, reply string) {
	ch := g.channelFor(original.ChannelID)
	if ch == nil {
		g.log.Warn().Str("channel", original.ChannelID).Msg("no channel for reply")
		return
	}
	out := domain.OutboundMessage{
		ChannelID: original.ChannelID,
		To:        original.ChatID,
		Body:      reply,
		ReplyToID: original.ID,
	}
	if err := ch.Send(ctx, out); err != nil {
		g.log.Error().Err(err).Str("channel", original.ChannelID).Msg("reply send failed")
	}
}
