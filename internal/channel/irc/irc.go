// Package irc implements the IRC channel using the girc library.
// Channel messages are group chats gated on a nick mention; private
// messages map to direct sessions.
package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lrstanley/girc"

	"github.com/soyeahso/clowder/internal/domain"
	"github.com/soyeahso/clowder/internal/logging"
)

// ChannelID is the identifier for the IRC channel.
const ChannelID = "irc"

// ircLineLimit keeps outbound lines under the 512-byte protocol cap
// with headroom for the server-added prefix.
const ircLineLimit = 400

// Config holds IRC connection settings.
type Config struct {
	Server   string
	Port     int
	Nick     string
	Channels []string
	UseTLS   bool
	SASL     bool
	Password string

	// MentionOnly gates group responses on the bot nick appearing in
	// the message. DMs are always processed.
	MentionOnly bool
}

// Channel implements domain.Channel for IRC.
type Channel struct {
	cfg    Config
	client *girc.Client
	log    *logging.Logger

	mu      sync.RWMutex
	handler func(msg domain.InboundMessage)
	running bool
}

// New creates an IRC channel from configuration.
func New(cfg Config, log *logging.Logger) *Channel {
	return &Channel{cfg: cfg, log: log.Sub("irc")}
}

func (c *Channel) ID() string { return ChannelID }

func (c *Channel) OnMessage(handler func(msg domain.InboundMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Start connects to the IRC server in the background.
func (c *Channel) Start(ctx context.Context) error {
	port := c.cfg.Port
	if port == 0 {
		if c.cfg.UseTLS {
			port = 6697
		} else {
			port = 6667
		}
	}

	gircCfg := girc.Config{
		Server: c.cfg.Server,
		Port:   port,
		Nick:   c.cfg.Nick,
		User:   c.cfg.Nick,
		Name:   "Clowder IRC Bot",
		SSL:    c.cfg.UseTLS,
	}
	if c.cfg.UseTLS {
		gircCfg.TLSConfig = &tls.Config{ServerName: c.cfg.Server}
	}
	if c.cfg.SASL && c.cfg.Password != "" {
		gircCfg.SASL = &girc.SASLPlain{User: c.cfg.Nick, Pass: c.cfg.Password}
	} else if c.cfg.Password != "" {
		gircCfg.ServerPass = c.cfg.Password
	}

	c.client = girc.New(gircCfg)
	c.client.Handlers.Add(girc.CONNECTED, c.onConnected)
	c.client.Handlers.Add(girc.PRIVMSG, c.onPrivmsg)
	c.client.Handlers.Add(girc.DISCONNECTED, c.onDisconnected)

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	c.log.Info().
		Str("server", c.cfg.Server).
		Int("port", port).
		Str("nick", c.cfg.Nick).
		Strs("channels", c.cfg.Channels).
		Bool("tls", c.cfg.UseTLS).
		Msg("connecting to IRC")

	// Connect blocks; run it in the background and watch the context.
	go func() {
		if err := c.client.Connect(); err != nil {
			c.log.Error().Err(err).Msg("irc connection ended")
		}
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()
	go func() {
		<-ctx.Done()
		c.client.Close()
	}()
	return nil
}

// Stop gracefully disconnects from the IRC server.
func (c *Channel) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && c.client.IsConnected() {
		c.log.Info().Msg("disconnecting from IRC")
		c.client.Quit("shutting down")
	}
	c.running = false
	return nil
}

// Send delivers a message to an IRC channel or user, splitting it into
// protocol-sized lines.
func (c *Channel) Send(ctx context.Context, msg domain.OutboundMessage) error {
	if c.client == nil || !c.client.IsConnected() {
		return fmt.Errorf("irc: not connected")
	}
	if msg.To == "" {
		return fmt.Errorf("irc: no target specified")
	}

	lines := splitMessage(msg.Body, ircLineLimit)
	for _, line := range lines {
		c.client.Cmd.Message(msg.To, line)
	}
	c.log.Debug().Str("to", msg.To).Int("lines", len(lines)).Msg("sent IRC message")
	return nil
}

func (c *Channel) onConnected(_ *girc.Client, e girc.Event) {
	c.log.Info().Str("nick", c.client.GetNick()).Msg("connected to IRC")
	for _, ch := range c.cfg.Channels {
		c.log.Info().Str("channel", ch).Msg("joining channel")
		c.client.Cmd.Join(ch)
	}
}

func (c *Channel) onDisconnected(_ *girc.Client, e girc.Event) {
	c.log.Warn().Msg("disconnected from IRC")
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

func (c *Channel) onPrivmsg(_ *girc.Client, e girc.Event) {
	if e.Source == nil || e.Source.Name == c.client.GetNick() {
		return
	}

	body := e.Last()
	if e.IsAction() {
		body = e.StripAction()
	}

	if e.IsFromChannel() {
		// Group messages answer only when the bot is mentioned.
		if c.cfg.MentionOnly && !strings.Contains(strings.ToLower(body), strings.ToLower(c.cfg.Nick)) {
			return
		}
		c.deliver(e.Source.Name, e.Params[0], domain.ChatTypeGroup, body)
		return
	}

	c.deliver(e.Source.Name, e.Source.Name, domain.ChatTypeDirect, body)
}

func (c *Channel) deliver(from, chatID string, chatType domain.ChatType, body string) {
	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()
	if handler == nil {
		return
	}

	handler(domain.InboundMessage{
		ID:        uuid.New().String(),
		ChannelID: ChannelID,
		From:      from,
		FromName:  from,
		ChatID:    chatID,
		ChatType:  chatType,
		Body:      body,
		Timestamp: time.Now(),
	})
}

// splitMessage breaks a reply into IRC-sized lines. Embedded newlines
// produce separate lines; overlong lines are split at the byte boundary.
func splitMessage(text string, maxLen int) []string {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		for len(line) > maxLen {
			chunks = append(chunks, line[:maxLen])
			line = line[maxLen:]
		}
		if line != "" {
			chunks = append(chunks, line)
		}
	}
	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}
