// Package cli implements a terminal channel for local agent testing:
// stdin lines become inbound messages, replies print to stdout.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/soyeahso/clowder/internal/domain"
	"github.com/soyeahso/clowder/internal/logging"
)

// ChannelID is the identifier for the terminal channel.
const ChannelID = "cli"

// Channel implements domain.Channel over stdin/stdout.
type Channel struct {
	prompt  string
	botName string
	in      io.Reader
	out     io.Writer
	log     *logging.Logger

	mu      sync.Mutex
	handler func(msg domain.InboundMessage)
	running bool
	counter int
}

// Option customizes the CLI channel.
type Option func(*Channel)

// WithIO redirects input and output, mainly for tests.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(c *Channel) {
		c.in = in
		c.out = out
	}
}

// WithBotName sets the name printed before replies.
func WithBotName(name string) Option {
	return func(c *Channel) { c.botName = name }
}

// New creates a CLI channel reading stdin and writing stdout.
func New(log *logging.Logger, opts ...Option) *Channel {
	c := &Channel{
		prompt:  "You: ",
		botName: "Bot",
		in:      os.Stdin,
		out:     os.Stdout,
		log:     log.Sub("cli"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Channel) ID() string { return ChannelID }

func (c *Channel) OnMessage(handler func(msg domain.InboundMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Start launches the read loop and returns immediately.
func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("cli channel already started")
	}
	c.running = true
	c.mu.Unlock()

	fmt.Fprintln(c.out, "Type your message and press Enter. Ctrl+C to quit.")
	go c.readLoop(ctx)
	return nil
}

func (c *Channel) readLoop(ctx context.Context) {
	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, c.prompt)
		if !scanner.Scan() {
			c.log.Debug().Msg("stdin closed")
			return
		}
		if ctx.Err() != nil || !c.isRunning() {
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		c.mu.Lock()
		c.counter++
		id := fmt.Sprintf("cli-%d", c.counter)
		handler := c.handler
		c.mu.Unlock()
		if handler == nil {
			continue
		}

		handler(domain.InboundMessage{
			ID:        id,
			ChannelID: ChannelID,
			From:      "local",
			ChatID:    "local",
			ChatType:  domain.ChatTypeDirect,
			Body:      text,
		})
	}
}

// Stop ends the read loop after the current line.
func (c *Channel) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// Send prints the reply to the terminal.
func (c *Channel) Send(ctx context.Context, msg domain.OutboundMessage) error {
	_, err := fmt.Fprintf(c.out, "\n%s: %s\n\n", c.botName, msg.Body)
	return err
}

func (c *Channel) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
