package domain

import (
	"context"
	"time"
)

// InboundMessage is a message received from a channel.
type InboundMessage struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channelId"`
	From      string    `json:"from"`
	FromName  string    `json:"fromName,omitempty"`
	ChatID    string    `json:"chatId"`
	ChatType  ChatType  `json:"chatType"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
	ReplyToID string    `json:"replyToId,omitempty"`
	Raw       any       `json:"raw,omitempty"`
}

// OutboundMessage is a message to be sent via a channel.
type OutboundMessage struct {
	ChannelID string `json:"channelId"`
	To        string `json:"to"`
	Body      string `json:"body"`
	ReplyToID string `json:"replyToId,omitempty"`
}

// Channel is the interface all messaging channel implementations satisfy.
type Channel interface {
	// ID returns the channel identifier (e.g. "irc", "cli", "cron").
	ID() string

	// Start connects the channel and begins listening for messages.
	Start(ctx context.Context) error

	// Stop gracefully disconnects the channel.
	Stop(ctx context.Context) error

	// Send delivers an outbound message through this channel.
	Send(ctx context.Context, msg OutboundMessage) error

	// OnMessage registers a handler for inbound messages.
	OnMessage(handler func(msg InboundMessage))
}

// Indicator is an optional channel capability for visible processing
// feedback (typing markers, reactions). The gateway calls Working before
// invoking the agent and Done afterwards when a channel implements it.
type Indicator interface {
	Working(ctx context.Context, msg InboundMessage)
	Done(ctx context.Context, msg InboundMessage)
}
