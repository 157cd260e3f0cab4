package domain

import (
	"fmt"
	"strings"
)

// ChatType classifies the conversation context a session belongs to.
type ChatType string

const (
	ChatTypeDirect ChatType = "direct"
	ChatTypeGroup  ChatType = "group"
	ChatTypeCron   ChatType = "cron"
)

// Valid reports whether the chat type is one of the known values.
func (t ChatType) Valid() bool {
	switch t {
	case ChatTypeDirect, ChatTypeGroup, ChatTypeCron:
		return true
	}
	return false
}

// SessionKey uniquely identifies a conversation session.
//
// Canonical string form: agent:<agentId>:<channel>:<type>:<chatId>
// Examples:
//
//	agent:main:feishu:direct:ou_abc123
//	agent:main:cli:direct:local
//	agent:main:cron:cron:daily_report
type SessionKey struct {
	AgentID  string   `json:"agentId"`
	Channel  string   `json:"channel"`
	ChatType ChatType `json:"chatType"`
	ChatID   string   `json:"chatId"`
}

// String returns the canonical string form of the key.
func (k SessionKey) String() string {
	return "agent:" + k.AgentID + ":" + k.Channel + ":" + string(k.ChatType) + ":" + k.ChatID
}

// FileStem returns a filesystem-safe name derived from the key.
func (k SessionKey) FileStem() string {
	s := strings.ReplaceAll(k.String(), ":", "__")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "..", "")
	return s
}

// ParseSessionKey parses a canonical session key string.
// The chat ID may itself contain colons.
func ParseSessionKey(s string) (SessionKey, error) {
	parts := strings.SplitN(s, ":", 5)
	if len(parts) < 5 || parts[0] != "agent" {
		return SessionKey{}, fmt.Errorf("invalid session key %q", s)
	}
	key := SessionKey{
		AgentID:  parts[1],
		Channel:  parts[2],
		ChatType: ChatType(parts[3]),
		ChatID:   parts[4],
	}
	if !key.ChatType.Valid() {
		return SessionKey{}, fmt.Errorf("invalid session key %q: unknown chat type %q", s, parts[3])
	}
	if key.AgentID == "" || key.Channel == "" || key.ChatID == "" {
		return SessionKey{}, fmt.Errorf("invalid session key %q: empty component", s)
	}
	return key, nil
}
