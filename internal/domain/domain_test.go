package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionKeyString(t *testing.T) {
	key := SessionKey{AgentID: "main", Channel: "irc", ChatType: ChatTypeGroup, ChatID: "#cats"}
	assert.Equal(t, "agent:main:irc:group:#cats", key.String())
}

func TestSessionKeyFileStem(t *testing.T) {
	key := SessionKey{AgentID: "main", Channel: "cli", ChatType: ChatTypeDirect, ChatID: "local"}
	assert.Equal(t, "agent__main__cli__direct__local", key.FileStem())

	// Path separators and traversal sequences must not survive.
	key = SessionKey{AgentID: "main", Channel: "ws", ChatType: ChatTypeDirect, ChatID: "../etc/passwd"}
	stem := key.FileStem()
	assert.NotContains(t, stem, "/")
	assert.NotContains(t, stem, "..")
}

func TestParseSessionKeyRoundTrip(t *testing.T) {
	keys := []SessionKey{
		{AgentID: "main", Channel: "cli", ChatType: ChatTypeDirect, ChatID: "local"},
		{AgentID: "main", Channel: "cron", ChatType: ChatTypeCron, ChatID: "daily_report"},
		// Chat IDs may contain colons.
		{AgentID: "main", Channel: "feishu", ChatType: ChatTypeGroup, ChatID: "oc:abc:123"},
	}
	for _, want := range keys {
		got, err := ParseSessionKey(want.String())
		require.NoError(t, err, want.String())
		assert.Equal(t, want, got)
	}
}

func TestParseSessionKeyRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"agent:main:cli:direct",            // too few parts
		"session:main:cli:direct:local",    // wrong prefix
		"agent:main:cli:broadcast:local",   // unknown chat type
		"agent::cli:direct:local",          // empty agent id
		"agent:main::direct:local",         // empty channel
		"agent:main:cli:direct:",           // empty chat id
	}
	for _, s := range bad {
		_, err := ParseSessionKey(s)
		assert.Error(t, err, "%q should not parse", s)
	}
}

func TestChatTypeValid(t *testing.T) {
	assert.True(t, ChatTypeDirect.Valid())
	assert.True(t, ChatTypeGroup.Valid())
	assert.True(t, ChatTypeCron.Valid())
	assert.False(t, ChatType("broadcast").Valid())
	assert.False(t, ChatType("").Valid())
}

func TestMessageConstructors(t *testing.T) {
	u := NewUserMessage("hi")
	assert.Equal(t, RoleUser, u.Role)
	assert.Equal(t, "hi", u.Content)
	assert.False(t, u.Timestamp.IsZero())

	calls := []ToolCallRequest{{ID: "c1", Name: "read_file"}}
	a := NewAssistantMessage("on it", calls)
	assert.Equal(t, RoleAssistant, a.Role)
	assert.Equal(t, calls, a.ToolCalls)

	tm := NewToolMessage(ToolResult{ToolCallID: "c1", Content: "Error: no such file", IsError: true})
	assert.Equal(t, RoleTool, tm.Role)
	assert.Equal(t, "c1", tm.ToolCallID)
	assert.True(t, tm.IsError)

	s := NewSystemMessage("[Summary of 4 earlier messages]\nstuff")
	assert.Equal(t, RoleSystem, s.Role)
}
