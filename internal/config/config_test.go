package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.Agent.ID)
	assert.Equal(t, 4096, cfg.Agent.MaxTokens)
	assert.Equal(t, 10, cfg.Agent.MaxTurns)
	assert.Equal(t, 128_000, cfg.Agent.ContextWindow)
	assert.InDelta(t, 0.7, cfg.Agent.CompactionThreshold, 0.001)
	assert.Equal(t, "file", cfg.Session.Store)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
agent:
  id: catbot
  systemPrompt: "You are a cat."
  model: claude
  maxTurns: 5
models:
  default: claude
  providers:
    claude:
      kind: anthropic
      apiKey: sk-test
      model: claude-sonnet-4-20250514
    deepseek:
      kind: openai
      apiKey: sk-ds
      baseUrl: https://api.deepseek.com/v1
      model: deepseek-chat
session:
  store: sqlite
  dailyReset: true
gateway:
  rateLimitPerMinute: 20
  allowSenders: [alice, bob]
channels:
  cli:
    enabled: true
    botName: Miso
  cron:
    - name: daily_report
      schedule: "0 9 * * *"
      message: "write the report"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "catbot", cfg.Agent.ID)
	assert.Equal(t, "You are a cat.", cfg.Agent.SystemPrompt)
	assert.Equal(t, 5, cfg.Agent.MaxTurns)
	assert.Equal(t, "claude", cfg.Models.Default)
	assert.Len(t, cfg.Models.Providers, 2)
	assert.Equal(t, "anthropic", cfg.Models.Providers["claude"].Kind)
	assert.Equal(t, "https://api.deepseek.com/v1", cfg.Models.Providers["deepseek"].BaseURL)
	assert.True(t, cfg.Session.DailyReset)
	assert.Equal(t, 20, cfg.Gateway.RateLimitPerMinute)
	assert.Equal(t, []string{"alice", "bob"}, cfg.Gateway.AllowSenders)
	require.NotNil(t, cfg.Channels.CLI)
	assert.Equal(t, "Miso", cfg.Channels.CLI.BotName)
	require.Len(t, cfg.Channels.Cron, 1)
	assert.Equal(t, "daily_report", cfg.Channels.Cron[0].Name)
}

func TestLoadExpandsEnvInCredentials(t *testing.T) {
	t.Setenv("TEST_CLOWDER_KEY", "sk-from-env")
	path := writeConfig(t, `
models:
  providers:
    claude:
      kind: anthropic
      apiKey: ${TEST_CLOWDER_KEY}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Models.Providers["claude"].APIKey)
}

func TestLoadLeavesUnsetEnvReference(t *testing.T) {
	path := writeConfig(t, `
models:
  providers:
    claude:
      kind: anthropic
      apiKey: ${DEFINITELY_NOT_SET_VAR}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "${DEFINITELY_NOT_SET_VAR}", cfg.Models.Providers["claude"].APIKey)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CLOWDER_LOG_LEVEL", "DEBUG")
	t.Setenv("CLOWDER_SESSION_DIR", "/tmp/clowder-sessions")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/clowder-sessions", cfg.Session.Dir)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "agent: [not a map")
	_, err := Load(path)
	require.Error(t, err)
	var cerr *ConfigError
	assert.ErrorAs(t, err, &cerr)
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown provider kind",
			yaml:    "models:\n  providers:\n    x:\n      kind: gemini\n",
			wantErr: "unknown kind",
		},
		{
			name:    "default provider undefined",
			yaml:    "models:\n  default: missing\n  providers:\n    x:\n      kind: openai\n",
			wantErr: "not defined",
		},
		{
			name:    "agent model names unknown provider",
			yaml:    "agent:\n  model: nope\nmodels:\n  providers:\n    x:\n      kind: openai\n",
			wantErr: "does not name a provider",
		},
		{
			name:    "bad session store",
			yaml:    "session:\n  store: redis\n",
			wantErr: "unknown session store",
		},
		{
			name:    "cron job without name",
			yaml:    "channels:\n  cron:\n    - schedule: '* * * * *'\n      message: hi\n",
			wantErr: "without a name",
		},
		{
			name:    "duplicate cron job",
			yaml:    "channels:\n  cron:\n    - name: a\n      schedule: '* * * * *'\n      message: hi\n    - name: a\n      schedule: '* * * * *'\n      message: hi\n",
			wantErr: "duplicate cron job",
		},
		{
			name:    "irc missing nick",
			yaml:    "channels:\n  irc:\n    server: irc.libera.chat\n",
			wantErr: "server and nick",
		},
		{
			name:    "threshold out of range",
			yaml:    "agent:\n  compactionThreshold: 1.5\n",
			wantErr: "between 0 and 1",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
