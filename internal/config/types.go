package config

// Config is the root configuration for Clowder.
type Config struct {
	Agent     AgentConfig     `yaml:"agent,omitempty"`
	Models    ModelsConfig    `yaml:"models,omitempty"`
	Session   SessionConfig   `yaml:"session,omitempty"`
	Gateway   GatewayConfig   `yaml:"gateway,omitempty"`
	Channels  ChannelsConfig  `yaml:"channels,omitempty"`
	Workspace WorkspaceConfig `yaml:"workspace,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// AgentConfig controls the agent loop.
type AgentConfig struct {
	ID           string   `yaml:"id,omitempty"`
	SystemPrompt string   `yaml:"systemPrompt,omitempty"`
	Model        string   `yaml:"model,omitempty"` // provider name from models.providers
	MaxTokens    int      `yaml:"maxTokens,omitempty"`
	Temperature  *float64 `yaml:"temperature,omitempty"`
	MaxTurns     int      `yaml:"maxTurns,omitempty"`

	ContextWindow       int     `yaml:"contextWindow,omitempty"`
	CompactionThreshold float64 `yaml:"compactionThreshold,omitempty"`
	CompactionKeepLast  int     `yaml:"compactionKeepLast,omitempty"`

	Timezone string `yaml:"timezone,omitempty"`

	// EnableShellTools registers the file/shell builtin tools.
	EnableShellTools bool `yaml:"enableShellTools,omitempty"`
}

// ModelsConfig defines LLM providers.
type ModelsConfig struct {
	Default   string                   `yaml:"default,omitempty"`
	Providers map[string]ProviderEntry `yaml:"providers,omitempty"`
}

// ProviderEntry defines a single LLM provider.
type ProviderEntry struct {
	Kind    string `yaml:"kind"` // "anthropic" | "openai"
	APIKey  string `yaml:"apiKey,omitempty"`
	BaseURL string `yaml:"baseUrl,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

// SessionConfig defines session persistence behavior.
type SessionConfig struct {
	Store      string `yaml:"store,omitempty"` // "file" | "sqlite"
	Dir        string `yaml:"dir,omitempty"`
	SQLitePath string `yaml:"sqlitePath,omitempty"`
	DailyReset bool   `yaml:"dailyReset,omitempty"`
}

// GatewayConfig controls routing middleware.
type GatewayConfig struct {
	RateLimitPerMinute int      `yaml:"rateLimitPerMinute,omitempty"` // 0 disables
	AllowSenders       []string `yaml:"allowSenders,omitempty"`       // empty allows all
	LogMessages        bool     `yaml:"logMessages,omitempty"`
}

// ChannelsConfig defines channel-specific configurations.
type ChannelsConfig struct {
	CLI  *CLIChannelConfig `yaml:"cli,omitempty"`
	IRC  *IRCConfig        `yaml:"irc,omitempty"`
	WS   *WSConfig         `yaml:"ws,omitempty"`
	Cron []CronJobConfig   `yaml:"cron,omitempty"`
}

// CLIChannelConfig defines the terminal channel.
type CLIChannelConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	BotName string `yaml:"botName,omitempty"`
}

// IRCConfig defines IRC channel settings.
type IRCConfig struct {
	Server      string   `yaml:"server"`
	Port        int      `yaml:"port,omitempty"`
	Nick        string   `yaml:"nick"`
	Password    string   `yaml:"password,omitempty"`
	Channels    []string `yaml:"channels"`
	UseTLS      bool     `yaml:"useTLS,omitempty"`
	SASL        bool     `yaml:"sasl,omitempty"`
	MentionOnly *bool    `yaml:"mentionOnly,omitempty"` // defaults to true
}

// WSConfig defines the WebSocket channel.
type WSConfig struct {
	Addr string `yaml:"addr,omitempty"`
	Path string `yaml:"path,omitempty"`
}

// CronJobConfig defines one scheduled job.
type CronJobConfig struct {
	Name     string `yaml:"name"`
	Schedule string `yaml:"schedule"`
	Message  string `yaml:"message"`
}

// WorkspaceConfig locates the agent workspace.
type WorkspaceConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	Style string `yaml:"style,omitempty"` // "pretty" | "json"
}
