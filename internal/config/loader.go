// Package config loads and validates the YAML configuration.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigError reports a problem with the configuration file.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so keys and passwords can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	for name, provider := range cfg.Models.Providers {
		provider.APIKey = expandEnvVars(provider.APIKey)
		cfg.Models.Providers[name] = provider
	}
	if cfg.Channels.IRC != nil {
		cfg.Channels.IRC.Password = expandEnvVars(cfg.Channels.IRC.Password)
	}
}

// Load reads the config file, applies defaults and environment
// overrides, and validates the result. A missing file yields defaults.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
		}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	if err := Validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Agent.ID == "" {
		cfg.Agent.ID = "main"
	}
	if cfg.Agent.SystemPrompt == "" {
		cfg.Agent.SystemPrompt = "You are a helpful assistant."
	}
	if cfg.Agent.MaxTokens == 0 {
		cfg.Agent.MaxTokens = 4096
	}
	if cfg.Agent.MaxTurns == 0 {
		cfg.Agent.MaxTurns = 10
	}
	if cfg.Agent.ContextWindow == 0 {
		cfg.Agent.ContextWindow = 128_000
	}
	if cfg.Agent.CompactionThreshold == 0 {
		cfg.Agent.CompactionThreshold = 0.7
	}
	if cfg.Agent.CompactionKeepLast == 0 {
		cfg.Agent.CompactionKeepLast = 10
	}
	if cfg.Session.Store == "" {
		cfg.Session.Store = "file"
	}
	if cfg.Session.Dir == "" {
		cfg.Session.Dir = DefaultSessionDir()
	}
	if cfg.Session.SQLitePath == "" {
		cfg.Session.SQLitePath = DefaultSQLitePath()
	}
	if cfg.Workspace.Dir == "" {
		cfg.Workspace.Dir = DefaultWorkspaceDir()
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Style == "" {
		cfg.Logging.Style = "pretty"
	}
	if cfg.Channels.WS != nil && cfg.Channels.WS.Addr == "" {
		cfg.Channels.WS.Addr = "127.0.0.1:18790"
	}
}

// applyEnvOverrides reads CLOWDER_* environment variables over config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CLOWDER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("CLOWDER_SESSION_DIR"); v != "" {
		cfg.Session.Dir = v
	}
	if v := os.Getenv("CLOWDER_WORKSPACE_DIR"); v != "" {
		cfg.Workspace.Dir = v
	}
	if v := os.Getenv("CLOWDER_MODEL"); v != "" {
		cfg.Agent.Model = v
	}
}

// Validate checks cross-field constraints.
func Validate(cfg *Config) error {
	switch cfg.Session.Store {
	case "file", "sqlite":
	default:
		return &ConfigError{Message: fmt.Sprintf("unknown session store %q (want file or sqlite)", cfg.Session.Store)}
	}

	for name, p := range cfg.Models.Providers {
		switch p.Kind {
		case "anthropic", "openai":
		default:
			return &ConfigError{Message: fmt.Sprintf("provider %s: unknown kind %q (want anthropic or openai)", name, p.Kind)}
		}
	}
	if cfg.Models.Default != "" {
		if _, ok := cfg.Models.Providers[cfg.Models.Default]; !ok {
			return &ConfigError{Message: fmt.Sprintf("default provider %q is not defined", cfg.Models.Default)}
		}
	}
	if cfg.Agent.Model != "" && len(cfg.Models.Providers) > 0 {
		if _, ok := cfg.Models.Providers[cfg.Agent.Model]; !ok {
			return &ConfigError{Message: fmt.Sprintf("agent model %q does not name a provider", cfg.Agent.Model)}
		}
	}

	if cfg.Agent.CompactionThreshold < 0 || cfg.Agent.CompactionThreshold > 1 {
		return &ConfigError{Message: "compactionThreshold must be between 0 and 1"}
	}

	seen := make(map[string]struct{}, len(cfg.Channels.Cron))
	for _, job := range cfg.Channels.Cron {
		if job.Name == "" {
			return &ConfigError{Message: "cron job without a name"}
		}
		if _, dup := seen[job.Name]; dup {
			return &ConfigError{Message: fmt.Sprintf("duplicate cron job %q", job.Name)}
		}
		seen[job.Name] = struct{}{}
		if job.Schedule == "" {
			return &ConfigError{Message: fmt.Sprintf("cron job %s: missing schedule", job.Name)}
		}
	}

	if cfg.Channels.IRC != nil {
		if cfg.Channels.IRC.Server == "" || cfg.Channels.IRC.Nick == "" {
			return &ConfigError{Message: "irc channel needs server and nick"}
		}
	}
	return nil
}
