package cli

import (
	"fmt"
	"time"

	"github.com/soyeahso/clowder/internal/agent"
	clichan "github.com/soyeahso/clowder/internal/channel/cli"
	"github.com/soyeahso/clowder/internal/channel/cron"
	"github.com/soyeahso/clowder/internal/channel/irc"
	"github.com/soyeahso/clowder/internal/channel/ws"
	"github.com/soyeahso/clowder/internal/config"
	"github.com/soyeahso/clowder/internal/gateway"
	"github.com/soyeahso/clowder/internal/llm"
	"github.com/soyeahso/clowder/internal/logging"
	"github.com/soyeahso/clowder/internal/session"
	"github.com/soyeahso/clowder/internal/tools"
	"github.com/soyeahso/clowder/internal/workspace"
)

// engine holds the wired runtime shared by the gateway and message commands.
type engine struct {
	cfg   config.Config
	log   *logging.Logger
	store session.Store
	ws    *workspace.Workspace
	loop  *agent.Loop

	close func()
}

// buildEngine loads config and wires store, workspace, providers, tools,
// and the agent loop. Callers must invoke e.close when done.
func buildEngine() (*engine, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	level := logLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	var lg *logging.Logger
	if cfg.Logging.Style == "json" {
		lg = logging.NewJSON(nil, level)
	} else {
		lg = logging.New(nil, level)
	}

	e := &engine{cfg: cfg, log: lg}
	e.store, e.close, err = openStore(cfg, lg)
	if err != nil {
		return nil, err
	}

	e.ws = workspace.New(cfg.Workspace.Dir, lg)
	if err := e.ws.Init(); err != nil {
		e.close()
		return nil, fmt.Errorf("initializing workspace: %w", err)
	}

	client, model, err := buildProvider(cfg, lg)
	if err != nil {
		e.close()
		return nil, err
	}

	reg := tools.NewRegistry(lg)
	specs := workspace.Tools(e.ws)
	if cfg.Agent.EnableShellTools {
		specs = append(specs, tools.Builtins()...)
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			e.close()
			return nil, fmt.Errorf("registering tool: %w", err)
		}
	}

	agentCfg := agent.Config{
		AgentID:             cfg.Agent.ID,
		SystemPrompt:        cfg.Agent.SystemPrompt,
		Model:               model,
		MaxTokens:           cfg.Agent.MaxTokens,
		MaxTurns:            cfg.Agent.MaxTurns,
		ContextWindow:       cfg.Agent.ContextWindow,
		CompactionThreshold: cfg.Agent.CompactionThreshold,
		CompactionKeepLast:  cfg.Agent.CompactionKeepLast,
		Timezone:            cfg.Agent.Timezone,
		CacheSystemPrompt:   true,
	}
	if cfg.Agent.Temperature != nil {
		agentCfg.Temperature = *cfg.Agent.Temperature
	}
	if cfg.Session.DailyReset {
		agentCfg.ResetPolicy = session.ResetDaily
	}

	e.loop = agent.NewLoop(agentCfg, client, reg, e.store, e.ws, lg)
	return e, nil
}

// openStore opens the configured session store. The returned function
// releases it.
func openStore(cfg config.Config, lg *logging.Logger) (session.Store, func(), error) {
	switch cfg.Session.Store {
	case "sqlite":
		db, err := session.OpenSQLite(cfg.Session.SQLitePath, lg)
		if err != nil {
			return nil, nil, fmt.Errorf("opening session database: %w", err)
		}
		lg.Info().Str("path", cfg.Session.SQLitePath).Msg("using SQLite session store")
		return db, func() { _ = db.Close() }, nil
	default:
		fs, err := session.NewFileStore(cfg.Session.Dir, lg)
		if err != nil {
			return nil, nil, fmt.Errorf("opening session directory: %w", err)
		}
		lg.Info().Str("dir", cfg.Session.Dir).Msg("using file session store")
		return fs, func() {}, nil
	}
}

// buildStore loads config and opens just the session store, for commands
// that inspect sessions without running the agent.
func buildStore() (session.Store, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	level := logLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	return openStore(cfg, logging.New(nil, level))
}

// buildProvider registers all configured LLM providers and resolves the
// one the agent uses. Returns the client and its model name.
func buildProvider(cfg config.Config, lg *logging.Logger) (llm.Client, string, error) {
	if len(cfg.Models.Providers) == 0 {
		return nil, "", fmt.Errorf("no LLM providers configured")
	}

	registry := llm.NewRegistry(lg)
	for name, p := range cfg.Models.Providers {
		switch p.Kind {
		case "anthropic":
			registry.Register(name, llm.NewAnthropicClient(p.APIKey, p.Model, p.BaseURL))
		case "openai":
			registry.Register(name, llm.NewOpenAIClient(p.APIKey, p.Model, p.BaseURL))
		}
	}
	registry.SetFallback(cfg.Models.Default)

	name := cfg.Agent.Model
	if name == "" {
		name = cfg.Models.Default
	}
	if name == "" {
		for n := range cfg.Models.Providers {
			name = n
			break
		}
	}
	client, err := registry.Resolve(name)
	if err != nil {
		return nil, "", err
	}
	return client, cfg.Models.Providers[name].Model, nil
}

// buildGateway assembles the gateway with middleware and channels from config.
func (e *engine) buildGateway() *gateway.Gateway {
	cfg := e.cfg
	gw := gateway.New(gateway.Config{AgentID: cfg.Agent.ID}, e.loop, e.log)

	if cfg.Gateway.LogMessages {
		gw.Use(gateway.LogMessages(e.log))
	}
	if len(cfg.Gateway.AllowSenders) > 0 {
		gw.Use(gateway.AllowSenders(cfg.Gateway.AllowSenders, e.log))
	}
	if cfg.Gateway.RateLimitPerMinute > 0 {
		gw.Use(gateway.RateLimit(cfg.Gateway.RateLimitPerMinute, time.Minute, e.log))
	}

	if cfg.Channels.CLI != nil && cfg.Channels.CLI.Enabled {
		var opts []clichan.Option
		if cfg.Channels.CLI.BotName != "" {
			opts = append(opts, clichan.WithBotName(cfg.Channels.CLI.BotName))
		}
		gw.AddChannel(clichan.New(e.log, opts...))
	}
	if cfg.Channels.IRC != nil {
		c := cfg.Channels.IRC
		mentionOnly := true
		if c.MentionOnly != nil {
			mentionOnly = *c.MentionOnly
		}
		gw.AddChannel(irc.New(irc.Config{
			Server:      c.Server,
			Port:        c.Port,
			Nick:        c.Nick,
			Password:    c.Password,
			Channels:    c.Channels,
			UseTLS:      c.UseTLS,
			SASL:        c.SASL,
			MentionOnly: mentionOnly,
		}, e.log))
	}
	if cfg.Channels.WS != nil {
		gw.AddChannel(ws.New(cfg.Channels.WS.Addr, cfg.Channels.WS.Path, e.log))
	}
	if len(cfg.Channels.Cron) > 0 {
		jobs := make([]cron.Job, 0, len(cfg.Channels.Cron))
		for _, j := range cfg.Channels.Cron {
			jobs = append(jobs, cron.Job{Name: j.Name, Schedule: j.Schedule, Message: j.Message})
		}
		gw.AddChannel(cron.New(jobs, e.log))
	}

	return gw
}
