package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/agent"
	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/config"
	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/llm"
	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/store"
	"github.com/k3nnethfrancis/gmail-agent-sub000/internal/tools"
)

// app bundles the wired components shared by the serve and chat commands.
type app struct {
	cfg           config.Config
	db            *store.DB
	runner        *agent.Runner
	conversations *store.ConversationStore
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// buildApp loads config and assembles the model registry, tools, safety
// gate, store, and runner.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}

	issues := config.Validate(&cfg)
	if len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return nil, fmt.Errorf("config validation failed with %d issue(s)", len(issues))
	}

	if cfg.Agent.APIKey == "" {
		return nil, fmt.Errorf("no API key configured: set agent.apiKey or ANTHROPIC_API_KEY")
	}

	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("creating data directories: %w", err)
	}

	// Model registry
	registry := llm.NewRegistry(log)
	claude := llm.NewClaudeAPIClient(cfg.Agent.APIKey, cfg.Agent.Model)
	registry.Register("claude", claude)
	registry.Alias(cfg.Agent.Model, "claude")
	registry.SetFallback("claude")

	// Store
	dbPath := cfg.Store.Path
	if dbPath == "" {
		dbPath = paths.Database
	}
	db, err := store.Open(dbPath, log)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	a := &app{
		cfg:           cfg,
		db:            db,
		conversations: store.NewConversationStore(db),
	}

	// Tools
	toolReg := agent.NewToolRegistry()
	registerTools(ctx, &cfg, toolReg, db)

	// Safety gate: deletions need a fresh listing first
	history := agent.NewToolCallHistory(cfg.Agent.HistorySize)
	gate := agent.NewSafetyGate(history)
	gate.Protect("delete_event", agent.SafetyRule{
		Prerequisite: "list_events",
		Window:       time.Duration(cfg.Agent.SafetyWindowSeconds) * time.Second,
	})
	dispatcher := agent.NewDispatcher(toolReg, history, gate, log)

	var temp *float64
	if cfg.Agent.Temperature != 0 {
		temp = &cfg.Agent.Temperature
	}
	a.runner = agent.NewRunner(
		agent.RunnerConfig{
			AgentName:     cfg.Agent.Name,
			Model:         cfg.Agent.Model,
			MaxTokens:     cfg.Agent.MaxTokens,
			Temperature:   temp,
			MaxIterations: cfg.Agent.MaxIterations,
			MaxToolCalls:  cfg.Agent.MaxToolCalls,
			ExtraPrompt:   cfg.Agent.ExtraPrompt,
		},
		registry, toolReg, dispatcher, log,
	)
	return a, nil
}

// registerTools wires every tool whose backing service is configured.
// Missing Google credentials disable those tools with a warning rather
// than failing startup.
func registerTools(ctx context.Context, cfg *config.Config, reg *agent.ToolRegistry, db *store.DB) {
	credentials := cfg.Google.CredentialsPath
	if credentials == "" {
		credentials = paths.Credentials
	}
	token := cfg.Google.TokenPath
	if token == "" {
		token = paths.Token
	}

	if calSvc, err := tools.NewCalendarService(ctx, credentials, token); err != nil {
		log.Warn().Err(err).Msg("calendar tools disabled")
	} else {
		api := tools.NewGoogleCalendarAPI(calSvc)
		reg.Register(tools.NewListEventsTool(api))
		reg.Register(tools.NewCreateEventTool(api))
		reg.Register(tools.NewDeleteEventTool(api))
	}

	if gmailSvc, err := tools.NewGmailService(ctx, credentials, token); err != nil {
		log.Warn().Err(err).Msg("gmail tools disabled")
	} else {
		api := tools.NewGoogleMailAPI(gmailSvc)
		reg.Register(tools.NewListEmailsTool(api))
		reg.Register(tools.NewReadEmailTool(api))
	}

	reg.Register(tools.NewTagEmailTool(store.NewTagStore(db)))

	if cfg.IMAP.Host != "" {
		reg.Register(tools.NewListInboxTool(tools.IMAPConfig{
			Host:     cfg.IMAP.Host,
			Port:     cfg.IMAP.Port,
			Username: cfg.IMAP.Username,
			Password: cfg.IMAP.Password,
		}))
	}

	log.Info().Strs("tools", reg.Names()).Msg("tools registered")
}
