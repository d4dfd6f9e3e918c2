package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"repoagent/internal/config"
	"repoagent/internal/logger"
	"repoagent/internal/observability"
	"repoagent/internal/prompts"
	"repoagent/internal/tracing"
	"repoagent/pkg/agent"
	"repoagent/pkg/catalog"
	"repoagent/pkg/github"
	"repoagent/pkg/mcp"
	"repoagent/pkg/model"
)

// App wires configuration, logging, the tool server, the model registry
// and the conversation engine into one session. One App holds one
// conversation history; turns run one at a time.
type App struct {
	config   *config.Config
	logger   *logger.Logger
	prompts  *prompts.Store
	client   *mcp.Client
	catalog  *catalog.Catalog
	registry *model.Registry
	engine   *agent.Engine
	service  *github.Service

	userID   string
	identity tracing.Identity
	history  []model.Message
	modelID  string

	mu             sync.Mutex
	closed         bool
	tracingEnabled bool
}

// Options controls application startup.
type Options struct {
	// ConfigPath overrides the default config file location.
	ConfigPath string

	// LogLevel overrides the configured log level when non-empty.
	LogLevel string

	// UserID names the caller in traces and the audit log. Empty means
	// tracing.DefaultUserID.
	UserID string
}

// New builds the application and starts the tool server. The returned
// App owns the subprocess; call Close when done with it.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}

	appLogger, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	for _, issue := range config.NewValidator().ValidateConfig(cfg) {
		log.Warn().Err(issue).Msg("Configuration issue")
	}

	observability.EnsureRegistered()

	tracingEnabled := true
	if err := tracing.InitOpenTelemetry("repoagent"); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without it")
		tracingEnabled = false
	}

	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			log.Warn().Err(err).Str("dir", cfg.DataDir).Msg("Failed to create data directory")
		} else if err := observability.InitAuditLogger(filepath.Join(cfg.DataDir, "audit.log")); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize audit logger, using default stderr")
		}
	}

	store := prompts.NewStore(promptsPath(cfg))
	if err := store.Load(); err != nil {
		appLogger.Close()
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	if cfg.Prompts.HotReload {
		if err := store.Watch(); err != nil {
			log.Warn().Err(err).Msg("Prompt hot reload unavailable")
		}
	}
	log.Debug().Str("path", promptsPath(cfg)).Msg("Prompts loaded")

	client := mcp.NewClient(ToolServerConfig(cfg))
	if err := client.Start(ctx); err != nil {
		store.Stop()
		appLogger.Close()
		return nil, fmt.Errorf("failed to start tool server: %w", err)
	}
	log.Info().Int("tools", len(client.Tools())).Msg("Tool server started")

	cat := catalog.New(catalog.FromTools(client.Tools()), client)
	registry := model.NewRegistry(cfg)

	engine, err := agent.New(agent.Config{
		Catalog: cat,
		Prompts: store,
		NewHandle: func(modelID string, identity tracing.Identity) (agent.ModelHandle, error) {
			handle, err := registry.Create(modelID, cat.Definitions(), identity)
			if err != nil {
				return nil, err
			}
			return handle, nil
		},
		MaxTurns: cfg.Agent.MaxTurns,
	})
	if err != nil {
		client.Stop()
		store.Stop()
		appLogger.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	a := &App{
		config:         cfg,
		logger:         appLogger,
		prompts:        store,
		client:         client,
		catalog:        cat,
		registry:       registry,
		engine:         engine,
		userID:         opts.UserID,
		identity:       tracing.NewSession(opts.UserID),
		modelID:        cfg.Model.Default,
		tracingEnabled: tracingEnabled,
	}
	a.service = github.New(a, store)

	log.Info().
		Str("model_id", a.modelID).
		Str("session_id", a.identity.SessionID).
		Msg("Application ready")

	return a, nil
}

// Turn runs one conversation turn against the session's current model.
func (a *App) Turn(ctx context.Context, question string) (agent.TurnResult, error) {
	return a.TurnWithModel(ctx, "", question)
}

// TurnWithModel runs one turn against a specific "provider:model"
// identifier. An empty modelID uses the session's current model. The
// history only advances when the turn succeeds.
func (a *App) TurnWithModel(ctx context.Context, modelID, question string) (agent.TurnResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return agent.TurnResult{}, fmt.Errorf("application is closed")
	}
	if modelID == "" {
		modelID = a.modelID
	}

	a.identity = a.identity.NextTurn()
	result := a.engine.RunTurn(ctx, agent.TurnRequest{
		ModelID:  modelID,
		UserText: question,
		History:  a.history,
		Identity: a.identity,
	})
	if !result.Failed {
		a.history = result.Messages
	}
	return result, nil
}

// Ask runs one turn and returns the answer text. A failed turn's error
// description is the answer, per the engine's contract.
func (a *App) Ask(ctx context.Context, question string) (string, error) {
	result, err := a.Turn(ctx, question)
	if err != nil {
		return "", err
	}
	return result.Answer, nil
}

// ResetSession clears the history and mints a fresh session identity.
func (a *App) ResetSession() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.history = nil
	a.identity = tracing.NewSession(a.userID)
	log.Info().Str("session_id", a.identity.SessionID).Msg("Session reset")
}

// SetModelID switches the session's model after checking the identifier
// parses and its provider is registered and configured.
func (a *App) SetModelID(modelID string) error {
	providerName, _, err := model.ParseModelID(modelID)
	if err != nil {
		return err
	}
	if err := a.registry.Validate(providerName); err != nil {
		return err
	}

	a.mu.Lock()
	a.modelID = modelID
	a.mu.Unlock()
	log.Info().Str("model_id", modelID).Msg("Model switched")
	return nil
}

// ModelID returns the session's current "provider:model" identifier.
func (a *App) ModelID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.modelID
}

// SessionID returns the current session id.
func (a *App) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.identity.SessionID
}

// HistoryLen returns the number of messages held for the session.
func (a *App) HistoryLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.history)
}

// Tools returns the discovered tool definitions.
func (a *App) Tools() []catalog.Definition {
	return a.catalog.Definitions()
}

// ExampleQueries returns the prompt file's example questions.
func (a *App) ExampleQueries() []string {
	return a.prompts.ExampleQueries()
}

// GitHub returns the typed question service bound to this session.
func (a *App) GitHub() *github.Service {
	return a.service
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// Close stops the tool server and releases logging, tracing and audit
// resources. Safe to call twice.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	a.prompts.Stop()

	var errs []error
	if err := a.client.Stop(); err != nil {
		errs = append(errs, err)
	}
	if a.tracingEnabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.ShutdownOpenTelemetry(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := observability.GetAuditLogger().Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.logger.Close(); err != nil {
		errs = append(errs, err)
	}

	log.Info().Msg("Application closed")
	return errors.Join(errs...)
}

// ToolServerConfig maps the loaded settings onto the tool server
// client, including the credentials passed through its environment.
func ToolServerConfig(cfg *config.Config) mcp.Config {
	mcpCfg := mcp.Config{
		Command:      cfg.GitHub.ServerBinary,
		Args:         cfg.GitHub.ServerArgs,
		StartTimeout: time.Duration(cfg.Tools.StartTimeoutSeconds) * time.Second,
		CallTimeout:  time.Duration(cfg.Tools.CallTimeoutSeconds) * time.Second,
		StopGrace:    time.Duration(cfg.Tools.StopGraceSeconds) * time.Second,
	}
	if cfg.GitHub.Token != "" {
		mcpCfg.Env = append(mcpCfg.Env, "GITHUB_PERSONAL_ACCESS_TOKEN="+cfg.GitHub.Token)
	}
	if cfg.GitHub.Host != "" {
		mcpCfg.Env = append(mcpCfg.Env, "GITHUB_HOST="+cfg.GitHub.Host)
	}
	return mcpCfg
}

func promptsPath(cfg *config.Config) string {
	if cfg.Prompts.Path != "" {
		return cfg.Prompts.Path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "prompts.yaml"
	}
	return filepath.Join(home, ".repoagent", "prompts.yaml")
}
