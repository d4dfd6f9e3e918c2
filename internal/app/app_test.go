package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repoagent/internal/config"
	"repoagent/internal/logger"
	"repoagent/internal/prompts"
	"repoagent/internal/tracing"
	"repoagent/pkg/agent"
	"repoagent/pkg/catalog"
	"repoagent/pkg/github"
	"repoagent/pkg/mcp"
	"repoagent/pkg/model"
)

type scriptedHandle struct {
	replies []model.Message
	err     error
	n       int
}

func (h *scriptedHandle) Invoke(ctx context.Context, messages []model.Message) (model.Message, error) {
	if h.err != nil {
		return model.Message{}, h.err
	}
	idx := h.n
	if idx >= len(h.replies) {
		idx = len(h.replies) - 1
	}
	h.n++
	return h.replies[idx], nil
}

func (h *scriptedHandle) Provider() string { return "fake" }
func (h *scriptedHandle) Model() string    { return "scripted" }
func (h *scriptedHandle) TraceURL() string { return "" }

type noopRunner struct{}

func (noopRunner) Call(ctx context.Context, name string, arguments map[string]any) (string, error) {
	return "", nil
}

// newTestApp assembles an App around a scripted model handle, skipping
// the tool server spawn.
func newTestApp(t *testing.T, handle agent.ModelHandle) *App {
	t.Helper()

	cfg := config.DefaultConfig()
	store := prompts.NewStore(filepath.Join(t.TempDir(), "prompts.yaml"))
	cat := catalog.New(nil, noopRunner{})

	engine, err := agent.New(agent.Config{
		Catalog: cat,
		Prompts: store,
		NewHandle: func(modelID string, identity tracing.Identity) (agent.ModelHandle, error) {
			return handle, nil
		},
	})
	require.NoError(t, err)

	appLogger, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)

	a := &App{
		config:   cfg,
		logger:   appLogger,
		prompts:  store,
		client:   mcp.NewClient(mcp.DefaultConfig()),
		catalog:  cat,
		registry: model.NewRegistry(cfg),
		engine:   engine,
		userID:   "tester",
		identity: tracing.NewSession("tester"),
		modelID:  cfg.Model.Default,
	}
	a.service = github.New(a, store)

	t.Cleanup(func() { a.Close() })
	return a
}

func TestAppTurnAdvancesHistory(t *testing.T) {
	handle := &scriptedHandle{replies: []model.Message{
		model.AssistantMessage("first answer"),
		model.AssistantMessage("second answer"),
	}}
	a := newTestApp(t, handle)

	answer, err := a.Ask(context.Background(), "first question")
	require.NoError(t, err)
	assert.Equal(t, "first answer", answer)
	assert.Equal(t, 3, a.HistoryLen()) // system, user, assistant

	answer, err = a.Ask(context.Background(), "second question")
	require.NoError(t, err)
	assert.Equal(t, "second answer", answer)
	assert.Equal(t, 5, a.HistoryLen())
}

func TestAppFailedTurnKeepsHistory(t *testing.T) {
	a := newTestApp(t, &scriptedHandle{err: assert.AnError})

	result, err := a.Turn(context.Background(), "hello")
	require.NoError(t, err)
	assert.True(t, result.Failed)
	assert.Contains(t, result.Answer, "Error processing request:")
	assert.Equal(t, 0, a.HistoryLen())
}

func TestAppResetSession(t *testing.T) {
	handle := &scriptedHandle{replies: []model.Message{model.AssistantMessage("hi")}}
	a := newTestApp(t, handle)

	_, err := a.Ask(context.Background(), "hello")
	require.NoError(t, err)
	require.NotZero(t, a.HistoryLen())

	before := a.SessionID()
	a.ResetSession()

	assert.Equal(t, 0, a.HistoryLen())
	assert.NotEqual(t, before, a.SessionID())
}

func TestAppSetModelID(t *testing.T) {
	a := newTestApp(t, &scriptedHandle{})

	t.Run("should switch to a configured provider", func(t *testing.T) {
		require.NoError(t, a.SetModelID("ollama:llama3.1"))
		assert.Equal(t, "ollama:llama3.1", a.ModelID())
	})

	t.Run("should reject malformed identifiers", func(t *testing.T) {
		var idErr *model.IdentifierError
		assert.ErrorAs(t, a.SetModelID("nope"), &idErr)
	})

	t.Run("should reject unknown providers", func(t *testing.T) {
		var unknownErr *model.UnknownProviderError
		assert.ErrorAs(t, a.SetModelID("gemini:pro"), &unknownErr)
	})

	t.Run("should reject unconfigured providers", func(t *testing.T) {
		var cfgErr *model.ConfigurationError
		assert.ErrorAs(t, a.SetModelID("azure:gpt-4o"), &cfgErr)
	})
}

func TestAppClose(t *testing.T) {
	a := newTestApp(t, &scriptedHandle{})

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	_, err := a.Turn(context.Background(), "hello")
	assert.ErrorContains(t, err, "closed")

	_, err = a.Ask(context.Background(), "hello")
	assert.Error(t, err)
}

func TestToolServerConfig(t *testing.T) {
	t.Run("should map timeouts and defaults", func(t *testing.T) {
		got := ToolServerConfig(config.DefaultConfig())
		assert.Equal(t, "github-mcp-server", got.Command)
		assert.Equal(t, []string{"stdio"}, got.Args)
		assert.Equal(t, "1m0s", got.CallTimeout.String())
		assert.Empty(t, got.Env)
	})

	t.Run("should pass credentials through the environment", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.GitHub.Token = "ghp_sometoken"
		cfg.GitHub.Host = "https://github.example.com"

		got := ToolServerConfig(cfg)
		assert.Contains(t, got.Env, "GITHUB_PERSONAL_ACCESS_TOKEN=ghp_sometoken")
		assert.Contains(t, got.Env, "GITHUB_HOST=https://github.example.com")
	})
}

func TestPromptsPath(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Prompts.Path = "/etc/repoagent/prompts.yaml"
	assert.Equal(t, "/etc/repoagent/prompts.yaml", promptsPath(cfg))

	cfg.Prompts.Path = ""
	assert.Contains(t, promptsPath(cfg), ".repoagent")
}

func TestNewFailsWithMissingToolServer(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	configJSON := `{
		"data_dir": "` + dir + `",
		"github": {"server_binary": "` + filepath.Join(dir, "no-such-binary") + `"},
		"prompts": {"path": "` + filepath.Join(dir, "prompts.yaml") + `"},
		"logging": {"level": "error", "console": false}
	}`
	require.NoError(t, os.WriteFile(configPath, []byte(configJSON), 0644))

	_, err := New(context.Background(), Options{ConfigPath: configPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start tool server")

	var processErr *mcp.ProcessError
	assert.ErrorAs(t, err, &processErr)
}
