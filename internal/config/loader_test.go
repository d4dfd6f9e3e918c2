package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.json")
	assert.NotNil(t, loader)
	assert.Equal(t, "/path/to/config.json", loader.configPath)
}

func TestLoaderLoad(t *testing.T) {
	t.Run("load default config when file doesn't exist", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "nonexistent.json")

		loader := NewLoader(configPath)
		cfg, err := loader.Load()

		require.NoError(t, err)
		assert.NotNil(t, cfg)
		assert.Equal(t, 10, cfg.Agent.MaxTurns)
		assert.Equal(t, []string{"stdio"}, cfg.GitHub.ServerArgs)
	})

	t.Run("load config from file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")

		// Empty values are ignored by viper, so this shields the test
		// from variables set on the host.
		t.Setenv("MODEL_NAME", "")
		t.Setenv("GITHUB_MCP_SERVER_PATH", "")

		testConfig := `{
			"model": {"default": "ollama:llama3.2"},
			"github": {
				"server_binary": "/usr/local/bin/github-mcp-server"
			},
			"agent": {"max_turns": 5}
		}`
		err := os.WriteFile(configPath, []byte(testConfig), 0644)
		require.NoError(t, err)

		loader := NewLoader(configPath)
		cfg, err := loader.Load()

		require.NoError(t, err)
		assert.NotNil(t, cfg)
		assert.Equal(t, "ollama:llama3.2", cfg.Model.Default)
		assert.Equal(t, "/usr/local/bin/github-mcp-server", cfg.GitHub.ServerBinary)
		assert.Equal(t, 5, cfg.Agent.MaxTurns)
	})

	t.Run("environment variables override", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "nonexistent.json")

		t.Setenv("AZURE_OPENAI_API_KEY", "test-azure-key")
		t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com")
		t.Setenv("GITHUB_PERSONAL_ACCESS_TOKEN", "test-github-token")

		loader := NewLoader(configPath)
		cfg, err := loader.Load()

		require.NoError(t, err)
		assert.Equal(t, "test-azure-key", cfg.Azure.APIKey)
		assert.Equal(t, "https://example.openai.azure.com", cfg.Azure.Endpoint)
		assert.Equal(t, "test-github-token", cfg.GitHub.Token)
	})

	t.Run("bare MODEL_NAME selects azure", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "nonexistent.json")

		t.Setenv("MODEL_NAME", "gpt-4o-mini")

		loader := NewLoader(configPath)
		cfg, err := loader.Load()

		require.NoError(t, err)
		assert.Equal(t, "azure:gpt-4o-mini", cfg.Model.Default)
	})

	t.Run("qualified MODEL_NAME kept as is", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "nonexistent.json")

		t.Setenv("MODEL_NAME", "ollama:llama3.2")

		loader := NewLoader(configPath)
		cfg, err := loader.Load()

		require.NoError(t, err)
		assert.Equal(t, "ollama:llama3.2", cfg.Model.Default)
	})

	t.Run("set default paths", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")

		testConfig := `{"agent": {"max_turns": 8}}`
		err := os.WriteFile(configPath, []byte(testConfig), 0644)
		require.NoError(t, err)

		loader := NewLoader(configPath)
		cfg, err := loader.Load()

		require.NoError(t, err)
		assert.NotEmpty(t, cfg.DataDir)
		assert.NotEmpty(t, cfg.Logging.File)
		assert.NotEmpty(t, cfg.Prompts.Path)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "invalid.json")

		err := os.WriteFile(configPath, []byte("invalid json"), 0644)
		require.NoError(t, err)

		loader := NewLoader(configPath)
		_, err = loader.Load()

		assert.Error(t, err)
	})
}

func TestLoaderSave(t *testing.T) {
	t.Run("save config to file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")

		t.Setenv("MODEL_NAME", "")
		t.Setenv("GITHUB_MCP_SERVER_PATH", "")

		cfg := DefaultConfig()
		cfg.Model.Default = "anthropic:claude-sonnet-4-0"
		cfg.GitHub.ServerBinary = "/opt/github-mcp-server"

		loader := NewLoader(configPath)
		err := loader.Save(cfg)

		require.NoError(t, err)

		_, err = os.Stat(configPath)
		assert.NoError(t, err)

		loader2 := NewLoader(configPath)
		loadedCfg, err := loader2.Load()
		require.NoError(t, err)
		assert.Equal(t, "anthropic:claude-sonnet-4-0", loadedCfg.Model.Default)
		assert.Equal(t, "/opt/github-mcp-server", loadedCfg.GitHub.ServerBinary)
	})

	t.Run("create directory if not exists", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "subdir", "config.json")

		cfg := DefaultConfig()

		loader := NewLoader(configPath)
		err := loader.Save(cfg)

		require.NoError(t, err)

		_, err = os.Stat(filepath.Dir(configPath))
		assert.NoError(t, err)
	})
}

func TestLoaderGetConfigPath(t *testing.T) {
	t.Run("custom path", func(t *testing.T) {
		loader := NewLoader("/custom/path/config.json")
		path := loader.GetConfigPath()
		assert.Equal(t, "/custom/path/config.json", path)
	})

	t.Run("default path", func(t *testing.T) {
		loader := NewLoader("")
		path := loader.GetConfigPath()
		assert.NotEmpty(t, path)
		assert.Contains(t, path, ".repoagent")
	})
}
