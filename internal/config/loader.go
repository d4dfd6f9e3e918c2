package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// envBindings maps config keys to the canonical environment variables
// callers already export for this service.
var envBindings = map[string]string{
	"model.default":        "MODEL_NAME",
	"azure.api_key":        "AZURE_OPENAI_API_KEY",
	"azure.endpoint":       "AZURE_OPENAI_ENDPOINT",
	"azure.api_version":    "AZURE_OPENAI_API_VERSION",
	"ollama.endpoint":      "OLLAMA_ENDPOINT",
	"anthropic.api_key":    "ANTHROPIC_API_KEY",
	"github.token":         "GITHUB_PERSONAL_ACCESS_TOKEN",
	"github.host":          "GITHUB_HOST",
	"github.server_binary": "GITHUB_MCP_SERVER_PATH",
	"langfuse.public_key":  "LANGFUSE_PUBLIC_KEY",
	"langfuse.secret_key":  "LANGFUSE_SECRET_KEY",
	"langfuse.host":        "LANGFUSE_HOST",
}

// Load loads the configuration from file and environment
func (l *Loader) Load() (*Config, error) {
	configPath := l.configPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".repoagent", "repoagent.json")
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.SetEnvPrefix("REPOAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	// Unmarshal only resolves bound variables for keys viper knows, so
	// register the env-bound keys with their defaults.
	defaults := DefaultConfig()
	v.SetDefault("model.default", defaults.Model.Default)
	v.SetDefault("azure.api_key", defaults.Azure.APIKey)
	v.SetDefault("azure.endpoint", defaults.Azure.Endpoint)
	v.SetDefault("azure.api_version", defaults.Azure.APIVersion)
	v.SetDefault("ollama.endpoint", defaults.Ollama.Endpoint)
	v.SetDefault("anthropic.api_key", defaults.Anthropic.APIKey)
	v.SetDefault("github.token", defaults.GitHub.Token)
	v.SetDefault("github.host", defaults.GitHub.Host)
	v.SetDefault("github.server_binary", defaults.GitHub.ServerBinary)
	v.SetDefault("langfuse.public_key", defaults.Langfuse.PublicKey)
	v.SetDefault("langfuse.secret_key", defaults.Langfuse.SecretKey)
	v.SetDefault("langfuse.host", defaults.Langfuse.Host)

	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// MODEL_NAME historically carried a bare deployment name; a colonless
	// value selects that model on azure.
	if cfg.Model.Default != "" && !strings.Contains(cfg.Model.Default, ":") {
		cfg.Model.Default = "azure:" + cfg.Model.Default
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".repoagent")
	}

	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "repoagent.log")
	}

	if cfg.Prompts.Path == "" {
		cfg.Prompts.Path = filepath.Join(cfg.DataDir, "prompts.yaml")
	}

	return cfg, nil
}

// Save saves the configuration to file
func (l *Loader) Save(cfg *Config) error {
	configPath := l.configPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".repoagent", "repoagent.json")
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("model", cfg.Model)
	v.Set("azure", cfg.Azure)
	v.Set("ollama", cfg.Ollama)
	v.Set("anthropic", cfg.Anthropic)
	v.Set("github", cfg.GitHub)
	v.Set("langfuse", cfg.Langfuse)
	v.Set("agent", cfg.Agent)
	v.Set("tools", cfg.Tools)
	v.Set("prompts", cfg.Prompts)
	v.Set("logging", cfg.Logging)
	v.Set("metrics", cfg.Metrics)
	v.Set("data_dir", cfg.DataDir)

	if err := v.WriteConfig(); err != nil {
		if os.IsNotExist(err) {
			if err := v.SafeWriteConfig(); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
		} else {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}

	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".repoagent", "repoagent.json")
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
