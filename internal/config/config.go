package config

import (
	"fmt"
	"strings"
)

// Config represents the full repoagent configuration
type Config struct {
	// Model selection
	Model ModelConfig `json:"model" mapstructure:"model"`

	// Providers
	Azure     AzureConfig     `json:"azure" mapstructure:"azure"`
	Ollama    OllamaConfig    `json:"ollama" mapstructure:"ollama"`
	Anthropic AnthropicConfig `json:"anthropic" mapstructure:"anthropic"`

	// GitHub tool server
	GitHub GitHubConfig `json:"github" mapstructure:"github"`

	// Langfuse observability
	Langfuse LangfuseConfig `json:"langfuse" mapstructure:"langfuse"`

	// Agent loop
	Agent AgentConfig `json:"agent" mapstructure:"agent"`

	// Tool server timeouts
	Tools ToolsConfig `json:"tools" mapstructure:"tools"`

	// Prompt templates
	Prompts PromptsConfig `json:"prompts" mapstructure:"prompts"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ModelConfig selects the default model
type ModelConfig struct {
	// Default is a "provider:model" identifier, e.g. "azure:gpt-4o"
	Default string `json:"default" mapstructure:"default"`
}

// AzureConfig holds Azure OpenAI settings
type AzureConfig struct {
	APIKey     string `json:"api_key" mapstructure:"api_key"`
	Endpoint   string `json:"endpoint" mapstructure:"endpoint"`
	APIVersion string `json:"api_version" mapstructure:"api_version"`
}

// OllamaConfig holds local Ollama settings
type OllamaConfig struct {
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
}

// AnthropicConfig holds Anthropic API settings
type AnthropicConfig struct {
	APIKey string `json:"api_key" mapstructure:"api_key"`
}

// GitHubConfig holds settings for the GitHub MCP server subprocess
type GitHubConfig struct {
	Token        string   `json:"token" mapstructure:"token"`
	Host         string   `json:"host" mapstructure:"host"`
	ServerBinary string   `json:"server_binary" mapstructure:"server_binary"`
	ServerArgs   []string `json:"server_args" mapstructure:"server_args"`
}

// LangfuseConfig holds Langfuse trace settings
type LangfuseConfig struct {
	PublicKey string `json:"public_key" mapstructure:"public_key"`
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`
	Host      string `json:"host" mapstructure:"host"`
}

// AgentConfig holds conversation loop settings
type AgentConfig struct {
	// MaxTurns caps AGENT iterations within one user turn
	MaxTurns int `json:"max_turns" mapstructure:"max_turns"`
}

// ToolsConfig holds tool server timeout settings
type ToolsConfig struct {
	CallTimeoutSeconds  int `json:"call_timeout_seconds" mapstructure:"call_timeout_seconds"`
	StartTimeoutSeconds int `json:"start_timeout_seconds" mapstructure:"start_timeout_seconds"`
	StopGraceSeconds    int `json:"stop_grace_seconds" mapstructure:"stop_grace_seconds"`
}

// PromptsConfig holds prompt template settings
type PromptsConfig struct {
	Path      string `json:"path" mapstructure:"path"`
	HotReload bool   `json:"hot_reload" mapstructure:"hot_reload"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig holds the optional prometheus listener settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Default: "azure:gpt-4o",
		},
		Azure: AzureConfig{
			APIVersion: "2025-01-01-preview",
		},
		Ollama: OllamaConfig{
			Endpoint: "http://localhost:11434",
		},
		GitHub: GitHubConfig{
			ServerBinary: "github-mcp-server",
			ServerArgs:   []string{"stdio"},
		},
		Langfuse: LangfuseConfig{
			Host: "https://cloud.langfuse.com",
		},
		Agent: AgentConfig{
			MaxTurns: 10,
		},
		Tools: ToolsConfig{
			CallTimeoutSeconds:  60,
			StartTimeoutSeconds: 15,
			StopGraceSeconds:    2,
		},
		Prompts: PromptsConfig{
			HotReload: false,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:2112",
		},
	}
}

// String returns a printable summary with credentials masked
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "model=%s", c.Model.Default)
	fmt.Fprintf(&b, " azure.endpoint=%s azure.key=%s", c.Azure.Endpoint, mask(c.Azure.APIKey))
	fmt.Fprintf(&b, " ollama.endpoint=%s", c.Ollama.Endpoint)
	fmt.Fprintf(&b, " anthropic.key=%s", mask(c.Anthropic.APIKey))
	fmt.Fprintf(&b, " github.server=%s github.token=%s", c.GitHub.ServerBinary, mask(c.GitHub.Token))
	return b.String()
}

func mask(s string) string {
	if s == "" {
		return "(unset)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
