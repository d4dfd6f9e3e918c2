package model

import (
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"repoagent/internal/config"
	"repoagent/pkg/catalog"
)

// OllamaProvider creates handles backed by a local Ollama server.
// Ollama exposes an OpenAI-compatible API under /v1 and ignores the
// API key, so a placeholder is sent.
type OllamaProvider struct{}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

func (p *OllamaProvider) Validate(cfg *config.Config) error {
	if cfg.Ollama.Endpoint == "" {
		return &ConfigurationError{Provider: p.Name(), Missing: []string{"endpoint (OLLAMA_ENDPOINT)"}}
	}
	return nil
}

func (p *OllamaProvider) Create(cfg *config.Config, model string, tools []catalog.Definition) (Invoker, error) {
	baseURL := strings.TrimRight(cfg.Ollama.Endpoint, "/") + "/v1"
	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey("ollama"),
	)
	return newOpenAIInvoker(client, model, tools)
}
