package model

import (
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"

	"repoagent/internal/config"
	"repoagent/pkg/catalog"
)

// AzureProvider creates handles backed by Azure OpenAI deployments.
// The model part of the identifier is the deployment name, not the
// underlying model family.
type AzureProvider struct{}

func (p *AzureProvider) Name() string {
	return "azure"
}

func (p *AzureProvider) Validate(cfg *config.Config) error {
	var missing []string
	if cfg.Azure.Endpoint == "" {
		missing = append(missing, "endpoint (AZURE_OPENAI_ENDPOINT)")
	}
	if cfg.Azure.APIKey == "" {
		missing = append(missing, "api_key (AZURE_OPENAI_API_KEY)")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Provider: p.Name(), Missing: missing}
	}
	return nil
}

func (p *AzureProvider) Create(cfg *config.Config, model string, tools []catalog.Definition) (Invoker, error) {
	client := openai.NewClient(
		azure.WithEndpoint(cfg.Azure.Endpoint, cfg.Azure.APIVersion),
		azure.WithAPIKey(cfg.Azure.APIKey),
	)
	return newOpenAIInvoker(client, model, tools)
}
