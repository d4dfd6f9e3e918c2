package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	}

	return nil
}

// ValidateModelIdentifier validates the "provider:model" shape without
// resolving the provider
func (v *Validator) ValidateModelIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("model identifier cannot be empty")
	}

	idx := strings.Index(id, ":")
	if idx < 0 {
		return fmt.Errorf("invalid model identifier: %s (must be of the form provider:model)", id)
	}
	if idx == 0 || idx == len(id)-1 {
		return fmt.Errorf("invalid model identifier: %s (provider and model must be non-empty)", id)
	}

	return nil
}

// ValidateEndpoint validates that an endpoint is an absolute http(s) URL
func (v *Validator) ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %s: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint %s must use http or https", endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint %s has no host", endpoint)
	}

	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if cfg.Model.Default != "" {
		if err := v.ValidateModelIdentifier(cfg.Model.Default); err != nil {
			errors = append(errors, err)
		}
	}

	if cfg.Azure.Endpoint != "" {
		if err := v.ValidateEndpoint(cfg.Azure.Endpoint); err != nil {
			errors = append(errors, fmt.Errorf("azure: %w", err))
		}
	}
	if cfg.Ollama.Endpoint != "" {
		if err := v.ValidateEndpoint(cfg.Ollama.Endpoint); err != nil {
			errors = append(errors, fmt.Errorf("ollama: %w", err))
		}
	}
	if cfg.Anthropic.APIKey != "" {
		if err := v.ValidateAPIKey(cfg.Anthropic.APIKey, "anthropic"); err != nil {
			errors = append(errors, err)
		}
	}

	if cfg.GitHub.ServerBinary == "" {
		errors = append(errors, fmt.Errorf("github.server_binary is required"))
	}

	if cfg.Agent.MaxTurns < 1 {
		errors = append(errors, fmt.Errorf("agent.max_turns must be at least 1, got %d", cfg.Agent.MaxTurns))
	}

	if cfg.Tools.CallTimeoutSeconds < 1 {
		errors = append(errors, fmt.Errorf("tools.call_timeout_seconds must be at least 1"))
	}
	if cfg.Tools.StartTimeoutSeconds < 1 {
		errors = append(errors, fmt.Errorf("tools.start_timeout_seconds must be at least 1"))
	}
	if cfg.Tools.StopGraceSeconds < 1 {
		errors = append(errors, fmt.Errorf("tools.stop_grace_seconds must be at least 1"))
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
