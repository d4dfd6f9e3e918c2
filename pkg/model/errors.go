package model

import (
	"fmt"
	"strings"
)

// IdentifierError reports a model identifier that is not of the form
// "provider:model".
type IdentifierError struct {
	Identifier string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("invalid model identifier %q, expected \"provider:model\"", e.Identifier)
}

// UnknownProviderError reports a provider key with no registered adapter.
type UnknownProviderError struct {
	Provider string
	Known    []string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %q, registered providers: %s", e.Provider, strings.Join(e.Known, ", "))
}

// ConfigurationError reports missing or invalid provider settings,
// detected before any client is constructed.
type ConfigurationError struct {
	Provider string
	Missing  []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s provider missing configuration: %s", e.Provider, strings.Join(e.Missing, ", "))
}
