package model

import (
	"context"
	"sort"
	"strings"
	"time"

	"repoagent/internal/config"
	"repoagent/internal/observability"
	"repoagent/internal/tracing"
	"repoagent/pkg/catalog"
)

// DefaultTemperature is the sampling temperature for every model call.
// Low on purpose: tool arguments need to be reproducible.
const DefaultTemperature = 0.1

// Provider builds tool-bound chat clients for one backend.
type Provider interface {
	// Name returns the provider key used in "provider:model" identifiers.
	Name() string

	// Validate checks the provider's settings without touching the
	// network, so misconfiguration fails before any resource is built.
	Validate(cfg *config.Config) error

	// Create constructs a chat client for the given model with the tool
	// definitions bound.
	Create(cfg *config.Config, model string, tools []catalog.Definition) (Invoker, error)
}

// Invoker is a configured chat client for one model.
type Invoker interface {
	Invoke(ctx context.Context, messages []Message) (Message, observability.TokenUsage, error)
}

// ParseModelID splits "provider:model" on the first colon.
func ParseModelID(identifier string) (provider, model string, err error) {
	idx := strings.Index(identifier, ":")
	if idx <= 0 || idx == len(identifier)-1 {
		return "", "", &IdentifierError{Identifier: identifier}
	}
	return identifier[:idx], identifier[idx+1:], nil
}

// Registry maps provider keys to adapters and builds per-turn model
// handles.
type Registry struct {
	cfg       *config.Config
	providers map[string]Provider
}

// NewRegistry builds a registry with the built-in providers registered.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{
		cfg:       cfg,
		providers: make(map[string]Provider),
	}
	r.Register(&AzureProvider{})
	r.Register(&OllamaProvider{})
	r.Register(&AnthropicProvider{})
	return r
}

// Register adds a provider adapter, replacing any previous one with the
// same name.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Providers returns the registered provider names, sorted.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks one provider's configuration without building anything.
func (r *Registry) Validate(provider string) error {
	p, ok := r.providers[provider]
	if !ok {
		return &UnknownProviderError{Provider: provider, Known: r.Providers()}
	}
	return p.Validate(r.cfg)
}

// Create resolves a "provider:model" identifier into a ready-to-call
// handle with the tools bound and an observability handler attached.
// Handles are rebuilt per turn: each carries that turn's tracing
// identity, and the model selection may change between turns.
func (r *Registry) Create(modelID string, tools []catalog.Definition, identity tracing.Identity) (*Handle, error) {
	providerName, modelName, err := ParseModelID(modelID)
	if err != nil {
		return nil, err
	}

	p, ok := r.providers[providerName]
	if !ok {
		return nil, &UnknownProviderError{Provider: providerName, Known: r.Providers()}
	}

	if err := p.Validate(r.cfg); err != nil {
		return nil, err
	}

	invoker, err := p.Create(r.cfg, modelName, tools)
	if err != nil {
		return nil, err
	}

	// Trace URLs only resolve when the langfuse project is configured.
	traceHost := ""
	if r.cfg.Langfuse.PublicKey != "" && r.cfg.Langfuse.SecretKey != "" {
		traceHost = r.cfg.Langfuse.Host
	}

	return &Handle{
		provider: providerName,
		model:    modelName,
		invoker:  invoker,
		obs:      observability.NewHandler(providerName, modelName, identity, traceHost),
	}, nil
}

// Handle is one turn's bound model: provider adapter, model name, tool
// set and observability handler.
type Handle struct {
	provider string
	model    string
	invoker  Invoker
	obs      *observability.Handler
}

// Invoke sends the full message log to the model and returns its reply.
func (h *Handle) Invoke(ctx context.Context, messages []Message) (Message, error) {
	h.obs.ModelStart(len(messages))

	start := time.Now()
	reply, usage, err := h.invoker.Invoke(ctx, messages)
	h.obs.ModelEnd(time.Since(start), usage, err)

	if err != nil {
		return Message{}, err
	}
	return reply, nil
}

// Provider returns the provider key this handle is bound to.
func (h *Handle) Provider() string {
	return h.provider
}

// Model returns the model name this handle is bound to.
func (h *Handle) Model() string {
	return h.model
}

// TraceURL returns the trace page for this handle's turn, or "".
func (h *Handle) TraceURL() string {
	return h.obs.TraceURL()
}
