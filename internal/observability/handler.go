package observability

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"repoagent/internal/tracing"
)

// TokenUsage reports prompt and completion token counts for one model call.
type TokenUsage struct {
	Input  int64
	Output int64
}

// Handler observes the model calls made on behalf of one resolved model
// handle. It logs call boundaries, feeds the call metrics and knows how to
// render the trace URL for the current turn.
type Handler struct {
	provider  string
	model     string
	identity  tracing.Identity
	traceHost string
}

func NewHandler(provider, model string, identity tracing.Identity, traceHost string) *Handler {
	return &Handler{
		provider:  provider,
		model:     model,
		identity:  identity,
		traceHost: strings.TrimRight(traceHost, "/"),
	}
}

// ModelStart marks the beginning of a model invocation.
func (h *Handler) ModelStart(messageCount int) {
	log.Debug().
		Str("provider", h.provider).
		Str("model", h.model).
		Str("trace_id", h.identity.TraceID).
		Int("messages", messageCount).
		Msg("Model call started")
}

// ModelEnd marks the completion of a model invocation and records its metrics.
func (h *Handler) ModelEnd(duration time.Duration, usage TokenUsage, err error) {
	RecordModelCall(h.provider, h.model, duration, usage, err == nil)

	event := log.Debug()
	if err != nil {
		event = log.Warn().Err(err)
	}
	event.
		Str("provider", h.provider).
		Str("model", h.model).
		Str("trace_id", h.identity.TraceID).
		Dur("duration", duration).
		Int64("input_tokens", usage.Input).
		Int64("output_tokens", usage.Output).
		Msg("Model call finished")
}

// TraceURL returns the trace page for the current turn, or "" when either
// the trace host or the turn trace id is not set.
func (h *Handler) TraceURL() string {
	if h.traceHost == "" || h.identity.TraceID == "" {
		return ""
	}
	return h.traceHost + "/trace/" + h.identity.TraceID
}
