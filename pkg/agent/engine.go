package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"repoagent/internal/observability"
	"repoagent/internal/tracing"
	"repoagent/pkg/catalog"
	"repoagent/pkg/mcp"
	"repoagent/pkg/model"
)

// DefaultMaxTurns caps model invocations within one user turn.
const DefaultMaxTurns = 10

const tracerName = "repoagent.agent"

// ModelHandle is one turn's bound model client. *model.Handle satisfies
// this.
type ModelHandle interface {
	Invoke(ctx context.Context, messages []model.Message) (model.Message, error)
	Provider() string
	Model() string
	TraceURL() string
}

// HandleFactory builds a fresh model handle for one turn. Handles are
// not reused across turns: each carries that turn's tracing identity,
// and the model selection may change between turns.
type HandleFactory func(modelID string, identity tracing.Identity) (ModelHandle, error)

// SystemSource supplies the system prompt. *prompts.Store satisfies
// this.
type SystemSource interface {
	SystemMessage() string
}

// Engine runs user turns through the agent loop: invoke the model with
// the full message log, dispatch any tool calls it emits, feed the
// results back, and repeat until the model answers without tools.
//
// One engine must not run two overlapping turns. Callers needing
// concurrency use separate engines over the same catalog.
type Engine struct {
	catalog   *catalog.Catalog
	prompts   SystemSource
	newHandle HandleFactory
	maxTurns  int
}

// Config holds engine configuration
type Config struct {
	Catalog   *catalog.Catalog
	Prompts   SystemSource
	NewHandle HandleFactory

	// MaxTurns caps model invocations per user turn. Zero means
	// DefaultMaxTurns.
	MaxTurns int
}

// New creates a conversation engine
func New(cfg Config) (*Engine, error) {
	observability.EnsureRegistered()

	if cfg.Catalog == nil {
		return nil, fmt.Errorf("tool catalog is required")
	}
	if cfg.Prompts == nil {
		return nil, fmt.Errorf("prompt source is required")
	}
	if cfg.NewHandle == nil {
		return nil, fmt.Errorf("model handle factory is required")
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	return &Engine{
		catalog:   cfg.Catalog,
		prompts:   cfg.Prompts,
		newHandle: cfg.NewHandle,
		maxTurns:  maxTurns,
	}, nil
}

// TurnRequest is one user message plus the conversation so far.
type TurnRequest struct {
	// ModelID is a "provider:model" identifier.
	ModelID string

	// UserText is the inbound user message.
	UserText string

	// History is the message log from previous turns. Not mutated.
	History []model.Message

	// Identity carries the session and per-turn tracing ids.
	Identity tracing.Identity
}

// TurnResult is the outcome of one turn. Errors never escape RunTurn:
// a failed turn carries the error description as its Answer, Failed set
// and no Messages.
type TurnResult struct {
	// Answer is the text to show the user.
	Answer string

	// Messages is the full updated log including this turn's messages,
	// for the caller to keep as history. Nil when the turn failed.
	Messages []model.Message

	// Failed reports whether Answer describes an error instead of a
	// model reply.
	Failed bool

	// TraceURL links the turn's trace, or "" when tracing is not
	// configured.
	TraceURL string
}

// RunTurn executes one user turn. All model and tool errors are
// converted to a user-facing answer here; the partial message log of a
// failed turn is discarded so broken tool-call sequences never poison
// the history.
func (e *Engine) RunTurn(ctx context.Context, req TurnRequest) TurnResult {
	ctx = tracing.WithIdentity(ctx, req.Identity)
	ctx, span := tracing.StartSpan(
		ctx,
		tracerName,
		"agent.turn",
		attribute.String("model_id", req.ModelID),
		attribute.String("session_id", req.Identity.SessionID),
	)
	defer span.End()

	provider := providerLabel(req.ModelID)
	actor := req.Identity.UserID

	start := time.Now()
	messages, answer, traceURL, iterations, err := e.run(ctx, req)
	duration := time.Since(start)

	if err != nil {
		kind := classifyError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.RecordTurn(provider, duration, iterations, false)
		observability.RecordTurnFailure(provider, kind)
		observability.RecordTurnAudit(ctx, actor, "failure", map[string]interface{}{
			"model_id": req.ModelID,
			"kind":     kind,
		})
		log.Error().
			Err(err).
			Str("model_id", req.ModelID).
			Str("kind", kind).
			Int("iterations", iterations).
			Msg("Turn failed")

		return TurnResult{
			Answer:   fmt.Sprintf("Error processing request: %v", err),
			Failed:   true,
			TraceURL: traceURL,
		}
	}

	observability.RecordTurn(provider, duration, iterations, true)
	observability.RecordTurnAudit(ctx, actor, "success", map[string]interface{}{
		"model_id":   req.ModelID,
		"iterations": iterations,
	})
	log.Debug().
		Str("model_id", req.ModelID).
		Int("iterations", iterations).
		Dur("duration", duration).
		Msg("Turn complete")

	return TurnResult{
		Answer:   answer,
		Messages: messages,
		TraceURL: traceURL,
	}
}

// run is the agent loop proper. It returns the real error; RunTurn owns
// the conversion to a user-facing answer.
func (e *Engine) run(ctx context.Context, req TurnRequest) (messages []model.Message, answer, traceURL string, iterations int, err error) {
	handle, err := e.newHandle(req.ModelID, req.Identity)
	if err != nil {
		return nil, "", "", 0, err
	}
	traceURL = handle.TraceURL()

	messages = make([]model.Message, 0, len(req.History)+2)
	if !hasSystemMessage(req.History) {
		messages = append(messages, model.SystemMessage(e.prompts.SystemMessage()))
	}
	messages = append(messages, req.History...)
	messages = append(messages, model.UserMessage(req.UserText))

	for turn := 0; turn < e.maxTurns; turn++ {
		select {
		case <-ctx.Done():
			return nil, "", traceURL, turn, ctx.Err()
		default:
		}

		reply, invokeErr := handle.Invoke(ctx, messages)
		if invokeErr != nil {
			return nil, "", traceURL, turn + 1, invokeErr
		}
		messages = append(messages, reply)

		if len(reply.ToolCalls) == 0 {
			return messages, reply.Content, traceURL, turn + 1, nil
		}

		// Dispatch strictly in emission order, one tool message per
		// call id.
		for _, call := range reply.ToolCalls {
			result, callErr := e.catalog.Invoke(ctx, call.Name, call.Arguments)
			if callErr != nil {
				observability.RecordToolAudit(ctx, call.Name, req.Identity.UserID, "failure", nil)
				return nil, "", traceURL, turn + 1, callErr
			}
			observability.RecordToolAudit(ctx, call.Name, req.Identity.UserID, "success", nil)
			messages = append(messages, model.ToolMessage(call.ID, result))
		}
	}

	return nil, "", traceURL, e.maxTurns, &LoopLimitError{Limit: e.maxTurns}
}

// MaxTurns returns the configured iteration ceiling.
func (e *Engine) MaxTurns() int {
	return e.maxTurns
}

func hasSystemMessage(messages []model.Message) bool {
	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			return true
		}
	}
	return false
}

func providerLabel(modelID string) string {
	provider, _, err := model.ParseModelID(modelID)
	if err != nil {
		return "invalid"
	}
	return provider
}

// classifyError maps an error to the failure kind recorded in metrics.
func classifyError(err error) string {
	var (
		protocolErr *mcp.ProtocolError
		toolErr     *mcp.ToolExecutionError
		processErr  *mcp.ProcessError
		cfgErr      *model.ConfigurationError
		idErr       *model.IdentifierError
		unknownErr  *model.UnknownProviderError
		loopErr     *LoopLimitError
	)

	switch {
	case errors.As(err, &protocolErr):
		if protocolErr.Timeout {
			return "timeout"
		}
		return "protocol"
	case errors.As(err, &toolErr):
		return "tool_execution"
	case errors.As(err, &processErr):
		return "process"
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.As(err, &idErr):
		return "identifier"
	case errors.As(err, &unknownErr):
		return "unknown_provider"
	case errors.As(err, &loopErr):
		return "loop_limit"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "model"
	}
}
