package tracing

import (
	"context"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultUserID names turns that arrive without an authenticated caller.
const DefaultUserID = "service_user"

// ContextKey is the type for context keys
type ContextKey string

const (
	// UserIDKey is the context key for the user ID
	UserIDKey ContextKey = "user_id"
	// SessionIDKey is the context key for the session ID
	SessionIDKey ContextKey = "session_id"
	// TraceIDKey is the context key for the trace ID
	TraceIDKey ContextKey = "trace_id"
	// MessageIDKey is the context key for the message ID
	MessageIDKey ContextKey = "message_id"
)

// Identity carries the ids threaded through model and tool invocations.
// UserID and SessionID are stable for a session; TraceID and MessageID
// are minted per turn.
type Identity struct {
	UserID    string
	SessionID string
	TraceID   string
	MessageID string
}

// NewSession returns the identity for a fresh session. Per-turn ids stay
// empty until NextTurn.
func NewSession(userID string) Identity {
	if userID == "" {
		userID = DefaultUserID
	}
	return Identity{
		UserID:    userID,
		SessionID: uuid.New().String(),
	}
}

// NextTurn returns a copy with fresh trace and message ids.
func (id Identity) NextTurn() Identity {
	id.TraceID = NewTraceID()
	id.MessageID = NewMessageID()
	return id
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// NewMessageID generates a new message ID
func NewMessageID() string {
	mid, err := gonanoid.New()
	if err != nil {
		return uuid.New().String()
	}
	return mid
}

// WithIdentity adds all identity fields to the context
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if id.UserID != "" {
		ctx = context.WithValue(ctx, UserIDKey, id.UserID)
	}
	if id.SessionID != "" {
		ctx = context.WithValue(ctx, SessionIDKey, id.SessionID)
	}
	if id.TraceID != "" {
		ctx = context.WithValue(ctx, TraceIDKey, id.TraceID)
	}
	if id.MessageID != "" {
		ctx = context.WithValue(ctx, MessageIDKey, id.MessageID)
	}
	return ctx
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetUserID retrieves the user ID from the context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}

// GetSessionID retrieves the session ID from the context
func GetSessionID(ctx context.Context) string {
	if sessionID, ok := ctx.Value(SessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// GetMessageID retrieves the message ID from the context
func GetMessageID(ctx context.Context) string {
	if messageID, ok := ctx.Value(MessageIDKey).(string); ok {
		return messageID
	}
	return ""
}

// FromContext extracts the identity from the context
func FromContext(ctx context.Context) Identity {
	return Identity{
		UserID:    GetUserID(ctx),
		SessionID: GetSessionID(ctx),
		TraceID:   GetTraceID(ctx),
		MessageID: GetMessageID(ctx),
	}
}
