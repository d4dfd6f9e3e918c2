package tracing

import (
	"context"
	"testing"
)

func TestNewTraceID(t *testing.T) {
	id1 := NewTraceID()
	id2 := NewTraceID()

	if id1 == "" {
		t.Error("NewTraceID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewTraceID returned duplicate IDs")
	}
}

func TestNewMessageID(t *testing.T) {
	id1 := NewMessageID()
	id2 := NewMessageID()

	if id1 == "" {
		t.Error("NewMessageID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewMessageID returned duplicate IDs")
	}
}

func TestNewSession(t *testing.T) {
	id := NewSession("")

	if id.UserID != DefaultUserID {
		t.Errorf("Expected user ID %s, got %s", DefaultUserID, id.UserID)
	}
	if id.SessionID == "" {
		t.Error("NewSession returned empty session ID")
	}
	if id.TraceID != "" || id.MessageID != "" {
		t.Error("NewSession should leave per-turn ids empty")
	}

	named := NewSession("alice")
	if named.UserID != "alice" {
		t.Errorf("Expected user ID alice, got %s", named.UserID)
	}
}

func TestNextTurn(t *testing.T) {
	session := NewSession("")

	turn1 := session.NextTurn()
	turn2 := session.NextTurn()

	if turn1.TraceID == "" || turn1.MessageID == "" {
		t.Error("NextTurn should mint trace and message ids")
	}
	if turn1.TraceID == turn2.TraceID {
		t.Error("NextTurn returned duplicate trace IDs")
	}
	if turn1.MessageID == turn2.MessageID {
		t.Error("NextTurn returned duplicate message IDs")
	}
	if turn1.SessionID != session.SessionID {
		t.Error("NextTurn should keep the session ID")
	}
	if turn1.UserID != session.UserID {
		t.Error("NextTurn should keep the user ID")
	}
}

func TestWithIdentity(t *testing.T) {
	ctx := context.Background()
	id := Identity{
		UserID:    "test-user",
		SessionID: "test-session",
		TraceID:   "test-trace",
		MessageID: "test-message",
	}

	ctx = WithIdentity(ctx, id)

	got := FromContext(ctx)
	if got != id {
		t.Errorf("Expected identity %+v, got %+v", id, got)
	}
}

func TestWithTraceID(t *testing.T) {
	ctx := context.Background()
	traceID := "test-trace-id"

	ctx = WithTraceID(ctx, traceID)

	retrieved := GetTraceID(ctx)
	if retrieved != traceID {
		t.Errorf("Expected trace ID %s, got %s", traceID, retrieved)
	}
}

func TestGettersOnEmptyContext(t *testing.T) {
	ctx := context.Background()

	if GetUserID(ctx) != "" || GetSessionID(ctx) != "" || GetTraceID(ctx) != "" || GetMessageID(ctx) != "" {
		t.Error("getters on an empty context should return empty strings")
	}
}
