package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func gatheredNames(t *testing.T) map[string]bool {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	names := make(map[string]bool)
	for _, mf := range families {
		names[*mf.Name] = true
	}
	return names
}

func TestRecordTurn(t *testing.T) {
	RecordTurn("azure", 2*time.Second, 3, true)
	RecordTurn("azure", time.Second, 1, false)

	names := gatheredNames(t)
	for _, want := range []string{
		"agent_turn_total",
		"agent_turn_duration_seconds",
		"agent_turn_iterations",
	} {
		if !names[want] {
			t.Errorf("Metric not registered: %s", want)
		}
	}
}

func TestRecordTurnFailure(t *testing.T) {
	RecordTurnFailure("ollama", "protocol_error")

	if !gatheredNames(t)["agent_turn_errors_total"] {
		t.Error("agent_turn_errors_total metric not found")
	}
}

func TestRecordModelCall(t *testing.T) {
	RecordModelCall("anthropic", "claude-sonnet-4-0", 800*time.Millisecond, TokenUsage{Input: 120, Output: 40}, true)
	RecordModelCall("anthropic", "claude-sonnet-4-0", 100*time.Millisecond, TokenUsage{}, false)

	names := gatheredNames(t)
	for _, want := range []string{
		"model_call_total",
		"model_call_duration_seconds",
		"model_tokens_total",
	} {
		if !names[want] {
			t.Errorf("Metric not registered: %s", want)
		}
	}
}

func TestRecordToolCall(t *testing.T) {
	RecordToolCall("list_branches", 300*time.Millisecond, true)
	RecordToolCall("list_branches", 100*time.Millisecond, false)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	var errorCount float64
	for _, mf := range families {
		if *mf.Name != "tool_errors_total" {
			continue
		}
		for _, metric := range mf.Metric {
			for _, label := range metric.Label {
				if *label.Name == "tool" && *label.Value == "list_branches" {
					errorCount = *metric.Counter.Value
				}
			}
		}
	}

	if errorCount != 1 {
		t.Errorf("Expected 1 tool error recorded, got %f", errorCount)
	}
}

func TestGauges(t *testing.T) {
	SetToolServerUp(true)
	SetToolsDiscovered(7)

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	for _, mf := range families {
		switch *mf.Name {
		case "tool_server_up":
			if *mf.Metric[0].Gauge.Value != 1 {
				t.Errorf("Expected tool_server_up 1, got %f", *mf.Metric[0].Gauge.Value)
			}
		case "tools_discovered":
			if *mf.Metric[0].Gauge.Value != 7 {
				t.Errorf("Expected tools_discovered 7, got %f", *mf.Metric[0].Gauge.Value)
			}
		}
	}

	SetToolServerUp(false)
}

func TestMetricsHandler(t *testing.T) {
	RecordTurn("azure", time.Second, 2, true)
	RecordToolCall("get_file_contents", 200*time.Millisecond, true)

	handler := MetricsHandler()
	if handler == nil {
		t.Fatal("MetricsHandler returned nil")
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	for _, metric := range []string{
		"agent_turn_total",
		"agent_turn_duration_seconds",
		"tool_call_total",
		"tool_call_duration_seconds",
		"tool_server_up",
		"tools_discovered",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("Metrics output missing: %s", metric)
		}
	}
}

func TestEnsureRegisteredIdempotent(t *testing.T) {
	// MustRegister panics on duplicate registration, so a second call
	// must reuse the existing instance.
	EnsureRegistered()
	EnsureRegistered()
}
