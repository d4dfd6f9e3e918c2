package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	turnTotal       *prometheus.CounterVec
	turnDuration    *prometheus.HistogramVec
	turnIterations  *prometheus.HistogramVec
	turnErrorsTotal *prometheus.CounterVec

	modelCallTotal    *prometheus.CounterVec
	modelCallDuration *prometheus.HistogramVec
	modelTokensTotal  *prometheus.CounterVec

	toolCallTotal    *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	toolErrorsTotal  *prometheus.CounterVec

	toolServerUp    prometheus.Gauge
	toolsDiscovered prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			turnTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agent_turn_total",
					Help: "Total conversation turns by provider and status.",
				},
				[]string{"provider", "status"},
			),
			turnDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "agent_turn_duration_seconds",
					Help:    "Turn duration in seconds by provider.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider"},
			),
			turnIterations: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "agent_turn_iterations",
					Help:    "Model invocations needed to finish a turn.",
					Buckets: []float64{1, 2, 3, 5, 8, 10, 15},
				},
				[]string{"provider"},
			),
			turnErrorsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agent_turn_errors_total",
					Help: "Total failed turns by provider and error kind.",
				},
				[]string{"provider", "kind"},
			),
			modelCallTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "model_call_total",
					Help: "Total model invocations by provider, model and status.",
				},
				[]string{"provider", "model", "status"},
			),
			modelCallDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "model_call_duration_seconds",
					Help:    "Model invocation duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider", "model"},
			),
			modelTokensTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "model_tokens_total",
					Help: "Total tokens by provider, model and direction.",
				},
				[]string{"provider", "model", "direction"},
			),
			toolCallTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_call_total",
					Help: "Total tool invocations by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolCallDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tool_call_duration_seconds",
					Help:    "Tool invocation duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			toolErrorsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_errors_total",
					Help: "Total tool invocation errors by tool.",
				},
				[]string{"tool"},
			),
			toolServerUp: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "tool_server_up",
					Help: "Tool server subprocess state (1 running, 0 stopped).",
				},
			),
			toolsDiscovered: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "tools_discovered",
					Help: "Tool definitions discovered from the tool server.",
				},
			),
		}

		prometheus.MustRegister(
			m.turnTotal,
			m.turnDuration,
			m.turnIterations,
			m.turnErrorsTotal,
			m.modelCallTotal,
			m.modelCallDuration,
			m.modelTokensTotal,
			m.toolCallTotal,
			m.toolCallDuration,
			m.toolErrorsTotal,
			m.toolServerUp,
			m.toolsDiscovered,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordTurn(provider string, duration time.Duration, iterations int, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.turnTotal.WithLabelValues(provider, status).Inc()
	m.turnDuration.WithLabelValues(provider).Observe(duration.Seconds())
	m.turnIterations.WithLabelValues(provider).Observe(float64(iterations))
}

func RecordTurnFailure(provider, kind string) {
	m := getMetrics()
	m.turnErrorsTotal.WithLabelValues(provider, kind).Inc()
}

func RecordModelCall(provider, model string, duration time.Duration, usage TokenUsage, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.modelCallTotal.WithLabelValues(provider, model, status).Inc()
	m.modelCallDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	if usage.Input > 0 {
		m.modelTokensTotal.WithLabelValues(provider, model, "input").Add(float64(usage.Input))
	}
	if usage.Output > 0 {
		m.modelTokensTotal.WithLabelValues(provider, model, "output").Add(float64(usage.Output))
	}
}

func RecordToolCall(tool string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.toolCallTotal.WithLabelValues(tool, status).Inc()
	m.toolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
	if !success {
		m.toolErrorsTotal.WithLabelValues(tool).Inc()
	}
}

func SetToolServerUp(up bool) {
	m := getMetrics()
	value := 0.0
	if up {
		value = 1.0
	}
	m.toolServerUp.Set(value)
}

func SetToolsDiscovered(count int) {
	m := getMetrics()
	m.toolsDiscovered.Set(float64(count))
}
