package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels for tool calls
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calchat_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calchat_tool_calls_total",
			Help: "Total number of executed calendar operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	ToolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "calchat_tool_call_duration_seconds",
			Help:    "Latency of calendar operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calchat_chat_requests_total",
			Help: "Total number of chat calls by result",
		},
		[]string{"result"},
	)

	PlannerRounds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "calchat_planner_rounds",
			Help:    "Planning rounds needed to answer one chat call",
			Buckets: []float64{1, 2, 3, 4, 5, 7, 10, 15, 20},
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal, ToolCallsTotal, ToolCallDuration, ChatRequestsTotal, PlannerRounds)
}

// ObserveToolCall records one executed operation
func ObserveToolCall(operation string, ok bool, seconds float64) {
	outcome := OutcomeSuccess
	if !ok {
		outcome = OutcomeError
	}
	ToolCallsTotal.WithLabelValues(operation, outcome).Inc()
	ToolCallDuration.WithLabelValues(operation).Observe(seconds)
}
