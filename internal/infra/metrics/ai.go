package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(aiCallsLatencyMs, aiTokensIn, aiTokensOut) }

var aiCallsLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "ai_calls_latency_ms",
		Help:    "AI provider call latency distribution in milliseconds.",
		Buckets: []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000, 30000, 60000},
	},
	[]string{"operation", "success"}, // 'transcribe', 'generate'
)

var aiTokensIn = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "ai_tokens_in",
		Help: "Sum of prompt (input) tokens across generation calls.",
	},
)

var aiTokensOut = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "ai_tokens_out",
		Help: "Sum of completion (output) tokens across generation calls.",
	},
)

func ObserveAICall(operation string, latencyMs int, success bool) {
	aiCallsLatencyMs.WithLabelValues(norm(operation), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func AddTokens(in, out int) {
	aiTokensIn.Add(float64(in))
	aiTokensOut.Add(float64(out))
}
