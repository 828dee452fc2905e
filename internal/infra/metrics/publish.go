package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(publishAttemptsTotal, publishLatencyMs, postTransitionsTotal, rateLimitDeferrals)
}

var publishAttemptsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "publish_attempts_total",
		Help: "Outbound publish attempts per platform and outcome.",
	},
	[]string{"platform", "outcome"}, // 'published', 'transient', 'permanent'
)

var publishLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "publish_latency_ms",
		Help:    "Adapter publish call latency distribution in milliseconds.",
		Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 30000},
	},
	[]string{"platform"},
)

var postTransitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "post_transitions_total",
		Help: "Marketing post state machine transitions.",
	},
	[]string{"to"},
)

var rateLimitDeferrals = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "publish_rate_limit_deferrals_total",
		Help: "Due posts deferred to a later cycle by the platform rate limiter.",
	},
	[]string{"platform"},
)

func ObservePublish(platform, outcome string, latencyMs int) {
	publishAttemptsTotal.WithLabelValues(norm(platform), norm(outcome)).Inc()
	publishLatencyMs.WithLabelValues(norm(platform)).Observe(float64(latencyMs))
}

func IncTransition(to string) {
	postTransitionsTotal.WithLabelValues(norm(to)).Inc()
}

func IncRateLimitDeferral(platform string) {
	rateLimitDeferrals.WithLabelValues(norm(platform)).Inc()
}
