package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aptos_yield"

// ── HTTP request metrics (RED method) ──────────────────────────────────

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status_code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being processed.",
	})
)

// ── Upstream calls ─────────────────────────────────────────────────────

var (
	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Total outbound requests per upstream and outcome.",
	}, []string{"upstream", "status"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "upstream",
		Name:      "duration_seconds",
		Help:      "Outbound request latency per upstream in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"upstream"})

	RetryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "upstream",
		Name:      "retries_total",
		Help:      "Total retried attempts per operation.",
	}, []string{"operation"})

	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "upstream",
		Name:      "breaker_state",
		Help:      "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open).",
	}, []string{"upstream"})
)

// ── Aggregation / fallback ─────────────────────────────────────────────

var (
	FallbackStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fallback",
		Name:      "steps_total",
		Help:      "Fallback chain step outcomes.",
	}, []string{"chain", "step", "outcome"})

	ProtocolDefaultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "staking",
		Name:      "protocol_defaults_total",
		Help:      "Times a protocol's hardcoded defaults replaced live data.",
	}, []string{"protocol"})

	ProtocolAPR = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "staking",
		Name:      "protocol_apr_percent",
		Help:      "Latest APR per protocol and product type.",
	}, []string{"protocol", "product_type"})

	StrategyAPR = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "staking",
		Name:      "strategy_apr_percent",
		Help:      "Latest blended APR per allocation strategy.",
	}, []string{"strategy"})

	NewsFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "news",
		Name:      "fallback_total",
		Help:      "Times the canned article set was served.",
	})
)

// ── LLM providers ──────────────────────────────────────────────────────

var LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "llm",
	Name:      "requests_total",
	Help:      "LLM completion requests per provider and outcome.",
}, []string{"provider", "status"})

// ── Cache / refresher ──────────────────────────────────────────────────

var (
	CacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Cache lookups per key and result.",
	}, []string{"key", "result"})

	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "refresh",
		Name:      "total",
		Help:      "Background refresh runs per component.",
	}, []string{"component", "status"})

	RefreshLastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "refresh",
		Name:      "last_success_timestamp",
		Help:      "Unix timestamp of the last successful refresh per component.",
	}, []string{"component"})
)
