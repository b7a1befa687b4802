package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2a_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "a2a_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Protocol metrics
	AgentsRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "a2a_agents_registered_total",
			Help: "Total agents registered",
		},
	)

	ChallengesIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "a2a_auth_challenges_issued_total",
			Help: "Total auth challenges issued",
		},
	)

	TokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "a2a_auth_tokens_issued_total",
			Help: "Total bearer tokens issued",
		},
	)

	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2a_auth_failures_total",
			Help: "Total authentication failures",
		},
		[]string{"reason"},
	)

	EnvelopesRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2a_envelopes_relayed_total",
			Help: "Total envelopes accepted for relay",
		},
		[]string{"kind"},
	)

	EnvelopesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2a_envelopes_dropped_total",
			Help: "Total inbound envelopes dropped",
		},
		[]string{"reason"}, // "invalid" or "misaddressed"
	)

	TransactionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "a2a_transactions_created_total",
			Help: "Total transactions created",
		},
	)

	TransactionsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "a2a_transactions_submitted_total",
			Help: "Total transactions submitted",
		},
	)

	TransactionStatusPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2a_transaction_status_polls_total",
			Help: "Total transaction status polls by outcome",
		},
		[]string{"status"},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2a_rate_limit_hits_total",
			Help: "Total rate limit rejections",
		},
		[]string{"endpoint"},
	)
)
