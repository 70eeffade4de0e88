package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_latency_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Ledger
	WalletTransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_transactions_total",
			Help: "Ledger entries reaching a terminal state",
		},
		[]string{"type", "status"},
	)
	PaymentCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Gateway callbacks by verification outcome",
		},
		[]string{"provider", "outcome"}, // completed|failed|replay|rejected
	)

	// Coordination
	LockContentionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lock_contention_total",
			Help: "Lock acquisitions refused because the key was held",
		},
		[]string{"scope"}, // wallet|transaction
	)

	// Reconciliation
	SweeperFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sweeper_failed_transactions_total",
			Help: "Stale PENDING transactions the sweeper marked FAILED",
		},
	)
)

// Handler serves the /metrics endpoint.
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestLatency)
	prometheus.MustRegister(WalletTransactionsTotal)
	prometheus.MustRegister(PaymentCallbacksTotal)
	prometheus.MustRegister(LockContentionTotal)
	prometheus.MustRegister(SweeperFailedTotal)
}
