package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	ServiceCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "service_calls_total",
			Help: "Total number of service operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	TradesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trades_created_total",
			Help: "Total number of trade proposals created",
		},
	)

	TradeTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_transitions_total",
			Help: "Total number of trade status changes by target status",
		},
		[]string{"status"},
	)

	ChatMessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total number of negotiation messages stored",
		},
	)
)

var registerOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequests,
			HTTPDuration,
			ServiceCalls,
			TradesCreated,
			TradeTransitions,
			ChatMessagesSent,
		)
	})
}

// RecordCall counts one service operation; outcome is "ok" or an error kind
func RecordCall(operation, outcome string) {
	ServiceCalls.WithLabelValues(operation, outcome).Inc()
}
