package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RPCRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policyd",
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Total number of RPCs handled, by full method and status code",
		},
		[]string{"method", "code"},
	)

	RPCDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "policyd",
			Subsystem: "rpc",
			Name:      "duration_seconds",
			Help:      "RPC handling latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policyd",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Policy change events handed to the publisher",
		},
		[]string{"type", "result"},
	)

	EntitlementEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "policyd",
			Subsystem: "entitlement",
			Name:      "evaluations_total",
			Help:      "Entitlement resolutions, by outcome",
		},
		[]string{"result"},
	)

	RBACReloads = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "policyd",
			Subsystem: "rbac",
			Name:      "reloads_total",
			Help:      "Successful loads of the RBAC policy file",
		},
	)
)
