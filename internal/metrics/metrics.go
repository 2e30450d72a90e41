package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "useradmin"
)

var (
	// Users service metrics
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Count of users service requests.",
	}, []string{"method", "route", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "Time taken to serve a users service request.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// Users service client metrics
	ClientRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_requests_total",
		Help:      "Count of calls from the panel to the users service.",
	}, []string{"operation", "outcome"})

	ClientRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "client_request_duration_seconds",
		Help:      "Latency of calls from the panel to the users service.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	// Panel metrics
	PanelActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "panel_actions_total",
		Help:      "Count of user management actions taken in the panel.",
	}, []string{"action", "outcome"})
)

const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)
