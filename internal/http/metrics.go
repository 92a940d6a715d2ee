package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conti_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conti_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	expensesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conti_expenses_created_total",
		Help: "Expenses created, by split type.",
	}, []string{"split_type"})

	rateLimitHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conti_rate_limit_hits_total",
		Help: "Requests rejected by the rate limiter.",
	})
)
