// Package metrics holds the prometheus collectors shared across packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClockOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sleeplog",
		Name:      "clock_operations_total",
		Help:      "Clock-in and clock-out attempts by result.",
	}, []string{"operation", "result"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sleeplog",
		Name:      "cache_lookups_total",
		Help:      "Cache reads by key family and result (hit, miss, error).",
	}, []string{"family", "result"})

	CacheDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sleeplog",
		Name:      "cache_degraded_total",
		Help:      "Cache operations that failed and fell back to the store.",
	}, []string{"operation"})

	JobsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sleeplog",
		Name:      "jobs_enqueued_total",
		Help:      "Jobs written to the queue by kind and result.",
	}, []string{"kind", "result"})

	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sleeplog",
		Name:      "jobs_processed_total",
		Help:      "Jobs handled by workers by kind and result (ok, retry, failed).",
	}, []string{"kind", "result"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sleeplog",
		Name:      "job_duration_seconds",
		Help:      "Time spent in job handlers.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sleeplog",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route pattern and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sleeplog",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)
