// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "escrowd"

var (
	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Trade state transitions by operation and outcome.",
	}, []string{"op", "outcome"})

	transitionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "transition_duration_seconds",
		Help:      "Latency of trade state transitions.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Settlement notifications by sink and outcome.",
	}, []string{"sink", "outcome"})

	notificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_dropped_total",
		Help:      "Settlement notifications dropped because the queue was full or closed.",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// ObserveTransition records one open, settle or cancel attempt.
func ObserveTransition(op, outcome string, elapsed time.Duration) {
	transitions.WithLabelValues(op, outcome).Inc()
	transitionDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveNotification records one delivery attempt to a sink.
func ObserveNotification(sink string, err error) {
	outcome := "delivered"
	if err != nil {
		outcome = "failed"
	}
	notifications.WithLabelValues(sink, outcome).Inc()
}

func NotificationDropped() { notificationsDropped.Inc() }

// ObserveHTTP records one served request.
func ObserveHTTP(method, route, status string, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
