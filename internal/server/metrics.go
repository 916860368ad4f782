package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the server's prometheus collectors. Labels carry route names
// only, never subjects: request volume per user is not something the relay
// should record.
type metrics struct {
	requests *prometheus.CounterVec
	rejected *prometheus.CounterVec
	enqueued prometheus.Counter
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "murmurd",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status class.",
		}, []string{"route", "status"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "murmurd",
			Name:      "auth_rejections_total",
			Help:      "Requests rejected before reaching a handler.",
		}, []string{"route", "reason"}),
		enqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "murmurd",
			Name:      "envelopes_enqueued_total",
			Help:      "Envelopes accepted into recipient queues.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "murmurd",
			Name:      "http_request_duration_seconds",
			Help:      "Handler latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	reg.MustRegister(m.requests, m.rejected, m.enqueued, m.duration)
	return m
}
