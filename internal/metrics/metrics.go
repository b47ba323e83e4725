package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flotilla_requests_total",
		Help: "Total API requests by endpoint family and outcome.",
	}, []string{"endpoint", "status"})
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flotilla_request_duration_seconds",
		Help:    "Duration of API request resolution.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flotilla_updates_total",
		Help: "Total update records finalized, by operation and success.",
	}, []string{"operation", "success"})
	ServersPolled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flotilla_servers_polled",
		Help: "Number of servers contacted in the last poll cycle.",
	})
	ServersUnreachable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flotilla_servers_unreachable",
		Help: "Number of enabled servers unreachable in the last poll cycle.",
	})
	PollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flotilla_poll_duration_seconds",
		Help:    "Duration of one full status poll cycle.",
		Buckets: prometheus.DefBuckets,
	})
	AlertsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flotilla_alerts_sent_total",
		Help: "Alerts dispatched to sinks, by sink type and outcome.",
	}, []string{"sink", "outcome"})
)
