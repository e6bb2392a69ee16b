package orchestration

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	computationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txfib_computations_total",
			Help: "Computations dispatched, by strategy, mode and final status.",
		},
		[]string{"strategy", "mode", "status"},
	)

	computationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "txfib_computation_duration_seconds",
			Help:    "Time from dispatch to resolution.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"strategy", "mode"},
	)
)
