package offload

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	poolWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "txfib_offload_pool_workers",
		Help: "Worker goroutines across open pools.",
	})
	poolBusy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "txfib_offload_pool_busy",
		Help: "Pool workers currently running a computation.",
	})
	poolQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "txfib_offload_pool_queued",
		Help: "Computations waiting for a pool worker.",
	})
	poolJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "txfib_offload_pool_jobs_total",
		Help: "Pooled computations by outcome.",
	}, []string{"outcome"})

	processLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "txfib_offload_processes_live",
		Help: "Worker processes currently running.",
	})
	processRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "txfib_offload_processes_total",
		Help: "Worker process launches by outcome.",
	}, []string{"outcome"})
	processDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "txfib_offload_process_duration_seconds",
		Help:    "Wall time of worker processes, launch to reap.",
		Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
	})
)
