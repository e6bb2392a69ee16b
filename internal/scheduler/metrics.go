package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loopTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "txfib_scheduler_ticks_total",
		Help: "Slices granted by the cooperative loop.",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "txfib_scheduler_queue_depth",
		Help: "Tasks waiting for a slice.",
	})

	taskOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txfib_scheduler_tasks_total",
			Help: "Finished cooperative tasks by strategy and outcome.",
		},
		[]string{"strategy", "outcome"},
	)
)
