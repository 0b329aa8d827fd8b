package queue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	readyTasks = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mayorista",
		Subsystem: "queue",
		Name:      "ready_tasks",
		Help:      "Approximate number of tasks waiting per kind, such as order-submitted.",
	}, []string{"kind"})
	taskOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mayorista",
		Subsystem: "queue",
		Name:      "task_outcomes_total",
		Help:      "Task deliveries by kind and outcome (ok, retry, dead_letter, reclaimed, lost).",
	}, []string{"kind", "outcome"})
	taskDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mayorista",
		Subsystem: "queue",
		Name:      "task_duration_seconds",
		Help:      "Handler run time per delivery.",
		Buckets:   []float64{.005, .025, .1, .25, 1, 2.5, 10, 30},
	}, []string{"kind"})
	deadLettered = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mayorista",
		Subsystem: "queue",
		Name:      "dead_letters",
		Help:      "Tasks parked after exhausting their attempts.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(readyTasks, taskOutcomes, taskDuration, deadLettered)
}

func observeDelivery(kind, outcome string, took time.Duration) {
	taskOutcomes.WithLabelValues(kind, outcome).Inc()
	taskDuration.WithLabelValues(kind).Observe(took.Seconds())
}
