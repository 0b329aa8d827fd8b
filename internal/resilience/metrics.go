package resilience

import "github.com/prometheus/client_golang/prometheus"

var (
	breakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mayorista",
		Subsystem: "breaker",
		Name:      "state",
		Help:      "Breaker position per guarded dependency: 0 closed, 1 open, 2 half-open.",
	}, []string{"target"})
	breakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mayorista",
		Subsystem: "breaker",
		Name:      "transitions_total",
		Help:      "Breaker state changes per guarded dependency.",
	}, []string{"target", "from", "to"})
)

func init() {
	prometheus.MustRegister(breakerState, breakerTransitions)
}

func observeTransition(target string, from, to State) {
	breakerState.WithLabelValues(target).Set(float64(to))
	breakerTransitions.WithLabelValues(target, from.String(), to.String()).Inc()
}
