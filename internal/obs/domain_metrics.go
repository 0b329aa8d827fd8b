package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartMutationsTotal counts cart mutations by operation and outcome.
	CartMutationsTotal *prometheus.CounterVec
	// OrdersSubmittedTotal counts submission attempts by outcome.
	OrdersSubmittedTotal *prometheus.CounterVec
	// OrderTotalAmount records the gross total of committed orders.
	OrderTotalAmount prometheus.Histogram
	// AdvisorRequestsTotal counts suggestion requests by kind and outcome.
	AdvisorRequestsTotal *prometheus.CounterVec
	// OrderEventsTotal counts events published by the worker.
	OrderEventsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartMutationsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart mutations by operation and result.",
		}, []string{"op", "result"}))
		OrdersSubmittedTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Count of order submission attempts by result.",
		}, []string{"result"}))
		OrderTotalAmount = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_total_amount",
			Help:      "Gross total of committed orders in currency units.",
			Buckets:   []float64{50_000, 100_000, 250_000, 500_000, 1_000_000, 2_500_000, 5_000_000, 10_000_000},
		}))
		AdvisorRequestsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisor_requests_total",
			Help:      "Count of text suggestion requests by kind and result.",
		}, []string{"kind", "result"}))
		OrderEventsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_events_total",
			Help:      "Count of order events emitted by topic and result.",
		}, []string{"topic", "result"}))
	})
}

// ObserveCartMutation increments the cart mutation counter when registered.
func ObserveCartMutation(op, result string) {
	if CartMutationsTotal != nil {
		CartMutationsTotal.WithLabelValues(op, result).Inc()
	}
}

// ObserveOrderSubmitted records a submission outcome and, for committed
// orders, the order total.
func ObserveOrderSubmitted(result string, total int64) {
	if OrdersSubmittedTotal != nil {
		OrdersSubmittedTotal.WithLabelValues(result).Inc()
	}
	if result == "committed" && OrderTotalAmount != nil {
		OrderTotalAmount.Observe(float64(total))
	}
}

// ObserveAdvisorRequest increments the advisor counter when registered.
func ObserveAdvisorRequest(kind, result string) {
	if AdvisorRequestsTotal != nil {
		AdvisorRequestsTotal.WithLabelValues(kind, result).Inc()
	}
}

// ObserveOrderEvent increments the event counter when registered.
func ObserveOrderEvent(topic, result string) {
	if OrderEventsTotal != nil {
		OrderEventsTotal.WithLabelValues(topic, result).Inc()
	}
}
