package bus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sensornode",
		Subsystem: "bus",
		Name:      "transactions_total",
		Help:      "Register transactions issued, by operation",
	}, []string{"op"})

	failures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sensornode",
		Subsystem: "bus",
		Name:      "errors_total",
		Help:      "Failed register transactions, by operation and error code",
	}, []string{"op", "code"})
)

func observe(op string, err error) {
	transactions.WithLabelValues(op).Inc()
	if err != nil {
		failures.WithLabelValues(op, codeOf(err)).Inc()
	}
}
