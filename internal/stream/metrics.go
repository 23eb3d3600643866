package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	streaming = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sensornode",
		Subsystem: "sensor",
		Name:      "streaming",
		Help:      "Whether the sensor is streaming (1) or in standby (0)",
	})

	starts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sensornode",
		Subsystem: "stream",
		Name:      "starts_total",
		Help:      "Successful standby to streaming transitions",
	})

	secondaryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sensornode",
		Subsystem: "stream",
		Name:      "secondary_failures_total",
		Help:      "Mode register writes that failed during a stream transition",
	}, []string{"phase"})
)
