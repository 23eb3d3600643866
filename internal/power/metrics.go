package power

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	powered = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sensornode",
		Subsystem: "sensor",
		Name:      "powered",
		Help:      "Whether the sensor is powered (1) or off (0)",
	})

	users = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sensornode",
		Subsystem: "sensor",
		Name:      "power_users",
		Help:      "Outstanding power usage references",
	})
)
