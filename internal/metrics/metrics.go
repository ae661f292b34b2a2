// Package metrics provides Prometheus instrumentation for the Hub.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry-lifecycle metrics.
var (
	ActiveServices = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sockethub_active_services",
		Help: "Number of services currently registered with the Hub.",
	})

	RegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sockethub_registrations_total",
		Help: "Total backend registration attempts by outcome.",
	}, []string{"outcome"})

	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sockethub_probes_total",
		Help: "Total incumbent liveness probes performed during registration, by outcome.",
	}, []string{"outcome"})
)

// Handoff metrics.
var (
	HandoffsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sockethub_handoffs_total",
		Help: "Total client handoff attempts by outcome.",
	}, []string{"outcome"})
)
