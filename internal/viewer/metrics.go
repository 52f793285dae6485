package viewer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "coursecast",
		Subsystem: "viewer",
		Name:      "sessions_active",
		Help:      "Currently live viewer sessions.",
	})

	sessionsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "coursecast",
		Subsystem: "viewer",
		Name:      "sessions_opened_total",
		Help:      "Viewer sessions opened.",
	})

	sessionsClosedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coursecast",
		Subsystem: "viewer",
		Name:      "sessions_closed_total",
		Help:      "Viewer sessions closed, by cause.",
	}, []string{"cause"})
)
