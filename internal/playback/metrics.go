package playback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsOpenedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coursecast",
			Name:      "playback_sessions_opened_total",
			Help:      "Total playback sessions opened, by engine.",
		},
		[]string{"engine"},
	)

	sessionsEndedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coursecast",
			Name:      "playback_sessions_ended_total",
			Help:      "Total playback sessions that reached natural end-of-stream.",
		},
	)

	recoveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coursecast",
			Name:      "playback_recoveries_total",
			Help:      "Recovery attempts by error class.",
		},
		[]string{"class"},
	)

	transientErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coursecast",
			Name:      "playback_transient_errors_total",
			Help:      "Swallowed transient engine errors by code.",
		},
		[]string{"code"},
	)

	fatalTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coursecast",
			Name:      "playback_fatal_total",
			Help:      "Terminal playback failures by kind.",
		},
		[]string{"kind"},
	)

	stateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coursecast",
			Name:      "playback_state_transitions_total",
			Help:      "Session state machine transitions.",
		},
		[]string{"state_from", "state_to"},
	)
)
