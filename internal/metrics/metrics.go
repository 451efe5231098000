// ABOUTME: Prometheus metrics for command dispatch, reminders, and the event stream
// ABOUTME: Registered via promauto and exposed on the configurable metrics path

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommandDuration tracks end-to-end command handling (interpret + dispatch).
	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chime_command_duration_seconds",
			Help:    "Command handling duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"status"},
	)

	// ActionsTotal counts dispatched actions by kind and outcome.
	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chime_actions_total",
			Help: "Total number of dispatched actions",
		},
		[]string{"kind", "status"},
	)

	// RemindersFired counts reminder timers that reached the due transition.
	RemindersFired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chime_reminders_fired_total",
			Help: "Total number of reminders that transitioned to due",
		},
	)

	// EventSubscribers tracks currently connected event stream subscribers.
	EventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chime_event_subscribers",
			Help: "Number of live event stream subscribers",
		},
	)

	// ModelCallDuration tracks language model call latency by role.
	ModelCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chime_model_call_duration_seconds",
			Help:    "Language model call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"role", "status"}, // role: interpret, compose
	)
)
