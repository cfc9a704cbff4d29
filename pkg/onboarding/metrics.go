package onboarding

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the engine's Prometheus collectors.
type Metrics struct {
	RunsStarted   prometheus.Counter
	Transitions   *prometheus.CounterVec
	Errors        *prometheus.CounterVec
	Completed     prometheus.Counter
	PhaseDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "onboarding",
			Name:      "runs_started_total",
			Help:      "Number of onboarding runs started from idle",
		}),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "onboarding",
				Name:      "transitions_total",
				Help:      "Number of state transitions by state entered",
			},
			[]string{"state"},
		),
		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "onboarding",
				Name:      "errors_total",
				Help:      "Number of reported errors by phase and kind",
			},
			[]string{"phase", "kind"},
		),
		Completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "onboarding",
			Name:      "completed_total",
			Help:      "Number of runs that reached TARGET_ANNOUNCE_RECEIVED",
		}),
		PhaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "onboarding",
				Name:      "phase_duration_seconds",
				Help:      "Time from joining a network to the device announcing on it",
				Buckets:   prometheus.ExponentialBuckets(0.25, 2, 9), // 250ms to ~64s
			},
			[]string{"phase"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.RunsStarted, m.Transitions, m.Errors, m.Completed, m.PhaseDuration)
	}
	return m
}
