package observability

import (
	"context"

	"github.com/aretw0/yurt/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeMiss  = "miss" // load of an ID the store does not know
)

// Metrics records session events as Prometheus series.
type Metrics struct {
	events   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yurt_session_events_total",
				Help: "Total number of session lifecycle events",
			},
			[]string{"event", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "yurt_session_store_duration_seconds",
				Help:    "Duration of session store calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"event"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.events, m.duration)
	}
	return m
}

// Hooks returns the lifecycle hooks feeding m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	record := func(_ context.Context, e *domain.SessionEvent) {
		m.Observe(e)
	}
	return domain.LifecycleHooks{
		OnOpen:   record,
		OnLoad:   record,
		OnSave:   record,
		OnRemove: record,
	}
}

// Observe records a single event.
func (m *Metrics) Observe(e *domain.SessionEvent) {
	m.events.WithLabelValues(string(e.Type), outcome(e)).Inc()
	if e.Type != domain.EventOpen && e.Type != domain.EventClear {
		// only store round trips are timed
		m.duration.WithLabelValues(string(e.Type)).Observe(e.Duration.Seconds())
	}
}

func outcome(e *domain.SessionEvent) string {
	switch {
	case e.Err != nil:
		return OutcomeError
	case e.Type == domain.EventLoad && !e.Found:
		return OutcomeMiss
	default:
		return OutcomeOK
	}
}
