// Package metrics provides optional Prometheus instrumentation for the
// engine facade, grounded on the teacher's scheduler-service metrics
// package. Nil-safe throughout: a facade with no Recorder attached
// records nothing and pays no Prometheus cost.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the engine's Prometheus collectors.
type Recorder struct {
	EventsProcessed  *prometheus.CounterVec
	ModelUpdates     *prometheus.CounterVec
	PlanningDuration prometheus.Histogram
	ActionsByType    *prometheus.CounterVec
}

// New registers and returns a Recorder on the default registry.
// Embedders who want a private registry should use NewWithRegisterer.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the engine's collectors on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		EventsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "noesis_events_processed_total",
				Help: "Total number of events processed by the engine facade.",
			},
			[]string{"event_type"},
		),
		ModelUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "noesis_model_updates_total",
				Help: "Total number of per-skill learner-model updates.",
			},
			[]string{"component"},
		),
		PlanningDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "noesis_planning_duration_seconds",
				Help:    "Time spent computing a session plan.",
				Buckets: prometheus.DefBuckets,
			},
		),
		ActionsByType: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "noesis_actions_total",
				Help: "Total number of session actions produced, by type.",
			},
			[]string{"action_type"},
		),
	}
}

// ObserveEvent is a nil-safe counter bump for an incoming event.
func (r *Recorder) ObserveEvent(eventType string) {
	if r == nil {
		return
	}
	r.EventsProcessed.WithLabelValues(eventType).Inc()
}

// ObserveModelUpdate is a nil-safe counter bump for a model update.
func (r *Recorder) ObserveModelUpdate(component string) {
	if r == nil {
		return
	}
	r.ModelUpdates.WithLabelValues(component).Inc()
}

// ObserveAction is a nil-safe counter bump for a produced action.
func (r *Recorder) ObserveAction(actionType string) {
	if r == nil {
		return
	}
	r.ActionsByType.WithLabelValues(actionType).Inc()
}

// ObservePlanningSeconds is a nil-safe histogram observation.
func (r *Recorder) ObservePlanningSeconds(seconds float64) {
	if r == nil {
		return
	}
	r.PlanningDuration.Observe(seconds)
}
