// Package metrics holds the Prometheus instrumentation shared by the event
// registry and the resource stores. A nil *Metrics is valid and records nothing.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const maxLabelLen = 64

// sanitizeLabel keeps label values bounded and non-empty.
func sanitizeLabel(s string) string {
	if s == "" {
		return "unknown"
	}
	s = strings.ReplaceAll(s, " ", "_")
	if len(s) > maxLabelLen {
		s = s[:maxLabelLen]
	}
	return s
}

// Metrics groups the collectors used across the shell.
type Metrics struct {
	eventsDelivered  *prometheus.CounterVec
	handlerFailures  *prometheus.CounterVec
	storeLoads       *prometheus.CounterVec
	operationsActive *prometheus.GaugeVec
}

// New builds the collectors and registers them with reg. A nil reg skips
// registration, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		eventsDelivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rayshell",
				Subsystem: "events",
				Name:      "delivered_total",
				Help:      "Push events delivered to bound handlers, by topic",
			},
			[]string{"topic"},
		),
		handlerFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rayshell",
				Subsystem: "events",
				Name:      "handler_failures_total",
				Help:      "Handler panics recovered during delivery, by topic",
			},
			[]string{"topic"},
		),
		storeLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rayshell",
				Subsystem: "store",
				Name:      "loads_total",
				Help:      "Collection reloads by store and outcome",
			},
			[]string{"store", "outcome"},
		),
		operationsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "rayshell",
				Subsystem: "store",
				Name:      "operations_in_flight",
				Help:      "Resource ids currently tracked as in flight, by store",
			},
			[]string{"store"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.eventsDelivered, m.handlerFailures, m.storeLoads, m.operationsActive)
	}
	return m
}

// EventDelivered counts one handler invocation for topic.
func (m *Metrics) EventDelivered(topic string) {
	if m == nil {
		return
	}
	m.eventsDelivered.WithLabelValues(sanitizeLabel(topic)).Inc()
}

// HandlerFailed counts one recovered handler panic for topic.
func (m *Metrics) HandlerFailed(topic string) {
	if m == nil {
		return
	}
	m.handlerFailures.WithLabelValues(sanitizeLabel(topic)).Inc()
}

// StoreLoaded counts a reload of store. err decides the outcome label.
func (m *Metrics) StoreLoaded(store string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.storeLoads.WithLabelValues(sanitizeLabel(store), outcome).Inc()
}

// SetInFlight records the size of a store's in-flight set.
func (m *Metrics) SetInFlight(store string, n int) {
	if m == nil {
		return
	}
	m.operationsActive.WithLabelValues(sanitizeLabel(store)).Set(float64(n))
}
