// Package metrics exposes prometheus instruments for the settlement core.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	commands *prometheus.CounterVec
	events   *prometheus.CounterVec
}

// New registers the settlement instruments on the default registry. A second
// call adopts the collectors registered by the first, so every instance
// increments the vectors /metrics actually serves.
func New() *Metrics {
	return &Metrics{
		commands: register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_commands_total",
			Help: "Invoice commands processed, by command and result.",
		}, []string{"command", "result"})),
		events: register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_events_emitted_total",
			Help: "Domain events handed to the notification dispatcher, by type and result.",
		}, []string{"type", "result"})),
	}
}

func register(vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector.(*prometheus.CounterVec)
		}
		panic(err)
	}
	return vec
}

// ObserveCommand counts one processed command outcome.
func (m *Metrics) ObserveCommand(command string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.commands.WithLabelValues(command, result).Inc()
}

// ObserveEvent counts one dispatched domain event outcome.
func (m *Metrics) ObserveEvent(eventType string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.events.WithLabelValues(eventType, result).Inc()
}
